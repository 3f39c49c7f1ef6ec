package models

// RecoveryEvent is the loggable outcome of handling one failed task.
type RecoveryEvent struct {
	TaskID         string
	TaskTitle      string
	ErrorType      string
	Severity       string
	RetryAttempted bool
	RetrySucceeded bool
	Strategy       string
	Confidence     float64
}

// EvolutionSummary is the loggable outcome of one evolution cycle.
type EvolutionSummary struct {
	EvolutionID         string
	Version             int
	RunsAnalyzed        int
	NewSuggestions      int
	AppliedImprovements []string
	SuccessRateBefore   float64
	SuccessRateAfter    float64
}
