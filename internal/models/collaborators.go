package models

// IntentType is the classification of a goal string.
type IntentType string

const (
	IntentExecutionGoal    IntentType = "EXECUTION_GOAL"
	IntentInformationQuery IntentType = "INFORMATION_QUERY"
	IntentAmbiguous        IntentType = "AMBIGUOUS"
)

// Intent is the intent classifier's verdict.
type Intent struct {
	Type            IntentType `json:"type"`
	Confidence      float64    `json:"confidence"`
	Reasoning       string     `json:"reasoning"`
	SuggestedAction string     `json:"suggested_action,omitempty"`
}

// SafetyReport is the safety validator's verdict on a goal.
type SafetyReport struct {
	Approved             bool     `json:"approved"`
	Summary              string   `json:"summary"`
	Violations           []string `json:"violations,omitempty"`
	ClarificationsNeeded []string `json:"clarifications_needed,omitempty"`
}

// Reflection is the reflector's assessment of a plan and its execution.
// Score is on a 0-100 scale; SuccessRate is a ratio in [0,1].
type Reflection struct {
	Score          float64  `json:"score"`
	Grade          string   `json:"grade"`
	SuccessRate    float64  `json:"success_rate"`
	Insights       []string `json:"insights,omitempty"`
	Improvements   []string `json:"improvements,omitempty"`
	LessonsLearned []string `json:"lessons_learned,omitempty"`
}

// Optimization is one proposal returned by the optimizer.
type Optimization struct {
	Area          string  `json:"area"`
	Description   string  `json:"description"`
	EstimatedGain float64 `json:"estimated_gain"`
}

// OptimizationResult is the optimizer's output. An empty result has a
// non-nil, zero-length Optimizations slice.
type OptimizationResult struct {
	Optimizations         []Optimization `json:"optimizations"`
	Patterns              []string       `json:"patterns"`
	EstimatedImprovements string         `json:"estimated_improvements,omitempty"`
}

// EmptyOptimization returns the result substituted when the optimizer fails.
func EmptyOptimization() *OptimizationResult {
	return &OptimizationResult{
		Optimizations: []Optimization{},
		Patterns:      []string{},
	}
}

// OptimizationContext is everything the optimizer may look at.
type OptimizationContext struct {
	Goal         Goal
	Plan         *Plan
	Execution    *ExecutionResult
	Reflection   *Reflection
	FailureTypes []string
}
