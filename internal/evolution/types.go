// Package evolution mutates the shared rule set from the history of
// completed runs.
//
// An Engine pulls recent run records, detects recurring inefficiencies,
// turns them into optimization suggestions, applies the safe ones as new
// strategy rules, re-scores existing rules and bumps the strategy version.
// The strategy is the only cross-run mutable state in the system; the Engine
// is its single writer.
package evolution

import (
	"sort"
	"time"
)

// InefficiencyType names a recurring problem detected in a run.
type InefficiencyType string

const (
	InefficiencySlowExecution InefficiencyType = "slow-execution"
	InefficiencyHighFailure   InefficiencyType = "high-failure"
	InefficiencyOverPlanning  InefficiencyType = "over-planning"
	InefficiencyUnderPlanning InefficiencyType = "under-planning"
)

// Complexity is the size tier of an analyzed run.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Category groups suggestions and selects the rule template they turn into.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryReliability Category = "reliability"
	CategoryAccuracy    Category = "accuracy"
	CategoryPlanning    Category = "planning"
	CategoryEfficiency  Category = "efficiency"
)

// Impact is the expected benefit of a suggestion.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Inefficiency is one finding in a single run.
type Inefficiency struct {
	Type        InefficiencyType `json:"type"`
	Severity    Impact           `json:"severity"`
	Description string           `json:"description"`
}

// ExecutionAnalysis is the per-run view used for pattern detection.
// ExecutionTime is in seconds.
type ExecutionAnalysis struct {
	RunID           string         `json:"run_id"`
	Complexity      Complexity     `json:"complexity"`
	TaskCount       int            `json:"task_count"`
	ExecutionTime   float64        `json:"execution_time"`
	SuccessRate     float64        `json:"success_rate"`
	ReflectionScore float64        `json:"reflection_score"`
	Inefficiencies  []Inefficiency `json:"inefficiencies"`
}

// Suggestion is a candidate improvement. Auto-applicable suggestions are
// converted into rules during the cycle that produced them; the rest wait
// for ApplySuggestion or DismissSuggestion.
type Suggestion struct {
	ID             string           `json:"id"`
	Category       Category         `json:"category"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Impact         Impact           `json:"impact"`
	Confidence     float64          `json:"confidence"`
	AutoApplicable bool             `json:"auto_applicable"`
	Applied        bool             `json:"applied"`
	AppliedAt      *time.Time       `json:"applied_at,omitempty"`
	Dismissed      bool             `json:"dismissed,omitempty"`
	Source         InefficiencyType `json:"source,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Pending reports whether the suggestion still awaits a decision.
func (s *Suggestion) Pending() bool {
	return !s.Applied && !s.Dismissed
}

// Rule is a condition/action pair consulted by future runs. Lower Priority
// wins; Effectiveness is kept in [0,1].
type Rule struct {
	Condition     string    `json:"condition"`
	Action        string    `json:"action"`
	Priority      int       `json:"priority"`
	Effectiveness float64   `json:"effectiveness"`
	TimesApplied  int       `json:"times_applied"`
	SuggestionID  string    `json:"suggestion_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Metrics is an aggregate snapshot. AvgExecutionTime is in seconds and
// ImprovementRate is a percentage.
type Metrics struct {
	AvgSuccessRate    float64 `json:"avg_success_rate"`
	AvgExecutionTime  float64 `json:"avg_execution_time"`
	ImprovementRate   float64 `json:"improvement_rate"`
	TotalRulesApplied int     `json:"total_rules_applied"`
}

// Sub returns m minus other, field by field.
func (m Metrics) Sub(other Metrics) Metrics {
	return Metrics{
		AvgSuccessRate:    m.AvgSuccessRate - other.AvgSuccessRate,
		AvgExecutionTime:  m.AvgExecutionTime - other.AvgExecutionTime,
		ImprovementRate:   m.ImprovementRate - other.ImprovementRate,
		TotalRulesApplied: m.TotalRulesApplied - other.TotalRulesApplied,
	}
}

// Strategy is the versioned rule set.
type Strategy struct {
	Version   int       `json:"version"`
	Rules     []Rule    `json:"rules"`
	Learnings []string  `json:"learnings"`
	Metrics   Metrics   `json:"metrics"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (s *Strategy) Clone() *Strategy {
	if s == nil {
		return nil
	}
	out := *s
	out.Rules = append([]Rule(nil), s.Rules...)
	out.Learnings = append([]string(nil), s.Learnings...)
	return &out
}

// SortRules orders rules by priority ascending, then effectiveness descending.
func (s *Strategy) SortRules() {
	sort.SliceStable(s.Rules, func(i, j int) bool {
		if s.Rules[i].Priority != s.Rules[j].Priority {
			return s.Rules[i].Priority < s.Rules[j].Priority
		}
		return s.Rules[i].Effectiveness > s.Rules[j].Effectiveness
	})
}

// HasRule reports whether a rule with the same condition and action exists.
func (s *Strategy) HasRule(condition, action string) bool {
	for _, r := range s.Rules {
		if r.Condition == condition && r.Action == action {
			return true
		}
	}
	return false
}

// MatchingRules returns the rules whose condition holds for facts, in rule order.
func (s *Strategy) MatchingRules(facts Facts) []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if EvaluateCondition(r.Condition, facts) {
			out = append(out, r)
		}
	}
	return out
}

// MetricsComparison is the before/after pair carried in a report.
type MetricsComparison struct {
	Before Metrics `json:"before"`
	After  Metrics `json:"after"`
	Delta  Metrics `json:"delta"`
}

// Report describes one evolution cycle.
type Report struct {
	EvolutionID         string                   `json:"evolution_id"`
	Timestamp           time.Time                `json:"timestamp"`
	RunsAnalyzed        int                      `json:"runs_analyzed"`
	Strategy            *Strategy                `json:"strategy"`
	Analyses            []ExecutionAnalysis      `json:"analyses,omitempty"`
	Patterns            map[InefficiencyType]int `json:"patterns,omitempty"`
	NewSuggestions      []Suggestion             `json:"new_suggestions"`
	AppliedImprovements []string                 `json:"applied_improvements"`
	Metrics             MetricsComparison        `json:"metrics"`
}

// State is the persisted form of the engine: strategy plus every
// suggestion it has produced.
type State struct {
	Strategy    *Strategy    `json:"strategy"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Clone returns a deep copy.
func (st *State) Clone() *State {
	if st == nil {
		return nil
	}
	out := &State{Strategy: st.Strategy.Clone()}
	out.Suggestions = make([]Suggestion, len(st.Suggestions))
	for i, s := range st.Suggestions {
		if s.AppliedAt != nil {
			at := *s.AppliedAt
			s.AppliedAt = &at
		}
		out.Suggestions[i] = s
	}
	return out
}

func (st *State) findSuggestion(id string) *Suggestion {
	for i := range st.Suggestions {
		if st.Suggestions[i].ID == id {
			return &st.Suggestions[i]
		}
	}
	return nil
}
