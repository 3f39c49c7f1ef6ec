package orchestrator

import (
	"time"

	"github.com/harrison/autopilot/internal/models"
	"github.com/harrison/autopilot/internal/recovery"
)

// RunResult is the composite outcome of one run. It is always returned,
// even when the run aborted; Error and a trailing error phase mark a
// systemic abort, Success=false without them marks partial execution.
type RunResult struct {
	RunID           string                     `json:"run_id"`
	Goal            string                     `json:"goal"`
	Success         bool                       `json:"success"`
	Message         string                     `json:"message,omitempty"`
	Intent          *models.Intent             `json:"intent,omitempty"`
	Safety          *models.SafetyReport       `json:"safety,omitempty"`
	Phases          []models.PhaseRecord       `json:"phases"`
	Plan            *models.Plan               `json:"plan,omitempty"`
	Execution       *models.ExecutionResult    `json:"execution,omitempty"`
	Reflection      *models.Reflection         `json:"reflection,omitempty"`
	Optimization    *models.OptimizationResult `json:"optimization,omitempty"`
	Failures        []*recovery.FailureRecord  `json:"failures,omitempty"`
	FailureAnalysis *recovery.FailureAnalysis  `json:"failure_analysis,omitempty"`
	RecoveryPlans   []*recovery.RecoveryPlan   `json:"recovery_plans"`
	AppliedRules    []string                   `json:"applied_rules,omitempty"`
	Recovered       int                        `json:"recovered"`
	Persisted       bool                       `json:"persisted"`
	Error           string                     `json:"error,omitempty"`
	Err             error                      `json:"-"`
	StartedAt       time.Time                  `json:"started_at"`
	TotalDuration   time.Duration              `json:"total_duration"`
}

// PhaseSequence returns the recorded phases in order.
func (r *RunResult) PhaseSequence() []models.Phase {
	out := make([]models.Phase, len(r.Phases))
	for i, p := range r.Phases {
		out[i] = p.Phase
	}
	return out
}

// Phase returns the last record for phase, if any.
func (r *RunResult) Phase(phase models.Phase) (models.PhaseRecord, bool) {
	for i := len(r.Phases) - 1; i >= 0; i-- {
		if r.Phases[i].Phase == phase {
			return r.Phases[i], true
		}
	}
	return models.PhaseRecord{}, false
}

// Aborted reports whether the run ended in an error phase.
func (r *RunResult) Aborted() bool {
	n := len(r.Phases)
	return n > 0 && r.Phases[n-1].Phase == models.PhaseError
}

// Summary condenses the result for logging.
func (r *RunResult) Summary() models.RunSummary {
	s := models.RunSummary{
		RunID:      r.RunID,
		Goal:       r.Goal,
		Success:    r.Success,
		Recoveries: r.Recovered,
		Duration:   r.TotalDuration,
		Error:      r.Error,
	}
	if r.Execution != nil {
		s.CompletedTasks = r.Execution.CompletedTasks
		s.FailedTasks = r.Execution.FailedTasks
	}
	return s
}
