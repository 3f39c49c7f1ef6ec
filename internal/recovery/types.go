// Package recovery classifies failed tasks, retries them at most once, and
// proposes structured recovery plans when a retry does not help.
//
// The handler never returns errors from its analytical methods: every call
// produces a best-effort result, even if that result is a low-confidence
// manual-intervention plan.
package recovery

import (
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// FailureType is the classified cause of a task failure.
type FailureType string

const (
	FailureTimeout    FailureType = "timeout"
	FailureConnection FailureType = "connection"
	FailureValidation FailureType = "validation"
	FailureResource   FailureType = "resource"
	FailurePermission FailureType = "permission"
	FailureDependency FailureType = "dependency"
	FailureUnknown    FailureType = "unknown"
)

// Severity is the impact level derived from task priority and failure type.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Strategy is the chosen remediation approach.
type Strategy string

const (
	StrategyRetry              Strategy = "retry"
	StrategySkip               Strategy = "skip"
	StrategyFallback           Strategy = "fallback"
	StrategyPartialCompletion  Strategy = "partial-completion"
	StrategyManualIntervention Strategy = "manual-intervention"
	StrategyRollback           Strategy = "rollback"
)

// Confidence bounds for recovery plans.
const (
	MinConfidence = 0.3
	MaxConfidence = 0.95
)

// RecoveryStep is one ordered action in a recovery plan.
type RecoveryStep struct {
	Order       int    `json:"order"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Automated   bool   `json:"automated"`
}

// RecoveryPlan is a remediation proposal owned by exactly one FailureRecord.
// It is not modified after creation.
type RecoveryPlan struct {
	Strategy              Strategy       `json:"strategy"`
	Steps                 []RecoveryStep `json:"steps"`
	EstimatedRecoveryTime time.Duration  `json:"estimated_recovery_time"`
	Confidence            float64        `json:"confidence"`
	// RawConfidence is the score before clamping; it differs from
	// Confidence when the adjustments pushed it out of range.
	RawConfidence         float64  `json:"raw_confidence"`
	AlternativeApproaches []string `json:"alternative_approaches,omitempty"`
}

// ManualSteps counts the steps that need a human.
func (p *RecoveryPlan) ManualSteps() int {
	n := 0
	for _, s := range p.Steps {
		if !s.Automated {
			n++
		}
	}
	return n
}

// Clamped reports whether the raw confidence was outside the allowed range.
func (p *RecoveryPlan) Clamped() bool {
	return p.RawConfidence != p.Confidence
}

// FailureRecord is the diagnostic record created when a task execution fails.
type FailureRecord struct {
	TaskID         string          `json:"task_id"`
	TaskTitle      string          `json:"task_title"`
	Priority       models.Priority `json:"priority"`
	Error          string          `json:"error"`
	ErrorType      FailureType     `json:"error_type"`
	Severity       Severity        `json:"severity"`
	RetryAttempted bool            `json:"retry_attempted"`
	RetrySucceeded bool            `json:"retry_succeeded"`
	RecoveryPlan   *RecoveryPlan   `json:"recovery_plan,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// RetryResult is the outcome of AttemptRetry.
type RetryResult struct {
	Success   bool
	Attempted bool
	Execution *models.TaskExecution
}

// FailureAnalysis is a read-only aggregate over recorded failures.
type FailureAnalysis struct {
	TotalFailures    int                 `json:"total_failures"`
	ByType           map[FailureType]int `json:"by_type"`
	BySeverity       map[Severity]int    `json:"by_severity"`
	RetriesAttempted int                 `json:"retries_attempted"`
	RetriesSucceeded int                 `json:"retries_succeeded"`
	RecoveryRate     float64             `json:"recovery_rate"`
	RootCauses       []string            `json:"root_causes,omitempty"`
	Recommendations  []string            `json:"recommendations,omitempty"`
}
