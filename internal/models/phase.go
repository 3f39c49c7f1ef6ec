package models

import "time"

// Phase is a named stage of a run's lifecycle.
type Phase string

const (
	PhaseIntent     Phase = "intent-classification"
	PhaseSafety     Phase = "safety-validation"
	PhasePlanning   Phase = "planning"
	PhaseExecuting  Phase = "executing"
	PhaseReflecting Phase = "reflecting"
	PhaseOptimizing Phase = "optimizing"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

// PhaseOrder is the canonical order of a run's phases. The error phase is
// not part of it: it may be appended after any prefix.
var PhaseOrder = []Phase{
	PhaseIntent,
	PhaseSafety,
	PhasePlanning,
	PhaseExecuting,
	PhaseReflecting,
	PhaseOptimizing,
	PhaseComplete,
}

// PhaseStatus is the state of a single phase record.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

// PhaseRecord is one entry in a run's phase log.
type PhaseRecord struct {
	Phase       Phase         `json:"phase"`
	Status      PhaseStatus   `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// IsTerminal reports whether the phase has reached a final status.
func (p *PhaseRecord) IsTerminal() bool {
	return p.Status == PhaseCompleted || p.Status == PhaseFailed || p.Status == PhaseSkipped
}
