package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/autopilot/internal/models"
)

var (
	// ErrNoPlan is returned when the planner produces no tasks.
	ErrNoPlan = errors.New("planner returned no tasks")
	// ErrNoExecution is returned when the executor produces no result.
	ErrNoExecution = errors.New("executor returned no result")
)

// PhaseError is a fatal error raised while a run was in a given phase.
type PhaseError struct {
	Phase     models.Phase // Phase that was running when the error occurred
	Message   string       // Human-readable error message
	Err       error        // Underlying error (optional)
	Timestamp time.Time    // When the error occurred
}

// NewPhaseError creates a new PhaseError with the current timestamp.
func NewPhaseError(phase models.Phase, msg string, err error) *PhaseError {
	return &PhaseError{
		Phase:     phase,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for PhaseError.
func (e *PhaseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Phase, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// IsPhaseError checks if the error is or wraps a PhaseError.
func IsPhaseError(err error) bool {
	if err == nil {
		return false
	}
	var pe *PhaseError
	return errors.As(err, &pe)
}

// IsDeadlineError checks if the error is or wraps an expired or canceled
// caller context.
func IsDeadlineError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// IsInputError checks if the error is caused by an invalid goal.
func IsInputError(err error) bool {
	return errors.Is(err, models.ErrGoalTooShort) ||
		errors.Is(err, models.ErrGoalTooLong) ||
		errors.Is(err, models.ErrGoalEmpty)
}

// panicError converts a recovered panic value into an error.
func panicError(v interface{}) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
