package orchestrator

import (
	"context"

	"github.com/harrison/autopilot/internal/evolution"
	"github.com/harrison/autopilot/internal/learning"
	"github.com/harrison/autopilot/internal/models"
)

// IntentClassifier decides whether a goal asks for work to be done.
type IntentClassifier interface {
	Classify(ctx context.Context, goal string) (*models.Intent, error)
}

// SafetyValidator screens a goal before any planning happens.
type SafetyValidator interface {
	ValidateGoal(ctx context.Context, goal string, goalContext string) (*models.SafetyReport, error)
}

// Planner turns a goal into an ordered task list.
type Planner interface {
	Plan(ctx context.Context, goal models.Goal) (*models.Plan, error)
}

// Executor runs a plan. ExecuteTask must be safe to call for a task that
// already ran once; the controller uses it for retries.
type Executor interface {
	Execute(ctx context.Context, plan *models.Plan) (*models.ExecutionResult, error)
	ExecuteTask(ctx context.Context, task models.PlannedTask) (*models.TaskExecution, error)
}

// Reflector scores a plan against its execution.
type Reflector interface {
	Reflect(ctx context.Context, plan *models.Plan, exec *models.ExecutionResult) (*models.Reflection, error)
}

// Optimizer proposes improvements after a run.
type Optimizer interface {
	Optimize(ctx context.Context, oc models.OptimizationContext) (*models.OptimizationResult, error)
}

// RunRecorder appends finished runs to the run record store.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec *learning.RunRecord) error
}

// StrategyReader exposes a read-only snapshot of the current strategy.
type StrategyReader interface {
	Strategy() *evolution.Strategy
}

// Logger is the subset of logging the controller emits.
type Logger interface {
	LogPhaseStart(runID string, phase models.Phase)
	LogPhaseComplete(runID string, rec models.PhaseRecord)
	LogTaskFailure(runID string, exec *models.TaskExecution)
	LogRecovery(runID string, ev models.RecoveryEvent)
	LogRunSummary(summary models.RunSummary)
	LogWarn(message string)
}

// Collaborators bundles the components a run delegates to. All are required.
type Collaborators struct {
	Intent    IntentClassifier
	Safety    SafetyValidator
	Planner   Planner
	Executor  Executor
	Reflector Reflector
	Optimizer Optimizer
}

func (c Collaborators) validate() error {
	switch {
	case c.Intent == nil:
		return errMissing("intent classifier")
	case c.Safety == nil:
		return errMissing("safety validator")
	case c.Planner == nil:
		return errMissing("planner")
	case c.Executor == nil:
		return errMissing("executor")
	case c.Reflector == nil:
		return errMissing("reflector")
	case c.Optimizer == nil:
		return errMissing("optimizer")
	}
	return nil
}
