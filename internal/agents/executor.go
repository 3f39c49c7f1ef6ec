package agents

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// OutcomeSource decides whether an attempt at a task succeeds. attempt is
// 1 for the first try and increments on every retry. A failing outcome
// returns the error text to record.
type OutcomeSource interface {
	Succeeds(task models.PlannedTask, attempt int) (bool, string)
}

// simulatedErrors are the failure texts RandomOutcomes draws from.
var simulatedErrors = []string{
	"connection refused by upstream service",
	"request timeout after 30s",
	"invalid response format",
	"insufficient memory to complete step",
	"permission denied for service account",
	"dependency not found: required artifact missing",
}

// RandomOutcomes succeeds with a fixed probability. It is deterministic for
// a given seed and call order.
type RandomOutcomes struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

// NewRandomOutcomes creates a RandomOutcomes. A zero seed picks a
// time-based one.
func NewRandomOutcomes(successRate float64, seed int64) *RandomOutcomes {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomOutcomes{
		rng:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}
}

// Succeeds implements OutcomeSource.
func (r *RandomOutcomes) Succeeds(task models.PlannedTask, attempt int) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() < r.successRate {
		return true, ""
	}
	return false, simulatedErrors[r.rng.Intn(len(simulatedErrors))]
}

// ScriptedOutcomes fails tasks with the listed error texts, one per
// attempt. Tasks without an entry, and attempts past the end of the list,
// succeed.
type ScriptedOutcomes map[string][]string

// Succeeds implements OutcomeSource.
func (s ScriptedOutcomes) Succeeds(task models.PlannedTask, attempt int) (bool, string) {
	errs := s[task.ID]
	if attempt-1 < len(errs) && errs[attempt-1] != "" {
		return false, errs[attempt-1]
	}
	return true, ""
}

// SimulatedExecutor "runs" tasks by consulting an OutcomeSource. Each
// attempt waits for the configured wall-clock delay and is recorded with
// the task's estimated duration, so run records reflect planned effort.
type SimulatedExecutor struct {
	outcomes OutcomeSource
	delay    time.Duration
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

// NewSimulatedExecutor creates an executor. delay is the real time spent
// per attempt and may be zero.
func NewSimulatedExecutor(outcomes OutcomeSource, delay time.Duration) *SimulatedExecutor {
	return &SimulatedExecutor{
		outcomes: outcomes,
		delay:    delay,
		now:      time.Now,
		attempts: make(map[string]int),
	}
}

// Execute runs every task in plan order. Attempt counts restart with each
// call, so the same plan against the same outcomes replays identically.
// Once ctx is done the remaining tasks are recorded as skipped.
func (e *SimulatedExecutor) Execute(ctx context.Context, plan *models.Plan) (*models.ExecutionResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan cannot be nil")
	}

	e.mu.Lock()
	e.attempts = make(map[string]int)
	e.mu.Unlock()

	result := &models.ExecutionResult{}
	for _, task := range plan.Tasks {
		if err := ctx.Err(); err != nil {
			result.TaskExecutions = append(result.TaskExecutions, &models.TaskExecution{
				TaskID:    task.ID,
				Title:     task.Title,
				Status:    models.TaskSkipped,
				Error:     fmt.Sprintf("not started: %v", err),
				StartedAt: e.now(),
			})
			continue
		}
		te, err := e.ExecuteTask(ctx, task)
		if err != nil {
			return nil, err
		}
		result.TaskExecutions = append(result.TaskExecutions, te)
	}

	result.Recount()
	return result, nil
}

// ExecuteTask runs a single attempt of task. Calling it again for the same
// task before the next Execute is a retry.
func (e *SimulatedExecutor) ExecuteTask(ctx context.Context, task models.PlannedTask) (*models.TaskExecution, error) {
	e.mu.Lock()
	e.attempts[task.ID]++
	attempt := e.attempts[task.ID]
	e.mu.Unlock()

	start := e.now()
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
		}
	}

	duration := task.EstimatedDuration
	if duration <= 0 {
		duration = actionDuration
	}
	end := start.Add(duration)

	te := &models.TaskExecution{
		TaskID:      task.ID,
		Title:       task.Title,
		StartedAt:   start,
		CompletedAt: &end,
		Duration:    duration,
	}

	if ok, errText := e.outcomes.Succeeds(task, attempt); ok {
		te.Status = models.TaskCompleted
		te.Output = fmt.Sprintf("%s: done (attempt %d)", task.Title, attempt)
	} else {
		te.Status = models.TaskFailed
		te.Error = errText
	}
	return te, nil
}

// Attempts returns how many times task has been attempted since the last
// Execute.
func (e *SimulatedExecutor) Attempts(taskID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts[taskID]
}
