package recovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// DefaultRetryDelay is the settle delay before a retry.
const DefaultRetryDelay = time.Second

// rootCauseThreshold is the share of failures a single type must exceed to
// be reported as a root cause.
const rootCauseThreshold = 0.3

// RetryFunc re-executes a task and returns the fresh execution record.
// Implementations must be safe to call for a task that already ran once.
type RetryFunc func(ctx context.Context) (*models.TaskExecution, error)

// Config controls retry behavior.
type Config struct {
	// RetryDelay is how long to wait before the single retry.
	RetryDelay time.Duration
}

// DefaultConfig returns the standard recovery settings.
func DefaultConfig() Config {
	return Config{RetryDelay: DefaultRetryDelay}
}

// Handler records failures, retries tasks at most once and builds recovery
// plans. Failures accumulate until Reset is called. It is safe for
// concurrent use, though the orchestrator drives it sequentially.
type Handler struct {
	cfg   Config
	sleep func(time.Duration)
	now   func() time.Time

	mu       sync.Mutex
	failures []*FailureRecord
	byExec   map[*models.TaskExecution]*FailureRecord
	retried  map[*models.TaskExecution]bool
}

// NewHandler creates a Handler with the given configuration.
func NewHandler(cfg Config) *Handler {
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return &Handler{
		cfg:     cfg,
		sleep:   time.Sleep,
		now:     time.Now,
		byExec:  make(map[*models.TaskExecution]*FailureRecord),
		retried: make(map[*models.TaskExecution]bool),
	}
}

// RecordFailure creates and stores a FailureRecord for a failed execution.
// The plan is used to look up the task's declared priority; a nil plan or
// unknown task falls back to medium priority.
func (h *Handler) RecordFailure(exec *models.TaskExecution, plan *models.Plan) *FailureRecord {
	priority := models.PriorityMedium
	if task, ok := plan.TaskByID(exec.TaskID); ok && task.Priority != "" {
		priority = task.Priority
	}

	ft := ClassifyError(exec.Error)
	rec := &FailureRecord{
		TaskID:     exec.TaskID,
		TaskTitle:  exec.Title,
		Priority:   priority,
		Error:      exec.Error,
		ErrorType:  ft,
		Severity:   AssessSeverity(priority, ft),
		RecordedAt: h.now(),
	}

	h.mu.Lock()
	h.failures = append(h.failures, rec)
	h.byExec[exec] = rec
	h.mu.Unlock()

	return rec
}

// AttemptRetry retries a failed execution once. A second call for the same
// execution, or a nil retry, returns without retrying. Executions are tracked
// by identity, so a task ID reused by a later run gets its own retry. On
// success the execution is flipped to completed and its error cleared; on
// failure the error gains a "Retry failed" suffix.
func (h *Handler) AttemptRetry(ctx context.Context, exec *models.TaskExecution, retry RetryFunc) RetryResult {
	if retry == nil {
		return RetryResult{Success: false, Attempted: false, Execution: exec}
	}

	h.mu.Lock()
	if h.retried[exec] {
		h.mu.Unlock()
		return RetryResult{Success: false, Attempted: false, Execution: exec}
	}
	h.retried[exec] = true
	rec := h.byExec[exec]
	if rec != nil {
		rec.RetryAttempted = true
	}
	h.mu.Unlock()

	if h.cfg.RetryDelay > 0 {
		h.sleep(h.cfg.RetryDelay)
	}

	fresh, err := retry(ctx)
	success := err == nil && fresh != nil && fresh.IsCompleted()

	if success {
		exec.Status = models.TaskCompleted
		exec.Error = ""
		exec.Output = fresh.Output
		exec.Duration += fresh.Duration
		completed := h.now()
		if fresh.CompletedAt != nil {
			completed = *fresh.CompletedAt
		}
		exec.CompletedAt = &completed
	} else {
		reason := "unknown error"
		switch {
		case err != nil:
			reason = err.Error()
		case fresh != nil && fresh.Error != "":
			reason = fresh.Error
		}
		exec.Status = models.TaskFailed
		exec.Error = fmt.Sprintf("%s | Retry failed: %s", exec.Error, reason)
		if fresh != nil {
			exec.Duration += fresh.Duration
		}
	}

	if rec != nil {
		h.mu.Lock()
		rec.RetrySucceeded = success
		h.mu.Unlock()
	}

	return RetryResult{Success: success, Attempted: true, Execution: exec}
}

// GenerateRecoveryPlan builds a plan for the record and attaches it. A record
// that already owns a plan keeps it.
func (h *Handler) GenerateRecoveryPlan(rec *FailureRecord) *RecoveryPlan {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rec.RecoveryPlan != nil {
		return rec.RecoveryPlan
	}
	rec.RecoveryPlan = buildRecoveryPlan(rec)
	return rec.RecoveryPlan
}

// Handle runs the full failure flow for one failed execution: record, retry
// when the failure is retryable, and generate a plan when the retry did not
// help or was not attempted. A successful retry produces no plan.
func (h *Handler) Handle(ctx context.Context, exec *models.TaskExecution, plan *models.Plan, retry RetryFunc) *FailureRecord {
	rec := h.RecordFailure(exec, plan)

	if retry != nil && shouldRetry(rec) {
		result := h.AttemptRetry(ctx, exec, retry)
		if result.Success {
			return rec
		}
	}

	h.GenerateRecoveryPlan(rec)
	return rec
}

// Failures returns a copy of the recorded failures in recording order.
func (h *Handler) Failures() []*FailureRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*FailureRecord, len(h.failures))
	copy(out, h.failures)
	return out
}

// RecoveryPlans returns every generated plan in recording order.
func (h *Handler) RecoveryPlans() []*RecoveryPlan {
	h.mu.Lock()
	defer h.mu.Unlock()
	var plans []*RecoveryPlan
	for _, rec := range h.failures {
		if rec.RecoveryPlan != nil {
			plans = append(plans, rec.RecoveryPlan)
		}
	}
	return plans
}

// Reset discards all recorded failures and retry bookkeeping.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = nil
	h.byExec = make(map[*models.TaskExecution]*FailureRecord)
	h.retried = make(map[*models.TaskExecution]bool)
}

// AnalyzeFailures summarizes every failure recorded so far.
func (h *Handler) AnalyzeFailures() FailureAnalysis {
	h.mu.Lock()
	defer h.mu.Unlock()

	analysis := FailureAnalysis{
		TotalFailures: len(h.failures),
		ByType:        make(map[FailureType]int),
		BySeverity:    make(map[Severity]int),
	}

	for _, rec := range h.failures {
		analysis.ByType[rec.ErrorType]++
		analysis.BySeverity[rec.Severity]++
		if rec.RetryAttempted {
			analysis.RetriesAttempted++
			if rec.RetrySucceeded {
				analysis.RetriesSucceeded++
			}
		}
	}

	if analysis.RetriesAttempted > 0 {
		analysis.RecoveryRate = float64(analysis.RetriesSucceeded) / float64(analysis.RetriesAttempted)
	}

	if analysis.TotalFailures == 0 {
		return analysis
	}

	types := make([]FailureType, 0, len(analysis.ByType))
	for ft := range analysis.ByType {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool {
		ci, cj := analysis.ByType[types[i]], analysis.ByType[types[j]]
		if ci != cj {
			return ci > cj
		}
		return types[i] < types[j]
	})

	for _, ft := range types {
		share := float64(analysis.ByType[ft]) / float64(analysis.TotalFailures)
		if share <= rootCauseThreshold {
			continue
		}
		analysis.RootCauses = append(analysis.RootCauses,
			fmt.Sprintf("%s failures account for %.0f%% of all failures", ft, share*100))
		analysis.Recommendations = append(analysis.Recommendations, recommendationFor(ft))
	}

	return analysis
}

func recommendationFor(ft FailureType) string {
	switch ft {
	case FailureTimeout:
		return "Raise task timeouts or break long tasks into smaller steps"
	case FailureConnection:
		return "Check network reachability of external services before running"
	case FailureValidation:
		return "Validate inputs earlier in the plan"
	case FailureResource:
		return "Reduce batch sizes or provision more capacity"
	case FailurePermission:
		return "Audit credentials and access grants for the run"
	case FailureDependency:
		return "Verify dependencies are installed and ordered correctly"
	default:
		return "Improve error reporting so failures can be classified"
	}
}
