package models

import "time"

// ExecutionResult is the aggregate outcome of executing a plan.
type ExecutionResult struct {
	TaskExecutions []*TaskExecution `json:"task_executions"`
	CompletedTasks int              `json:"completed_tasks"`
	FailedTasks    int              `json:"failed_tasks"`
	TotalDuration  time.Duration    `json:"total_duration"`
	Errors         []string         `json:"errors,omitempty"`
}

// Recount recomputes the completed/failed counters and the error list from
// the task executions. Call it after recovery may have flipped statuses.
func (r *ExecutionResult) Recount() {
	r.CompletedTasks = 0
	r.FailedTasks = 0
	r.Errors = r.Errors[:0]
	var total time.Duration
	for _, te := range r.TaskExecutions {
		switch te.Status {
		case TaskCompleted:
			r.CompletedTasks++
		case TaskFailed:
			r.FailedTasks++
			if te.Error != "" {
				r.Errors = append(r.Errors, te.Error)
			}
		}
		total += te.Duration
	}
	if total > r.TotalDuration {
		r.TotalDuration = total
	}
}

// FailedExecutions returns the executions currently in failed state, in order.
func (r *ExecutionResult) FailedExecutions() []*TaskExecution {
	var failed []*TaskExecution
	for _, te := range r.TaskExecutions {
		if te.IsFailed() {
			failed = append(failed, te)
		}
	}
	return failed
}

// SuccessRate returns completed / total, or 0 for an empty result.
func (r *ExecutionResult) SuccessRate() float64 {
	if len(r.TaskExecutions) == 0 {
		return 0
	}
	return float64(r.CompletedTasks) / float64(len(r.TaskExecutions))
}

// RunSummary is the condensed view of a finished run used for logging.
type RunSummary struct {
	RunID          string
	Goal           string
	Success        bool
	CompletedTasks int
	FailedTasks    int
	Recoveries     int
	Duration       time.Duration
	Error          string
}
