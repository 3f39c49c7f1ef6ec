package learning

import (
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// TaskSummary is the per-task slice of a plan kept with a run record
type TaskSummary struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Priority          models.Priority `json:"priority"`
	EstimatedDuration time.Duration   `json:"estimated_duration"`
	ActualDuration    time.Duration   `json:"actual_duration"`
	Status            string          `json:"status"`
}

// PlanSummary condenses the plan of a completed run
type PlanSummary struct {
	TaskCount    int
	WorkflowName string
	Tasks        []TaskSummary
}

// ExecutionSummary condenses the execution outcome of a completed run
type ExecutionSummary struct {
	CompletedTasks int
	FailedTasks    int
	RecoveredTasks int
	TotalDuration  time.Duration
	Errors         []string
	FailureTypes   []string
}

// ReflectionSummary condenses the reflection of a completed run
type ReflectionSummary struct {
	SuccessRate float64
	Score       float64
	Insights    []string
}

// RunRecord is the durable, append-only summary of one completed run
type RunRecord struct {
	ID         int64
	RunID      string
	Goal       string
	Plan       PlanSummary
	Execution  ExecutionSummary
	Reflection ReflectionSummary
	CreatedAt  time.Time
}

// NewRunRecord builds a record from the artifacts of a finished run.
// failureTypes lists the classified failure type of every failed task.
func NewRunRecord(runID string, goal models.Goal, plan *models.Plan, exec *models.ExecutionResult, refl *models.Reflection, recovered int, failureTypes []string) *RunRecord {
	rec := &RunRecord{
		RunID: runID,
		Goal:  goal.Text,
	}

	durations := make(map[string]*models.TaskExecution)
	if exec != nil {
		for _, te := range exec.TaskExecutions {
			durations[te.TaskID] = te
		}
		rec.Execution = ExecutionSummary{
			CompletedTasks: exec.CompletedTasks,
			FailedTasks:    exec.FailedTasks,
			RecoveredTasks: recovered,
			TotalDuration:  exec.TotalDuration,
			Errors:         append([]string(nil), exec.Errors...),
			FailureTypes:   append([]string(nil), failureTypes...),
		}
	}

	if plan != nil {
		rec.Plan.TaskCount = len(plan.Tasks)
		rec.Plan.WorkflowName = plan.Workflow.Name
		for _, t := range plan.Tasks {
			ts := TaskSummary{
				ID:                t.ID,
				Title:             t.Title,
				Priority:          t.Priority,
				EstimatedDuration: t.EstimatedDuration,
			}
			if te, ok := durations[t.ID]; ok {
				ts.ActualDuration = te.Duration
				ts.Status = string(te.Status)
			}
			rec.Plan.Tasks = append(rec.Plan.Tasks, ts)
		}
	}

	if refl != nil {
		rec.Reflection = ReflectionSummary{
			SuccessRate: refl.SuccessRate,
			Score:       refl.Score,
			Insights:    append([]string(nil), refl.Insights...),
		}
	}

	return rec
}
