package models

import (
	"time"
)

// TaskStatus is the runtime state of a task execution.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Priority is the declared importance of a planned task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TaskType is a coarse category assigned by the planner.
type TaskType string

const (
	TaskTypeAnalysis   TaskType = "analysis"
	TaskTypeAction     TaskType = "action"
	TaskTypeValidation TaskType = "validation"
	TaskTypeReport     TaskType = "report"
)

// PlannedTask is a single unit of work produced by the planner.
type PlannedTask struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Type              TaskType      `json:"type"`
	Priority          Priority      `json:"priority"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Dependencies      []string      `json:"dependencies,omitempty"`
}

// TaskExecution is the runtime record of attempting one planned task.
// Only the orchestrator and the recovery handler mutate it.
type TaskExecution struct {
	TaskID      string        `json:"task_id"`
	Title       string        `json:"title"`
	Status      TaskStatus    `json:"status"`
	Error       string        `json:"error,omitempty"`
	Output      string        `json:"output,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// IsFailed returns true if the execution ended in failure.
func (te *TaskExecution) IsFailed() bool {
	return te.Status == TaskFailed
}

// IsCompleted returns true if the execution finished successfully.
func (te *TaskExecution) IsCompleted() bool {
	return te.Status == TaskCompleted
}
