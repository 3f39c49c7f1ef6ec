package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGoal(t *testing.T) {
	tests := []struct {
		name    string
		goal    Goal
		minLen  int
		maxLen  int
		wantErr error
	}{
		{
			name: "valid goal with defaults",
			goal: NewGoal("Deploy the billing service to staging", ""),
		},
		{
			name:    "empty goal",
			goal:    NewGoal("   ", ""),
			wantErr: ErrGoalEmpty,
		},
		{
			name:    "too short",
			goal:    NewGoal("do it", ""),
			wantErr: ErrGoalTooShort,
		},
		{
			name:    "too long for custom bound",
			goal:    NewGoal(strings.Repeat("a", 50), ""),
			minLen:  5,
			maxLen:  20,
			wantErr: ErrGoalTooLong,
		},
		{
			name:   "custom minimum accepts short goal",
			goal:   NewGoal("ship", ""),
			minLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGoal(tt.goal, tt.minLen, tt.maxLen)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestPlanTaskByID(t *testing.T) {
	plan := &Plan{Tasks: []PlannedTask{
		{ID: "task-1", Title: "one", EstimatedDuration: 2 * time.Second},
		{ID: "task-2", Title: "two", EstimatedDuration: 3 * time.Second},
	}}

	task, ok := plan.TaskByID("task-2")
	require.True(t, ok)
	assert.Equal(t, "two", task.Title)

	_, ok = plan.TaskByID("missing")
	assert.False(t, ok)

	var nilPlan *Plan
	_, ok = nilPlan.TaskByID("task-1")
	assert.False(t, ok)

	assert.Equal(t, 5*time.Second, plan.EstimatedTotal())
}

func TestExecutionResultRecount(t *testing.T) {
	result := &ExecutionResult{
		TaskExecutions: []*TaskExecution{
			{TaskID: "1", Status: TaskCompleted, Duration: time.Second},
			{TaskID: "2", Status: TaskFailed, Error: "boom", Duration: time.Second},
			{TaskID: "3", Status: TaskSkipped},
		},
		Errors: []string{"stale"},
	}

	result.Recount()

	assert.Equal(t, 1, result.CompletedTasks)
	assert.Equal(t, 1, result.FailedTasks)
	assert.Equal(t, []string{"boom"}, result.Errors)
	assert.Equal(t, 2*time.Second, result.TotalDuration)
	assert.Len(t, result.FailedExecutions(), 1)
	assert.InDelta(t, 1.0/3.0, result.SuccessRate(), 1e-9)

	result.TaskExecutions[1].Status = TaskCompleted
	result.TaskExecutions[1].Error = ""
	result.Recount()
	assert.Equal(t, 2, result.CompletedTasks)
	assert.Equal(t, 0, result.FailedTasks)
	assert.Empty(t, result.Errors)
}

func TestEmptyOptimization(t *testing.T) {
	opt := EmptyOptimization()
	require.NotNil(t, opt.Optimizations)
	assert.Empty(t, opt.Optimizations)
	assert.Empty(t, opt.Patterns)
}
