package learning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/harrison/autopilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	return store
}

func sampleRecord(runID string) *RunRecord {
	return &RunRecord{
		RunID: runID,
		Goal:  "Generate the weekly sales report",
		Plan: PlanSummary{
			TaskCount:    2,
			WorkflowName: "report-generation",
			Tasks: []TaskSummary{
				{ID: "task-1", Title: "Collect data", Priority: models.PriorityHigh, EstimatedDuration: 2 * time.Second, ActualDuration: time.Second, Status: "completed"},
				{ID: "task-2", Title: "Render report", Priority: models.PriorityMedium, EstimatedDuration: 3 * time.Second, Status: "failed"},
			},
		},
		Execution: ExecutionSummary{
			CompletedTasks: 1,
			FailedTasks:    1,
			RecoveredTasks: 0,
			TotalDuration:  1500 * time.Millisecond,
			Errors:         []string{"task-2: connection refused"},
			FailureTypes:   []string{"connection"},
		},
		Reflection: ReflectionSummary{
			SuccessRate: 0.5,
			Score:       55,
			Insights:    []string{"half of the tasks failed"},
		},
	}
}

func TestNewStore(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{name: "creates database", dbPath: filepath.Join(t.TempDir(), "runs.db")},
		{name: "in-memory database", dbPath: ":memory:"},
		{name: "creates parent directories", dbPath: filepath.Join(t.TempDir(), "nested", "dir", "runs.db")},
		{name: "parent is a file", dbPath: filepath.Join(blocker, "runs.db"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()

			assert.Equal(t, tt.dbPath, store.Path())
			version, err := store.GetLatestVersion()
			require.NoError(t, err)
			assert.Equal(t, len(migrations), version)
		})
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	defer store.Close()

	rec := sampleRecord("run-1")
	require.NoError(t, store.RecordRun(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, rec.Goal, got.Goal)
	assert.Equal(t, rec.Plan.TaskCount, got.Plan.TaskCount)
	assert.Equal(t, rec.Plan.WorkflowName, got.Plan.WorkflowName)
	assert.Equal(t, rec.Plan.Tasks, got.Plan.Tasks)
	assert.Equal(t, rec.Execution, got.Execution)
	assert.InDelta(t, rec.Reflection.SuccessRate, got.Reflection.SuccessRate, 1e-9)
	assert.InDelta(t, rec.Reflection.Score, got.Reflection.Score, 1e-9)
	assert.Equal(t, rec.Reflection.Insights, got.Reflection.Insights)
}

func TestRecordRun_Validation(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	defer store.Close()

	require.Error(t, store.RecordRun(ctx, nil))
	require.Error(t, store.RecordRun(ctx, &RunRecord{Goal: "no id"}))

	count, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecordRun_DuplicateRunID(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	defer store.Close()

	require.NoError(t, store.RecordRun(ctx, sampleRecord("run-dup")))
	err := store.RecordRun(ctx, sampleRecord("run-dup"))
	require.ErrorIs(t, err, ErrDuplicateRun)

	count, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecentRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	defer store.Close()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.RecordRun(ctx, sampleRecord(fmt.Sprintf("run-%d", i))))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"limit smaller than total", 3, []string{"run-5", "run-4", "run-3"}},
		{"limit larger than total", 10, []string{"run-5", "run-4", "run-3", "run-2", "run-1"}},
		{"zero limit returns all", 0, []string{"run-5", "run-4", "run-3", "run-2", "run-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.RecentRuns(ctx, tt.limit)
			require.NoError(t, err)
			ids := make([]string, 0, len(runs))
			for _, r := range runs {
				ids = append(ids, r.RunID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRecentRuns_Empty(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	runs, err := store.RecentRuns(context.Background(), 20)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGetRun_NotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecordRun_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.RecordRun(ctx, sampleRecord("run-persist")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRun(ctx, "run-persist")
	require.NoError(t, err)
	assert.Equal(t, []string{"connection"}, got.Execution.FailureTypes)
}

func TestRecordRun_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "concurrent.db"))
	require.NoError(t, err)
	defer store.Close()

	const writers = 10
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errCh <- store.RecordRun(ctx, sampleRecord(fmt.Sprintf("concurrent-%d", n)))
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	count, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers, count)
}

func TestNewRunRecord(t *testing.T) {
	goal := models.NewGoal("Generate the weekly sales report", "")
	plan := &models.Plan{
		Goal:     goal,
		Workflow: models.Workflow{Name: "report-generation"},
		Tasks: []models.PlannedTask{
			{ID: "task-1", Title: "Collect data", Priority: models.PriorityHigh, EstimatedDuration: 2 * time.Second},
			{ID: "task-2", Title: "Render report", Priority: models.PriorityMedium, EstimatedDuration: 3 * time.Second},
		},
	}
	exec := &models.ExecutionResult{
		TaskExecutions: []*models.TaskExecution{
			{TaskID: "task-1", Status: models.TaskCompleted, Duration: time.Second},
			{TaskID: "task-2", Status: models.TaskFailed, Error: "connection refused", Duration: 500 * time.Millisecond},
		},
		CompletedTasks: 1,
		FailedTasks:    1,
		TotalDuration:  1500 * time.Millisecond,
		Errors:         []string{"task-2: connection refused"},
	}
	refl := &models.Reflection{Score: 55, SuccessRate: 0.5, Insights: []string{"half failed"}}

	rec := NewRunRecord("run-x", goal, plan, exec, refl, 0, []string{"connection"})

	assert.Equal(t, "run-x", rec.RunID)
	assert.Equal(t, goal.Text, rec.Goal)
	assert.Equal(t, 2, rec.Plan.TaskCount)
	assert.Equal(t, "report-generation", rec.Plan.WorkflowName)
	require.Len(t, rec.Plan.Tasks, 2)
	assert.Equal(t, time.Second, rec.Plan.Tasks[0].ActualDuration)
	assert.Equal(t, "failed", rec.Plan.Tasks[1].Status)
	assert.Equal(t, 1, rec.Execution.FailedTasks)
	assert.Equal(t, []string{"connection"}, rec.Execution.FailureTypes)
	assert.InDelta(t, 0.5, rec.Reflection.SuccessRate, 1e-9)

	// Later edits to the source slices do not leak into the record.
	exec.Errors[0] = "changed"
	assert.Equal(t, "task-2: connection refused", rec.Execution.Errors[0])
}
