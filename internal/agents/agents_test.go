package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/autopilot/internal/models"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		goal string
		want models.IntentType
	}{
		{"Deploy the API to staging", models.IntentExecutionGoal},
		{"set up monitoring for the cluster", models.IntentExecutionGoal},
		{"Migrate the orders table and run the test suite", models.IntentExecutionGoal},
		{"What is the status of the last deploy?", models.IntentInformationQuery},
		{"Explain how retries work", models.IntentInformationQuery},
		{"Is the build green?", models.IntentInformationQuery},
		{"Could we maybe look at the dashboards?", models.IntentInformationQuery},
		{"the weather in Paris", models.IntentAmbiguous},
		{"   ", models.IntentAmbiguous},
	}

	c := NewKeywordClassifier()
	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			intent, err := c.Classify(context.Background(), tt.goal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, intent.Type)
			assert.NotEmpty(t, intent.Reasoning)
			assert.Greater(t, intent.Confidence, 0.0)
			assert.LessOrEqual(t, intent.Confidence, 1.0)
		})
	}
}

func TestKeywordClassifierAmbiguousSuggestsAction(t *testing.T) {
	intent, err := NewKeywordClassifier().Classify(context.Background(), "the weather in Paris")
	require.NoError(t, err)
	assert.NotEmpty(t, intent.SuggestedAction)
}

func TestKeywordClassifierCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKeywordClassifier().Classify(ctx, "Deploy the API")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPatternValidator(t *testing.T) {
	tests := []struct {
		name           string
		goal           string
		goalContext    string
		approved       bool
		violation      string
		clarifications int
	}{
		{name: "safe", goal: "Deploy the API to staging", approved: true},
		{name: "rm -rf", goal: "Run rm -rf / on the build server", violation: "recursive forced deletion"},
		{name: "drop database", goal: "Drop database customers after the backup", violation: "drops a database object"},
		{name: "context is checked", goal: "Clean up old rows", goalContext: "then DROP TABLE users", violation: "drops a database object"},
		{name: "chmod 777", goal: "Fix access by running chmod -R 777 on /srv", violation: "world-writable"},
		{name: "vague", goal: "Deploy stuff to staging asap", approved: true, clarifications: 2},
	}

	v := NewPatternValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := v.ValidateGoal(context.Background(), tt.goal, tt.goalContext)
			require.NoError(t, err)

			assert.Equal(t, tt.approved, report.Approved)
			assert.NotEmpty(t, report.Summary)
			if tt.violation != "" {
				require.NotEmpty(t, report.Violations)
				assert.Contains(t, report.Violations[0], tt.violation)
			} else {
				assert.Empty(t, report.Violations)
			}
			assert.Len(t, report.ClarificationsNeeded, tt.clarifications)
		})
	}
}

func TestPlannerMarkdownOutline(t *testing.T) {
	goal := models.NewGoal("Roll out the new API", `
Steps:

- Provision the database
- Deploy the API container
  - use the blue/green slot
- Run smoke tests
`)

	plan, err := NewPlanner().Plan(context.Background(), goal)
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 3)

	assert.Equal(t, "Provision the database", plan.Tasks[0].Title)
	assert.Equal(t, "Deploy the API container", plan.Tasks[1].Title)
	assert.Equal(t, "Run smoke tests", plan.Tasks[2].Title)

	assert.Equal(t, "task-1", plan.Tasks[0].ID)
	assert.Empty(t, plan.Tasks[0].Dependencies)
	assert.Equal(t, []string{"task-1"}, plan.Tasks[1].Dependencies)
	assert.Equal(t, []string{"task-2"}, plan.Tasks[2].Dependencies)

	assert.Equal(t, models.TaskTypeAction, plan.Tasks[0].Type)
	assert.Equal(t, models.PriorityHigh, plan.Tasks[1].Priority)
	assert.Equal(t, models.TaskTypeValidation, plan.Tasks[2].Type)

	assert.Equal(t, plan.EstimatedTotal(), plan.TotalEstimatedDuration)
	assert.Equal(t, goal, plan.Goal)
}

func TestPlannerClauseSplit(t *testing.T) {
	goal := models.NewGoal("Back up the database; migrate the schema then verify the data.", "")

	plan, err := NewPlanner().Plan(context.Background(), goal)
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 3)

	assert.Equal(t, "Back up the database", plan.Tasks[0].Title)
	assert.Equal(t, "migrate the schema", plan.Tasks[1].Title)
	assert.Equal(t, "verify the data", plan.Tasks[2].Title)
	assert.Equal(t, models.TaskTypeValidation, plan.Tasks[2].Type)
	assert.Equal(t, models.PriorityHigh, plan.Tasks[1].Priority)

	assert.Equal(t, "data-pipeline", plan.Workflow.Name)
	assert.InDelta(t, 0.95, plan.Workflow.Confidence, 1e-9)
}

func TestPlannerTemplateFallback(t *testing.T) {
	goal := models.NewGoal("Deploy the billing service to production", "Plain prose without a list.")

	plan, err := NewPlanner().Plan(context.Background(), goal)
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 3)

	assert.Equal(t, models.TaskTypeAnalysis, plan.Tasks[0].Type)
	assert.Equal(t, goal.Text, plan.Tasks[1].Title)
	assert.Equal(t, models.TaskTypeValidation, plan.Tasks[2].Type)
	assert.Equal(t, analysisDuration+actionDuration+validationDuration, plan.TotalEstimatedDuration)

	assert.Equal(t, "deployment", plan.Workflow.Name)
	assert.InDelta(t, 0.8, plan.Workflow.Confidence, 1e-9)
}

func TestPlannerStandardWorkflow(t *testing.T) {
	plan, err := NewPlanner().Plan(context.Background(), models.NewGoal("Organize the team offsite", ""))
	require.NoError(t, err)
	assert.Equal(t, "standard", plan.Workflow.Name)
	assert.Equal(t, 0.5, plan.Workflow.Confidence)
}

func scriptedPlan() *models.Plan {
	return &models.Plan{Tasks: []models.PlannedTask{
		{ID: "task-1", Title: "Prepare", EstimatedDuration: 2 * time.Second},
		{ID: "task-2", Title: "Fetch data", EstimatedDuration: 5 * time.Second},
		{ID: "task-3", Title: "Report"},
	}}
}

func TestSimulatedExecutorScripted(t *testing.T) {
	exec := NewSimulatedExecutor(ScriptedOutcomes{"task-2": {"connection refused"}}, 0)
	plan := scriptedPlan()

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, 2, res.CompletedTasks)
	assert.Equal(t, 1, res.FailedTasks)
	assert.Equal(t, []string{"connection refused"}, res.Errors)
	assert.Equal(t, 2*time.Second, res.TaskExecutions[0].Duration)
	assert.Equal(t, actionDuration, res.TaskExecutions[2].Duration, "missing estimate falls back to the action duration")
	assert.Equal(t, 12*time.Second, res.TotalDuration)

	retry, err := exec.ExecuteTask(context.Background(), plan.Tasks[1])
	require.NoError(t, err)
	assert.True(t, retry.IsCompleted())
	assert.Equal(t, 2, exec.Attempts("task-2"))
	assert.Equal(t, 1, exec.Attempts("task-1"))
}

func TestSimulatedExecutorReplaysScriptPerExecute(t *testing.T) {
	exec := NewSimulatedExecutor(ScriptedOutcomes{"task-2": {"connection refused", "connection refused"}}, 0)
	plan := scriptedPlan()
	ctx := context.Background()

	for run := 1; run <= 2; run++ {
		res, err := exec.Execute(ctx, plan)
		require.NoError(t, err)
		assert.Equal(t, 1, res.FailedTasks, "run %d", run)
		assert.Equal(t, 1, exec.Attempts("task-2"), "run %d", run)

		retry, err := exec.ExecuteTask(ctx, plan.Tasks[1])
		require.NoError(t, err)
		assert.True(t, retry.IsFailed(), "run %d retry uses the second scripted outcome", run)
		assert.Equal(t, 2, exec.Attempts("task-2"), "run %d", run)
	}
}

func TestSimulatedExecutorRandomIsSeeded(t *testing.T) {
	statuses := func() []models.TaskStatus {
		exec := NewSimulatedExecutor(NewRandomOutcomes(0.5, 42), 0)
		res, err := exec.Execute(context.Background(), scriptedPlan())
		require.NoError(t, err)
		var out []models.TaskStatus
		for _, te := range res.TaskExecutions {
			out = append(out, te.Status)
		}
		return out
	}
	assert.Equal(t, statuses(), statuses())
}

func TestSimulatedExecutorSuccessRateBounds(t *testing.T) {
	all, err := NewSimulatedExecutor(NewRandomOutcomes(1, 7), 0).Execute(context.Background(), scriptedPlan())
	require.NoError(t, err)
	assert.Equal(t, 3, all.CompletedTasks)

	none, err := NewSimulatedExecutor(NewRandomOutcomes(0, 7), 0).Execute(context.Background(), scriptedPlan())
	require.NoError(t, err)
	assert.Equal(t, 3, none.FailedTasks)
	for _, te := range none.TaskExecutions {
		assert.Contains(t, simulatedErrors, te.Error)
	}
}

func TestSimulatedExecutorCanceledContextSkipsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewSimulatedExecutor(ScriptedOutcomes{}, 0).Execute(ctx, scriptedPlan())
	require.NoError(t, err)
	for _, te := range res.TaskExecutions {
		assert.Equal(t, models.TaskSkipped, te.Status)
	}
	assert.Zero(t, res.CompletedTasks)
	assert.Zero(t, res.FailedTasks)
}

func TestSimulatedExecutorNilPlan(t *testing.T) {
	_, err := NewSimulatedExecutor(ScriptedOutcomes{}, 0).Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestScoreReflector(t *testing.T) {
	plan := scriptedPlan()
	plan.Tasks[2].EstimatedDuration = actionDuration

	t.Run("clean run", func(t *testing.T) {
		exec, err := NewSimulatedExecutor(ScriptedOutcomes{}, 0).Execute(context.Background(), plan)
		require.NoError(t, err)

		refl, err := NewScoreReflector().Reflect(context.Background(), plan, exec)
		require.NoError(t, err)
		assert.InDelta(t, 100, refl.Score, 1e-9)
		assert.Equal(t, "A", refl.Grade)
		assert.Equal(t, 1.0, refl.SuccessRate)
		assert.Equal(t, []string{"All 3 tasks completed"}, refl.Insights)
		assert.Empty(t, refl.Improvements)
	})

	t.Run("one failure", func(t *testing.T) {
		exec, err := NewSimulatedExecutor(ScriptedOutcomes{"task-2": {"connection refused"}}, 0).Execute(context.Background(), plan)
		require.NoError(t, err)

		refl, err := NewScoreReflector().Reflect(context.Background(), plan, exec)
		require.NoError(t, err)
		assert.InDelta(t, 2.0/3.0*80+20, refl.Score, 1e-9)
		assert.Equal(t, "C", refl.Grade)
		assert.Contains(t, refl.Insights, "1 of 3 tasks failed")
		assert.Contains(t, refl.Improvements, `Add a fallback for "Fetch data"`)
		assert.Contains(t, refl.LessonsLearned, "1 task(s) hit connection failures")
	})

	t.Run("missing inputs", func(t *testing.T) {
		_, err := NewScoreReflector().Reflect(context.Background(), nil, &models.ExecutionResult{})
		assert.Error(t, err)
	})
}

func TestPatternOptimizer(t *testing.T) {
	oc := models.OptimizationContext{
		FailureTypes: []string{"connection", "timeout", "connection"},
		Reflection:   &models.Reflection{Score: 50},
	}

	res, err := NewPatternOptimizer().Optimize(context.Background(), oc)
	require.NoError(t, err)

	assert.Equal(t, []string{"recurring connection failures (2)"}, res.Patterns)
	require.Len(t, res.Optimizations, 3)
	assert.Equal(t, "Add retry with backoff around network calls", res.Optimizations[0].Description)
	assert.InDelta(t, 0.2, res.Optimizations[0].EstimatedGain, 1e-9)
	assert.Equal(t, "Raise timeouts or split long-running tasks", res.Optimizations[1].Description)
	assert.Equal(t, "planning", res.Optimizations[2].Area)
	assert.Equal(t, "up to 40% fewer failed or slow tasks", res.EstimatedImprovements)
}

func TestPatternOptimizerOverrunAndLargePlan(t *testing.T) {
	plan := &models.Plan{}
	for i := 0; i < 12; i++ {
		plan.Tasks = append(plan.Tasks, models.PlannedTask{ID: "t", EstimatedDuration: time.Second})
	}
	exec := &models.ExecutionResult{TotalDuration: 30 * time.Second}

	res, err := NewPatternOptimizer().Optimize(context.Background(), models.OptimizationContext{Plan: plan, Execution: exec})
	require.NoError(t, err)
	assert.Equal(t, []string{"execution overran its estimate", "large plan"}, res.Patterns)
	require.Len(t, res.Optimizations, 2)
	assert.Equal(t, "performance", res.Optimizations[0].Area)
}

func TestPatternOptimizerEmptyContext(t *testing.T) {
	res, err := NewPatternOptimizer().Optimize(context.Background(), models.OptimizationContext{})
	require.NoError(t, err)
	assert.NotNil(t, res.Optimizations)
	assert.Empty(t, res.Optimizations)
	assert.NotNil(t, res.Patterns)
	assert.Empty(t, res.EstimatedImprovements)
}
