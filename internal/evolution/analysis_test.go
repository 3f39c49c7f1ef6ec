package evolution

import (
	"testing"
	"time"

	"github.com/harrison/autopilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inefficiencyTypes(a ExecutionAnalysis) []InefficiencyType {
	var out []InefficiencyType
	for _, inef := range a.Inefficiencies {
		out = append(out, inef.Type)
	}
	return out
}

func TestAnalyzeRun(t *testing.T) {
	tests := []struct {
		name           string
		tasks          int
		completed      int
		failed         int
		duration       time.Duration
		score          float64
		wantComplexity Complexity
		wantTypes      []InefficiencyType
	}{
		{"clean small run", 4, 4, 0, 4 * time.Second, 90, ComplexitySimple, nil},
		{"medium tier", 8, 8, 0, 8 * time.Second, 90, ComplexityMedium, nil},
		{"complex by task count", 12, 12, 0, 12 * time.Second, 90, ComplexityComplex, nil},
		{"complex by execution time", 4, 4, 0, 90 * time.Second, 90, ComplexityComplex, []InefficiencyType{InefficiencySlowExecution}},
		{"slow execution", 3, 3, 0, 18 * time.Second, 90, ComplexitySimple, []InefficiencyType{InefficiencySlowExecution}},
		{"failure", 5, 4, 1, 5 * time.Second, 80, ComplexitySimple, []InefficiencyType{InefficiencyHighFailure}},
		{"over planning", 12, 6, 6, 12 * time.Second, 60, ComplexityComplex, []InefficiencyType{InefficiencyHighFailure, InefficiencyOverPlanning}},
		{"under planning", 2, 2, 0, 2 * time.Second, 50, ComplexitySimple, []InefficiencyType{InefficiencyUnderPlanning}},
		{"small plan with good score", 2, 2, 0, 2 * time.Second, 85, ComplexitySimple, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runRecord("r", tt.tasks, tt.completed, tt.failed, tt.duration, 0, tt.score)
			a := AnalyzeRun(rec, DefaultSlowTaskThreshold)
			assert.Equal(t, tt.wantComplexity, a.Complexity)
			assert.Equal(t, tt.wantTypes, inefficiencyTypes(a))
		})
	}
}

func TestAnalyzeRun_FailureSeverityScalesWithRatio(t *testing.T) {
	tests := []struct {
		failed int
		want   Impact
	}{
		{1, ImpactLow},
		{2, ImpactMedium},
		{3, ImpactHigh},
	}
	for _, tt := range tests {
		rec := runRecord("r", 5, 5-tt.failed, tt.failed, 5*time.Second, 0, 90)
		a := AnalyzeRun(rec, DefaultSlowTaskThreshold)
		require.Len(t, a.Inefficiencies, 1)
		assert.Equal(t, tt.want, a.Inefficiencies[0].Severity, "failed=%d", tt.failed)
	}
}

func TestAnalyzeRun_SuccessRateFallsBackToCounts(t *testing.T) {
	rec := runRecord("r", 4, 3, 1, 4*time.Second, 0, 90)
	assert.InDelta(t, 0.75, AnalyzeRun(rec, DefaultSlowTaskThreshold).SuccessRate, 1e-9)

	rec.Reflection.SuccessRate = 0.5
	assert.InDelta(t, 0.5, AnalyzeRun(rec, DefaultSlowTaskThreshold).SuccessRate, 1e-9)
}

func TestSignificantPatterns(t *testing.T) {
	counts := map[InefficiencyType]int{
		InefficiencyHighFailure:   4,
		InefficiencySlowExecution: 2,
		InefficiencyOverPlanning:  2,
		InefficiencyUnderPlanning: 1,
	}
	got := significantPatterns(counts, DefaultPatternThreshold)
	assert.Equal(t, []InefficiencyType{InefficiencyHighFailure, InefficiencyOverPlanning, InefficiencySlowExecution}, got)
}

func TestSuggestionTemplates(t *testing.T) {
	tests := []struct {
		source   InefficiencyType
		category Category
		auto     bool
	}{
		{InefficiencySlowExecution, CategoryPerformance, true},
		{InefficiencyHighFailure, CategoryReliability, true},
		{InefficiencyOverPlanning, CategoryPlanning, true},
		{InefficiencyUnderPlanning, CategoryPlanning, false},
		{InefficiencyType("mystery"), CategoryEfficiency, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			s := suggestionFor(tt.source, 3)
			assert.Equal(t, tt.category, s.Category)
			assert.Equal(t, tt.auto, s.AutoApplicable)
			assert.Contains(t, s.Description, "3 runs")
			assert.InDelta(t, 0.8, s.Confidence, 1e-9)
		})
	}

	assert.InDelta(t, 0.95, suggestionFor(InefficiencyHighFailure, 10).Confidence, 1e-9)
}

func TestAggregateSuggestions(t *testing.T) {
	agg := aggregate{runs: 4, meanSuccessRate: 0.7, meanExecTime: 20, complexRuns: 3}
	got := aggregateSuggestions(agg)
	require.Len(t, got, 3)
	assert.Equal(t, CategoryPerformance, got[0].Category)
	assert.True(t, got[0].AutoApplicable)
	assert.Equal(t, CategoryAccuracy, got[1].Category)
	assert.True(t, got[1].AutoApplicable)
	assert.Equal(t, CategoryEfficiency, got[2].Category)
	assert.False(t, got[2].AutoApplicable)

	assert.Empty(t, aggregateSuggestions(aggregate{}))
	assert.Empty(t, aggregateSuggestions(aggregate{runs: 2, meanSuccessRate: 0.9, meanExecTime: 3, complexRuns: 1}))
}

func TestRuleFor(t *testing.T) {
	tests := []struct {
		category  Category
		condition string
		action    string
		priority  int
	}{
		{CategoryPerformance, "avg_task_time > 5", "parallelize_independent_tasks", 2},
		{CategoryReliability, "failure_rate > 0.15", "enable_enhanced_retry", 1},
		{CategoryAccuracy, "success_rate < 0.85", "add_validation_checkpoints", 2},
		{CategoryPlanning, "task_count > 10", "merge_related_tasks", 3},
		{CategoryEfficiency, "complexity == complex", "decompose_into_subgoals", 3},
		{Category("other"), "always", "review_manually", 5},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			cond, action, prio := ruleFor(tt.category)
			assert.Equal(t, tt.condition, cond)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.priority, prio)
		})
	}
}

func TestEvaluateCondition(t *testing.T) {
	facts := Facts{
		"failure_rate":    0.2,
		"task_count":      12.0,
		"complexity":      "complex",
		"goal_complexity": "high",
		"task_failure":    true,
		"quiet":           false,
	}

	tests := []struct {
		condition string
		want      bool
	}{
		{"always", true},
		{"failure_rate > 0.15", true},
		{"failure_rate >= 0.2", true},
		{"failure_rate < 0.15", false},
		{"task_count <= 12", true},
		{"task_count != 12", false},
		{"task_count == 12", true},
		{"complexity == complex", true},
		{"goal_complexity != high", false},
		{"task_failure", true},
		{"quiet", false},
		{"task_failure == true", true},
		{"missing_fact > 1", false},
		{"missing_fact", false},
		{"task_count > many", false},
		{"complexity > simple", false},
		{"", false},
		{"a b c d", false},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.condition, facts))
		})
	}
}

func TestRunFactsAndMatchingRules(t *testing.T) {
	plan := &models.Plan{Tasks: make([]models.PlannedTask, 4)}
	exec := &models.ExecutionResult{
		TaskExecutions: []*models.TaskExecution{
			{Status: models.TaskCompleted}, {Status: models.TaskCompleted},
			{Status: models.TaskCompleted}, {Status: models.TaskFailed},
		},
		CompletedTasks: 3,
		FailedTasks:    1,
		TotalDuration:  40 * time.Second,
	}

	facts := RunFacts(plan, exec)
	assert.Equal(t, 4.0, facts["task_count"])
	assert.Equal(t, "low", facts["goal_complexity"])
	assert.Equal(t, true, facts["task_failure"])
	assert.InDelta(t, 0.25, facts["failure_rate"], 1e-9)
	assert.InDelta(t, 10.0, facts["avg_task_time"], 1e-9)
	assert.InDelta(t, 0.75, facts["success_rate"], 1e-9)

	s := initialStrategy()
	s.Rules = append(s.Rules, Rule{Condition: "failure_rate > 0.15", Action: "enable_enhanced_retry", Priority: 1, Effectiveness: 0.9})
	s.SortRules()

	var actions []string
	for _, r := range s.MatchingRules(facts) {
		actions = append(actions, r.Action)
	}
	assert.Equal(t, []string{"enable_enhanced_retry", "retry_with_backoff", "parallelize_independent_tasks"}, actions)

	assert.Empty(t, RunFacts(nil, nil))
	planOnly := RunFacts(plan, nil)
	assert.NotContains(t, planOnly, "task_failure")
}
