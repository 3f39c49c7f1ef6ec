package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/autopilot/internal/models"
	"github.com/harrison/autopilot/internal/recovery"
)

// overrunFactor is how far actual time may exceed the estimate before the
// reflector calls it out.
const overrunFactor = 1.5

// ScoreReflector scores a run from its completion ratio and timing.
type ScoreReflector struct{}

// NewScoreReflector creates a ScoreReflector.
func NewScoreReflector() *ScoreReflector {
	return &ScoreReflector{}
}

// Reflect returns a 0-100 score: 80 points for completion and 20 for
// staying within the estimated duration.
func (r *ScoreReflector) Reflect(ctx context.Context, plan *models.Plan, exec *models.ExecutionResult) (*models.Reflection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if plan == nil || exec == nil {
		return nil, fmt.Errorf("reflection needs both a plan and an execution result")
	}

	total := len(exec.TaskExecutions)
	successRate := exec.SuccessRate()

	estimated := plan.EstimatedTotal()
	efficiency := 1.0
	if exec.TotalDuration > 0 && estimated > 0 && exec.TotalDuration > estimated {
		efficiency = float64(estimated) / float64(exec.TotalDuration)
	}

	score := successRate*80 + efficiency*20
	refl := &models.Reflection{
		Score:       score,
		Grade:       grade(score),
		SuccessRate: successRate,
	}

	if exec.FailedTasks == 0 {
		refl.Insights = append(refl.Insights, fmt.Sprintf("All %d tasks completed", exec.CompletedTasks))
	} else {
		refl.Insights = append(refl.Insights, fmt.Sprintf("%d of %d tasks failed", exec.FailedTasks, total))
	}
	if estimated > 0 && float64(exec.TotalDuration) > float64(estimated)*overrunFactor {
		refl.Insights = append(refl.Insights, fmt.Sprintf("Execution took %s against an estimate of %s", exec.TotalDuration, estimated))
		refl.Improvements = append(refl.Improvements, "Re-estimate task durations from recent runs")
	}

	types := make(map[recovery.FailureType]int)
	for _, te := range exec.FailedExecutions() {
		refl.Improvements = append(refl.Improvements, fmt.Sprintf("Add a fallback for %q", te.Title))
		types[recovery.ClassifyError(te.Error)]++
	}
	for _, ft := range sortedTypes(types) {
		refl.LessonsLearned = append(refl.LessonsLearned, fmt.Sprintf("%d task(s) hit %s failures", types[ft], ft))
	}
	if len(plan.Tasks) < 3 && score < 70 {
		refl.LessonsLearned = append(refl.LessonsLearned, "Short plans left little room to recover; plan in finer steps")
	}

	return refl, nil
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func sortedTypes(counts map[recovery.FailureType]int) []recovery.FailureType {
	out := make([]recovery.FailureType, 0, len(counts))
	for ft := range counts {
		out = append(out, ft)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return strings.Compare(string(out[i]), string(out[j])) < 0
	})
	return out
}
