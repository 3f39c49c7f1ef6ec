package agents

import (
	"context"
	"fmt"
	"sort"

	"github.com/harrison/autopilot/internal/models"
)

// maxEstimatedGain caps the summed gain reported for one run.
const maxEstimatedGain = 0.5

// PatternOptimizer proposes improvements from the failure types, timing and
// reflection of a finished run.
type PatternOptimizer struct{}

// NewPatternOptimizer creates a PatternOptimizer.
func NewPatternOptimizer() *PatternOptimizer {
	return &PatternOptimizer{}
}

// Optimize implements the optimizer contract.
func (o *PatternOptimizer) Optimize(ctx context.Context, oc models.OptimizationContext) (*models.OptimizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := models.EmptyOptimization()

	counts := make(map[string]int)
	for _, ft := range oc.FailureTypes {
		counts[ft]++
	}
	types := make([]string, 0, len(counts))
	for ft := range counts {
		types = append(types, ft)
	}
	sort.Strings(types)
	for _, ft := range types {
		if counts[ft] > 1 {
			res.Patterns = append(res.Patterns, fmt.Sprintf("recurring %s failures (%d)", ft, counts[ft]))
		}
		res.Optimizations = append(res.Optimizations, models.Optimization{
			Area:          "reliability",
			Description:   failureRemedy(ft),
			EstimatedGain: 0.1 * float64(counts[ft]),
		})
	}

	if oc.Plan != nil && oc.Execution != nil {
		estimated := oc.Plan.EstimatedTotal()
		if estimated > 0 && float64(oc.Execution.TotalDuration) > float64(estimated)*overrunFactor {
			res.Patterns = append(res.Patterns, "execution overran its estimate")
			res.Optimizations = append(res.Optimizations, models.Optimization{
				Area:          "performance",
				Description:   "Parallelize independent tasks",
				EstimatedGain: 0.2,
			})
		}
		if len(oc.Plan.Tasks) > 10 {
			res.Patterns = append(res.Patterns, "large plan")
			res.Optimizations = append(res.Optimizations, models.Optimization{
				Area:          "planning",
				Description:   "Merge closely related tasks",
				EstimatedGain: 0.1,
			})
		}
	}

	if oc.Reflection != nil && oc.Reflection.Score < 70 {
		res.Optimizations = append(res.Optimizations, models.Optimization{
			Area:          "planning",
			Description:   "Break the goal into smaller, verifiable steps",
			EstimatedGain: 0.1,
		})
	}

	total := 0.0
	for _, opt := range res.Optimizations {
		total += opt.EstimatedGain
	}
	if total > maxEstimatedGain {
		total = maxEstimatedGain
	}
	if total > 0 {
		res.EstimatedImprovements = fmt.Sprintf("up to %.0f%% fewer failed or slow tasks", total*100)
	}
	return res, nil
}

func failureRemedy(failureType string) string {
	switch failureType {
	case "timeout":
		return "Raise timeouts or split long-running tasks"
	case "connection":
		return "Add retry with backoff around network calls"
	case "validation":
		return "Validate inputs before the failing step"
	case "resource":
		return "Reduce batch sizes or reserve more capacity"
	case "permission":
		return "Grant the required permissions before the run"
	case "dependency":
		return "Install and pin dependencies in a setup task"
	default:
		return "Improve error reporting for unclassified failures"
	}
}
