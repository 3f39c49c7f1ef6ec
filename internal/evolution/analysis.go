package evolution

import (
	"fmt"
	"sort"

	"github.com/harrison/autopilot/internal/learning"
)

const (
	// complexExecutionTime pushes a run into the complex tier regardless of
	// its task count (seconds).
	complexExecutionTime = 60.0

	overPlanningTaskCount   = 10
	overPlanningCompletion  = 0.8
	underPlanningTaskCount  = 3
	underPlanningScoreLimit = 70.0

	aggregateSlowExecution = 15.0
	aggregateLowSuccess    = 0.85
)

func complexityFor(taskCount int, executionTime float64) Complexity {
	switch {
	case taskCount > 10 || executionTime > complexExecutionTime:
		return ComplexityComplex
	case taskCount > 5:
		return ComplexityMedium
	default:
		return ComplexitySimple
	}
}

// AnalyzeRun computes the complexity tier and inefficiency findings for one
// run record. slowThreshold is the average per-task time, in seconds, above
// which execution counts as slow.
func AnalyzeRun(rec *learning.RunRecord, slowThreshold float64) ExecutionAnalysis {
	taskCount := rec.Plan.TaskCount
	seconds := rec.Execution.TotalDuration.Seconds()

	a := ExecutionAnalysis{
		RunID:           rec.RunID,
		TaskCount:       taskCount,
		ExecutionTime:   seconds,
		SuccessRate:     runSuccessRate(rec),
		ReflectionScore: rec.Reflection.Score,
		Complexity:      complexityFor(taskCount, seconds),
	}

	if taskCount > 0 {
		avg := seconds / float64(taskCount)
		if avg > slowThreshold {
			severity := ImpactMedium
			if avg > 2*slowThreshold {
				severity = ImpactHigh
			}
			a.Inefficiencies = append(a.Inefficiencies, Inefficiency{
				Type:        InefficiencySlowExecution,
				Severity:    severity,
				Description: fmt.Sprintf("average task time %.1fs exceeds %.1fs", avg, slowThreshold),
			})
		}
	}

	if failed := rec.Execution.FailedTasks; failed > 0 {
		ratio := 1.0
		if taskCount > 0 {
			ratio = float64(failed) / float64(taskCount)
		}
		a.Inefficiencies = append(a.Inefficiencies, Inefficiency{
			Type:        InefficiencyHighFailure,
			Severity:    failureSeverity(ratio),
			Description: fmt.Sprintf("%d of %d tasks failed", failed, taskCount),
		})
	}

	if taskCount > overPlanningTaskCount {
		completion := float64(rec.Execution.CompletedTasks) / float64(taskCount)
		if completion < overPlanningCompletion {
			a.Inefficiencies = append(a.Inefficiencies, Inefficiency{
				Type:        InefficiencyOverPlanning,
				Severity:    ImpactMedium,
				Description: fmt.Sprintf("%d tasks planned but only %.0f%% completed", taskCount, completion*100),
			})
		}
	}

	if taskCount < underPlanningTaskCount && rec.Reflection.Score < underPlanningScoreLimit {
		a.Inefficiencies = append(a.Inefficiencies, Inefficiency{
			Type:        InefficiencyUnderPlanning,
			Severity:    ImpactMedium,
			Description: fmt.Sprintf("only %d tasks planned and reflection scored %.0f", taskCount, rec.Reflection.Score),
		})
	}

	return a
}

func failureSeverity(ratio float64) Impact {
	switch {
	case ratio > 0.5:
		return ImpactHigh
	case ratio > 0.2:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// runSuccessRate prefers the reflected rate and falls back to task counts.
func runSuccessRate(rec *learning.RunRecord) float64 {
	if rec.Reflection.SuccessRate > 0 {
		return rec.Reflection.SuccessRate
	}
	total := rec.Execution.CompletedTasks + rec.Execution.FailedTasks
	if total == 0 {
		return 0
	}
	return float64(rec.Execution.CompletedTasks) / float64(total)
}

// DetectPatterns tallies inefficiency types across analyses.
func DetectPatterns(analyses []ExecutionAnalysis) map[InefficiencyType]int {
	counts := make(map[InefficiencyType]int)
	for _, a := range analyses {
		for _, inef := range a.Inefficiencies {
			counts[inef.Type]++
		}
	}
	return counts
}

// significantPatterns returns the types seen at least threshold times, most
// frequent first, ties broken by name so output is stable.
func significantPatterns(counts map[InefficiencyType]int, threshold int) []InefficiencyType {
	var out []InefficiencyType
	for t, n := range counts {
		if n >= threshold {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

type aggregate struct {
	runs            int
	meanSuccessRate float64
	meanExecTime    float64
	complexRuns     int
}

func aggregateAnalyses(analyses []ExecutionAnalysis) aggregate {
	agg := aggregate{runs: len(analyses)}
	if agg.runs == 0 {
		return agg
	}
	var success, exec float64
	for _, a := range analyses {
		success += a.SuccessRate
		exec += a.ExecutionTime
		if a.Complexity == ComplexityComplex {
			agg.complexRuns++
		}
	}
	agg.meanSuccessRate = success / float64(agg.runs)
	agg.meanExecTime = exec / float64(agg.runs)
	return agg
}

func (a aggregate) mostlyComplex() bool {
	return a.runs > 0 && a.complexRuns*2 > a.runs
}
