package evolution

import (
	"fmt"
	"math"
)

// patternConfidence grows with how often a pattern recurred.
func patternConfidence(occurrences int) float64 {
	return math.Min(0.5+0.1*float64(occurrences), 0.95)
}

// suggestionFor builds the suggestion for a significant inefficiency pattern.
func suggestionFor(t InefficiencyType, occurrences int) Suggestion {
	s := Suggestion{
		Source:     t,
		Confidence: patternConfidence(occurrences),
	}

	switch t {
	case InefficiencySlowExecution:
		s.Category = CategoryPerformance
		s.Title = "Parallelize independent tasks"
		s.Description = fmt.Sprintf("Slow execution detected in %d runs; run independent tasks concurrently", occurrences)
		s.Impact = ImpactHigh
		s.AutoApplicable = true
	case InefficiencyHighFailure:
		s.Category = CategoryReliability
		s.Title = "Strengthen failure handling"
		s.Description = fmt.Sprintf("Task failures detected in %d runs; enable enhanced retry for failure-prone plans", occurrences)
		s.Impact = ImpactHigh
		s.AutoApplicable = true
	case InefficiencyOverPlanning:
		s.Category = CategoryPlanning
		s.Title = "Reduce plan granularity"
		s.Description = fmt.Sprintf("Over-planning detected in %d runs; merge related tasks in large plans", occurrences)
		s.Impact = ImpactMedium
		s.AutoApplicable = true
	case InefficiencyUnderPlanning:
		s.Category = CategoryPlanning
		s.Title = "Increase plan granularity"
		s.Description = fmt.Sprintf("Under-planning detected in %d runs; break small plans into more specific tasks", occurrences)
		s.Impact = ImpactMedium
	default:
		s.Category = CategoryEfficiency
		s.Title = fmt.Sprintf("Review %s pattern", t)
		s.Description = fmt.Sprintf("Pattern %q detected in %d runs", t, occurrences)
		s.Impact = ImpactLow
	}

	return s
}

// aggregateSuggestions builds suggestions from thresholds over the whole sample.
func aggregateSuggestions(agg aggregate) []Suggestion {
	if agg.runs == 0 {
		return nil
	}

	var out []Suggestion
	if agg.meanExecTime > aggregateSlowExecution {
		out = append(out, Suggestion{
			Category:       CategoryPerformance,
			Title:          "Reduce average execution time",
			Description:    fmt.Sprintf("Mean execution time is %.1fs across %d runs", agg.meanExecTime, agg.runs),
			Impact:         ImpactMedium,
			Confidence:     0.7,
			AutoApplicable: true,
		})
	}
	if agg.meanSuccessRate < aggregateLowSuccess {
		out = append(out, Suggestion{
			Category:       CategoryAccuracy,
			Title:          "Improve task success rate",
			Description:    fmt.Sprintf("Mean success rate is %.0f%% across %d runs", agg.meanSuccessRate*100, agg.runs),
			Impact:         ImpactHigh,
			Confidence:     0.75,
			AutoApplicable: true,
		})
	}
	if agg.mostlyComplex() {
		out = append(out, Suggestion{
			Category:    CategoryEfficiency,
			Title:       "Decompose complex goals",
			Description: fmt.Sprintf("%d of %d runs were complex; split such goals into sub-goals", agg.complexRuns, agg.runs),
			Impact:      ImpactMedium,
			Confidence:  0.6,
		})
	}
	return out
}

// ruleFor maps a suggestion category to the rule it becomes. Unknown
// categories fall back to a low-precedence manual review rule.
func ruleFor(c Category) (condition, action string, priority int) {
	switch c {
	case CategoryPerformance:
		return "avg_task_time > 5", "parallelize_independent_tasks", 2
	case CategoryReliability:
		return "failure_rate > 0.15", "enable_enhanced_retry", 1
	case CategoryAccuracy:
		return "success_rate < 0.85", "add_validation_checkpoints", 2
	case CategoryPlanning:
		return "task_count > 10", "merge_related_tasks", 3
	case CategoryEfficiency:
		return "complexity == complex", "decompose_into_subgoals", 3
	default:
		return "always", "review_manually", 5
	}
}

// initialStrategy is the version-1 baseline.
func initialStrategy() *Strategy {
	return &Strategy{
		Version: 1,
		Rules: []Rule{
			{Condition: "goal_complexity == high", Action: "use_phased_workflow", Priority: 1, Effectiveness: 0.8},
			{Condition: "task_failure", Action: "retry_with_backoff", Priority: 2, Effectiveness: 0.75},
			{Condition: "execution_time > 30", Action: "parallelize_independent_tasks", Priority: 3, Effectiveness: 0.7},
		},
		Learnings: []string{},
	}
}
