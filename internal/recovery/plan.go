package recovery

import "time"

// manualStepPenalty is added to the estimate for every step a human performs.
const manualStepPenalty = 10 * time.Minute

type stepTemplate struct {
	action      string
	description string
	automated   bool
}

// strategySteps returns the fixed step list for a strategy.
func strategySteps(s Strategy) []stepTemplate {
	switch s {
	case StrategyRetry:
		return []stepTemplate{
			{"wait", "Wait for transient conditions to clear", true},
			{"retry", "Re-run the task with the same inputs", true},
			{"verify", "Verify the task output", true},
		}
	case StrategySkip:
		return []stepTemplate{
			{"log", "Record the failure for later review", true},
			{"skip", "Mark the task as skipped and continue", true},
			{"notify", "Flag the skipped task in the run report", true},
		}
	case StrategyFallback:
		return []stepTemplate{
			{"identify-alternative", "Select an alternative approach for the task", true},
			{"execute-fallback", "Run the alternative approach", true},
			{"validate", "Validate the fallback result", true},
		}
	case StrategyPartialCompletion:
		return []stepTemplate{
			{"assess", "Determine which parts of the task completed", true},
			{"save-progress", "Persist completed work", true},
			{"complete-remaining", "Finish the remaining work by hand", false},
			{"report", "Report the partial result", true},
		}
	case StrategyManualIntervention:
		return []stepTemplate{
			{"alert", "Alert an operator about the failure", true},
			{"pause", "Pause dependent work", true},
			{"investigate", "Investigate the root cause", false},
			{"resolve", "Resolve the underlying problem", false},
			{"resume", "Resume the run", false},
		}
	case StrategyRollback:
		return []stepTemplate{
			{"identify-checkpoint", "Find the last known good state", true},
			{"rollback", "Revert changes made since the checkpoint", true},
			{"verify-state", "Verify the restored state", true},
			{"review-dependencies", "Review the missing dependency before retrying", false},
		}
	default:
		return []stepTemplate{
			{"investigate", "Investigate the failure", false},
		}
	}
}

// baseRecoveryTime is the per-strategy estimate before manual penalties.
func baseRecoveryTime(s Strategy) time.Duration {
	switch s {
	case StrategyRetry:
		return 2 * time.Minute
	case StrategySkip:
		return 1 * time.Minute
	case StrategyFallback:
		return 5 * time.Minute
	case StrategyPartialCompletion:
		return 10 * time.Minute
	case StrategyManualIntervention:
		return 30 * time.Minute
	case StrategyRollback:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// baseConfidence is the per-strategy starting score.
func baseConfidence(s Strategy) float64 {
	switch s {
	case StrategyRetry:
		return 0.8
	case StrategySkip:
		return 0.9
	case StrategyFallback:
		return 0.7
	case StrategyPartialCompletion:
		return 0.6
	case StrategyManualIntervention:
		return 0.5
	case StrategyRollback:
		return 0.75
	default:
		return 0.5
	}
}

// calculateConfidence returns the clamped and raw confidence for a strategy
// applied to a failure.
func calculateConfidence(s Strategy, sev Severity, ft FailureType) (clamped, raw float64) {
	c := baseConfidence(s)

	switch sev {
	case SeverityCritical:
		c *= 0.8
	case SeverityLow:
		c *= 1.1
	}

	switch ft {
	case FailureTimeout, FailureConnection:
		c *= 1.1
	case FailureUnknown:
		c *= 0.8
	}

	return clamp(c, MinConfidence, MaxConfidence), c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// alternativeApproaches lists other options worth considering for a failure type.
func alternativeApproaches(ft FailureType) []string {
	switch ft {
	case FailureTimeout:
		return []string{
			"Increase the task timeout",
			"Split the task into smaller units",
		}
	case FailureConnection:
		return []string{
			"Retry against a secondary endpoint",
			"Queue the task until connectivity is restored",
		}
	case FailureValidation:
		return []string{
			"Normalize the input before re-running",
			"Relax validation for non-critical fields",
		}
	case FailureResource:
		return []string{
			"Run the task with a smaller batch size",
			"Schedule the task when resources are available",
		}
	case FailurePermission:
		return []string{
			"Request the missing permission",
			"Run the task under a service account",
		}
	case FailureDependency:
		return []string{
			"Install or restore the missing dependency",
			"Reorder tasks so dependencies run first",
		}
	default:
		return []string{
			"Review task logs for more context",
		}
	}
}

// buildRecoveryPlan expands a strategy into a full plan for the record.
func buildRecoveryPlan(rec *FailureRecord) *RecoveryPlan {
	strategy := SelectRecoveryStrategy(rec)
	templates := strategySteps(strategy)

	steps := make([]RecoveryStep, 0, len(templates))
	for i, tmpl := range templates {
		steps = append(steps, RecoveryStep{
			Order:       i + 1,
			Action:      tmpl.action,
			Description: tmpl.description,
			Automated:   tmpl.automated,
		})
	}

	plan := &RecoveryPlan{
		Strategy:              strategy,
		Steps:                 steps,
		AlternativeApproaches: alternativeApproaches(rec.ErrorType),
	}
	plan.EstimatedRecoveryTime = baseRecoveryTime(strategy) + time.Duration(plan.ManualSteps())*manualStepPenalty
	plan.Confidence, plan.RawConfidence = calculateConfidence(strategy, rec.Severity, rec.ErrorType)
	return plan
}
