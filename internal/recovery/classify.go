package recovery

import (
	"strings"

	"github.com/harrison/autopilot/internal/models"
)

// keywordGroup maps a failure type to the substrings that identify it.
type keywordGroup struct {
	failureType FailureType
	keywords    []string
}

// errorKeywords is evaluated in order; the first group with a matching
// keyword wins.
var errorKeywords = []keywordGroup{
	{FailureTimeout, []string{"timeout"}},
	{FailureConnection, []string{"connection", "network", "unreachable"}},
	{FailureValidation, []string{"validation", "invalid", "format"}},
	{FailureResource, []string{"resource", "memory", "disk"}},
	{FailurePermission, []string{"permission", "denied", "unauthorized"}},
	{FailureDependency, []string{"dependency", "not found", "missing"}},
}

// ClassifyError maps raw error text to a FailureType by case-insensitive
// substring match. Text that matches nothing is FailureUnknown.
func ClassifyError(errText string) FailureType {
	lower := strings.ToLower(errText)
	for _, group := range errorKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.failureType
			}
		}
	}
	return FailureUnknown
}

// AssessSeverity derives severity from the task's declared priority first,
// then from the failure type.
func AssessSeverity(priority models.Priority, ft FailureType) Severity {
	switch priority {
	case models.PriorityCritical:
		return SeverityCritical
	case models.PriorityHigh:
		return SeverityHigh
	}

	switch ft {
	case FailurePermission, FailureDependency:
		return SeverityHigh
	case FailureValidation, FailureResource:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SelectRecoveryStrategy picks a strategy for a failure record.
//
// | Retry failed | Severity | Strategy            |
// |--------------|----------|---------------------|
// | yes          | low      | skip                |
// | yes          | medium   | fallback            |
// | yes          | high     | partial-completion  |
// | yes          | critical | manual-intervention |
//
// Otherwise the failure type decides: timeout/connection retry, validation
// falls back, resource completes partially, permission needs a human,
// dependency rolls back, unknown is skipped unless critical.
func SelectRecoveryStrategy(rec *FailureRecord) Strategy {
	if rec.RetryAttempted && !rec.RetrySucceeded {
		switch rec.Severity {
		case SeverityLow:
			return StrategySkip
		case SeverityMedium:
			return StrategyFallback
		case SeverityHigh:
			return StrategyPartialCompletion
		case SeverityCritical:
			return StrategyManualIntervention
		}
	}

	switch rec.ErrorType {
	case FailureTimeout, FailureConnection:
		return StrategyRetry
	case FailureValidation:
		return StrategyFallback
	case FailureResource:
		return StrategyPartialCompletion
	case FailurePermission:
		return StrategyManualIntervention
	case FailureDependency:
		return StrategyRollback
	default:
		if rec.Severity == SeverityCritical {
			return StrategyManualIntervention
		}
		return StrategySkip
	}
}

// shouldRetry decides whether a fresh failure gets its single retry.
// Critical failures and failures that need a human go straight to a plan.
func shouldRetry(rec *FailureRecord) bool {
	if rec.Severity == SeverityCritical {
		return false
	}
	return SelectRecoveryStrategy(rec) != StrategyManualIntervention
}
