package recovery

import (
	"testing"

	"github.com/harrison/autopilot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		errText string
		want    FailureType
	}{
		{"request timeout after 30s", FailureTimeout},
		{"connection refused", FailureConnection},
		{"Network is down", FailureConnection},
		{"host unreachable", FailureConnection},
		{"validation failed for field name", FailureValidation},
		{"invalid JSON payload", FailureValidation},
		{"unexpected format", FailureValidation},
		{"out of memory", FailureResource},
		{"disk full", FailureResource},
		{"permission denied", FailurePermission},
		{"401 Unauthorized", FailurePermission},
		{"module not found", FailureDependency},
		{"missing dependency libfoo", FailureDependency},
		{"something odd happened", FailureUnknown},
		{"", FailureUnknown},
		// First matching group wins.
		{"connection timeout", FailureTimeout},
		{"invalid permission set", FailureValidation},
	}

	for _, tt := range tests {
		t.Run(tt.errText, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.errText))
		})
	}
}

func TestAssessSeverity(t *testing.T) {
	tests := []struct {
		name     string
		priority models.Priority
		ft       FailureType
		want     Severity
	}{
		{"critical priority overrides type", models.PriorityCritical, FailureTimeout, SeverityCritical},
		{"high priority overrides type", models.PriorityHigh, FailureUnknown, SeverityHigh},
		{"permission is high", models.PriorityMedium, FailurePermission, SeverityHigh},
		{"dependency is high", models.PriorityLow, FailureDependency, SeverityHigh},
		{"validation is medium", models.PriorityLow, FailureValidation, SeverityMedium},
		{"resource is medium", models.PriorityMedium, FailureResource, SeverityMedium},
		{"timeout is low", models.PriorityMedium, FailureTimeout, SeverityLow},
		{"unknown is low", models.PriorityLow, FailureUnknown, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessSeverity(tt.priority, tt.ft))
		})
	}
}

func TestSelectRecoveryStrategy(t *testing.T) {
	tests := []struct {
		name string
		rec  FailureRecord
		want Strategy
	}{
		{"retry failed low", FailureRecord{RetryAttempted: true, Severity: SeverityLow, ErrorType: FailureTimeout}, StrategySkip},
		{"retry failed medium", FailureRecord{RetryAttempted: true, Severity: SeverityMedium, ErrorType: FailureTimeout}, StrategyFallback},
		{"retry failed high", FailureRecord{RetryAttempted: true, Severity: SeverityHigh, ErrorType: FailureConnection}, StrategyPartialCompletion},
		{"retry failed critical", FailureRecord{RetryAttempted: true, Severity: SeverityCritical, ErrorType: FailureConnection}, StrategyManualIntervention},
		{"retry succeeded falls through to type", FailureRecord{RetryAttempted: true, RetrySucceeded: true, Severity: SeverityLow, ErrorType: FailureDependency}, StrategyRollback},
		{"timeout", FailureRecord{ErrorType: FailureTimeout, Severity: SeverityLow}, StrategyRetry},
		{"connection", FailureRecord{ErrorType: FailureConnection, Severity: SeverityHigh}, StrategyRetry},
		{"validation", FailureRecord{ErrorType: FailureValidation, Severity: SeverityMedium}, StrategyFallback},
		{"resource", FailureRecord{ErrorType: FailureResource, Severity: SeverityMedium}, StrategyPartialCompletion},
		{"permission", FailureRecord{ErrorType: FailurePermission, Severity: SeverityHigh}, StrategyManualIntervention},
		{"dependency", FailureRecord{ErrorType: FailureDependency, Severity: SeverityHigh}, StrategyRollback},
		{"unknown critical", FailureRecord{ErrorType: FailureUnknown, Severity: SeverityCritical}, StrategyManualIntervention},
		{"unknown low", FailureRecord{ErrorType: FailureUnknown, Severity: SeverityLow}, StrategySkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec
			assert.Equal(t, tt.want, SelectRecoveryStrategy(&rec))
		})
	}
}

func TestCalculateConfidence(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		severity Severity
		ft       FailureType
		want     float64
		clamped  bool
	}{
		{"retry on connection medium", StrategyRetry, SeverityMedium, FailureConnection, 0.88, false},
		{"skip low unknown", StrategySkip, SeverityLow, FailureUnknown, 0.792, false},
		{"skip low timeout clamps high", StrategySkip, SeverityLow, FailureTimeout, MaxConfidence, true},
		{"manual critical unknown stays above floor", StrategyManualIntervention, SeverityCritical, FailureUnknown, 0.32, false},
		{"partial completion high resource", StrategyPartialCompletion, SeverityHigh, FailureResource, 0.6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, raw := calculateConfidence(tt.strategy, tt.severity, tt.ft)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, MinConfidence)
			assert.LessOrEqual(t, got, MaxConfidence)
			if tt.clamped {
				assert.NotEqual(t, raw, got)
			}
		})
	}
}

func TestStrategyStepsAreOrderedAndNonEmpty(t *testing.T) {
	strategies := []Strategy{
		StrategyRetry, StrategySkip, StrategyFallback,
		StrategyPartialCompletion, StrategyManualIntervention, StrategyRollback,
	}
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			assert.NotEmpty(t, strategySteps(s))
		})
	}

	manual := strategySteps(StrategyManualIntervention)
	actions := make([]string, 0, len(manual))
	for _, s := range manual {
		actions = append(actions, s.action)
	}
	assert.Equal(t, []string{"alert", "pause", "investigate", "resolve", "resume"}, actions)
	assert.False(t, manual[2].automated)
	assert.False(t, manual[3].automated)
	assert.False(t, manual[4].automated)
}
