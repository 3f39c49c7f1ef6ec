// Package logger provides the console and file loggers used by runs and
// evolution cycles.
//
// Every logger writes "[HH:MM:SS] [LEVEL] message" lines, filters by a
// minimum level and is safe for concurrent use.
package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the full logging surface. Components depend on the smaller
// interfaces they need; every implementation here satisfies this one.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)

	LogPhaseStart(runID string, phase models.Phase)
	LogPhaseComplete(runID string, rec models.PhaseRecord)
	LogTaskFailure(runID string, exec *models.TaskExecution)
	LogRecovery(runID string, ev models.RecoveryEvent)
	LogRunSummary(summary models.RunSummary)
	LogEvolution(summary models.EvolutionSummary)
}

// normalizeLogLevel lowercases a level and falls back to "info" for
// anything unrecognized.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	normalized := strings.ToLower(strings.TrimSpace(level))
	return normalized != "" && normalizeLogLevel(normalized) == normalized
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func levelEnabled(configured, message string) bool {
	return logLevelToInt(message) >= logLevelToInt(configured)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a short human-readable string.
// Sub-second durations keep millisecond precision.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// Message builders shared by the console and file loggers. They return the
// text after the level tag.

func phaseStartText(runID string, phase models.Phase) string {
	return fmt.Sprintf("run %s: %s started", shortID(runID), phase)
}

func phaseCompleteText(runID string, rec models.PhaseRecord) string {
	text := fmt.Sprintf("run %s: %s %s in %s", shortID(runID), rec.Phase, rec.Status, formatDuration(rec.Duration))
	if rec.Error != "" {
		text += ": " + rec.Error
	}
	return text
}

func taskFailureText(runID string, exec *models.TaskExecution) string {
	return fmt.Sprintf("run %s: task %s (%s) failed: %s", shortID(runID), exec.TaskID, exec.Title, exec.Error)
}

func recoveryText(runID string, ev models.RecoveryEvent) string {
	var outcome string
	switch {
	case ev.RetrySucceeded:
		outcome = "recovered by retry"
	case ev.Strategy != "":
		outcome = fmt.Sprintf("plan %s (confidence %.2f)", ev.Strategy, ev.Confidence)
	default:
		outcome = "no recovery plan"
	}
	retry := "no retry"
	if ev.RetryAttempted {
		retry = "retried"
	}
	return fmt.Sprintf("run %s: task %s %s/%s, %s, %s",
		shortID(runID), ev.TaskID, ev.ErrorType, ev.Severity, retry, outcome)
}

func evolutionLines(s models.EvolutionSummary) []string {
	lines := []string{
		fmt.Sprintf("=== Evolution %s ===", shortID(s.EvolutionID)),
		fmt.Sprintf("Strategy version: %d", s.Version),
		fmt.Sprintf("Runs analyzed: %d", s.RunsAnalyzed),
		fmt.Sprintf("New suggestions: %d", s.NewSuggestions),
		fmt.Sprintf("Success rate: %.0f%% -> %.0f%%", s.SuccessRateBefore*100, s.SuccessRateAfter*100),
	}
	for _, title := range s.AppliedImprovements {
		lines = append(lines, "Applied: "+title)
	}
	return lines
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
