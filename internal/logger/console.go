package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/harrison/autopilot/internal/models"
	"github.com/mattn/go-isatty"
)

// ConsoleLogger writes run progress to a writer with [HH:MM:SS] timestamps.
// Color output is enabled only for terminals.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to writer. A nil
// writer discards everything. An empty or unknown logLevel means "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY and color has not been disabled
// (NO_COLOR, TERM=dumb).
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return levelEnabled(cl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	tag := level
	if cl.colorOutput {
		tag = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), tag, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// colorize wraps text in c when color output is on.
func (cl *ConsoleLogger) colorize(c *color.Color, text string) string {
	if !cl.colorOutput {
		return text
	}
	return c.Sprint(text)
}

// LogPhaseStart logs the start of a phase at DEBUG level.
func (cl *ConsoleLogger) LogPhaseStart(runID string, phase models.Phase) {
	cl.LogDebug(phaseStartText(runID, phase))
}

// LogPhaseComplete logs a finished phase. Failed phases are logged at WARN,
// everything else at INFO.
func (cl *ConsoleLogger) LogPhaseComplete(runID string, rec models.PhaseRecord) {
	text := phaseCompleteText(runID, rec)
	switch rec.Status {
	case models.PhaseFailed:
		cl.LogWarn(cl.colorize(color.New(color.FgRed), text))
	case models.PhaseSkipped:
		cl.LogInfo(cl.colorize(color.New(color.FgHiBlack), text))
	default:
		cl.LogInfo(cl.colorize(color.New(color.FgGreen), text))
	}
}

// LogTaskFailure logs a failed task at WARN level.
func (cl *ConsoleLogger) LogTaskFailure(runID string, exec *models.TaskExecution) {
	if exec == nil {
		return
	}
	cl.LogWarn(taskFailureText(runID, exec))
}

// LogRecovery logs the handling of a failed task at INFO level.
func (cl *ConsoleLogger) LogRecovery(runID string, ev models.RecoveryEvent) {
	text := recoveryText(runID, ev)
	if ev.RetrySucceeded {
		text = cl.colorize(color.New(color.FgGreen), text)
	} else {
		text = cl.colorize(color.New(color.FgYellow), text)
	}
	cl.LogInfo(text)
}

// LogRunSummary prints the run summary block at INFO level.
func (cl *ConsoleLogger) LogRunSummary(s models.RunSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	status := "SUCCESS"
	statusColor := color.New(color.FgGreen, color.Bold)
	if !s.Success {
		status = "FAILED"
		statusColor = color.New(color.FgRed, color.Bold)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, cl.colorize(color.New(color.Bold), "=== Run Summary ==="))
	fmt.Fprintf(&b, "[%s] Run: %s\n", ts, s.RunID)
	fmt.Fprintf(&b, "[%s] Goal: %s\n", ts, s.Goal)
	fmt.Fprintf(&b, "[%s] Status: %s\n", ts, cl.colorize(statusColor, status))
	fmt.Fprintf(&b, "[%s] %s\n", ts, cl.colorize(color.New(color.FgGreen), fmt.Sprintf("Completed: %d", s.CompletedTasks)))
	if s.FailedTasks > 0 {
		fmt.Fprintf(&b, "[%s] %s\n", ts, cl.colorize(color.New(color.FgRed), fmt.Sprintf("Failed: %d", s.FailedTasks)))
	} else {
		fmt.Fprintf(&b, "[%s] Failed: 0\n", ts)
	}
	if s.Recoveries > 0 {
		fmt.Fprintf(&b, "[%s] Recovered by retry: %d\n", ts, s.Recoveries)
	}
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(s.Duration))
	if s.Error != "" {
		fmt.Fprintf(&b, "[%s] %s\n", ts, cl.colorize(color.New(color.FgRed), "Error: "+s.Error))
	}

	io.WriteString(cl.writer, b.String())
}

// LogEvolution prints the evolution cycle block at INFO level.
func (cl *ConsoleLogger) LogEvolution(s models.EvolutionSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var b strings.Builder
	for i, line := range evolutionLines(s) {
		switch {
		case i == 0:
			line = cl.colorize(color.New(color.Bold), line)
		case strings.HasPrefix(line, "Applied: "):
			line = cl.colorize(color.New(color.FgGreen), line)
		}
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}
	io.WriteString(cl.writer, b.String())
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string)                              {}
func (n *NoOpLogger) LogDebug(string)                              {}
func (n *NoOpLogger) LogInfo(string)                               {}
func (n *NoOpLogger) LogWarn(string)                               {}
func (n *NoOpLogger) LogError(string)                              {}
func (n *NoOpLogger) LogPhaseStart(string, models.Phase)           {}
func (n *NoOpLogger) LogPhaseComplete(string, models.PhaseRecord)  {}
func (n *NoOpLogger) LogTaskFailure(string, *models.TaskExecution) {}
func (n *NoOpLogger) LogRecovery(string, models.RecoveryEvent)     {}
func (n *NoOpLogger) LogRunSummary(models.RunSummary)              {}
func (n *NoOpLogger) LogEvolution(models.EvolutionSummary)         {}
