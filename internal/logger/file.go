package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// FileLogger writes one timestamped log file per process invocation and
// keeps a latest.log symlink pointing at it.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger under logDir at the given level.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log; a numeric suffix avoids clobbering a log
	// opened earlier in the same second.
	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))
	for i := 1; fileExists(runFile); i++ {
		runFile = filepath.Join(logDir, fmt.Sprintf("run-%s-%d.log", stamp, i))
	}

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== Autopilot Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Path returns the path of the current run log.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return levelEnabled(fl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogPhaseStart records the start of a phase at DEBUG level.
func (fl *FileLogger) LogPhaseStart(runID string, phase models.Phase) {
	fl.LogDebug(phaseStartText(runID, phase))
}

// LogPhaseComplete records a finished phase.
func (fl *FileLogger) LogPhaseComplete(runID string, rec models.PhaseRecord) {
	if rec.Status == models.PhaseFailed {
		fl.LogWarn(phaseCompleteText(runID, rec))
		return
	}
	fl.LogInfo(phaseCompleteText(runID, rec))
}

// LogTaskFailure records a failed task at WARN level.
func (fl *FileLogger) LogTaskFailure(runID string, exec *models.TaskExecution) {
	if exec == nil {
		return
	}
	fl.LogWarn(taskFailureText(runID, exec))
}

// LogRecovery records the handling of a failed task at INFO level.
func (fl *FileLogger) LogRecovery(runID string, ev models.RecoveryEvent) {
	fl.LogInfo(recoveryText(runID, ev))
}

// LogRunSummary records the run summary block.
func (fl *FileLogger) LogRunSummary(s models.RunSummary) {
	if !fl.shouldLog("info") {
		return
	}

	var b strings.Builder
	b.WriteString("\n=== Run Summary ===\n")
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	fmt.Fprintf(&b, "Goal: %s\n", s.Goal)
	fmt.Fprintf(&b, "Success: %t\n", s.Success)
	fmt.Fprintf(&b, "Completed: %d\n", s.CompletedTasks)
	fmt.Fprintf(&b, "Failed: %d\n", s.FailedTasks)
	fmt.Fprintf(&b, "Recovered by retry: %d\n", s.Recoveries)
	fmt.Fprintf(&b, "Duration: %s\n", formatDuration(s.Duration))
	if s.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", s.Error)
	}
	b.WriteString("\n")
	fl.writeRunLog(b.String())
}

// LogEvolution records the evolution cycle block.
func (fl *FileLogger) LogEvolution(s models.EvolutionSummary) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog("\n" + strings.Join(evolutionLines(s), "\n") + "\n\n")
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
