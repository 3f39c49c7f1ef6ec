package logger

import (
	"bytes"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/autopilot/internal/models"
)

var linePattern = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] \[(TRACE|DEBUG|INFO|WARN|ERROR)\] .+$`)

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogInfo("hello world")

	line := strings.TrimRight(buf.String(), "\n")
	if !linePattern.MatchString(line) {
		t.Errorf("unexpected line format: %q", line)
	}
	if !strings.Contains(line, "[INFO] hello world") {
		t.Errorf("expected level tag and message, got %q", line)
	}
}

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		hidden   []string
	}{
		{"trace", []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}, nil},
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}, []string{"TRACE"}},
		{"info", []string{"INFO", "WARN", "ERROR"}, []string{"TRACE", "DEBUG"}},
		{"warn", []string{"WARN", "ERROR"}, []string{"TRACE", "DEBUG", "INFO"}},
		{"error", []string{"ERROR"}, []string{"TRACE", "DEBUG", "INFO", "WARN"}},
		{"", []string{"INFO", "WARN", "ERROR"}, []string{"TRACE", "DEBUG"}},
		{"bogus", []string{"INFO"}, []string{"DEBUG"}},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.level)
			cl.LogTrace("m")
			cl.LogDebug("m")
			cl.LogInfo("m")
			cl.LogWarn("m")
			cl.LogError("m")

			out := buf.String()
			for _, want := range tt.expected {
				if !strings.Contains(out, "["+want+"]") {
					t.Errorf("expected %s in output for level %q", want, tt.level)
				}
			}
			for _, hide := range tt.hidden {
				if strings.Contains(out, "["+hide+"]") {
					t.Errorf("did not expect %s in output for level %q", hide, tt.level)
				}
			}
		})
	}
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "trace")
	cl.LogInfo("ignored")
	cl.LogRunSummary(models.RunSummary{RunID: "r"})
	cl.LogEvolution(models.EvolutionSummary{EvolutionID: "e"})
	cl.LogTaskFailure("r", &models.TaskExecution{TaskID: "t"})
}

func TestConsoleLoggerNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	if cl.colorOutput {
		t.Fatal("expected color output to be disabled for non-file writers")
	}
	cl.LogPhaseComplete("run-1", models.PhaseRecord{Phase: models.PhasePlanning, Status: models.PhaseCompleted})
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("unexpected ANSI escape in output: %q", buf.String())
	}
}

func TestConsoleLoggerPhaseEvents(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "debug")

	cl.LogPhaseStart("0123456789abcdef", models.PhaseExecuting)
	cl.LogPhaseComplete("0123456789abcdef", models.PhaseRecord{
		Phase:    models.PhaseExecuting,
		Status:   models.PhaseFailed,
		Duration: 1500 * time.Millisecond,
		Error:    "executor crashed",
	})

	out := buf.String()
	if !strings.Contains(out, "[DEBUG] run 01234567: executing started") {
		t.Errorf("missing phase start line: %q", out)
	}
	if !strings.Contains(out, "[WARN] run 01234567: executing failed in 1.5s: executor crashed") {
		t.Errorf("missing failed phase line: %q", out)
	}
}

func TestConsoleLoggerTaskFailureAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogTaskFailure("run-1", &models.TaskExecution{TaskID: "task-2", Title: "Fetch data", Error: "connection refused"})
	cl.LogTaskFailure("run-1", nil)
	cl.LogRecovery("run-1", models.RecoveryEvent{
		TaskID:         "task-2",
		ErrorType:      "network",
		Severity:       "medium",
		RetryAttempted: true,
		Strategy:       "retry",
		Confidence:     0.8,
	})

	out := buf.String()
	if !strings.Contains(out, "[WARN] run run-1: task task-2 (Fetch data) failed: connection refused") {
		t.Errorf("missing task failure line: %q", out)
	}
	if !strings.Contains(out, "task task-2 network/medium, retried, plan retry (confidence 0.80)") {
		t.Errorf("missing recovery line: %q", out)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Errorf("expected 2 lines, got %d", got)
	}
}

func TestConsoleLoggerRunSummary(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogRunSummary(models.RunSummary{
		RunID:          "run-1",
		Goal:           "Deploy the service",
		Success:        false,
		CompletedTasks: 2,
		FailedTasks:    1,
		Recoveries:     1,
		Duration:       90 * time.Second,
		Error:          "planning failed",
	})

	out := buf.String()
	for _, want := range []string{
		"=== Run Summary ===",
		"Run: run-1",
		"Goal: Deploy the service",
		"Status: FAILED",
		"Completed: 2",
		"Failed: 1",
		"Recovered by retry: 1",
		"Duration: 1m30s",
		"Error: planning failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleLoggerRunSummaryFilteredAtWarn(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "warn")
	cl.LogRunSummary(models.RunSummary{RunID: "run-1", Success: true})
	cl.LogEvolution(models.EvolutionSummary{EvolutionID: "evo-1"})
	if buf.Len() != 0 {
		t.Errorf("expected no output at warn level, got %q", buf.String())
	}
}

func TestConsoleLoggerEvolution(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogEvolution(models.EvolutionSummary{
		EvolutionID:         "evo-12345678abc",
		Version:             3,
		RunsAnalyzed:        4,
		NewSuggestions:      1,
		AppliedImprovements: []string{"Strengthen failure handling"},
		SuccessRateBefore:   0.5,
		SuccessRateAfter:    0.75,
	})

	out := buf.String()
	for _, want := range []string{
		"=== Evolution evo-1234 ===",
		"Strategy version: 3",
		"Runs analyzed: 4",
		"New suggestions: 1",
		"Success rate: 50% -> 75%",
		"Applied: Strengthen failure handling",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("evolution block missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cl.LogInfo("concurrent")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !linePattern.MatchString(line) {
			t.Errorf("interleaved or malformed line: %q", line)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{2 * time.Minute, "2m"},
		{125 * time.Second, "2m5s"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h30m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"trace", "DEBUG", " info ", "warn", "error"} {
		if !ValidLevel(lvl) {
			t.Errorf("expected %q to be valid", lvl)
		}
	}
	for _, lvl := range []string{"", "verbose", "fatal"} {
		if ValidLevel(lvl) {
			t.Errorf("expected %q to be invalid", lvl)
		}
	}
}
