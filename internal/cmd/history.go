package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/autopilot/internal/learning"
)

// NewHistoryCommand creates the 'autopilot history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `List the most recent recorded runs, newest first, or show the full
record of a single run when a run ID is given.

Only runs that completed reflection are recorded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 10, "Maximum number of runs to list")

	return cmd
}

// runHistory executes the history command
func runHistory(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireStore(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if len(args) == 1 {
		rec, err := a.store.GetRun(ctx, args[0])
		if errors.Is(err, learning.ErrRunNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("load run: %w", err)
		}
		printRunRecord(out, rec)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}

	total, err := a.store.CountRuns(ctx)
	if err != nil {
		return fmt.Errorf("count runs: %w", err)
	}
	if total == 0 {
		version, err := a.store.GetLatestVersion()
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		fmt.Fprintf(out, "No runs recorded yet.\n")
		fmt.Fprintf(out, "Database path: %s (schema v%d)\n", a.store.Path(), version)
		return nil
	}

	runs, err := a.store.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}

	fmt.Fprintf(out, "Showing %d of %d recorded run(s):\n\n", len(runs), total)
	fmt.Fprintf(out, "%-36s  %-19s  %5s  %6s  %5s  %s\n", "RUN", "RECORDED", "TASKS", "FAILED", "SCORE", "GOAL")
	for _, rec := range runs {
		failed := fmt.Sprintf("%6d", rec.Execution.FailedTasks)
		if rec.Execution.FailedTasks > 0 {
			failed = color.New(color.FgRed).Sprint(failed)
		}
		fmt.Fprintf(out, "%-36s  %-19s  %5d  %s  %5.0f  %s\n",
			rec.RunID,
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Plan.TaskCount,
			failed,
			rec.Reflection.Score,
			truncate(rec.Goal, 50),
		)
	}

	return nil
}

func printRunRecord(w io.Writer, rec *learning.RunRecord) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", cyan("Run"), rec.RunID)
	fmt.Fprintf(w, "  Goal: %s\n", rec.Goal)
	fmt.Fprintf(w, "  Recorded: %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Workflow: %s\n", rec.Plan.WorkflowName)

	ex := rec.Execution
	fmt.Fprintf(w, "  Tasks: %d planned, %d completed, %d failed, %d recovered\n",
		rec.Plan.TaskCount, ex.CompletedTasks, ex.FailedTasks, ex.RecoveredTasks)
	fmt.Fprintf(w, "  Duration: %s\n", ex.TotalDuration.Round(time.Millisecond))
	if len(ex.FailureTypes) > 0 {
		fmt.Fprintf(w, "  Failure types: %s\n", strings.Join(ex.FailureTypes, ", "))
	}

	fmt.Fprintf(w, "\n%s\n", cyan("Tasks"))
	for _, t := range rec.Plan.Tasks {
		status := t.Status
		if status == "" {
			status = "not run"
		}
		fmt.Fprintf(w, "  %s %-40s %-10s est %s, took %s\n",
			t.ID, truncate(t.Title, 40), status, t.EstimatedDuration, t.ActualDuration)
	}

	if len(ex.Errors) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Errors"))
		for _, e := range ex.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}

	fmt.Fprintf(w, "\n%s\n", cyan("Reflection"))
	fmt.Fprintf(w, "  Score: %.0f, success rate %.0f%%\n", rec.Reflection.Score, rec.Reflection.SuccessRate*100)
	for _, insight := range rec.Reflection.Insights {
		fmt.Fprintf(w, "  - %s\n", insight)
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
