package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/autopilot/internal/config"
	"github.com/harrison/autopilot/internal/display"
	"github.com/harrison/autopilot/internal/models"
	"github.com/harrison/autopilot/internal/orchestrator"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <goal>...",
		Short: "Plan and execute a goal",
		Long: `Run a goal through the full lifecycle: intent classification, safety
validation, planning, execution with failure recovery, reflection and
optimization.

The goal is every positional argument joined by spaces. Extra context can
be passed inline or from a file; a Markdown list in the context becomes the
task outline.

Tasks are executed by the built-in simulator. Its success rate and seed
come from the simulation section of config.yaml and can be overridden with
flags, which makes runs reproducible.

Examples:
  autopilot run "Deploy the billing service to staging"
  autopilot run "Migrate the orders table" --context-file steps.md
  autopilot run "Back up the database; then verify the backup" --seed 42
  autopilot run "Ship the release" --success-rate 0.5 --evolve
  autopilot run "Deploy the API" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("context", "", "Additional goal context (Markdown)")
	cmd.Flags().String("context-file", "", "Read additional goal context from a file")
	cmd.Flags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().Duration("timeout", 0, "Maximum run time (e.g. 30s, 5m); overrides config")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().String("db", "", "Path to the run history database")
	cmd.Flags().Int64("seed", 0, "Seed for simulated task outcomes")
	cmd.Flags().Float64("success-rate", 0, "Probability that a simulated task attempt succeeds")
	cmd.Flags().Bool("evolve", false, "Run an evolution cycle after the run")
	cmd.Flags().Bool("json", false, "Print the run result as JSON")

	return cmd
}

// runFlagMerger returns a merge function applying only the flags the user set.
func runFlagMerger(cmd *cobra.Command) func(cfg *config.Config) {
	return func(cfg *config.Config) {
		var (
			logLevel    *string
			timeout     *time.Duration
			logDir      *string
			dbPath      *string
			seed        *int64
			successRate *float64
		)
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			v, _ := flags.GetString("log-level")
			logLevel = &v
		}
		if flags.Changed("timeout") {
			v, _ := flags.GetDuration("timeout")
			timeout = &v
		}
		if flags.Changed("log-dir") {
			v, _ := flags.GetString("log-dir")
			logDir = &v
		}
		if flags.Changed("db") {
			v, _ := flags.GetString("db")
			dbPath = &v
		}
		if flags.Changed("seed") {
			v, _ := flags.GetInt64("seed")
			seed = &v
		}
		if flags.Changed("success-rate") {
			v, _ := flags.GetFloat64("success-rate")
			successRate = &v
		}
		cfg.MergeWithFlags(logLevel, timeout, logDir, dbPath, seed, successRate)
	}
}

// goalContext returns the --context text, followed by --context-file
// content when both are given.
func goalContext(cmd *cobra.Command) (string, error) {
	inline, _ := cmd.Flags().GetString("context")
	path, _ := cmd.Flags().GetString("context-file")
	if path == "" {
		return inline, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read context file: %w", err)
	}
	if inline == "" {
		return string(data), nil
	}
	return inline + "\n\n" + string(data), nil
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")
	goalCtx, err := goalContext(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, appOptions{merge: runFlagMerger(cmd), fileLog: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl, err := a.controller(nil)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	res, runErr := ctrl.Run(cmd.Context(), goal, goalCtx)

	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode run result: %w", err)
		}
	} else {
		printRunResult(out, res)
		if a.file != nil {
			fmt.Fprintf(out, "Log written to: %s\n", a.file.Path())
		}
		if res.Safety != nil {
			if !res.Safety.Approved {
				display.SafetyRejection(res.Safety).Display(cmd.ErrOrStderr())
			} else if len(res.Safety.ClarificationsNeeded) > 0 {
				display.ClarificationNeeded(res.Safety).Display(cmd.ErrOrStderr())
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	if evolve, _ := cmd.Flags().GetBool("evolve"); evolve {
		report := a.engine.EvolveStrategy(cmd.Context())
		a.log.LogEvolution(evolutionSummary(report))
		if !asJSON {
			printEvolutionReport(out, report)
			warnPendingSuggestions(cmd, a)
		}
	}

	if rec, ok := res.Phase(models.PhaseSafety); ok && rec.Status == models.PhaseFailed {
		return fmt.Errorf("goal rejected: %s", res.Message)
	}
	if res.Execution != nil && res.Execution.FailedTasks > 0 {
		return fmt.Errorf("%d task(s) failed", res.Execution.FailedTasks)
	}
	return nil
}

// printRunResult writes a human-readable report of a run.
func printRunResult(w io.Writer, res *orchestrator.RunResult) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	status := green("SUCCESS")
	switch {
	case res.Error != "":
		status = red("ABORTED")
	case !res.Success && res.Execution != nil:
		status = red("FAILED")
	case !res.Success:
		status = yellow("NOT EXECUTED")
	}

	fmt.Fprintf(w, "\n%s %s: %s\n", bold("Run"), res.RunID, status)
	fmt.Fprintf(w, "  Goal: %s\n", res.Goal)
	if res.Intent != nil {
		fmt.Fprintf(w, "  Intent: %s (%.2f)\n", res.Intent.Type, res.Intent.Confidence)
	}

	phases := make([]string, 0, len(res.Phases))
	for _, p := range res.Phases {
		phases = append(phases, fmt.Sprintf("%s:%s", p.Phase, p.Status))
	}
	fmt.Fprintf(w, "  Phases: %s\n", strings.Join(phases, " -> "))

	if res.Plan != nil {
		fmt.Fprintf(w, "  Workflow: %s (%.2f)\n", res.Plan.Workflow.Name, res.Plan.Workflow.Confidence)
	}
	if res.Execution != nil {
		fmt.Fprintf(w, "  Tasks: %d completed, %d failed, %d recovered\n",
			res.Execution.CompletedTasks, res.Execution.FailedTasks, res.Recovered)
		for _, te := range res.Execution.TaskExecutions {
			mark := green("ok")
			if te.IsFailed() {
				mark = red("failed")
			} else if !te.IsCompleted() {
				mark = yellow(string(te.Status))
			}
			fmt.Fprintf(w, "    - [%s] %s: %s\n", mark, te.TaskID, te.Title)
			if te.Error != "" {
				fmt.Fprintf(w, "        %s\n", te.Error)
			}
		}
	}
	for _, f := range res.Failures {
		outcome := "not retried"
		if f.RetryAttempted {
			outcome = "retry failed"
			if f.RetrySucceeded {
				outcome = "recovered by retry"
			}
		}
		fmt.Fprintf(w, "  Failure %s: %s/%s, %s", f.TaskID, f.ErrorType, f.Severity, outcome)
		if f.RecoveryPlan != nil {
			fmt.Fprintf(w, ", plan %s (confidence %.2f)", f.RecoveryPlan.Strategy, f.RecoveryPlan.Confidence)
		}
		fmt.Fprintln(w)
	}
	if res.Reflection != nil {
		fmt.Fprintf(w, "  Reflection: score %.0f (%s)\n", res.Reflection.Score, res.Reflection.Grade)
		for _, insight := range res.Reflection.Insights {
			fmt.Fprintf(w, "    - %s\n", insight)
		}
	}
	if res.Optimization != nil {
		for _, opt := range res.Optimization.Optimizations {
			fmt.Fprintf(w, "  Optimization [%s]: %s\n", opt.Area, opt.Description)
		}
		if res.Optimization.EstimatedImprovements != "" {
			fmt.Fprintf(w, "  Estimated improvement: %s\n", res.Optimization.EstimatedImprovements)
		}
	}
	for _, rule := range res.AppliedRules {
		fmt.Fprintf(w, "  Rule matched: %s\n", rule)
	}
	if res.Message != "" {
		fmt.Fprintf(w, "  %s\n", yellow(res.Message))
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", red(res.Error))
	}
	fmt.Fprintf(w, "  Duration: %s\n", res.TotalDuration.Round(time.Millisecond))
}
