package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/autopilot/internal/display"
	"github.com/harrison/autopilot/internal/evolution"
	"github.com/harrison/autopilot/internal/models"
)

// NewEvolveCommand creates the 'autopilot evolve' command
func NewEvolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Run one strategy evolution cycle",
		Long: `Analyze the most recent runs in the history, detect recurring
inefficiencies and evolve the strategy:
  - New suggestions are generated for significant patterns
  - Auto-applicable suggestions become strategy rules immediately
  - Rule effectiveness and strategy metrics are recomputed
  - The strategy version is incremented

Suggestions that need a decision are listed by 'autopilot suggestions'.`,
		Args: cobra.NoArgs,
		RunE: runEvolve,
	}

	cmd.Flags().Bool("json", false, "Print the evolution report as JSON")

	return cmd
}

// runEvolve executes the evolve command
func runEvolve(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{fileLog: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.engine.EvolveStrategy(cmd.Context())
	a.log.LogEvolution(evolutionSummary(report))

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printEvolutionReport(out, report)
	warnPendingSuggestions(cmd, a)
	return nil
}

// warnPendingSuggestions reminds the user of suggestions awaiting a decision.
func warnPendingSuggestions(cmd *cobra.Command, a *app) {
	if n := len(a.engine.PendingSuggestions()); n > 0 {
		display.PendingSuggestions(n).Display(cmd.ErrOrStderr())
	}
}

// evolutionSummary condenses a report for the loggers.
func evolutionSummary(report *evolution.Report) models.EvolutionSummary {
	return models.EvolutionSummary{
		EvolutionID:         report.EvolutionID,
		Version:             report.Strategy.Version,
		RunsAnalyzed:        report.RunsAnalyzed,
		NewSuggestions:      len(report.NewSuggestions),
		AppliedImprovements: report.AppliedImprovements,
		SuccessRateBefore:   report.Metrics.Before.AvgSuccessRate,
		SuccessRateAfter:    report.Metrics.After.AvgSuccessRate,
	}
}

// printEvolutionReport writes a human-readable evolution report.
func printEvolutionReport(w io.Writer, report *evolution.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(w, "\n%s %s\n", cyan("Evolution"), report.EvolutionID)
	fmt.Fprintf(w, "  Strategy version: %d\n", report.Strategy.Version)
	fmt.Fprintf(w, "  Runs analyzed: %d\n", report.RunsAnalyzed)

	if len(report.Patterns) > 0 {
		fmt.Fprintf(w, "  Patterns:\n")
		for _, t := range sortedPatternTypes(report.Patterns) {
			fmt.Fprintf(w, "    - %s: %d\n", t, report.Patterns[t])
		}
	}

	fmt.Fprintf(w, "  New suggestions: %d\n", len(report.NewSuggestions))
	for _, s := range report.NewSuggestions {
		state := "pending"
		if s.Applied {
			state = green("applied")
		}
		fmt.Fprintf(w, "    - %s [%s/%s] %s (%s)\n", s.ID, s.Category, s.Impact, s.Title, state)
	}

	for _, title := range report.AppliedImprovements {
		fmt.Fprintf(w, "  Applied: %s\n", title)
	}

	m := report.Metrics
	fmt.Fprintf(w, "  Success rate: %.1f%% -> %.1f%% (%+.1f)\n",
		m.Before.AvgSuccessRate*100, m.After.AvgSuccessRate*100, m.Delta.AvgSuccessRate*100)
	fmt.Fprintf(w, "  Avg execution time: %.1fs -> %.1fs\n", m.Before.AvgExecutionTime, m.After.AvgExecutionTime)
	fmt.Fprintf(w, "  Rules applied: %d\n", m.After.TotalRulesApplied)
}

// sortedPatternTypes orders patterns by count descending, then by name.
func sortedPatternTypes(patterns map[evolution.InefficiencyType]int) []evolution.InefficiencyType {
	out := make([]evolution.InefficiencyType, 0, len(patterns))
	for t := range patterns {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if patterns[out[i]] != patterns[out[j]] {
			return patterns[out[i]] > patterns[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
