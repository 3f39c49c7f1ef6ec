package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewStrategyCommand creates the 'autopilot strategy' command
func NewStrategyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Show the current strategy",
		Long: `Display the current strategy including:
  - Version and last update time
  - Rules, in the order runs consult them
  - Learnings accumulated by evolution cycles
  - Aggregate metrics from the last cycle`,
		Args: cobra.NoArgs,
		RunE: runStrategy,
	}

	cmd.Flags().Bool("json", false, "Print the strategy as JSON")

	return cmd
}

// runStrategy executes the strategy command
func runStrategy(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	strategy := a.engine.Strategy()
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(strategy)
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s v%d\n", cyan("Strategy"), strategy.Version)
	if !strategy.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "  Updated: %s\n", strategy.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	fmt.Fprintf(out, "\n%s (%d)\n", cyan("Rules"), len(strategy.Rules))
	if len(strategy.Rules) == 0 {
		fmt.Fprintf(out, "  (none)\n")
	}
	for i, r := range strategy.Rules {
		fmt.Fprintf(out, "  %d. if %s then %s\n", i+1, r.Condition, r.Action)
		fmt.Fprintf(out, "     priority %d, effectiveness %.2f, applied %d time(s)\n", r.Priority, r.Effectiveness, r.TimesApplied)
	}

	if len(strategy.Learnings) > 0 {
		fmt.Fprintf(out, "\n%s\n", cyan("Learnings"))
		for _, l := range strategy.Learnings {
			fmt.Fprintf(out, "  - %s\n", l)
		}
	}

	m := strategy.Metrics
	fmt.Fprintf(out, "\n%s\n", cyan("Metrics"))
	fmt.Fprintf(out, "  Avg success rate: %.1f%%\n", m.AvgSuccessRate*100)
	fmt.Fprintf(out, "  Avg execution time: %.1fs\n", m.AvgExecutionTime)
	fmt.Fprintf(out, "  Improvement rate: %+.1f%%\n", m.ImprovementRate)
	fmt.Fprintf(out, "  Rules applied: %d\n", m.TotalRulesApplied)

	return nil
}
