package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for autopilot
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autopilot",
		Short: "Goal-driven task orchestration with self-tuning strategy",
		Long: `Autopilot takes a natural-language goal, plans it into tasks, executes
them, recovers from task failures and reflects on the outcome.

Completed runs are stored in a run history. The evolve command mines that
history for recurring inefficiencies and evolves a versioned strategy of
rules that later runs consult.

State lives in the autopilot home: $AUTOPILOT_HOME if set, otherwise
./.autopilot. Settings are read from config.yaml inside it.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("home", "", "Autopilot home directory (overrides $AUTOPILOT_HOME)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewEvolveCommand())
	cmd.AddCommand(NewStrategyCommand())
	cmd.AddCommand(NewSuggestionsCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
