package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/autopilot/internal/evolution"
)

// NewSuggestionsCommand creates the 'autopilot suggestions' command group
func NewSuggestionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List and act on strategy suggestions",
		Long: `Evolution cycles produce suggestions. Auto-applicable ones become rules
right away; the rest wait here until they are applied or dismissed.

Running 'autopilot suggestions' without a subcommand lists pending
suggestions.`,
		Args: cobra.NoArgs,
		RunE: runSuggestionsList,
	}
	cmd.Flags().Bool("all", false, "Include applied and dismissed suggestions")

	cmd.AddCommand(newSuggestionsListCommand())
	cmd.AddCommand(newSuggestionsApplyCommand())
	cmd.AddCommand(newSuggestionsDismissCommand())

	return cmd
}

func newSuggestionsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending suggestions",
		Args:  cobra.NoArgs,
		RunE:  runSuggestionsList,
	}
	cmd.Flags().Bool("all", false, "Include applied and dismissed suggestions")
	return cmd
}

func newSuggestionsApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <suggestion-id>",
		Short: "Turn a suggestion into a strategy rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decideSuggestion(cmd, args[0], true)
		},
	}
}

func newSuggestionsDismissCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <suggestion-id>",
		Short: "Dismiss a suggestion without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decideSuggestion(cmd, args[0], false)
		},
	}
}

// runSuggestionsList executes the list command
func runSuggestionsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	all, _ := cmd.Flags().GetBool("all")

	pending := a.engine.PendingSuggestions()
	if len(pending) == 0 {
		fmt.Fprintf(out, "No pending suggestions.\n")
	} else {
		fmt.Fprintf(out, "Pending suggestions (%d):\n", len(pending))
		for _, s := range pending {
			printSuggestion(out, s)
		}
	}

	if all {
		applied := a.engine.AppliedSuggestions()
		fmt.Fprintf(out, "\nApplied suggestions (%d):\n", len(applied))
		for _, s := range applied {
			printSuggestion(out, s)
		}
	}

	return nil
}

// decideSuggestion applies or dismisses one suggestion.
func decideSuggestion(cmd *cobra.Command, id string, apply bool) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	verb := "dismissed"
	var changed bool
	if apply {
		verb = "applied"
		changed, err = a.engine.ApplySuggestion(id)
	} else {
		changed, err = a.engine.DismissSuggestion(id)
	}
	if errors.Is(err, evolution.ErrSuggestionNotFound) {
		return fmt.Errorf("suggestion %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to update suggestion %s: %w", id, err)
	}

	out := cmd.OutOrStdout()
	if !changed {
		fmt.Fprintf(out, "Suggestion %s was already decided; nothing changed.\n", id)
		return nil
	}
	fmt.Fprintf(out, "Suggestion %s %s (strategy v%d).\n", id, verb, a.engine.Strategy().Version)
	return nil
}

func printSuggestion(w io.Writer, s evolution.Suggestion) {
	impact := color.New(color.FgYellow).SprintFunc()
	if s.Impact == evolution.ImpactHigh {
		impact = color.New(color.FgRed).SprintFunc()
	}

	fmt.Fprintf(w, "  %s [%s] %s\n", s.ID, impact(string(s.Impact)), s.Title)
	fmt.Fprintf(w, "      %s\n", s.Description)
	fmt.Fprintf(w, "      category %s, confidence %.2f", s.Category, s.Confidence)
	switch {
	case s.Applied && s.AppliedAt != nil:
		fmt.Fprintf(w, ", applied %s", s.AppliedAt.Format("2006-01-02 15:04"))
	case s.Dismissed:
		fmt.Fprintf(w, ", dismissed")
	case s.AutoApplicable:
		fmt.Fprintf(w, ", auto-applicable")
	}
	fmt.Fprintln(w)
}
