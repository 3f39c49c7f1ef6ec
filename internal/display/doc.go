// Package display formats user-facing warnings for the autopilot CLI.
//
// A Warning has a title and optional message, item list and suggestion:
//
//	warning := display.Warning{
//	    Title:      "Goal rejected by safety validation",
//	    Message:    "1 unsafe pattern(s) found",
//	    Items:      []string{`recursive forced deletion ("rm -rf")`},
//	    Suggestion: "Rephrase the goal without destructive operations",
//	}
//	warning.Display(os.Stderr)
//
// Factories build the warnings autopilot shows after runs and evolution
// cycles: SafetyRejection, ClarificationNeeded and PendingSuggestions.
package display
