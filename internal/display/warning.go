package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/autopilot/internal/models"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Items      []string // Related items, listed and numbered (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	for i, item := range w.Items {
		fmt.Fprintf(&b, "      %d. %s\n", i+1, item)
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion: ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// SafetyRejection creates a warning listing the violations that blocked a goal
func SafetyRejection(report *models.SafetyReport) Warning {
	w := Warning{
		Title:      "Goal rejected by safety validation",
		Suggestion: "Rephrase the goal without destructive operations",
	}
	if report != nil {
		w.Message = report.Summary
		w.Items = report.Violations
	}
	return w
}

// ClarificationNeeded creates a warning for vague wording in an approved goal
func ClarificationNeeded(report *models.SafetyReport) Warning {
	w := Warning{
		Title:      "Goal wording is vague",
		Suggestion: "Be specific to get a more accurate plan",
	}
	if report != nil {
		w.Items = report.ClarificationsNeeded
	}
	return w
}

// PendingSuggestions creates a warning for suggestions awaiting a decision
func PendingSuggestions(count int) Warning {
	noun := "suggestions await"
	if count == 1 {
		noun = "suggestion awaits"
	}
	return Warning{
		Title:      fmt.Sprintf("%d strategy %s a decision", count, noun),
		Suggestion: "Review them with 'autopilot suggestions'",
	}
}
