package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/harrison/autopilot/internal/models"
)

type safetyPattern struct {
	re     *regexp.Regexp
	reason string
}

var blockedPatterns = []safetyPattern{
	{regexp.MustCompile(`(?i)\brm\s+-(rf|fr)\b`), "recursive forced deletion"},
	{regexp.MustCompile(`(?i)\bdrop\s+(database|table|schema)\b`), "drops a database object"},
	{regexp.MustCompile(`(?i)\btruncate\s+table\b`), "truncates a table"},
	{regexp.MustCompile(`(?i)\bmkfs(\.\w+)?\b`), "formats a filesystem"},
	{regexp.MustCompile(`(?i)\bformat\s+(the\s+)?(disk|drive|c:)`), "formats a disk"},
	{regexp.MustCompile(`(?i)\bdelete\s+(all|every)\b.*\b(data|files|records|users)\b`), "bulk deletion"},
	{regexp.MustCompile(`(?i)\bdisable\s+(the\s+)?(firewall|authentication|auth)\b`), "disables a security control"},
	{regexp.MustCompile(`(?i)\bchmod\s+(-R\s+)?777\b`), "makes files world-writable"},
	{regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\};:`), "fork bomb"},
}

var vaguePatterns = []safetyPattern{
	{regexp.MustCompile(`(?i)\b(something|stuff|things)\b`), "which objects the goal refers to"},
	{regexp.MustCompile(`(?i)\b(etc|and so on)\b`), "the full list of items"},
	{regexp.MustCompile(`(?i)\b(asap|whatever it takes)\b`), "acceptable limits on time and scope"},
}

// PatternValidator rejects goals matching destructive patterns and flags
// vague wording as needing clarification.
type PatternValidator struct {
	blocked []safetyPattern
}

// NewPatternValidator creates a PatternValidator with the built-in rules.
func NewPatternValidator() *PatternValidator {
	return &PatternValidator{blocked: blockedPatterns}
}

// ValidateGoal checks the goal and its context.
func (v *PatternValidator) ValidateGoal(ctx context.Context, goal string, goalContext string) (*models.SafetyReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := goal + "\n" + goalContext
	report := &models.SafetyReport{}

	for _, p := range v.blocked {
		if m := p.re.FindString(text); m != "" {
			report.Violations = append(report.Violations, fmt.Sprintf("%s (%q)", p.reason, strings.TrimSpace(m)))
		}
	}
	for _, p := range vaguePatterns {
		if p.re.MatchString(goal) {
			report.ClarificationsNeeded = append(report.ClarificationsNeeded, "Specify "+p.reason)
		}
	}

	report.Approved = len(report.Violations) == 0
	switch {
	case !report.Approved:
		report.Summary = fmt.Sprintf("%d unsafe pattern(s) found", len(report.Violations))
	case len(report.ClarificationsNeeded) > 0:
		report.Summary = "approved; some wording is vague"
	default:
		report.Summary = "no unsafe patterns found"
	}
	return report, nil
}
