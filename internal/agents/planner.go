package agents

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/autopilot/internal/models"
)

// Estimated durations per task type, in simulated seconds.
const (
	analysisDuration   = 2 * time.Second
	actionDuration     = 5 * time.Second
	validationDuration = 3 * time.Second
	reportDuration     = time.Second
)

// clauseSplitter separates sequential steps written in one sentence.
var clauseSplitter = regexp.MustCompile(`(?i)\s*(?:;|,?\s+and then\s+|,?\s+then\s+|\s+after that\s+)\s*`)

type workflowTemplate struct {
	id       string
	name     string
	keywords []string
}

var workflows = []workflowTemplate{
	{"wf-deployment", "deployment", []string{"deploy", "release", "ship", "rollout", "staging", "production"}},
	{"wf-data-pipeline", "data-pipeline", []string{"data", "etl", "import", "export", "migrate", "database", "backup"}},
	{"wf-development", "development", []string{"implement", "build", "refactor", "fix", "code", "feature", "bug"}},
	{"wf-research", "research", []string{"analyze", "research", "investigate", "review", "audit", "report"}},
}

// Planner builds plans from a Markdown outline in the goal context, from
// sequencing words in the goal, or from a fixed three-step template.
type Planner struct {
	markdown goldmark.Markdown
}

// NewPlanner creates a Planner.
func NewPlanner() *Planner {
	return &Planner{markdown: goldmark.New()}
}

// Plan returns an ordered task list for goal. Each task depends on the one
// before it.
func (p *Planner) Plan(ctx context.Context, goal models.Goal) (*models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	titles, err := p.outlineItems([]byte(goal.Context))
	if err != nil {
		return nil, fmt.Errorf("failed to parse goal context: %w", err)
	}
	if len(titles) == 0 {
		titles = splitClauses(goal.Text)
	}
	if len(titles) < 2 {
		titles = []string{
			"Analyze requirements: " + goal.Text,
			goal.Text,
			"Validate the outcome",
		}
	}

	plan := &models.Plan{
		Goal:     goal,
		Workflow: selectWorkflow(goal.Text + " " + goal.Context),
	}
	for i, title := range titles {
		taskType := classifyTask(title)
		task := models.PlannedTask{
			ID:                fmt.Sprintf("task-%d", i+1),
			Title:             title,
			Description:       fmt.Sprintf("Step %d of %d for goal %q", i+1, len(titles), goal.Text),
			Type:              taskType,
			Priority:          taskPriority(title, taskType),
			EstimatedDuration: estimatedDuration(taskType),
		}
		if i > 0 {
			task.Dependencies = []string{fmt.Sprintf("task-%d", i)}
		}
		plan.Tasks = append(plan.Tasks, task)
	}
	plan.TotalEstimatedDuration = plan.EstimatedTotal()

	return plan, nil
}

// outlineItems returns the text of top-level list items in a Markdown
// document, in order.
func (p *Planner) outlineItems(source []byte) ([]string, error) {
	if len(bytes.TrimSpace(source)) == 0 {
		return nil, nil
	}

	doc := p.markdown.Parser().Parse(text.NewReader(source))

	var items []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		list, ok := n.(*ast.List)
		if !ok {
			return ast.WalkContinue, nil
		}
		// Nested lists are detail of their parent item.
		if _, nested := list.Parent().(*ast.ListItem); nested {
			return ast.WalkSkipChildren, nil
		}
		for item := list.FirstChild(); item != nil; item = item.NextSibling() {
			if title := strings.TrimSpace(itemText(item, source)); title != "" {
				items = append(items, title)
			}
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// itemText extracts the plain text of a list item's first block.
func itemText(item ast.Node, source []byte) string {
	block := item.FirstChild()
	if block == nil {
		return ""
	}
	var buf bytes.Buffer
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func splitClauses(goal string) []string {
	var out []string
	for _, part := range clauseSplitter.Split(goal, -1) {
		part = strings.TrimSpace(strings.TrimRight(part, "."))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func classifyTask(title string) models.TaskType {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, "analyze", "review", "investigate", "research", "assess", "audit"):
		return models.TaskTypeAnalysis
	case containsAny(t, "test", "verify", "validate", "check", "confirm"):
		return models.TaskTypeValidation
	case containsAny(t, "report", "document", "summarize", "notify", "publish"):
		return models.TaskTypeReport
	default:
		return models.TaskTypeAction
	}
}

func taskPriority(title string, taskType models.TaskType) models.Priority {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, "critical", "urgent", "security"):
		return models.PriorityCritical
	case containsAny(t, "deploy", "production", "migrate", "release"):
		return models.PriorityHigh
	case taskType == models.TaskTypeReport:
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

func estimatedDuration(taskType models.TaskType) time.Duration {
	switch taskType {
	case models.TaskTypeAnalysis:
		return analysisDuration
	case models.TaskTypeValidation:
		return validationDuration
	case models.TaskTypeReport:
		return reportDuration
	default:
		return actionDuration
	}
}

// selectWorkflow picks the workflow whose keywords occur most often in the
// goal. Ties go to the earlier template; no match selects the standard one.
func selectWorkflow(goal string) models.Workflow {
	t := strings.ToLower(goal)
	best, bestScore := -1, 0
	for i, wf := range workflows {
		score := 0
		for _, kw := range wf.keywords {
			if strings.Contains(t, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return models.Workflow{
			ID:         "wf-standard",
			Name:       "standard",
			Reason:     "no workflow keywords matched",
			Confidence: 0.5,
		}
	}

	confidence := 0.5 + 0.15*float64(bestScore)
	if confidence > 0.95 {
		confidence = 0.95
	}
	wf := workflows[best]
	return models.Workflow{
		ID:         wf.id,
		Name:       wf.name,
		Reason:     fmt.Sprintf("matched %d %s keyword(s)", bestScore, wf.name),
		Confidence: confidence,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
