package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/autopilot/internal/models"
)

// questionStarters open goals that ask for information rather than work.
var questionStarters = []string{
	"what", "why", "who", "when", "where", "which",
	"explain", "describe", "tell me", "how does", "how do", "is ", "are ", "does ",
}

// actionVerbs mark goals that ask for work to be done.
var actionVerbs = []string{
	"add", "analyze", "automate", "build", "clean", "configure", "create",
	"delete", "deploy", "fix", "generate", "implement", "import", "export",
	"install", "migrate", "publish", "refactor", "release", "remove", "run",
	"set up", "setup", "ship", "test", "update", "upgrade", "write", "backup",
	"provision", "rollout", "sync", "optimize",
}

// KeywordClassifier classifies goals by their opening words and verbs.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a KeywordClassifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify returns the intent of goal.
func (c *KeywordClassifier) Classify(ctx context.Context, goal string) (*models.Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.ToLower(strings.TrimSpace(goal))
	if text == "" {
		return &models.Intent{
			Type:            models.IntentAmbiguous,
			Confidence:      1,
			Reasoning:       "goal is empty",
			SuggestedAction: "Describe what should be done",
		}, nil
	}

	for _, starter := range questionStarters {
		if strings.HasPrefix(text, starter) {
			return &models.Intent{
				Type:            models.IntentInformationQuery,
				Confidence:      0.8,
				Reasoning:       fmt.Sprintf("goal starts with %q and asks for information", strings.TrimSpace(starter)),
				SuggestedAction: "Answer the question directly; no tasks need to run",
			}, nil
		}
	}

	verbs := matchedVerbs(text)
	if len(verbs) > 0 {
		confidence := 0.6 + 0.1*float64(len(verbs))
		if confidence > 0.95 {
			confidence = 0.95
		}
		return &models.Intent{
			Type:       models.IntentExecutionGoal,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("goal asks for action (%s)", strings.Join(verbs, ", ")),
		}, nil
	}

	if strings.HasSuffix(text, "?") {
		return &models.Intent{
			Type:       models.IntentInformationQuery,
			Confidence: 0.6,
			Reasoning:  "goal is phrased as a question",
		}, nil
	}

	return &models.Intent{
		Type:            models.IntentAmbiguous,
		Confidence:      0.5,
		Reasoning:       "goal names no action to perform",
		SuggestedAction: "Start the goal with an action, e.g. \"Deploy the API to staging\"",
	}, nil
}

func matchedVerbs(text string) []string {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r == '-')
	}) {
		words[w] = true
	}

	var out []string
	for _, verb := range actionVerbs {
		if strings.Contains(verb, " ") {
			if strings.Contains(text, verb) {
				out = append(out, verb)
			}
			continue
		}
		if words[verb] {
			out = append(out, verb)
		}
	}
	return out
}
