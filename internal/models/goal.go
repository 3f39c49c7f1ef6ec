package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Goal length limits applied when the caller does not configure its own.
const (
	DefaultMinGoalLength = 10
	DefaultMaxGoalLength = 2000
)

var (
	// ErrGoalTooShort is returned when a goal has fewer characters than the minimum.
	ErrGoalTooShort = errors.New("goal is too short")
	// ErrGoalTooLong is returned when a goal exceeds the maximum length.
	ErrGoalTooLong = errors.New("goal is too long")
	// ErrGoalEmpty is returned for blank goals.
	ErrGoalEmpty = errors.New("goal is required")
)

// Goal is the natural-language objective handed to a run, with optional free-text context.
// It is created once per invocation and never modified.
type Goal struct {
	Text    string `json:"text" validate:"required"`
	Context string `json:"context,omitempty"`
}

// NewGoal trims the inputs and returns a Goal.
func NewGoal(text, context string) Goal {
	return Goal{
		Text:    strings.TrimSpace(text),
		Context: strings.TrimSpace(context),
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func goalValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateGoal checks the goal text against the given length bounds.
// Non-positive bounds fall back to the package defaults.
func ValidateGoal(g Goal, minLen, maxLen int) error {
	if minLen <= 0 {
		minLen = DefaultMinGoalLength
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxGoalLength
	}

	v := goalValidator()
	if err := v.Struct(g); err != nil {
		return ErrGoalEmpty
	}

	text := strings.TrimSpace(g.Text)
	err := v.Var(text, fmt.Sprintf("min=%d,max=%d", minLen, maxLen))
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "min":
			return fmt.Errorf("%w: %d characters, minimum is %d", ErrGoalTooShort, len(text), minLen)
		case "max":
			return fmt.Errorf("%w: %d characters, maximum is %d", ErrGoalTooLong, len(text), maxLen)
		}
	}
	return fmt.Errorf("invalid goal: %w", err)
}
