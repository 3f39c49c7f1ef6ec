package evolution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/autopilot/internal/learning"
)

// ErrSuggestionNotFound is returned for an unknown suggestion ID.
var ErrSuggestionNotFound = errors.New("suggestion not found")

const (
	// DefaultSampleSize is how many recent runs a cycle analyzes.
	DefaultSampleSize = 20
	// DefaultSlowTaskThreshold is the average per-task time, in seconds,
	// above which a run counts as slow.
	DefaultSlowTaskThreshold = 5.0
	// DefaultPatternThreshold is the occurrence count at which an
	// inefficiency becomes significant.
	DefaultPatternThreshold = 2
)

// RunSource supplies recent run records, most recent first.
type RunSource interface {
	RecentRuns(ctx context.Context, limit int) ([]*learning.RunRecord, error)
}

// Logger receives engine diagnostics.
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
}

// Config tunes an evolution cycle.
type Config struct {
	SampleSize        int
	SlowTaskThreshold float64
	PatternThreshold  int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		SampleSize:        DefaultSampleSize,
		SlowTaskThreshold: DefaultSlowTaskThreshold,
		PatternThreshold:  DefaultPatternThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleSize <= 0 {
		c.SampleSize = d.SampleSize
	}
	if c.SlowTaskThreshold <= 0 {
		c.SlowTaskThreshold = d.SlowTaskThreshold
	}
	if c.PatternThreshold <= 0 {
		c.PatternThreshold = d.PatternThreshold
	}
	return c
}

// Engine owns the strategy. All mutations run under one mutex, so at most
// one evolution cycle is in flight per engine; a StateStore extends that to
// other processes sharing the same state file.
type Engine struct {
	cfg    Config
	runs   RunSource
	store  StateStore
	logger Logger

	now   func() time.Time
	newID func(prefix string) string

	mu    sync.Mutex
	state *State
}

// NewEngine builds an engine. runs and store may be nil; without a store the
// strategy lives only in memory. Stored state, when present, replaces the
// baseline strategy.
func NewEngine(cfg Config, runs RunSource, store StateStore, logger Logger) (*Engine, error) {
	e := &Engine{
		cfg:    cfg.withDefaults(),
		runs:   runs,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID: func(prefix string) string {
			return prefix + "-" + uuid.NewString()[:8]
		},
		state: &State{Strategy: initialStrategy()},
	}

	if store != nil {
		st, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("load strategy state: %w", err)
		}
		if st != nil {
			e.state = st
		}
	}

	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Refresh reloads state written by other processes.
func (e *Engine) Refresh() error {
	if e.store == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("load strategy state: %w", err)
	}
	if st != nil {
		e.state = st
	}
	return nil
}

// Strategy returns a snapshot of the current strategy.
func (e *Engine) Strategy() *Strategy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Strategy.Clone()
}

// PendingSuggestions returns suggestions awaiting a decision, oldest first.
func (e *Engine) PendingSuggestions() []Suggestion {
	return e.suggestions(func(s *Suggestion) bool { return s.Pending() })
}

// AppliedSuggestions returns suggestions that became rules, oldest first.
func (e *Engine) AppliedSuggestions() []Suggestion {
	return e.suggestions(func(s *Suggestion) bool { return s.Applied })
}

func (e *Engine) suggestions(keep func(*Suggestion) bool) []Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := e.state.Clone()
	var out []Suggestion
	for i := range snapshot.Suggestions {
		if keep(&snapshot.Suggestions[i]) {
			out = append(out, snapshot.Suggestions[i])
		}
	}
	return out
}

// RecentRuns returns up to n run records from the run source.
func (e *Engine) RecentRuns(ctx context.Context, n int) ([]*learning.RunRecord, error) {
	if e.runs == nil {
		return nil, nil
	}
	return e.runs.RecentRuns(ctx, n)
}

// EvolveStrategy runs one evolution cycle and always returns a report. The
// strategy version increases by exactly one per call, even when no runs are
// available.
func (e *Engine) EvolveStrategy(ctx context.Context) *Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	records := e.fetchRuns(ctx)

	analyses := make([]ExecutionAnalysis, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		analyses = append(analyses, AnalyzeRun(rec, e.cfg.SlowTaskThreshold))
	}
	patterns := DetectPatterns(analyses)
	agg := aggregateAnalyses(analyses)

	var report *Report
	// The cycle itself cannot fail; mutate only errors when fn does.
	_ = e.mutate(func(st *State) error {
		report = e.evolve(st, analyses, patterns, agg)
		return nil
	})

	e.info(fmt.Sprintf("Strategy evolved to v%d: %d runs analyzed, %d new suggestions, %d applied",
		report.Strategy.Version, report.RunsAnalyzed, len(report.NewSuggestions), len(report.AppliedImprovements)))

	return report
}

func (e *Engine) fetchRuns(ctx context.Context) []*learning.RunRecord {
	if e.runs == nil {
		return nil
	}
	records, err := e.runs.RecentRuns(ctx, e.cfg.SampleSize)
	if err != nil {
		e.warn(fmt.Sprintf("Evolution continuing without run history: %v", err))
		return nil
	}
	if len(records) > e.cfg.SampleSize {
		records = records[:e.cfg.SampleSize]
	}
	return records
}

func (e *Engine) evolve(st *State, analyses []ExecutionAnalysis, patterns map[InefficiencyType]int, agg aggregate) *Report {
	now := e.now()
	strategy := st.Strategy
	before := strategy.Metrics

	report := &Report{
		EvolutionID:         e.newID("evo"),
		Timestamp:           now,
		RunsAnalyzed:        len(analyses),
		Analyses:            analyses,
		Patterns:            patterns,
		NewSuggestions:      []Suggestion{},
		AppliedImprovements: []string{},
	}

	var fresh []Suggestion
	for _, t := range significantPatterns(patterns, e.cfg.PatternThreshold) {
		fresh = append(fresh, suggestionFor(t, patterns[t]))
	}
	fresh = append(fresh, aggregateSuggestions(agg)...)

	freshIDs := make(map[string]bool, len(fresh))
	for i := range fresh {
		fresh[i].ID = e.newID("sug")
		fresh[i].CreatedAt = now
		freshIDs[fresh[i].ID] = true
	}
	st.supersedePending(fresh)
	st.Suggestions = append(st.Suggestions, fresh...)

	for i := range st.Suggestions {
		s := &st.Suggestions[i]
		if s.AutoApplicable && s.Pending() && applySuggestion(strategy, s, now) {
			report.AppliedImprovements = append(report.AppliedImprovements, s.Title)
		}
	}
	for _, s := range st.Suggestions {
		if freshIDs[s.ID] {
			report.NewSuggestions = append(report.NewSuggestions, s)
		}
	}

	after := before
	if agg.runs > 0 {
		rescoreRules(strategy, agg.meanSuccessRate)
		after = Metrics{
			AvgSuccessRate:   agg.meanSuccessRate,
			AvgExecutionTime: agg.meanExecTime,
		}
		if before.AvgSuccessRate > 0 {
			after.ImprovementRate = (after.AvgSuccessRate - before.AvgSuccessRate) / before.AvgSuccessRate * 100
		}
	}
	after.TotalRulesApplied = totalRulesApplied(strategy)

	strategy.Metrics = after
	strategy.Version++
	strategy.UpdatedAt = now

	report.Strategy = strategy.Clone()
	report.Metrics = MetricsComparison{
		Before: before,
		After:  after,
		Delta:  after.Sub(before),
	}
	return report
}

// ApplySuggestion converts a suggestion into a rule. It returns false when
// the suggestion was already applied or dismissed.
func (e *Engine) ApplySuggestion(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var applied bool
	err := e.mutate(func(st *State) error {
		s := st.findSuggestion(id)
		if s == nil {
			return fmt.Errorf("%w: %s", ErrSuggestionNotFound, id)
		}
		applied = applySuggestion(st.Strategy, s, e.now())
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		e.info(fmt.Sprintf("Applied suggestion %s", id))
	}
	return applied, nil
}

// DismissSuggestion marks a pending suggestion as dismissed. It returns false
// when the suggestion was already applied or dismissed.
func (e *Engine) DismissSuggestion(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dismissed bool
	err := e.mutate(func(st *State) error {
		s := st.findSuggestion(id)
		if s == nil {
			return fmt.Errorf("%w: %s", ErrSuggestionNotFound, id)
		}
		if !s.Pending() {
			return nil
		}
		s.Dismissed = true
		dismissed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return dismissed, nil
}

// mutate applies fn to a copy of the state and installs the copy on success.
// With a store, fn sees the latest persisted state; if persisting fails the
// change is still applied in memory and a warning is logged. fn runs at most
// once. Callers hold mu.
func (e *Engine) mutate(fn func(*State) error) error {
	if e.store != nil {
		var fnErr error
		var next *State
		err := e.store.Update(func(current *State) (*State, error) {
			st := current
			if st == nil {
				st = e.state.Clone()
			}
			if fnErr = fn(st); fnErr != nil {
				return nil, fnErr
			}
			next = st
			return st, nil
		})
		if fnErr != nil {
			return fnErr
		}
		if err != nil {
			e.warn(fmt.Sprintf("Strategy state not persisted: %v", err))
		}
		if next != nil {
			e.state = next
			return nil
		}
	}

	st := e.state.Clone()
	if err := fn(st); err != nil {
		return err
	}
	e.state = st
	return nil
}

// applySuggestion adds the suggestion's rule unless an identical rule exists,
// and marks it applied. It returns false if the suggestion was not pending.
func applySuggestion(strategy *Strategy, s *Suggestion, now time.Time) bool {
	if !s.Pending() {
		return false
	}

	condition, action, priority := ruleForSuggestion(s)
	if strategy.HasRule(condition, action) {
		strategy.Learnings = append(strategy.Learnings,
			fmt.Sprintf("%s: rule %q -> %s already active", s.Title, condition, action))
	} else {
		strategy.Rules = append(strategy.Rules, Rule{
			Condition:     condition,
			Action:        action,
			Priority:      priority,
			Effectiveness: clamp01(s.Confidence),
			SuggestionID:  s.ID,
			CreatedAt:     now,
		})
		strategy.SortRules()
		strategy.Learnings = append(strategy.Learnings,
			fmt.Sprintf("%s: added rule %q -> %s", s.Title, condition, action))
	}

	at := now
	s.Applied = true
	s.AppliedAt = &at
	return true
}

func ruleForSuggestion(s *Suggestion) (string, string, int) {
	if s.Source == InefficiencyUnderPlanning {
		return "task_count < 3", "expand_task_breakdown", 3
	}
	return ruleFor(s.Category)
}

// rescoreRules nudges every rule's effectiveness by the sample's mean
// success rate and counts one more application per rule.
func rescoreRules(strategy *Strategy, meanSuccess float64) {
	for i := range strategy.Rules {
		r := &strategy.Rules[i]
		switch {
		case meanSuccess > 0.8:
			r.Effectiveness = math.Min(r.Effectiveness+0.02, 1.0)
		case meanSuccess < 0.6 && r.Effectiveness > 0.5:
			r.Effectiveness = math.Max(r.Effectiveness-0.05, 0.5)
		}
		r.TimesApplied++
	}
	strategy.SortRules()
}

func totalRulesApplied(strategy *Strategy) int {
	total := 0
	for _, r := range strategy.Rules {
		total += r.TimesApplied
	}
	return total
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// supersedePending drops older pending suggestions that a fresh suggestion
// with the same category and title replaces.
func (st *State) supersedePending(fresh []Suggestion) {
	if len(fresh) == 0 {
		return
	}
	type key struct {
		category Category
		title    string
	}
	replaced := make(map[key]bool, len(fresh))
	for _, s := range fresh {
		replaced[key{s.Category, s.Title}] = true
	}

	kept := st.Suggestions[:0]
	for _, s := range st.Suggestions {
		if s.Pending() && replaced[key{s.Category, s.Title}] {
			continue
		}
		kept = append(kept, s)
	}
	st.Suggestions = kept
}

func (e *Engine) info(msg string) {
	if e.logger != nil {
		e.logger.LogInfo(msg)
	}
}

func (e *Engine) warn(msg string) {
	if e.logger != nil {
		e.logger.LogWarn(msg)
	}
}
