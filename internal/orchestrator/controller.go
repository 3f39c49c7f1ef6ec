// Package orchestrator drives a goal through the run lifecycle: intent
// classification, safety validation, planning, execution with inline
// failure recovery, reflection, optimization and completion.
//
// Phases run strictly in that order. Every run returns a RunResult whose
// phase log is a prefix of the canonical order, optionally followed by a
// single error phase.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/autopilot/internal/evolution"
	"github.com/harrison/autopilot/internal/learning"
	"github.com/harrison/autopilot/internal/models"
	"github.com/harrison/autopilot/internal/recovery"
)

// Config controls which optional phases run and how failed tasks are retried.
type Config struct {
	EnableReflection   bool
	EnableOptimization bool
	MinGoalLength      int
	MaxGoalLength      int
	// RetryDelay is the settle time before the single retry of a failed task.
	RetryDelay time.Duration
	// MaxRetries is 1 to retry failed tasks once, 0 to never retry.
	MaxRetries int
	// Timeout bounds the whole run; 0 means only the caller's deadline applies.
	Timeout time.Duration
	// PersistRuns appends a run record after a fully successful pass.
	PersistRuns bool
}

// DefaultConfig returns the standard controller settings.
func DefaultConfig() Config {
	return Config{
		EnableReflection:   true,
		EnableOptimization: true,
		MinGoalLength:      models.DefaultMinGoalLength,
		MaxGoalLength:      models.DefaultMaxGoalLength,
		RetryDelay:         recovery.DefaultRetryDelay,
		MaxRetries:         1,
		PersistRuns:        true,
	}
}

// Controller runs goals through the phase sequence. It keeps no state
// between runs, so concurrent calls to Run are independent.
type Controller struct {
	cfg      Config
	collab   Collaborators
	recorder RunRecorder
	strategy StrategyReader
	logger   Logger
	now      func() time.Time
	newID    func() string
}

func errMissing(what string) error {
	return fmt.Errorf("orchestrator: %s is required", what)
}

// NewController creates a Controller. The recorder, strategy reader and
// logger are optional and may be nil.
func NewController(cfg Config, collab Collaborators, recorder RunRecorder, strategy StrategyReader, logger Logger) (*Controller, error) {
	if err := collab.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Controller{
		cfg:      cfg,
		collab:   collab,
		recorder: recorder,
		strategy: strategy,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Run executes one goal end to end. The result is never nil. The returned
// error is non-nil only for a systemic abort: an invalid goal, a failing
// collaborator in a fatal phase, or an expired deadline. Short-circuits,
// safety rejections and partially failed executions return a nil error.
func (c *Controller) Run(ctx context.Context, goalText, goalContext string) (*RunResult, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	goal := models.NewGoal(goalText, goalContext)
	r := &run{
		ctrl: c,
		goal: goal,
		result: &RunResult{
			RunID:         c.newID(),
			Goal:          goal.Text,
			RecoveryPlans: []*recovery.RecoveryPlan{},
			StartedAt:     c.now(),
		},
	}
	r.log = newPhaseLog(r.result.RunID, c.logger, c.now)

	// Read once so a concurrent evolution cycle cannot change the rules
	// this run is judged against.
	var snapshot *evolution.Strategy
	if c.strategy != nil {
		snapshot = c.strategy.Strategy()
	}

	err := r.execute(ctx, snapshot)
	return r.finish(err), err
}

// run holds the per-invocation state of Controller.Run.
type run struct {
	ctrl         *Controller
	goal         models.Goal
	log          *phaseLog
	result       *RunResult
	failureTypes []string
}

func (r *run) execute(ctx context.Context, snapshot *evolution.Strategy) error {
	if err := checkDeadline(ctx, models.PhaseIntent); err != nil {
		return err
	}
	proceed, err := r.classify(ctx)
	if err != nil || !proceed {
		return err
	}

	if err := checkDeadline(ctx, models.PhaseSafety); err != nil {
		return err
	}
	approved, err := r.validateSafety(ctx)
	if err != nil || !approved {
		return err
	}

	if err := checkDeadline(ctx, models.PhasePlanning); err != nil {
		return err
	}
	if err := r.plan(ctx); err != nil {
		return err
	}

	if err := checkDeadline(ctx, models.PhaseExecuting); err != nil {
		return err
	}
	if err := r.executePlan(ctx); err != nil {
		return err
	}

	if err := checkDeadline(ctx, models.PhaseReflecting); err != nil {
		return err
	}
	r.reflect(ctx)

	if err := checkDeadline(ctx, models.PhaseOptimizing); err != nil {
		return err
	}
	r.optimize(ctx)

	if err := checkDeadline(ctx, models.PhaseComplete); err != nil {
		return err
	}
	r.complete(ctx, snapshot)
	return nil
}

// checkDeadline aborts between phases once the context is done.
func checkDeadline(ctx context.Context, next models.Phase) error {
	if err := ctx.Err(); err != nil {
		return NewPhaseError(next, "deadline reached before phase started", err)
	}
	return nil
}

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = panicError(v)
		}
	}()
	return fn()
}

func (r *run) classify(ctx context.Context) (bool, error) {
	i := r.log.start(models.PhaseIntent)

	var intent *models.Intent
	err := guard(func() (err error) {
		intent, err = r.ctrl.collab.Intent.Classify(ctx, r.goal.Text)
		return err
	})
	if err == nil && intent == nil {
		err = errors.New("classifier returned no intent")
	}
	if err != nil {
		r.log.fail(i, err)
		return false, NewPhaseError(models.PhaseIntent, "intent classification failed", err)
	}

	r.result.Intent = intent
	r.log.complete(i)

	switch intent.Type {
	case models.IntentExecutionGoal:
		return true, nil
	case models.IntentInformationQuery:
		r.result.Success = true
		r.result.Message = firstNonEmpty(intent.SuggestedAction, intent.Reasoning, "goal is an information query; nothing to execute")
		return false, nil
	default:
		r.result.Success = false
		r.result.Message = "clarification required: " + firstNonEmpty(intent.SuggestedAction, intent.Reasoning, "goal is ambiguous")
		return false, nil
	}
}

func (r *run) validateSafety(ctx context.Context) (bool, error) {
	i := r.log.start(models.PhaseSafety)

	var report *models.SafetyReport
	err := guard(func() (err error) {
		report, err = r.ctrl.collab.Safety.ValidateGoal(ctx, r.goal.Text, r.goal.Context)
		return err
	})
	if err == nil && report == nil {
		err = errors.New("validator returned no report")
	}
	if err != nil {
		r.log.fail(i, err)
		return false, NewPhaseError(models.PhaseSafety, "safety validation failed", err)
	}

	r.result.Safety = report
	if !report.Approved {
		reason := rejectionReason(report)
		r.log.fail(i, errors.New(reason))
		r.result.Success = false
		r.result.Message = reason
		return false, nil
	}

	r.log.complete(i)
	return true, nil
}

func rejectionReason(report *models.SafetyReport) string {
	var sb strings.Builder
	sb.WriteString("goal rejected by safety validation")
	if report.Summary != "" {
		sb.WriteString(": " + report.Summary)
	}
	if len(report.Violations) > 0 {
		sb.WriteString(" (" + strings.Join(report.Violations, "; ") + ")")
	}
	return sb.String()
}

func (r *run) plan(ctx context.Context) error {
	i := r.log.start(models.PhasePlanning)

	cfg := r.ctrl.cfg
	if err := models.ValidateGoal(r.goal, cfg.MinGoalLength, cfg.MaxGoalLength); err != nil {
		r.log.fail(i, err)
		return NewPhaseError(models.PhasePlanning, "invalid goal", err)
	}

	var plan *models.Plan
	err := guard(func() (err error) {
		plan, err = r.ctrl.collab.Planner.Plan(ctx, r.goal)
		return err
	})
	if err == nil && (plan == nil || len(plan.Tasks) == 0) {
		err = ErrNoPlan
	}
	if err != nil {
		r.log.fail(i, err)
		return NewPhaseError(models.PhasePlanning, "planning failed", err)
	}

	if plan.TotalEstimatedDuration == 0 {
		plan.TotalEstimatedDuration = plan.EstimatedTotal()
	}
	r.result.Plan = plan
	r.log.complete(i)
	return nil
}

func (r *run) executePlan(ctx context.Context) error {
	i := r.log.start(models.PhaseExecuting)

	var exec *models.ExecutionResult
	err := guard(func() (err error) {
		exec, err = r.ctrl.collab.Executor.Execute(ctx, r.result.Plan)
		return err
	})
	if exec != nil {
		r.result.Execution = exec
	}
	if err == nil && exec == nil {
		err = ErrNoExecution
	}
	if err != nil {
		r.log.fail(i, err)
		return NewPhaseError(models.PhaseExecuting, "execution failed", err)
	}

	r.recoverFailures(ctx, exec)
	exec.Recount()

	// Residual failures are a valid outcome, not a phase error.
	r.log.complete(i)
	return nil
}

// recoverFailures hands each failed task to a fresh recovery handler, one
// at a time in execution order.
func (r *run) recoverFailures(ctx context.Context, exec *models.ExecutionResult) {
	failed := exec.FailedExecutions()
	if len(failed) == 0 {
		return
	}

	h := recovery.NewHandler(recovery.Config{RetryDelay: r.ctrl.cfg.RetryDelay})
	for _, te := range failed {
		if r.ctrl.logger != nil {
			r.ctrl.logger.LogTaskFailure(r.result.RunID, te)
		}

		var retry recovery.RetryFunc
		if r.ctrl.cfg.MaxRetries > 0 {
			retry = r.retryFunc(te)
		}

		rec := h.Handle(ctx, te, r.result.Plan, retry)
		if rec.RetrySucceeded {
			r.result.Recovered++
		}
		if p := rec.RecoveryPlan; p != nil && p.Clamped() {
			r.warn(fmt.Sprintf("run %s: recovery confidence for %s clamped from %.2f to %.2f",
				r.result.RunID, rec.TaskID, p.RawConfidence, p.Confidence))
		}
		r.failureTypes = append(r.failureTypes, string(rec.ErrorType))

		if r.ctrl.logger != nil {
			r.ctrl.logger.LogRecovery(r.result.RunID, recoveryEvent(rec))
		}
	}

	analysis := h.AnalyzeFailures()
	r.result.FailureAnalysis = &analysis
	r.result.Failures = h.Failures()
	r.result.RecoveryPlans = append(r.result.RecoveryPlans, h.RecoveryPlans()...)
}

func (r *run) retryFunc(te *models.TaskExecution) recovery.RetryFunc {
	task, ok := r.result.Plan.TaskByID(te.TaskID)
	if !ok {
		task = models.PlannedTask{ID: te.TaskID, Title: te.Title}
	}
	return func(ctx context.Context) (*models.TaskExecution, error) {
		var fresh *models.TaskExecution
		err := guard(func() (err error) {
			fresh, err = r.ctrl.collab.Executor.ExecuteTask(ctx, task)
			return err
		})
		return fresh, err
	}
}

func recoveryEvent(rec *recovery.FailureRecord) models.RecoveryEvent {
	ev := models.RecoveryEvent{
		TaskID:         rec.TaskID,
		TaskTitle:      rec.TaskTitle,
		ErrorType:      string(rec.ErrorType),
		Severity:       string(rec.Severity),
		RetryAttempted: rec.RetryAttempted,
		RetrySucceeded: rec.RetrySucceeded,
	}
	if rec.RecoveryPlan != nil {
		ev.Strategy = string(rec.RecoveryPlan.Strategy)
		ev.Confidence = rec.RecoveryPlan.Confidence
	}
	return ev
}

// reflect is non-fatal: a failing reflector leaves the run without a
// reflection, which also means no run record is persisted.
func (r *run) reflect(ctx context.Context) {
	if !r.ctrl.cfg.EnableReflection {
		r.log.skip(models.PhaseReflecting)
		return
	}

	i := r.log.start(models.PhaseReflecting)

	var refl *models.Reflection
	err := guard(func() (err error) {
		refl, err = r.ctrl.collab.Reflector.Reflect(ctx, r.result.Plan, r.result.Execution)
		return err
	})
	if err == nil && refl == nil {
		err = errors.New("reflector returned no reflection")
	}
	if err != nil {
		r.log.fail(i, err)
		r.warn(fmt.Sprintf("run %s: reflection failed: %v", r.result.RunID, err))
		return
	}

	r.result.Reflection = refl
	r.log.complete(i)
}

// optimize never affects the run outcome. Any failure is replaced by an
// empty optimization result.
func (r *run) optimize(ctx context.Context) {
	if !r.ctrl.cfg.EnableOptimization {
		r.log.skip(models.PhaseOptimizing)
		return
	}

	i := r.log.start(models.PhaseOptimizing)

	oc := models.OptimizationContext{
		Goal:         r.goal,
		Plan:         r.result.Plan,
		Execution:    r.result.Execution,
		Reflection:   r.result.Reflection,
		FailureTypes: append([]string(nil), r.failureTypes...),
	}

	var opt *models.OptimizationResult
	err := guard(func() (err error) {
		opt, err = r.ctrl.collab.Optimizer.Optimize(ctx, oc)
		return err
	})
	if err == nil && opt == nil {
		err = errors.New("optimizer returned no result")
	}
	if err != nil {
		r.result.Optimization = models.EmptyOptimization()
		r.log.fail(i, err)
		r.warn(fmt.Sprintf("run %s: optimization failed, continuing with empty result: %v", r.result.RunID, err))
		return
	}

	if opt.Optimizations == nil {
		opt.Optimizations = []models.Optimization{}
	}
	if opt.Patterns == nil {
		opt.Patterns = []string{}
	}
	r.result.Optimization = opt
	r.log.complete(i)
}

func (r *run) complete(ctx context.Context, snapshot *evolution.Strategy) {
	i := r.log.start(models.PhaseComplete)

	exec := r.result.Execution
	r.result.Success = exec.FailedTasks == 0

	if snapshot != nil {
		for _, rule := range snapshot.MatchingRules(evolution.RunFacts(r.result.Plan, exec)) {
			r.result.AppliedRules = append(r.result.AppliedRules, rule.Condition+" -> "+rule.Action)
		}
	}

	r.persist(ctx)
	r.log.complete(i)
}

// persist appends a run record when plan, execution and reflection all
// succeeded. A store failure is logged and does not change the outcome.
func (r *run) persist(ctx context.Context) {
	res := r.result
	if r.ctrl.recorder == nil || !r.ctrl.cfg.PersistRuns {
		return
	}
	if res.Plan == nil || res.Execution == nil || res.Reflection == nil {
		return
	}

	rec := learning.NewRunRecord(res.RunID, r.goal, res.Plan, res.Execution, res.Reflection, res.Recovered, r.failureTypes)
	if err := r.ctrl.recorder.RecordRun(ctx, rec); err != nil {
		r.warn(fmt.Sprintf("run %s: failed to persist run record: %v", res.RunID, err))
		return
	}
	res.Persisted = true
}

func (r *run) finish(err error) *RunResult {
	res := r.result
	if err != nil {
		r.log.errorPhase(err)
		res.Success = false
		res.Error = err.Error()
		res.Err = err
	}
	res.Phases = r.log.snapshot()
	res.TotalDuration = r.ctrl.now().Sub(res.StartedAt)

	if r.ctrl.logger != nil {
		r.ctrl.logger.LogRunSummary(res.Summary())
	}
	return res
}

func (r *run) warn(msg string) {
	if r.ctrl.logger != nil {
		r.ctrl.logger.LogWarn(msg)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
