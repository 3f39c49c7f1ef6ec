package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/autopilot/internal/agents"
	"github.com/harrison/autopilot/internal/config"
	"github.com/harrison/autopilot/internal/evolution"
	"github.com/harrison/autopilot/internal/learning"
	"github.com/harrison/autopilot/internal/logger"
	"github.com/harrison/autopilot/internal/orchestrator"
)

// app holds the components shared by the subcommands, built from the
// autopilot home and its config file.
type app struct {
	home   string
	cfg    *config.Config
	log    *logger.MultiLogger
	file   *logger.FileLogger
	store  *learning.Store
	engine *evolution.Engine
}

// appOptions controls how much of the stack a command needs.
type appOptions struct {
	// merge applies command flags on top of the loaded config
	merge func(cfg *config.Config)
	// fileLog adds a per-run log file next to console output
	fileLog bool
}

// resolveHome returns the --home flag value, or the default autopilot home.
func resolveHome(cmd *cobra.Command) (string, error) {
	home, _ := cmd.Flags().GetString("home")
	if home == "" {
		return config.GetAutopilotHome()
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create autopilot home directory: %w", err)
	}
	return home, nil
}

// openApp loads configuration and opens the loggers, run store and
// evolution engine. Callers must Close the returned app.
func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	home, err := resolveHome(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFromHome(home)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.merge != nil {
		opts.merge(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{home: home, cfg: cfg}

	loggers := []logger.Logger{logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)}
	if opts.fileLog {
		a.file, err = logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		loggers = append(loggers, a.file)
	}
	a.log = logger.NewMultiLogger(loggers...)

	// runs stays a nil interface when history is disabled.
	var runs evolution.RunSource
	if cfg.Learning.Enabled {
		a.store, err = learning.NewStore(cfg.Learning.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run store: %w", err)
		}
		runs = a.store
	}

	a.engine, err = evolution.NewEngine(evolution.Config{
		SampleSize:        cfg.Evolution.SampleSize,
		SlowTaskThreshold: cfg.Evolution.SlowTaskThreshold,
		PatternThreshold:  cfg.Evolution.PatternThreshold,
	}, runs, evolution.NewFileStateStore(cfg.Evolution.StateFile), a.log)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// controller wires the default collaborators into an orchestration
// controller. outcomes overrides the configured random outcome source.
func (a *app) controller(outcomes agents.OutcomeSource) (*orchestrator.Controller, error) {
	if outcomes == nil {
		outcomes = agents.NewRandomOutcomes(a.cfg.Simulation.SuccessRate, a.cfg.Simulation.Seed)
	}

	collab := orchestrator.Collaborators{
		Intent:    agents.NewKeywordClassifier(),
		Safety:    agents.NewPatternValidator(),
		Planner:   agents.NewPlanner(),
		Executor:  agents.NewSimulatedExecutor(outcomes, a.cfg.Simulation.TaskDuration),
		Reflector: agents.NewScoreReflector(),
		Optimizer: agents.NewPatternOptimizer(),
	}

	ocfg := orchestrator.Config{
		EnableReflection:   a.cfg.Orchestration.EnableReflection,
		EnableOptimization: a.cfg.Orchestration.EnableOptimization,
		MinGoalLength:      a.cfg.Orchestration.MinGoalLength,
		MaxGoalLength:      a.cfg.Orchestration.MaxGoalLength,
		RetryDelay:         a.cfg.Recovery.RetryDelay,
		MaxRetries:         a.cfg.Recovery.MaxRetries,
		Timeout:            a.cfg.Timeout,
		PersistRuns:        a.cfg.Learning.Enabled,
	}

	var recorder orchestrator.RunRecorder
	if a.store != nil {
		recorder = a.store
	}

	return orchestrator.NewController(ocfg, collab, recorder, a.engine, a.log)
}

// requireStore returns an error when run history is disabled.
func (a *app) requireStore() error {
	if a.store == nil {
		return fmt.Errorf("run history is disabled (learning.enabled: false in %s)", config.ConfigPath(a.home))
	}
	return nil
}

// Close releases the run store and the log file.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.file != nil {
		a.file.Close()
	}
}
