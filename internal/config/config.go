package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OrchestrationConfig controls the run lifecycle.
type OrchestrationConfig struct {
	// EnableReflection runs the reflecting phase; when false it is recorded as skipped
	EnableReflection bool `yaml:"enable_reflection"`

	// EnableOptimization runs the optimizing phase; when false it is recorded as skipped
	EnableOptimization bool `yaml:"enable_optimization"`

	// MinGoalLength is the shortest goal the planner accepts
	MinGoalLength int `yaml:"min_goal_length"`

	// MaxGoalLength is the longest goal the planner accepts
	MaxGoalLength int `yaml:"max_goal_length"`
}

// RecoveryConfig controls failure handling.
type RecoveryConfig struct {
	// RetryDelay is the settle time before the single retry
	RetryDelay time.Duration `yaml:"retry_delay"`

	// MaxRetries is the number of retries per failed task (only 0 or 1)
	MaxRetries int `yaml:"max_retries"`
}

// EvolutionConfig controls strategy evolution cycles.
type EvolutionConfig struct {
	// SampleSize is how many recent runs one cycle analyzes
	SampleSize int `yaml:"sample_size"`

	// SlowTaskThreshold is the average per-task time in seconds above which
	// a run counts as slow
	SlowTaskThreshold float64 `yaml:"slow_task_threshold"`

	// PatternThreshold is the occurrence count at which an inefficiency becomes a pattern
	PatternThreshold int `yaml:"pattern_threshold"`

	// StateFile holds the persisted strategy and suggestions
	StateFile string `yaml:"state_file"`
}

// LearningConfig represents run record store configuration
type LearningConfig struct {
	// Enabled persists a run record after every successful reflection
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the run record database
	DBPath string `yaml:"db_path"`
}

// SimulationConfig controls the built-in simulated executor.
type SimulationConfig struct {
	// SuccessRate is the probability that a task attempt succeeds
	SuccessRate float64 `yaml:"success_rate"`

	// Seed makes outcomes reproducible; 0 picks a time-based seed
	Seed int64 `yaml:"seed"`

	// TaskDuration is the simulated wall-clock time of one task attempt
	TaskDuration time.Duration `yaml:"task_duration"`
}

// Config represents autopilot configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// Timeout bounds a whole run (0 = no deadline)
	Timeout time.Duration `yaml:"timeout"`

	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Recovery      RecoveryConfig      `yaml:"recovery"`
	Evolution     EvolutionConfig     `yaml:"evolution"`
	Learning      LearningConfig      `yaml:"learning"`
	Simulation    SimulationConfig    `yaml:"simulation"`
}

// DefaultConfig returns a Config with sensible default values. Relative
// paths are resolved against the autopilot home by ResolvePaths.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LogDir:   "logs",
		Timeout:  30 * time.Minute,
		Orchestration: OrchestrationConfig{
			EnableReflection:   true,
			EnableOptimization: true,
			MinGoalLength:      10,
			MaxGoalLength:      2000,
		},
		Recovery: RecoveryConfig{
			RetryDelay: time.Second,
			MaxRetries: 1,
		},
		Evolution: EvolutionConfig{
			SampleSize:        20,
			SlowTaskThreshold: 5,
			PatternThreshold:  2,
			StateFile:         "evolution/strategy.json",
		},
		Learning: LearningConfig{
			Enabled: true,
			DBPath:  "learning/runs.db",
		},
		Simulation: SimulationConfig{
			SuccessRate:  0.85,
			Seed:         0,
			TaskDuration: 50 * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// Keys present in the file override defaults; absent keys keep them.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into the populated defaults only touches keys that appear in
	// the document. Durations are parsed from strings such as "30m".
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ResolvePaths makes relative log, database and state paths absolute under home.
func (c *Config) ResolvePaths(home string) {
	c.LogDir = resolve(home, c.LogDir)
	c.Learning.DBPath = resolve(home, c.Learning.DBPath)
	c.Evolution.StateFile = resolve(home, c.Evolution.StateFile)
}

func resolve(home, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(home, path)
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(logLevel *string, timeout *time.Duration, logDir *string, dbPath *string, seed *int64, successRate *float64) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if dbPath != nil {
		c.Learning.DBPath = *dbPath
	}
	if seed != nil {
		c.Simulation.Seed = *seed
	}
	if successRate != nil {
		c.Simulation.SuccessRate = *successRate
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	o := c.Orchestration
	if o.MinGoalLength < 1 {
		return fmt.Errorf("orchestration.min_goal_length must be >= 1, got %d", o.MinGoalLength)
	}
	if o.MaxGoalLength < o.MinGoalLength {
		return fmt.Errorf("orchestration.max_goal_length (%d) must be >= min_goal_length (%d)", o.MaxGoalLength, o.MinGoalLength)
	}

	if c.Recovery.RetryDelay < 0 {
		return fmt.Errorf("recovery.retry_delay must be >= 0, got %v", c.Recovery.RetryDelay)
	}
	if c.Recovery.MaxRetries < 0 || c.Recovery.MaxRetries > 1 {
		return fmt.Errorf("recovery.max_retries must be 0 or 1, got %d", c.Recovery.MaxRetries)
	}

	e := c.Evolution
	if e.SampleSize <= 0 {
		return fmt.Errorf("evolution.sample_size must be > 0, got %d", e.SampleSize)
	}
	if e.SlowTaskThreshold <= 0 {
		return fmt.Errorf("evolution.slow_task_threshold must be > 0, got %v", e.SlowTaskThreshold)
	}
	if e.PatternThreshold <= 0 {
		return fmt.Errorf("evolution.pattern_threshold must be > 0, got %d", e.PatternThreshold)
	}
	if e.StateFile == "" {
		return fmt.Errorf("evolution.state_file cannot be empty")
	}

	if c.Learning.Enabled && c.Learning.DBPath == "" {
		return fmt.Errorf("learning.db_path cannot be empty when learning is enabled")
	}

	s := c.Simulation
	if s.SuccessRate < 0 || s.SuccessRate > 1 {
		return fmt.Errorf("simulation.success_rate must be within [0, 1], got %v", s.SuccessRate)
	}
	if s.TaskDuration < 0 {
		return fmt.Errorf("simulation.task_duration must be >= 0, got %v", s.TaskDuration)
	}

	return nil
}
