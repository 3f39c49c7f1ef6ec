package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the autopilot home directory.
const HomeEnvVar = "AUTOPILOT_HOME"

// GetAutopilotHome returns the autopilot home directory
// Priority order:
//  1. AUTOPILOT_HOME environment variable (if set)
//  2. .autopilot under the current working directory
//
// The directory is created if it doesn't exist
func GetAutopilotHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create autopilot home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, ".autopilot")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create autopilot home directory: %w", err)
	}

	return home, nil
}

// ConfigPath returns the path of the config file inside home.
func ConfigPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// LoadFromHome loads home/config.yaml (or defaults) and resolves relative
// paths against home.
func LoadFromHome(home string) (*Config, error) {
	cfg, err := LoadConfig(ConfigPath(home))
	if err != nil {
		return nil, err
	}
	cfg.ResolvePaths(home)
	return cfg, nil
}
