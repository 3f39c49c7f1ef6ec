package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestGetAutopilotHomeWithEnvVar tests AUTOPILOT_HOME takes precedence
func TestGetAutopilotHomeWithEnvVar(t *testing.T) {
	customHome := filepath.Join(t.TempDir(), "custom")
	t.Setenv(HomeEnvVar, customHome)

	home, err := GetAutopilotHome()
	if err != nil {
		t.Fatalf("GetAutopilotHome() error = %v", err)
	}
	if home != customHome {
		t.Errorf("GetAutopilotHome() = %q, want %q", home, customHome)
	}
	if _, err := os.Stat(home); err != nil {
		t.Errorf("home directory not created: %v", err)
	}
}

// TestGetAutopilotHomeFallback tests the working-directory fallback
func TestGetAutopilotHomeFallback(t *testing.T) {
	t.Setenv(HomeEnvVar, "")
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldWd)

	home, err := GetAutopilotHome()
	if err != nil {
		t.Fatalf("GetAutopilotHome() error = %v", err)
	}

	resolved, _ := filepath.EvalSymlinks(tmpDir)
	gotParent, _ := filepath.EvalSymlinks(filepath.Dir(home))
	if filepath.Base(home) != ".autopilot" || gotParent != resolved {
		t.Errorf("GetAutopilotHome() = %q, want %q", home, filepath.Join(tmpDir, ".autopilot"))
	}
}

// TestLoadFromHome tests config.yaml in home is read and paths resolved
func TestLoadFromHome(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(ConfigPath(home), []byte("log_dir: runlogs\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromHome(home)
	if err != nil {
		t.Fatalf("LoadFromHome() error = %v", err)
	}
	if cfg.LogDir != filepath.Join(home, "runlogs") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Learning.DBPath != filepath.Join(home, "learning", "runs.db") {
		t.Errorf("DBPath = %q", cfg.Learning.DBPath)
	}
}
