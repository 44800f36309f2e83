package memory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/becomeliminal/recall/memory"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recall.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "max_results: 25\nmin_score: 0.4\nnamespace: agent\n")

	cfg, err := memory.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", cfg.MaxResults)
	}
	if cfg.MinScore != 0.4 {
		t.Errorf("MinScore = %v, want 0.4", cfg.MinScore)
	}
	if cfg.Namespace != "agent" {
		t.Errorf("Namespace = %q, want agent", cfg.Namespace)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel default = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := memory.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxResults != memory.DefaultConfig.MaxResults {
		t.Errorf("MaxResults = %d, want default %d", cfg.MaxResults, memory.DefaultConfig.MaxResults)
	}
	if cfg.Namespace != memory.DefaultConfig.Namespace {
		t.Errorf("Namespace = %q, want default %q", cfg.Namespace, memory.DefaultConfig.Namespace)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	if _, err := memory.LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "min_score: 1.5\n")
	if _, err := memory.LoadConfig(path); err == nil {
		t.Error("expected error for out-of-range min_score")
	}

	path = writeConfig(t, "max_results: -1\n")
	if _, err := memory.LoadConfig(path); err == nil {
		t.Error("expected error for negative max_results")
	}
}
