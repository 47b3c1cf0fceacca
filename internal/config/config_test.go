package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"barista/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[llm]
api_key = "test-key"
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to resolve, got exists=%v path=%q", exists, resolved)
	}
	if cfg.LLM.Model == "" {
		t.Fatal("expected default model")
	}
	if cfg.Personalization.MaxAdjustFraction != 0.15 {
		t.Fatalf("expected default max_adjust_fraction, got %v", cfg.Personalization.MaxAdjustFraction)
	}
	if cfg.Workflow.QueuePollInterval <= 0 {
		t.Fatal("expected positive poll interval")
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("BARISTA_LLM_API_KEY", "")
	path := writeConfig(t, "")
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error when llm.api_key missing")
	}
}

func TestLoadAcceptsEnvAPIKey(t *testing.T) {
	t.Setenv("BARISTA_LLM_API_KEY", "env-key")
	path := writeConfig(t, "")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected env api key, got %q", cfg.LLM.APIKey)
	}
}

func TestValidateRejectsBadDecay(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "k"
	cfg.Personalization.DecayFactor = 1.5
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "decay_factor") {
		t.Fatalf("expected decay_factor error, got %v", err)
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "k"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
