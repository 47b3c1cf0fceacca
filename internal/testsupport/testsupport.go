// Package testsupport provides helpers for wiring real configs and stores in
// tests without touching the user's home directory.
package testsupport

import (
	"path/filepath"
	"testing"

	"barista/internal/config"
	"barista/internal/queue"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test-api-key"
	cfg.Machine.BaseURL = "http://127.0.0.1:0"

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a store against the config's data directory and closes
// it when the test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Errorf("close store: %v", closeErr)
		}
	})
	return store
}
