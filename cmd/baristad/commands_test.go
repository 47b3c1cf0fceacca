package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[llm]
api_key = "test-api-key"
`, filepath.Join(dir, "data"), filepath.Join(dir, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	output, err := runCommand(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("expected output to name %s, got %q", target, output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config on disk: %v", err)
	}

	if _, err := runCommand(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigValidateReportsPath(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	if !strings.Contains(output, "Configuration valid") {
		t.Fatalf("unexpected output: %q", output)
	}
	if !strings.Contains(output, configPath) {
		t.Fatalf("expected resolved path in output: %q", output)
	}
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	if !strings.Contains(output, "Queue is empty") {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestBrewQueuesAndListsRequest(t *testing.T) {
	configPath := writeTestConfig(t)

	output, err := runCommand(t, configPath, "brew", "--user", "mia", "--serving", "large", "bright", "and", "floral")
	if err != nil {
		t.Fatalf("brew failed: %v", err)
	}
	if !strings.Contains(output, "Queued brew 1 for mia") {
		t.Fatalf("unexpected brew output: %q", output)
	}

	output, err = runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	if !strings.Contains(output, "mia") || !strings.Contains(output, "bright and floral") {
		t.Fatalf("expected queued brew in listing: %q", output)
	}
	if !strings.Contains(output, "pending") {
		t.Fatalf("expected pending status in listing: %q", output)
	}
}

func TestBrewRequiresUser(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "brew", "something"); err == nil {
		t.Fatal("expected error without --user")
	}
}

func TestFeedbackRejectsBadArgs(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "feedback", "abc", "5"); err == nil {
		t.Fatal("expected error for non-numeric brew id")
	}
	if _, err := runCommand(t, configPath, "feedback", "1", "five"); err == nil {
		t.Fatal("expected error for non-numeric rating")
	}
}

func TestQueueCancelQueuedBrew(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "brew", "--user", "ned", "strong"); err != nil {
		t.Fatalf("brew failed: %v", err)
	}
	output, err := runCommand(t, configPath, "queue", "cancel", "1")
	if err != nil {
		t.Fatalf("queue cancel failed: %v", err)
	}
	if !strings.Contains(output, "Cancellation requested for brew 1") {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestQueueHealthCounts(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "brew", "--user", "ola", "smooth"); err != nil {
		t.Fatalf("brew failed: %v", err)
	}
	output, err := runCommand(t, configPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health failed: %v", err)
	}
	if !strings.Contains(output, "Total: 1") || !strings.Contains(output, "Pending: 1") {
		t.Fatalf("unexpected output: %q", output)
	}
}
