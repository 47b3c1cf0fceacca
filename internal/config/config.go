package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// LLM contains connection settings for the language-generation service.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// RequestsPerMinute caps outbound completion requests. Zero disables the limiter.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// Machine contains connection settings for the coffee machine control API.
type Machine struct {
	BaseURL        string `toml:"base_url"`
	APIToken       string `toml:"api_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Recommendation contains tuning for the LLM recommendation stage.
type Recommendation struct {
	// MaxInterpretAttempts bounds LLM call + interpretation retries before
	// falling back to the default recipe.
	MaxInterpretAttempts int `toml:"max_interpret_attempts"`
}

// Personalization contains tuning for feedback aggregation and blending.
type Personalization struct {
	// DecayFactor is the per-step exponential recency decay applied to
	// feedback weights, newest first. Must be in (0, 1].
	DecayFactor float64 `toml:"decay_factor"`
	// MaxAdjustFraction bounds a single blend nudge as a fraction of each
	// field's valid range.
	MaxAdjustFraction float64 `toml:"max_adjust_fraction"`
	// HistoryWindow is the number of most recent rated brews considered
	// when regenerating a profile. Zero means the full history.
	HistoryWindow int `toml:"history_window"`
	// PredictorMinSamples is the rated-brew count below which the regression
	// predictor stays disabled and blending uses hints alone.
	PredictorMinSamples int `toml:"predictor_min_samples"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for barista.
//
// Sections by subsystem:
//   - Paths: data and log directories
//   - LLM: language-generation service connection
//   - Machine: coffee machine control API connection
//   - Recommendation: retry bounds for the recommendation stage
//   - Personalization: feedback decay, blend bounds, predictor gating
//   - Workflow: daemon polling intervals
//   - Logging: log format and level
type Config struct {
	Paths           Paths           `toml:"paths"`
	LLM             LLM             `toml:"llm"`
	Machine         Machine         `toml:"machine"`
	Recommendation  Recommendation  `toml:"recommendation"`
	Personalization Personalization `toml:"personalization"`
	Workflow        Workflow        `toml:"workflow"`
	Logging         Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/barista/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if key := os.Getenv("BARISTA_LLM_API_KEY"); key != "" && strings.TrimSpace(c.LLM.APIKey) == "" {
		c.LLM.APIKey = key
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Machine.BaseURL = strings.TrimSpace(c.Machine.BaseURL)
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
