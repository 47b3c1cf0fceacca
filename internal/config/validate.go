package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateMachine(); err != nil {
		return err
	}
	if err := c.validateRecommendation(); err != nil {
		return err
	}
	if err := c.validatePersonalization(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/barista/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set BARISTA_LLM_API_KEY env var or edit %s (create with 'baristad config init')", defaultPath)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must not be negative")
	}
	return nil
}

func (c *Config) validateMachine() error {
	if strings.TrimSpace(c.Machine.BaseURL) == "" {
		return errors.New("machine.base_url must be set")
	}
	if c.Machine.TimeoutSeconds <= 0 {
		return errors.New("machine.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRecommendation() error {
	if c.Recommendation.MaxInterpretAttempts < 1 {
		return errors.New("recommendation.max_interpret_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validatePersonalization() error {
	if c.Personalization.DecayFactor <= 0 || c.Personalization.DecayFactor > 1 {
		return errors.New("personalization.decay_factor must be in (0, 1]")
	}
	if c.Personalization.MaxAdjustFraction < 0 || c.Personalization.MaxAdjustFraction > 0.5 {
		return errors.New("personalization.max_adjust_fraction must be between 0 and 0.5")
	}
	if c.Personalization.HistoryWindow < 0 {
		return errors.New("personalization.history_window must not be negative")
	}
	if c.Personalization.PredictorMinSamples < 0 {
		return errors.New("personalization.predictor_min_samples must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
