package config

const (
	defaultDataDir               = "~/.local/share/barista"
	defaultLogDir                = "~/.local/share/barista/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/barista/barista"
	defaultLLMTitle              = "Barista Brew Recommender"
	defaultLLMTimeoutSeconds     = 30
	defaultLLMRequestsPerMinute  = 20
	defaultMachineBaseURL        = "http://127.0.0.1:8734"
	defaultMachineTimeoutSeconds = 45
	defaultMaxInterpretAttempts  = 3
	defaultDecayFactor           = 0.85
	defaultMaxAdjustFraction     = 0.15
	defaultHistoryWindow         = 25
	defaultPredictorMinSamples   = 8
	defaultQueuePollInterval     = 2
	defaultErrorRetryInterval    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			Referer:           defaultLLMReferer,
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RequestsPerMinute: defaultLLMRequestsPerMinute,
		},
		Machine: Machine{
			BaseURL:        defaultMachineBaseURL,
			TimeoutSeconds: defaultMachineTimeoutSeconds,
		},
		Recommendation: Recommendation{
			MaxInterpretAttempts: defaultMaxInterpretAttempts,
		},
		Personalization: Personalization{
			DecayFactor:         defaultDecayFactor,
			MaxAdjustFraction:   defaultMaxAdjustFraction,
			HistoryWindow:       defaultHistoryWindow,
			PredictorMinSamples: defaultPredictorMinSamples,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
