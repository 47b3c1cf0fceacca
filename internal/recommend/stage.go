package recommend

import (
	"context"
	"log/slog"
	"strings"

	"barista/internal/config"
	"barista/internal/logging"
	"barista/internal/params"
	"barista/internal/profile"
	"barista/internal/queue"
	"barista/internal/services"
	"barista/internal/stage"
)

// Completer is the slice of the LLM client the recommender needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Recommender is the pipeline stage that turns a free-text request into a
// candidate parameter set via the language model.
type Recommender struct {
	completer   Completer
	maxAttempts int
	logger      *slog.Logger
}

// NewRecommender constructs the recommendation stage.
func NewRecommender(completer Completer, cfg *config.Config, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxAttempts := cfg.Recommendation.MaxInterpretAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Recommender{
		completer:   completer,
		maxAttempts: maxAttempts,
		logger:      logging.NewComponentLogger(logger, "recommender"),
	}
}

// Prepare clears any candidate left by a previous attempt.
func (r *Recommender) Prepare(_ context.Context, brew *queue.Brew) error {
	brew.CandidateJSON = ""
	return nil
}

// Execute asks the model for a recipe and sanitizes the answer. Responses
// with no usable payload are retried up to the configured attempt budget;
// when the budget runs out the brew continues with the baseline recipe
// rather than failing. A coffee is better than an error.
func (r *Recommender) Execute(ctx context.Context, brew *queue.Brew) error {
	prof := profile.Neutral(brew.UserID)
	if strings.TrimSpace(brew.ProfileJSON) != "" {
		decoded, err := profile.Decode(brew.ProfileJSON)
		if err != nil {
			return services.Wrap(
				services.ErrTransient, "recommender", "decode profile",
				"Profile snapshot on brew is unreadable", err)
		}
		prof = decoded
	}

	systemPrompt := SystemPrompt()
	userPrompt := BuildUserPrompt(brew.RequestText, brew.ServingSize, prof)

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		raw, err := r.completer.CompleteJSON(ctx, systemPrompt, userPrompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return services.Wrap(
					services.ErrTransient, "recommender", "complete",
					"Recommendation aborted", ctx.Err())
			}
			r.logger.Warn("model request failed",
				logging.Int64(logging.FieldBrewID, brew.ID),
				logging.Int("attempt", attempt),
				logging.Error(err))
			continue
		}

		set, repairs, err := Interpret(raw)
		if err != nil {
			lastErr = err
			r.logger.Warn("model response not interpretable",
				logging.Int64(logging.FieldBrewID, brew.ID),
				logging.Int("attempt", attempt),
				logging.Error(err))
			continue
		}

		encoded, err := set.JSON()
		if err != nil {
			return services.Wrap(
				services.ErrTransient, "recommender", "encode candidate",
				"Could not encode candidate parameters", err)
		}
		brew.CandidateJSON = encoded
		r.logger.Info("candidate recipe accepted",
			logging.Int64(logging.FieldBrewID, brew.ID),
			logging.Int("attempt", attempt),
			logging.Int("repairs", len(repairs)))
		return nil
	}

	return r.fallback(brew, lastErr)
}

func (r *Recommender) fallback(brew *queue.Brew, cause error) error {
	encoded, err := params.Default().JSON()
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "recommender", "encode baseline",
			"Could not encode baseline recipe", err)
	}
	brew.CandidateJSON = encoded
	r.logger.Warn("falling back to baseline recipe",
		logging.Int64(logging.FieldBrewID, brew.ID),
		logging.Int("attempts", r.maxAttempts),
		logging.Error(cause))
	return nil
}

// HealthCheck pings the model endpoint.
func (r *Recommender) HealthCheck(ctx context.Context) stage.Health {
	if r.completer == nil {
		return stage.Unhealthy("recommender", "model client not configured")
	}
	if err := r.completer.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("recommender", err.Error())
	}
	return stage.Healthy("recommender")
}
