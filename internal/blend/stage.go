package blend

import (
	"context"
	"log/slog"
	"strings"

	"barista/internal/config"
	"barista/internal/logging"
	"barista/internal/profile"
	"barista/internal/queue"
	"barista/internal/services"
	"barista/internal/stage"
)

// Blender is the pipeline stage that personalizes the candidate recipe:
// profile hints nudge it, and with enough rated history a fitted predictor
// re-ranks within the same adjustment window.
type Blender struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewBlender constructs the blending stage.
func NewBlender(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Blender {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Blender{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "blender"),
	}
}

// Prepare clears any final recipe left by a previous attempt.
func (b *Blender) Prepare(_ context.Context, brew *queue.Brew) error {
	brew.FinalJSON = ""
	return nil
}

// Execute blends the candidate recipe with the user's profile and stores the
// final parameter set on the brew.
func (b *Blender) Execute(ctx context.Context, brew *queue.Brew) error {
	candidate, err := stage.DecodeParams(brew.CandidateJSON)
	if err != nil {
		return err
	}

	prof := profile.Neutral(brew.UserID)
	if strings.TrimSpace(brew.ProfileJSON) != "" {
		decoded, decodeErr := profile.Decode(brew.ProfileJSON)
		if decodeErr != nil {
			return services.Wrap(
				services.ErrTransient, "blender", "decode profile",
				"Profile snapshot on brew is unreadable", decodeErr)
		}
		prof = decoded
	}

	maxAdjust := b.cfg.Personalization.MaxAdjustFraction
	final, adjustments, err := Blend(candidate, prof, maxAdjust)
	if err != nil {
		return err
	}

	history, err := b.store.RatedHistory(ctx, brew.UserID, b.cfg.Personalization.HistoryWindow)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "blender", "load history",
			"Could not load rated history for prediction", err)
	}
	predictor := TrainPredictor(history, b.cfg.Personalization.PredictorMinSamples)
	if predictor.Trained() {
		refined, refineErr := predictor.Refine(final, candidate, maxAdjust)
		if refineErr != nil {
			return refineErr
		}
		final = refined
	}

	encoded, err := final.JSON()
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "blender", "encode final",
			"Could not encode final parameters", err)
	}
	brew.FinalJSON = encoded
	b.logger.Info("recipe personalized",
		logging.Int64(logging.FieldBrewID, brew.ID),
		logging.Int("adjustments", len(adjustments)),
		logging.Bool("predictor", predictor.Trained()))
	return nil
}

// HealthCheck reports stage readiness.
func (b *Blender) HealthCheck(context.Context) stage.Health {
	if b.store == nil {
		return stage.Unhealthy("blender", "store not configured")
	}
	return stage.Healthy("blender")
}
