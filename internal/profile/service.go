package profile

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"barista/internal/config"
	"barista/internal/logging"
	"barista/internal/queue"
	"barista/internal/services"
)

// Service recomputes and caches taste profiles. Recomputes for the same user
// are coalesced so a burst of feedback triggers one aggregation pass.
type Service struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	group  singleflight.Group
}

// NewService wires a profile service over the given store.
func NewService(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "profile"),
	}
}

// Recompute rebuilds a user's profile from rated history and stores the
// snapshot. Returns the fresh profile.
func (s *Service) Recompute(ctx context.Context, userID string) (Profile, error) {
	result, err, _ := s.group.Do(userID, func() (any, error) {
		history, err := s.store.RatedHistory(ctx, userID, s.cfg.Personalization.HistoryWindow)
		if err != nil {
			return Profile{}, services.Wrap(
				services.ErrTransient, "profile", "load history",
				"Could not load rated brew history", err)
		}
		p := Aggregate(userID, history,
			s.cfg.Personalization.DecayFactor,
			s.cfg.Personalization.HistoryWindow)

		encoded, err := p.Encode()
		if err != nil {
			return Profile{}, fmt.Errorf("recompute profile for %s: %w", userID, err)
		}
		if err := s.store.SaveProfile(ctx, userID, encoded); err != nil {
			return Profile{}, services.Wrap(
				services.ErrTransient, "profile", "save profile",
				"Could not persist profile snapshot", err)
		}
		s.logger.Debug("profile recomputed",
			logging.String(logging.FieldUserID, userID),
			logging.Int("samples", p.Samples),
			logging.Int("hints", len(p.Hints)))
		return p, nil
	})
	if err != nil {
		return Profile{}, err
	}
	return result.(Profile), nil
}

// Load returns the cached profile for a user, recomputing when no snapshot
// exists yet. New users get a neutral profile.
func (s *Service) Load(ctx context.Context, userID string) (Profile, error) {
	raw, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, services.Wrap(
			services.ErrTransient, "profile", "load profile",
			"Could not load stored profile", err)
	}
	if raw == "" {
		return s.Recompute(ctx, userID)
	}
	p, err := Decode(raw)
	if err != nil {
		// A corrupt snapshot is recoverable: rebuild from history.
		s.logger.Warn("stored profile unreadable, recomputing",
			logging.String(logging.FieldUserID, userID),
			logging.Error(err))
		return s.Recompute(ctx, userID)
	}
	return p, nil
}
