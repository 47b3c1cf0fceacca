package api

import (
	"context"
	"fmt"
	"log/slog"

	"barista/internal/config"
	"barista/internal/profile"
	"barista/internal/queue"
)

// SubmitFeedbackRequest describes a rating to record against a past brew.
type SubmitFeedbackRequest struct {
	Config *config.Config
	Logger *slog.Logger
	BrewID int64
	Rating int
	Notes  string
}

// SubmitFeedback stores the rating and immediately rebuilds the brewing
// user's taste profile so the next brew benefits from it.
func SubmitFeedback(ctx context.Context, req SubmitFeedbackRequest) (*FeedbackAck, error) {
	if req.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	store, err := queue.Open(req.Config)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	brew, err := store.GetBrew(ctx, req.BrewID)
	if err != nil {
		return nil, fmt.Errorf("fetch brew: %w", err)
	}
	if brew == nil {
		return nil, fmt.Errorf("brew %d not found", req.BrewID)
	}

	record, err := store.AddFeedback(ctx, req.BrewID, req.Rating, req.Notes)
	if err != nil {
		return nil, fmt.Errorf("store feedback: %w", err)
	}

	profiles := profile.NewService(store, req.Config, req.Logger)
	prof, err := profiles.Recompute(ctx, brew.UserID)
	if err != nil {
		// The rating is stored; the profile catches up on the next recompute.
		return &FeedbackAck{
			FeedbackID: record.ID,
			BrewID:     record.BrewID,
			Rating:     record.Rating,
		}, nil
	}
	return &FeedbackAck{
		FeedbackID:     record.ID,
		BrewID:         record.BrewID,
		Rating:         record.Rating,
		ProfileSamples: prof.Samples,
		ProfileHints:   len(prof.Hints),
	}, nil
}
