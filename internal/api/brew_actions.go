package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barista/internal/config"
	"barista/internal/queue"
)

// SubmitBrewRequest describes a new brew to queue.
type SubmitBrewRequest struct {
	Config      *config.Config
	UserID      string
	RequestText string
	ServingSize string
}

// SubmitBrew queues a brew request and returns a receipt. The free-text
// request is stored verbatim; interpretation happens in the pipeline.
func SubmitBrew(ctx context.Context, req SubmitBrewRequest) (*BrewReceipt, error) {
	if req.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("user id is required")
	}

	store, err := queue.Open(req.Config)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	brew, err := store.NewBrew(ctx, req.UserID, req.RequestText, queue.ParseServingSize(req.ServingSize))
	if err != nil {
		return nil, fmt.Errorf("queue brew: %w", err)
	}
	return &BrewReceipt{
		BrewID:      brew.ID,
		UserID:      brew.UserID,
		ServingSize: brew.ServingSize,
		Status:      brew.Status,
		CreatedAt:   brew.CreatedAt,
	}, nil
}

// GetOutcome returns the current outcome view of a brew.
func GetOutcome(ctx context.Context, cfg *config.Config, brewID int64) (*BrewOutcome, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	brew, err := store.GetBrew(ctx, brewID)
	if err != nil {
		return nil, fmt.Errorf("fetch brew: %w", err)
	}
	if brew == nil {
		return nil, fmt.Errorf("brew %d not found", brewID)
	}
	return outcomeFromBrew(brew), nil
}

// WaitForOutcome polls until the brew reaches a terminal status or the
// context expires.
func WaitForOutcome(ctx context.Context, cfg *config.Config, brewID int64, pollInterval time.Duration) (*BrewOutcome, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	for {
		brew, err := store.GetBrew(ctx, brewID)
		if err != nil {
			return nil, fmt.Errorf("fetch brew: %w", err)
		}
		if brew == nil {
			return nil, fmt.Errorf("brew %d not found", brewID)
		}
		if brew.IsTerminal() {
			return outcomeFromBrew(brew), nil
		}
		select {
		case <-ctx.Done():
			return outcomeFromBrew(brew), ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// CancelBrew requests cancellation of a queued brew. Returns false when the
// brew has already reached the machine or finished.
func CancelBrew(ctx context.Context, cfg *config.Config, brewID int64) (bool, error) {
	if cfg == nil {
		return false, fmt.Errorf("configuration is required")
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return false, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return store.RequestCancel(ctx, brewID)
}

// RetryBrew resets a failed brew back to pending.
func RetryBrew(ctx context.Context, cfg *config.Config, brewID int64) (bool, error) {
	if cfg == nil {
		return false, fmt.Errorf("configuration is required")
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return false, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return store.RetryFailed(ctx, brewID)
}

func outcomeFromBrew(brew *queue.Brew) *BrewOutcome {
	return &BrewOutcome{
		BrewID:       brew.ID,
		UserID:       brew.UserID,
		Status:       brew.Status,
		FinalJSON:    brew.FinalJSON,
		ProgramJSON:  brew.ProgramJSON,
		ErrorMessage: brew.ErrorMessage,
		DispatchedAt: brew.DispatchedAt,
	}
}
