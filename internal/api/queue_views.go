package api

import (
	"context"
	"fmt"

	"barista/internal/config"
	"barista/internal/queue"
)

// ListQueue returns brews for display, optionally filtered by status names.
// Unknown status names are rejected rather than silently ignored.
func ListQueue(ctx context.Context, cfg *config.Config, statusNames ...string) ([]QueueRow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	statuses := make([]queue.Status, 0, len(statusNames))
	for _, name := range statusNames {
		status, ok := queue.ParseStatus(name)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", name)
		}
		statuses = append(statuses, status)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	brews, err := store.ListBrews(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list brews: %w", err)
	}
	rows := make([]QueueRow, 0, len(brews))
	for _, brew := range brews {
		rows = append(rows, QueueRow{
			BrewID:      brew.ID,
			UserID:      brew.UserID,
			RequestText: brew.RequestText,
			ServingSize: brew.ServingSize,
			Status:      brew.Status,
			Error:       brew.ErrorMessage,
			CreatedAt:   brew.CreatedAt,
			UpdatedAt:   brew.UpdatedAt,
		})
	}
	return rows, nil
}

// QueueHealth summarizes queue counts.
func QueueHealth(ctx context.Context, cfg *config.Config) (queue.HealthSummary, error) {
	if cfg == nil {
		return queue.HealthSummary{}, fmt.Errorf("configuration is required")
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return queue.HealthSummary{}, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return store.Health(ctx)
}

// ClearCompleted removes finished brews without feedback from the queue and
// returns how many were deleted.
func ClearCompleted(ctx context.Context, cfg *config.Config) (int64, error) {
	if cfg == nil {
		return 0, fmt.Errorf("configuration is required")
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return store.ClearCompleted(ctx)
}
