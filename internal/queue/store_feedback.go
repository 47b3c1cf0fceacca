package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddFeedback records a rating for a brew. Ratings are immutable once
// written; repeated submissions append rather than overwrite.
func (s *Store) AddFeedback(ctx context.Context, brewID int64, rating int, notes string) (*FeedbackRecord, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating %d out of range 1-5", rating)
	}
	brew, err := s.GetBrew(ctx, brewID)
	if err != nil {
		return nil, err
	}
	if brew == nil {
		return nil, fmt.Errorf("brew %d not found", brewID)
	}

	now := time.Now().UTC()
	record := &FeedbackRecord{
		BrewID:    brewID,
		Rating:    rating,
		Notes:     strings.TrimSpace(notes),
		CreatedAt: now,
	}
	res, err := s.execWithRetry(ctx, `
        INSERT INTO feedback (brew_id, rating, notes, created_at)
        VALUES (?, ?, ?, ?)`,
		brewID,
		rating,
		nullableString(record.Notes),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert feedback for brew %d: %w", brewID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read feedback id: %w", err)
	}
	record.ID = id
	return record, nil
}

// FeedbackForBrew returns all ratings attached to a brew, oldest first.
func (s *Store) FeedbackForBrew(ctx context.Context, brewID int64) ([]FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, brew_id, rating, notes, created_at FROM feedback
        WHERE brew_id = ? ORDER BY created_at ASC, id ASC`, brewID)
	if err != nil {
		return nil, fmt.Errorf("feedback for brew %d: %w", brewID, err)
	}
	defer func() { _ = rows.Close() }()

	var records []FeedbackRecord
	for rows.Next() {
		var (
			record    FeedbackRecord
			notes     *string
			createdAt string
		)
		if err := rows.Scan(&record.ID, &record.BrewID, &record.Rating, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		if notes != nil {
			record.Notes = *notes
		}
		if t, parseErr := parseTimeString(createdAt); parseErr == nil {
			record.CreatedAt = t
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// RatedHistory returns a user's rated brews newest first, limited to the
// given window. Only brews with stored final parameters count; the feedback
// aggregator cannot learn from a brew it cannot reconstruct.
func (s *Store) RatedHistory(ctx context.Context, userID string, limit int) ([]RatedBrew, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT b.id, b.final_json, f.rating, COALESCE(f.notes, ''), f.created_at
        FROM feedback f
        JOIN brews b ON b.id = f.brew_id
        WHERE b.user_id = ? AND b.final_json IS NOT NULL
        ORDER BY f.created_at DESC, f.id DESC
        LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("rated history for %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var history []RatedBrew
	for rows.Next() {
		var (
			rated   RatedBrew
			ratedAt string
		)
		if err := rows.Scan(&rated.BrewID, &rated.FinalJSON, &rated.Rating, &rated.Notes, &ratedAt); err != nil {
			return nil, fmt.Errorf("scan rated brew: %w", err)
		}
		if t, parseErr := parseTimeString(ratedAt); parseErr == nil {
			rated.RatedAt = t
		}
		history = append(history, rated)
	}
	return history, rows.Err()
}
