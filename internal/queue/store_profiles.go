package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SaveProfile upserts the cached taste profile snapshot for a user.
func (s *Store) SaveProfile(ctx context.Context, userID, profileJSON string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}
	_, err := s.execWithRetry(ctx, `
        INSERT INTO profiles (user_id, profile_json, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            profile_json = excluded.profile_json,
            updated_at = excluded.updated_at`,
		userID,
		profileJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save profile for %s: %w", userID, err)
	}
	return nil
}

// GetProfile returns the cached profile snapshot for a user, or empty when
// the user has no stored profile yet.
func (s *Store) GetProfile(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required")
	}
	var profileJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile_json FROM profiles WHERE user_id = ?`, userID,
	).Scan(&profileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get profile for %s: %w", userID, err)
	}
	return profileJSON, nil
}
