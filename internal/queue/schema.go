package queue

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS brews (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        request_text TEXT,
        serving_size TEXT NOT NULL DEFAULT 'medium',
        status TEXT NOT NULL,
        profile_json TEXT,
        candidate_json TEXT,
        final_json TEXT,
        program_json TEXT,
        error_message TEXT,
        cancel_requested INTEGER NOT NULL DEFAULT 0,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        dispatched_at TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_brews_status ON brews(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_brews_user ON brews(user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS feedback (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        brew_id INTEGER NOT NULL REFERENCES brews(id),
        rating INTEGER NOT NULL,
        notes TEXT,
        created_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_brew ON feedback(brew_id)`,
	`CREATE TABLE IF NOT EXISTS profiles (
        user_id TEXT PRIMARY KEY,
        profile_json TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`,
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
