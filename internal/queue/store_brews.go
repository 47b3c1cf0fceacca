package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const brewColumns = `id, user_id, request_text, serving_size, status, profile_json,
    candidate_json, final_json, program_json, error_message, cancel_requested,
    created_at, updated_at, dispatched_at`

// NewBrew enqueues a brew request and returns the stored row.
func (s *Store) NewBrew(ctx context.Context, userID, requestText string, serving ServingSize) (*Brew, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	now := time.Now().UTC()
	brew := &Brew{
		UserID:      userID,
		RequestText: strings.TrimSpace(requestText),
		ServingSize: serving,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.execWithRetry(ctx, `
        INSERT INTO brews (user_id, request_text, serving_size, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		brew.UserID,
		nullableString(brew.RequestText),
		string(brew.ServingSize),
		string(brew.Status),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert brew: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read brew id: %w", err)
	}
	brew.ID = id
	return brew, nil
}

// GetBrew fetches a single brew by id. Returns nil when no row matches.
func (s *Store) GetBrew(ctx context.Context, id int64) (*Brew, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+brewColumns+` FROM brews WHERE id = ?`, id)
	brew, err := scanBrew(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get brew %d: %w", id, err)
	}
	return brew, nil
}

// UpdateBrew persists the mutable fields of a brew.
func (s *Store) UpdateBrew(ctx context.Context, brew *Brew) error {
	if brew == nil || brew.ID == 0 {
		return errors.New("brew with id is required")
	}
	brew.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(ctx, `
        UPDATE brews SET
            status = ?,
            profile_json = ?,
            candidate_json = ?,
            final_json = ?,
            program_json = ?,
            error_message = ?,
            cancel_requested = ?,
            updated_at = ?,
            dispatched_at = ?
        WHERE id = ?`,
		string(brew.Status),
		nullableString(brew.ProfileJSON),
		nullableString(brew.CandidateJSON),
		nullableString(brew.FinalJSON),
		nullableString(brew.ProgramJSON),
		nullableString(brew.ErrorMessage),
		boolToInt(brew.CancelRequested),
		brew.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(brew.DispatchedAt),
		brew.ID,
	)
	if err != nil {
		return fmt.Errorf("update brew %d: %w", brew.ID, err)
	}
	return nil
}

// NextForStatuses returns the oldest brew in any of the given statuses, or
// nil when the queue has no eligible work.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Brew, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	query := `SELECT ` + brewColumns + ` FROM brews WHERE status IN (` +
		makePlaceholders(len(statuses)) + `) ORDER BY created_at ASC, id ASC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	brew, err := scanBrew(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next brew: %w", err)
	}
	return brew, nil
}

// ListBrews returns brews filtered by status, newest first. An empty status
// list returns everything.
func (s *Store) ListBrews(ctx context.Context, statuses ...Status) ([]*Brew, error) {
	query := `SELECT ` + brewColumns + ` FROM brews`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list brews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var brews []*Brew
	for rows.Next() {
		brew, scanErr := scanBrew(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan brew: %w", scanErr)
		}
		brews = append(brews, brew)
	}
	return brews, rows.Err()
}

// RequestCancel flags a brew for cancellation. It succeeds only while the
// brew has not yet reached the machine; once dispatch begins the brew runs to
// completion.
func (s *Store) RequestCancel(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `
        UPDATE brews SET cancel_requested = 1, updated_at = ?
        WHERE id = ? AND status NOT IN (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(StatusDispatching),
		string(StatusCompleted),
		string(StatusFailed),
	)
	if err != nil {
		return false, fmt.Errorf("request cancel for brew %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("request cancel for brew %d: %w", id, err)
	}
	return affected > 0, nil
}

// ResetStuckProcessing rolls brews abandoned mid-stage back to the status the
// stage started from. Called once at daemon startup.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	var total int64
	for processing, restart := range stageRollbacks {
		res, err := s.execWithRetry(ctx, `
            UPDATE brews SET status = ?, updated_at = ? WHERE status = ?`,
			string(restart),
			time.Now().UTC().Format(time.RFC3339Nano),
			string(processing),
		)
		if err != nil {
			return total, fmt.Errorf("reset %s brews: %w", processing, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("reset %s brews: %w", processing, err)
		}
		total += affected
	}
	return total, nil
}

// RetryFailed resets a failed brew back to pending so the pipeline picks it
// up again from the start.
func (s *Store) RetryFailed(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `
        UPDATE brews SET status = ?, error_message = NULL, cancel_requested = 0, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(StatusPending),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(StatusFailed),
	)
	if err != nil {
		return false, fmt.Errorf("retry brew %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("retry brew %d: %w", id, err)
	}
	return affected > 0, nil
}

// ClearCompleted removes finished brews that have no feedback attached,
// keeping the history the aggregator depends on intact.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `
        DELETE FROM brews WHERE status = ?
        AND id NOT IN (SELECT brew_id FROM feedback)`,
		string(StatusCompleted),
	)
	if err != nil {
		return 0, fmt.Errorf("clear completed brews: %w", err)
	}
	return res.RowsAffected()
}

// Health summarizes queue state for status reporting.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM brews GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summary HealthSummary
	for rows.Next() {
		var (
			raw   string
			count int
		)
		if err := rows.Scan(&raw, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("queue health: %w", err)
		}
		summary.Total += count
		status := Status(raw)
		switch {
		case status == StatusPending:
			summary.Pending += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusCompleted:
			summary.Completed += count
		case IsProcessingStatus(status):
			summary.Processing += count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrew(row rowScanner) (*Brew, error) {
	var (
		brew         Brew
		requestText  sql.NullString
		serving      string
		status       string
		profileJSON  sql.NullString
		candidate    sql.NullString
		finalJSON    sql.NullString
		program      sql.NullString
		errMessage   sql.NullString
		cancelFlag   int
		createdAt    string
		updatedAt    string
		dispatchedAt sql.NullString
	)
	if err := row.Scan(
		&brew.ID,
		&brew.UserID,
		&requestText,
		&serving,
		&status,
		&profileJSON,
		&candidate,
		&finalJSON,
		&program,
		&errMessage,
		&cancelFlag,
		&createdAt,
		&updatedAt,
		&dispatchedAt,
	); err != nil {
		return nil, err
	}

	brew.RequestText = requestText.String
	brew.ServingSize = ServingSize(serving)
	brew.Status = Status(status)
	brew.ProfileJSON = profileJSON.String
	brew.CandidateJSON = candidate.String
	brew.FinalJSON = finalJSON.String
	brew.ProgramJSON = program.String
	brew.ErrorMessage = errMessage.String
	brew.CancelRequested = cancelFlag != 0

	if t, err := parseTimeString(createdAt); err == nil {
		brew.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		brew.UpdatedAt = t
	}
	if dispatchedAt.Valid {
		if t, err := parseTimeString(dispatchedAt.String); err == nil {
			brew.DispatchedAt = &t
		}
	}
	return &brew, nil
}
