package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/repository"
)

// DailyStore implements daily.Store for SQLite. Open relies on a partial
// unique index; Close and MarkRegistered are conditional updates.
type DailyStore struct {
	db *DB
}

// NewDailyStore creates a new DailyStore
func NewDailyStore(db *DB) *DailyStore {
	return &DailyStore{db: db}
}

const dailyColumns = `id, team_id, group_id, started_at, ended_at, registered, participants`

// Open inserts a new open daily
func (s *DailyStore) Open(ctx context.Context, d *daily.Daily) error {
	if d.EndedAt != nil {
		return fmt.Errorf("%w: daily must open without an end time", repository.ErrInvalidInput)
	}
	participants, err := encodeParticipants(d.Participants)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dailies (id, team_id, group_id, started_at, registered, participants)
		VALUES (?, ?, ?, ?, 0, ?)
	`,
		d.ID,
		d.TeamID,
		d.GroupID,
		d.StartedAt.UTC(),
		participants,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to open daily: %w", err)
	}
	return nil
}

// Close sets the end time once
func (s *DailyStore) Close(ctx context.Context, id string, endedAt time.Time) (*daily.Daily, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE dailies SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		endedAt.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to close daily: %w", err)
	}
	if err := expectOneRow(result, repository.ErrNotFound); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Active returns the open daily of a group
func (s *DailyStore) Active(ctx context.Context, groupID int64) (*daily.Daily, error) {
	return s.one(ctx, `SELECT `+dailyColumns+` FROM dailies WHERE group_id = ? AND ended_at IS NULL`, groupID)
}

// LatestUnregisteredClosed returns the latest closed daily when it is not
// registered yet.
func (s *DailyStore) LatestUnregisteredClosed(ctx context.Context, groupID int64) (*daily.Daily, error) {
	d, err := s.one(ctx, `
		SELECT `+dailyColumns+` FROM dailies
		WHERE group_id = ? AND ended_at IS NOT NULL
		ORDER BY ended_at DESC
		LIMIT 1
	`, groupID)
	if err != nil {
		return nil, err
	}
	if d.Registered {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

// MarkRegistered flips the registered flag of a closed daily once
func (s *DailyStore) MarkRegistered(ctx context.Context, id string) (*daily.Daily, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE dailies SET registered = 1 WHERE id = ? AND ended_at IS NOT NULL AND registered = 0`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark daily registered: %w", err)
	}
	if err := expectOneRow(result, repository.ErrConflict); err != nil {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// SetParticipants replaces the participant list
func (s *DailyStore) SetParticipants(ctx context.Context, id string, participants []int64) error {
	encoded, err := encodeParticipants(participants)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `UPDATE dailies SET participants = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("failed to set participants: %w", err)
	}
	return expectOneRow(result, repository.ErrNotFound)
}

// Get retrieves a daily by ID
func (s *DailyStore) Get(ctx context.Context, id string) (*daily.Daily, error) {
	return s.one(ctx, `SELECT `+dailyColumns+` FROM dailies WHERE id = ?`, id)
}

// ListByGroup returns a group's dailies, newest first
func (s *DailyStore) ListByGroup(ctx context.Context, groupID int64, limit int) ([]daily.Daily, error) {
	query := `SELECT ` + dailyColumns + ` FROM dailies WHERE group_id = ? ORDER BY started_at DESC`
	args := []any{groupID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dailies: %w", err)
	}
	defer rows.Close()

	var dailies []daily.Daily
	for rows.Next() {
		d, err := scanDaily(rows)
		if err != nil {
			return nil, err
		}
		dailies = append(dailies, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily rows: %w", err)
	}
	return dailies, nil
}

func (s *DailyStore) one(ctx context.Context, query string, args ...any) (*daily.Daily, error) {
	d, err := scanDaily(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	return d, err
}

func scanDaily(row rowScanner) (*daily.Daily, error) {
	var d daily.Daily
	var endedAt sql.NullTime
	var participants string
	err := row.Scan(
		&d.ID,
		&d.TeamID,
		&d.GroupID,
		&d.StartedAt,
		&endedAt,
		&d.Registered,
		&participants,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily: %w", err)
	}
	if endedAt.Valid {
		t := endedAt.Time
		d.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(participants), &d.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	if d.Participants == nil {
		d.Participants = []int64{}
	}
	return &d, nil
}

func encodeParticipants(participants []int64) (string, error) {
	if participants == nil {
		participants = []int64{}
	}
	encoded, err := json.Marshal(participants)
	if err != nil {
		return "", fmt.Errorf("failed to encode participants: %w", err)
	}
	return string(encoded), nil
}

func expectOneRow(result sql.Result, none error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return none
	}
	return nil
}
