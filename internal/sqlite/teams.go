package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ganot/dailylog/internal/domain/team"
	"github.com/ganot/dailylog/internal/repository"
)

// TeamRepository implements team.Repository for SQLite
type TeamRepository struct {
	db *DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, group_id, project_id, project_code, name, created_by, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// GetByGroup returns the binding of a group
func (r *TeamRepository) GetByGroup(ctx context.Context, groupID int64) (*team.Team, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE group_id = ?`, groupID)
	t, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

// Replace hard-removes the group's binding, if any, and inserts t in one
// transaction.
func (r *TeamRepository) Replace(ctx context.Context, t *team.Team) (*team.Team, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	previous, err := scanTeam(tx.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE group_id = ?`, t.GroupID))
	switch {
	case err == sql.ErrNoRows:
		previous = nil
	case err != nil:
		return nil, fmt.Errorf("failed to get existing team: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE group_id = ?`, t.GroupID); err != nil {
		return nil, fmt.Errorf("failed to delete existing team: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teams (id, group_id, project_id, project_code, name, created_by, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.GroupID,
		t.ProjectID,
		t.ProjectCode,
		t.Name,
		t.CreatedBy,
		t.Active,
		t.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("failed to insert team: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return previous, nil
}

// Delete removes a binding
func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByCreator returns bindings created by a user, newest first
func (r *TeamRepository) ListByCreator(ctx context.Context, creatorID int64) ([]team.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+teamColumns+` FROM teams
		WHERE created_by = ?
		ORDER BY created_at DESC
	`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []team.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func scanTeam(row rowScanner) (*team.Team, error) {
	var t team.Team
	if err := row.Scan(
		&t.ID,
		&t.GroupID,
		&t.ProjectID,
		&t.ProjectCode,
		&t.Name,
		&t.CreatedBy,
		&t.Active,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
