package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/repository"
)

// AccountRepository implements account.Repository for SQLite
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, chat_id, handle, credential, active, created_at, updated_at`

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) error {
	now := time.Now().UTC()
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = now
	}
	if acct.UpdatedAt.IsZero() {
		acct.UpdatedAt = now
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (chat_id, handle, credential, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		acct.ChatID,
		nullString(acct.Handle),
		nullString(acct.Credential),
		acct.Active,
		acct.CreatedAt.UTC(),
		acct.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		acct.ID = id
	}
	return nil
}

// Update rewrites the mutable fields of an account
func (r *AccountRepository) Update(ctx context.Context, acct *account.Account) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET handle = ?, credential = ?, active = ?, updated_at = ?
		WHERE id = ?
	`,
		nullString(acct.Handle),
		nullString(acct.Credential),
		acct.Active,
		acct.UpdatedAt.UTC(),
		acct.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to update account: %w", err)
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

// GetByChatID returns the active account for a chat identity
func (r *AccountRepository) GetByChatID(ctx context.Context, chatID int64) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE chat_id = ? AND active = 1`, chatID)
	return scanAccount(row)
}

// GetByHandle returns the most recently updated active account with the
// exact handle.
func (r *AccountRepository) GetByHandle(ctx context.Context, handle string) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE handle = ? AND active = 1
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`, handle)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*account.Account, error) {
	var acct account.Account
	var handle, credential sql.NullString
	err := row.Scan(
		&acct.ID,
		&acct.ChatID,
		&handle,
		&credential,
		&acct.Active,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	acct.Handle = handle.String
	acct.Credential = credential.String
	return &acct, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
