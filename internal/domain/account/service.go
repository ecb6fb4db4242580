package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/dailylog/internal/repository"
)

// Service resolves chat identities to accounts and their credentials.
type Service struct {
	repo   Repository
	cipher Cipher
	logger *slog.Logger
}

// NewService creates a new account service.
func NewService(repo Repository, cipher Cipher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, cipher: cipher, logger: logger}
}

// ResolveByChatID returns the active account for a numeric chat identity.
func (s *Service) ResolveByChatID(ctx context.Context, chatID int64) (*Account, error) {
	acct, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account by chat id: %w", err)
	}
	return acct, nil
}

// ResolveByHandle returns the active account whose stored handle equals
// handle exactly. Matching is case-sensitive.
func (s *Service) ResolveByHandle(ctx context.Context, handle string) (*Account, error) {
	if handle == "" {
		return nil, ErrAccountNotFound
	}
	acct, err := s.repo.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account by handle: %w", err)
	}
	return acct, nil
}

// CredentialFor returns the decrypted credential. A blob that fails to
// decrypt is reported exactly like a missing one; the cause is only logged.
func (s *Service) CredentialFor(_ context.Context, acct *Account) (string, bool) {
	if !acct.HasCredential() {
		return "", false
	}
	plaintext, err := s.cipher.Decrypt(acct.Credential)
	if err != nil {
		s.logger.Warn("credential decryption failed", "chat_id", acct.ChatID, "error", err)
		return "", false
	}
	if plaintext == "" {
		return "", false
	}
	return plaintext, true
}

// SaveCredentialRequest carries a credential submission.
type SaveCredentialRequest struct {
	ChatID     int64
	Handle     string
	Credential string
}

// SaveCredential encrypts and stores a credential, creating the account on
// first submission. The handle is refreshed on every submission.
func (s *Service) SaveCredential(ctx context.Context, req SaveCredentialRequest) (acct *Account, created bool, err error) {
	credential := strings.TrimSpace(req.Credential)
	if req.ChatID == 0 || credential == "" {
		return nil, false, ErrInvalidInput
	}

	blob, err := s.cipher.Encrypt(credential)
	if err != nil {
		return nil, false, fmt.Errorf("encrypting credential: %w", err)
	}

	now := time.Now()
	handle := strings.TrimPrefix(strings.TrimSpace(req.Handle), "@")

	acct, err = s.repo.GetByChatID(ctx, req.ChatID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		acct = &Account{
			ChatID:     req.ChatID,
			Handle:     handle,
			Credential: blob,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Create(ctx, acct); err != nil {
			return nil, false, fmt.Errorf("creating account: %w", err)
		}
		s.logger.Info("account created", "chat_id", req.ChatID, "handle", handle)
		return acct, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("getting account by chat id: %w", err)
	}

	acct.Credential = blob
	if handle != "" {
		acct.Handle = handle
	}
	acct.UpdatedAt = now
	if err := s.repo.Update(ctx, acct); err != nil {
		return nil, false, fmt.Errorf("updating account: %w", err)
	}
	s.logger.Info("credential updated", "chat_id", req.ChatID, "handle", acct.Handle)
	return acct, false, nil
}

// Deactivate soft-deletes an account. Accounts are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, chatID int64) error {
	acct, err := s.ResolveByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	acct.Active = false
	acct.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, acct); err != nil {
		return fmt.Errorf("deactivating account: %w", err)
	}
	return nil
}
