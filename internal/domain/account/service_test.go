package account_test

import (
	"context"
	"testing"

	"github.com/ganot/dailylog/internal/cipher"
	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/repository"
	"github.com/ganot/dailylog/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCipher(t *testing.T) *cipher.Cipher {
	t.Helper()
	identity, err := cipher.GenerateIdentity()
	require.NoError(t, err)
	c, err := cipher.New(identity)
	require.NoError(t, err)
	return c
}

func TestAccountService_ResolveByHandle(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AccountRepository{}
	svc := account.NewService(repo, newCipher(t), nil)

	repo.On("GetByHandle", ctx, "alice").Return(&account.Account{ChatID: 1, Handle: "alice", Active: true}, nil)
	repo.On("GetByHandle", ctx, "Alice").Return(nil, repository.ErrNotFound)

	acct, err := svc.ResolveByHandle(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), acct.ChatID)

	_, err = svc.ResolveByHandle(ctx, "Alice")
	require.ErrorIs(t, err, account.ErrAccountNotFound)

	_, err = svc.ResolveByHandle(ctx, "")
	require.ErrorIs(t, err, account.ErrAccountNotFound)
	repo.AssertExpectations(t)
}

func TestAccountService_SaveCredentialCreatesAndDecrypts(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AccountRepository{}
	svc := account.NewService(repo, newCipher(t), nil)

	repo.On("GetByChatID", ctx, int64(42)).Return(nil, repository.ErrNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*account.Account")).Return(nil)

	acct, created, err := svc.SaveCredential(ctx, account.SaveCredentialRequest{
		ChatID:     42,
		Handle:     "@bob",
		Credential: "  api-key-123 ",
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "bob", acct.Handle)
	require.NotEqual(t, "api-key-123", acct.Credential)

	plaintext, ok := svc.CredentialFor(ctx, acct)
	require.True(t, ok)
	require.Equal(t, "api-key-123", plaintext)
}

func TestAccountService_SaveCredentialReplaces(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AccountRepository{}
	svc := account.NewService(repo, newCipher(t), nil)

	existing := &account.Account{ID: 3, ChatID: 42, Handle: "old", Credential: "stale", Active: true}
	repo.On("GetByChatID", ctx, int64(42)).Return(existing, nil)
	repo.On("Update", ctx, existing).Return(nil)

	acct, created, err := svc.SaveCredential(ctx, account.SaveCredentialRequest{ChatID: 42, Handle: "new", Credential: "k2"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "new", acct.Handle)

	plaintext, ok := svc.CredentialFor(ctx, acct)
	require.True(t, ok)
	require.Equal(t, "k2", plaintext)
}

func TestAccountService_SaveCredentialRejectsEmpty(t *testing.T) {
	svc := account.NewService(&mocks.AccountRepository{}, newCipher(t), nil)
	_, _, err := svc.SaveCredential(context.Background(), account.SaveCredentialRequest{ChatID: 1, Credential: "   "})
	require.ErrorIs(t, err, account.ErrInvalidInput)
}

func TestAccountService_CredentialForUndecryptable(t *testing.T) {
	ctx := context.Background()
	svc := account.NewService(&mocks.AccountRepository{}, newCipher(t), nil)

	other := newCipher(t)
	blob, err := other.Encrypt("secret")
	require.NoError(t, err)

	_, ok := svc.CredentialFor(ctx, &account.Account{ChatID: 5, Credential: blob})
	require.False(t, ok)

	_, ok = svc.CredentialFor(ctx, &account.Account{ChatID: 5})
	require.False(t, ok)
}

func TestAccountService_Deactivate(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AccountRepository{}
	svc := account.NewService(repo, newCipher(t), nil)

	acct := &account.Account{ChatID: 9, Active: true}
	repo.On("GetByChatID", ctx, int64(9)).Return(acct, nil)
	repo.On("Update", ctx, acct).Return(nil)

	require.NoError(t, svc.Deactivate(ctx, 9))
	require.False(t, acct.Active)
	repo.AssertExpectations(t)
}
