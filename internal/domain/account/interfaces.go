package account

import "context"

// Repository provides persistence for accounts.
type Repository interface {
	Create(ctx context.Context, acct *Account) error
	Update(ctx context.Context, acct *Account) error
	GetByChatID(ctx context.Context, chatID int64) (*Account, error)
	GetByHandle(ctx context.Context, handle string) (*Account, error)
}

// Cipher seals and opens credential blobs.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}
