package account

import "time"

// Account is one chat identity allowed to use the bot.
type Account struct {
	ID     int64 `json:"id"`
	ChatID int64 `json:"chat_id"`
	// Handle is the chat display handle without the leading "@". Empty when
	// the user has none.
	Handle string `json:"handle,omitempty"`
	// Credential is the age-encrypted ticketing API key. Empty when absent.
	Credential string    `json:"-"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasCredential reports whether an encrypted credential is stored.
func (a *Account) HasCredential() bool {
	return a != nil && a.Credential != ""
}
