package models

import "time"

// RefreshToken is an opaque, persisted credential. One row is revoked and a
// new one inserted on every refresh (rotation) so a presented token can never
// be replayed.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsRevoked bool
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
