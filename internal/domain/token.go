package domain

import "time"

// PasswordResetToken is a single-use, time-limited reset credential.
// At most one live token exists per user; minting a new one removes the
// previous ones.
type PasswordResetToken struct {
	ID        int64      `json:"-"`
	UserID    int64      `json:"-"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"-"`
	UsedAt    *time.Time `json:"-"`
	CreatedAt time.Time  `json:"-"`
}

// Live reports whether the token can still be redeemed at now.
func (t *PasswordResetToken) Live(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
