package model

import "time"

// Token is a single-use, time-bounded secret mailed to a user, used for
// both email verification and password resets. Only the SHA-256 hash of
// the raw value is stored, as the id.
type Token struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"createdAt"`
}

// Usable reports whether the token may still be redeemed at now.
func (t *Token) Usable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
