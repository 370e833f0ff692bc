package domain

import "time"

// SessionToken links one issued access/refresh pair to its owner.
// Revoked flips to true exactly once and is never cleared.
type SessionToken struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	AccessJTI  string    `json:"access_jti"`
	RefreshJTI string    `json:"refresh_jti"`
	Revoked    bool      `json:"revoked"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
