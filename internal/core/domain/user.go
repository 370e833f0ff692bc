package domain

import (
	"strings"
	"time"
)

// Role is one of the closed set of account roles.
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleOwner, RoleAdmin, RoleUser:
		return r, true
	default:
		return "", false
	}
}

// Privileged reports whether the role may use the non-production 2FA bypass.
func (r Role) Privileged() bool {
	return r == RoleOwner || r == RoleAdmin
}

// User models an account known to the identity core.
type User struct {
	ID                  int64      `json:"id"`
	PublicID            string     `json:"public_user_id"`
	Email               string     `json:"email"`
	Username            string     `json:"username"`
	PasswordHash        string     `json:"-"`
	EmailVerified       bool       `json:"is_email_verified"`
	Role                Role       `json:"role"`
	Active              bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
