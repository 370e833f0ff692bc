package domain

import "time"

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutWindow    = 15 * time.Minute
)

// LockoutPolicy decides when repeated password failures lock an account.
// The failure counter lives on the User and only a successful login resets it;
// the lock itself expires with time.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
}

// DefaultLockoutPolicy locks for 15 minutes after 5 failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Window: DefaultLockoutWindow}
}

// Locked reports whether u is inside an active lock window at now.
func (p LockoutPolicy) Locked(u *User, now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RecordFailure increments the failure counter and (re)arms the lock once the
// threshold is reached. It returns true when the account is now locked.
func (p LockoutPolicy) RecordFailure(u *User, now time.Time) bool {
	u.FailedLoginAttempts++
	if p.Threshold > 0 && u.FailedLoginAttempts >= p.Threshold {
		until := now.Add(p.Window)
		u.LockedUntil = &until
		return true
	}
	return false
}

// Reset clears the counter and any lock after a fully successful login.
func (p LockoutPolicy) Reset(u *User) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}
