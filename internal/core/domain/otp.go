package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// OTPStatus is the lifecycle state of a second-factor challenge.
type OTPStatus string

const (
	OTPStatusPending    OTPStatus = "PENDING"
	OTPStatusVerified   OTPStatus = "VERIFIED"
	OTPStatusSuperseded OTPStatus = "SUPERSEDED"
)

const (
	OTPCodeDigits      = 6
	DefaultOTPTTL      = 10 * time.Minute
	DefaultOTPRetryCap = 5
)

// OTPChallenge is a user's outstanding second-factor proof. Only the hash of
// the code is ever stored.
type OTPChallenge struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Retries   int       `json:"retries"`
	Status    OTPStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the challenge can no longer be answered at now.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

var otpSpace = big.NewInt(1_000_000)

// GenerateOTPCode returns a uniformly random six-digit code, zero padded.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPCodeDigits, n.Int64()), nil
}

// HashOTPCode returns the hex sha256 digest stored for a code.
func HashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// OTPCodeMatches compares the digest of code with storedHash in constant time.
func OTPCodeMatches(storedHash, code string) bool {
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashOTPCode(code))) == 1
}
