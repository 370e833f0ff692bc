package domain

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account temporarily locked")
	ErrOtpExpired            = errors.New("otp expired or missing")
	ErrOtpInvalid            = errors.New("invalid otp")
	ErrOtpRetryLimitExceeded = errors.New("otp retry limit reached")
	ErrInvalidToken          = errors.New("invalid token")
	ErrSessionRevoked        = errors.New("session revoked")
	ErrForbidden             = errors.New("access forbidden")
	ErrNotFound              = errors.New("not found")
	ErrUserExists            = errors.New("user already exists")
	ErrConflict              = errors.New("concurrent update conflict")
	ErrInvalidInput          = errors.New("invalid input")
)

// Kind is the stable machine-readable name of a domain error.
type Kind string

const (
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindAccountLocked         Kind = "account_locked"
	KindOtpExpired            Kind = "otp_expired"
	KindOtpInvalid            Kind = "otp_invalid"
	KindOtpRetryLimitExceeded Kind = "otp_retry_limit_exceeded"
	KindInvalidToken          Kind = "invalid_token"
	KindSessionRevoked        Kind = "session_revoked"
	KindForbidden             Kind = "forbidden"
	KindNotFound              Kind = "not_found"
	KindUserExists            Kind = "user_exists"
	KindConflict              Kind = "conflict"
	KindInvalidInput          Kind = "invalid_input"
	KindInternal              Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrAccountLocked, KindAccountLocked},
	{ErrOtpExpired, KindOtpExpired},
	{ErrOtpInvalid, KindOtpInvalid},
	{ErrOtpRetryLimitExceeded, KindOtpRetryLimitExceeded},
	{ErrInvalidToken, KindInvalidToken},
	{ErrSessionRevoked, KindSessionRevoked},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrUserExists, KindUserExists},
	{ErrConflict, KindConflict},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf returns the kind of the first domain sentinel wrapped by err,
// or KindInternal when err carries none.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
