package ports

import (
	"context"
	"time"
)

// OTPDelivery is the payload handed to a notifier once a challenge commits.
type OTPDelivery struct {
	UserID    int64
	Email     string
	Username  string
	Code      string
	ExpiresAt time.Time
}

// OTPNotifier delivers second-factor codes out of band. Implementations must
// not block the caller on slow transports.
type OTPNotifier interface {
	Notify(ctx context.Context, d OTPDelivery) error
}

// RevocationCache is an optional fast-path deny list of access-token jtis.
// The store remains authoritative; cache errors never grant access.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// PasswordHasher derives and checks password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	// NeedsRehash reports whether digest was made with weaker parameters
	// than the hasher currently uses.
	NeedsRehash(digest string) bool
}
