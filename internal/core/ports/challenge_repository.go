package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// ChallengeRepository persists OTP challenges. At most one PENDING challenge
// may exist per user; Create returns domain.ErrConflict when another one won.
type ChallengeRepository interface {
	// FindPending returns the user's PENDING challenge or domain.ErrNotFound.
	FindPending(ctx context.Context, userID int64) (*domain.OTPChallenge, error)
	// SupersedePending moves every PENDING challenge of the user to SUPERSEDED.
	SupersedePending(ctx context.Context, userID int64) (int64, error)
	Create(ctx context.Context, c *domain.OTPChallenge) error
	// Update persists status and retry count.
	Update(ctx context.Context, c *domain.OTPChallenge) error
}
