package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// SessionRepository persists issued token pairs.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.SessionToken) error
	FindByRefreshJTI(ctx context.Context, jti string) (*domain.SessionToken, error)
	FindByAccessJTI(ctx context.Context, jti string) (*domain.SessionToken, error)
	// Revoke flips the session to revoked only if it is still live and
	// reports whether this call performed the flip.
	Revoke(ctx context.Context, id int64) (bool, error)
	// RevokeAllForUser revokes every live session of userID and returns the
	// sessions it revoked.
	RevokeAllForUser(ctx context.Context, userID int64) ([]domain.SessionToken, error)
}
