package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// UserRepository persists accounts. Lookups return domain.ErrNotFound when
// no row matches.
type UserRepository interface {
	// Create assigns ID and timestamps. A duplicate email or username yields
	// domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByLogin matches identifier against email or username. Inside a
	// transaction the row is locked for the rest of the unit of work where
	// the store supports it.
	FindByLogin(ctx context.Context, identifier string) (*domain.User, error)
	// Update persists the mutable fields: email verification, role, active
	// flag, failed-attempt counter, lock expiry and password hash.
	Update(ctx context.Context, user *domain.User) error
}
