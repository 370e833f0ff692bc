package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// CardRepository persists the dashboard card catalogue. Lookups return
// domain.ErrNotFound when no row matches.
type CardRepository interface {
	// List returns every card in ascending ID order.
	List(ctx context.Context) ([]*domain.DashboardCard, error)
	Count(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.DashboardCard, error)
	// Create assigns ID and timestamps. A duplicate key yields domain.ErrConflict.
	Create(ctx context.Context, card *domain.DashboardCard) error
	Update(ctx context.Context, card *domain.DashboardCard) error
	Delete(ctx context.Context, id int64) error
}

// LayoutRepository stores each user's dashboard layout.
type LayoutRepository interface {
	// ListForUser returns the user's entries ordered by OrderIndex.
	ListForUser(ctx context.Context, userID int64) ([]domain.CardPreference, error)
	// Replace drops the user's layout and stores prefs in its place.
	Replace(ctx context.Context, userID int64, prefs []domain.CardPreference) error
}
