package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// CardInput is the payload of a new dashboard card.
type CardInput struct {
	Key         string
	Title       string
	Description string
}

// SettingsService manages the dashboard card catalogue and user layouts.
// Every mutation appends one audit event in the same unit of work.
type SettingsService interface {
	SeedDefaultCards(ctx context.Context) error
	ListCards(ctx context.Context) ([]*domain.DashboardCard, error)
	CreateCard(ctx context.Context, actorID int64, in CardInput) (*domain.DashboardCard, error)
	// UpdateCard and DeleteCard fail with domain.ErrNotFound for an unknown card.
	UpdateCard(ctx context.Context, actorID, cardID int64, patch domain.CardPatch) (*domain.DashboardCard, error)
	DeleteCard(ctx context.Context, actorID, cardID int64) error
	Layout(ctx context.Context, userID int64) ([]domain.CardPreference, error)
	SaveLayout(ctx context.Context, userID int64, prefs []domain.CardPreference) error
}
