package handler

import (
	"time"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type createCardRequest struct {
	Key         string `json:"key" validate:"required,min=2,max=120"`
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=400"`
}

// updateCardRequest leaves absent fields untouched.
type updateCardRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=400"`
	Active      *bool   `json:"active"`
}

type cardResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type layoutEntry struct {
	CardKey    string `json:"card_key" validate:"required,min=1,max=120"`
	OrderIndex int    `json:"order_index" validate:"min=0"`
	// Visible defaults to true when omitted.
	Visible    *bool  `json:"visible"`
}

type saveLayoutRequest struct {
	Cards []layoutEntry `json:"cards" validate:"max=100,dive"`
}

type layoutResponse struct {
	Cards []layoutEntryResponse `json:"cards"`
}

type layoutEntryResponse struct {
	CardKey    string `json:"card_key"`
	OrderIndex int    `json:"order_index"`
	Visible    bool   `json:"visible"`
}

func toCardResponse(c *domain.DashboardCard) cardResponse {
	return cardResponse{
		ID:          c.ID,
		Key:         c.Key,
		Title:       c.Title,
		Description: c.Description,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (r saveLayoutRequest) toDomain() []domain.CardPreference {
	prefs := make([]domain.CardPreference, 0, len(r.Cards))
	for _, e := range r.Cards {
		visible := true
		if e.Visible != nil {
			visible = *e.Visible
		}
		prefs = append(prefs, domain.CardPreference{CardKey: e.CardKey, OrderIndex: e.OrderIndex, Visible: visible})
	}
	return prefs
}
