package domain

import (
	"strings"
	"time"
)

// DashboardCard is one card that can appear on a user's dashboard.
type DashboardCard struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CardPatch carries the fields of a card update; nil fields are left as-is.
type CardPatch struct {
	Title       *string
	Description *string
	Active      *bool
}

// Apply copies the non-nil fields of p onto c.
func (p CardPatch) Apply(c *DashboardCard) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
}

// CardPreference is one entry of a user's saved dashboard layout.
type CardPreference struct {
	UserID     int64  `json:"user_id"`
	CardKey    string `json:"card_key"`
	OrderIndex int    `json:"order_index"`
	Visible    bool   `json:"visible"`
}

// DefaultCardTitles are seeded into an empty card catalogue.
var DefaultCardTitles = []string{
	"Personal Data", "Contact Information", "Civilian Education", "Awards", "Fitness", "Appointments",
	"Counseling’s/NCOER/OER", "Duty Roster", "Per Stats", "HR Metrix", "Equipment", "Profiles",
	"Military Training", "Military Data",
}

var cardKeyReplacer = strings.NewReplacer(" ", "_", "/", "_", "’", "")

// CardKeyFromTitle derives the catalogue key of a default card,
// e.g. "Duty Roster" -> "duty_roster".
func CardKeyFromTitle(title string) string {
	return cardKeyReplacer.Replace(strings.ToLower(title))
}

// Audit actions and targets written by the settings flows.
const (
	ActionCardCreate   = "settings.card.create"
	ActionCardUpdate   = "settings.card.update"
	ActionCardDelete   = "settings.card.delete"
	ActionLayoutUpdate = "settings.layout.update"

	TargetDashboardCard   = "dashboard_card"
	TargetDashboardLayout = "dashboard_layout"
)
