package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

func TestSettingsService_SeedDefaultCards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := h.settings.SeedDefaultCards(ctx); err != nil {
			t.Fatalf("seed #%d: %v", i+1, err)
		}
	}

	cards, err := h.settings.ListCards(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != len(domain.DefaultCardTitles) {
		t.Fatalf("expected %d cards after two seeds, got %d", len(domain.DefaultCardTitles), len(cards))
	}
	for i, c := range cards {
		if c.Title != domain.DefaultCardTitles[i] || c.Key != domain.CardKeyFromTitle(c.Title) || !c.Active {
			t.Fatalf("unexpected seeded card %+v", c)
		}
	}
	if got := h.actions(t); len(got) != 0 {
		t.Fatalf("seeding must not write audit events, got %v", got)
	}
}

func TestSettingsService_SeedSkipsNonEmptyCatalogue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.settings.CreateCard(ctx, 1, ports.CardInput{Key: "range_day", Title: "Range Day"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.settings.SeedDefaultCards(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cards, _ := h.settings.ListCards(ctx)
	if len(cards) != 1 {
		t.Fatalf("seed must leave a populated catalogue alone, got %d cards", len(cards))
	}
}

func TestSettingsService_CardLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	card, err := h.settings.CreateCard(ctx, 4, ports.CardInput{Key: " range_day ", Title: "Range Day", Description: "Qualification"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if card.ID == 0 || card.Key != "range_day" || !card.Active {
		t.Fatalf("unexpected card %+v", card)
	}

	title, inactive := "Range Week", false
	updated, err := h.settings.UpdateCard(ctx, 4, card.ID, domain.CardPatch{Title: &title, Active: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Range Week" || updated.Active || updated.Description != "Qualification" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	if err := h.settings.DeleteCard(ctx, 4, card.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	cards, _ := h.settings.ListCards(ctx)
	if len(cards) != 0 {
		t.Fatalf("card must be gone, got %+v", cards)
	}

	want := []string{domain.ActionCardCreate, domain.ActionCardUpdate, domain.ActionCardDelete}
	if got := h.actions(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	events, err := h.audit.ListEvents(ctx, 3)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	for _, e := range events {
		if e.ActorID == nil || *e.ActorID != 4 || e.Target != domain.TargetDashboardCard {
			t.Fatalf("unexpected event %+v", e)
		}
	}
	if !strings.Contains(events[2].Details, `"range_day"`) {
		t.Fatalf("create event must name the key, got %s", events[2].Details)
	}
	h.assertChainValid(t)
}

func TestSettingsService_UnknownCard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	active := true

	if _, err := h.settings.UpdateCard(ctx, 1, 404, domain.CardPatch{Active: &active}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update: expected not found, got %v", err)
	}
	if err := h.settings.DeleteCard(ctx, 1, 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
	if got := h.actions(t); len(got) != 0 {
		t.Fatalf("failed mutations must not be audited, got %v", got)
	}
}

func TestSettingsService_DuplicateKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.settings.CreateCard(ctx, 1, ports.CardInput{Key: "awards", Title: "Awards"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := h.settings.CreateCard(ctx, 1, ports.CardInput{Key: "awards", Title: "Other"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := h.actions(t); len(got) != 1 {
		t.Fatalf("expected only the first create audited, got %v", got)
	}
}

func TestSettingsService_InvalidCard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ports.CardInput
	}{
		{"short key", ports.CardInput{Key: "a", Title: "Awards"}},
		{"blank title", ports.CardInput{Key: "awards", Title: "   "}},
		{"long key", ports.CardInput{Key: strings.Repeat("k", 121), Title: "Awards"}},
		{"long description", ports.CardInput{Key: "awards", Title: "Awards", Description: strings.Repeat("d", 401)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.settings.CreateCard(ctx, 1, tt.in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}

	card, err := h.settings.CreateCard(ctx, 1, ports.CardInput{Key: "awards", Title: "Awards"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	short := "x"
	if _, err := h.settings.UpdateCard(ctx, 1, card.ID, domain.CardPatch{Title: &short}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("update: expected invalid input, got %v", err)
	}
	cards, _ := h.settings.ListCards(ctx)
	if cards[0].Title != "Awards" {
		t.Fatalf("rejected update must not persist, got %q", cards[0].Title)
	}
}

func TestSettingsService_Layout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	empty, err := h.settings.Layout(ctx, 7)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil layout, got %v %v", empty, err)
	}

	first := []domain.CardPreference{
		{CardKey: "fitness", OrderIndex: 1, Visible: true},
		{CardKey: "awards", OrderIndex: 0, Visible: false},
	}
	if err := h.settings.SaveLayout(ctx, 7, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := h.settings.Layout(ctx, 7)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := []domain.CardPreference{
		{UserID: 7, CardKey: "awards", OrderIndex: 0, Visible: false},
		{UserID: 7, CardKey: "fitness", OrderIndex: 1, Visible: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := h.settings.SaveLayout(ctx, 7, []domain.CardPreference{{CardKey: "weapons", OrderIndex: 0, Visible: true}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = h.settings.Layout(ctx, 7)
	if len(got) != 1 || got[0].CardKey != "weapons" {
		t.Fatalf("layout must be replaced, got %+v", got)
	}
	if other, _ := h.settings.Layout(ctx, 8); len(other) != 0 {
		t.Fatalf("layouts are per user, got %+v", other)
	}

	if got := h.actions(t); !reflect.DeepEqual(got, []string{domain.ActionLayoutUpdate, domain.ActionLayoutUpdate}) {
		t.Fatalf("unexpected actions %v", got)
	}
	events, _ := h.audit.ListEvents(ctx, 1)
	if events[0].ActorID == nil || *events[0].ActorID != 7 || events[0].Target != domain.TargetDashboardLayout {
		t.Fatalf("unexpected layout event %+v", events[0])
	}
	h.assertChainValid(t)
}

func TestSettingsService_SaveLayoutRejectsBadKeys(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := map[string][]domain.CardPreference{
		"empty key": {{CardKey: "  "}},
		"duplicate": {{CardKey: "awards", OrderIndex: 0}, {CardKey: "awards", OrderIndex: 1}},
	}
	for name, prefs := range tests {
		t.Run(name, func(t *testing.T) {
			if err := h.settings.SaveLayout(ctx, 3, prefs); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
	if got := h.actions(t); len(got) != 0 {
		t.Fatalf("rejected layouts must not be audited, got %v", got)
	}
}
