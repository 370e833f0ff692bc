package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

const (
	minCardKeyLength   = 2
	maxCardKeyLength   = 120
	minCardTitleLength = 2
	maxCardTitleLength = 200
	maxCardDescLength  = 400
)

type settingsService struct {
	store  ports.Store
	ledger Ledger
	log    zerolog.Logger
}

// NewSettingsService returns a SettingsService implementation.
func NewSettingsService(store ports.Store, ledger Ledger, log zerolog.Logger) ports.SettingsService {
	return &settingsService{store: store, ledger: ledger, log: log}
}

// SeedDefaultCards fills an empty catalogue with the default cards. A
// catalogue holding any card is left alone.
func (s *settingsService) SeedDefaultCards(ctx context.Context) error {
	var seeded int
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		seeded = 0
		n, err := repos.Cards.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, title := range domain.DefaultCardTitles {
			card := &domain.DashboardCard{
				Key:         domain.CardKeyFromTitle(title),
				Title:       title,
				Description: title + " module",
				Active:      true,
			}
			if err := repos.Cards.Create(ctx, card); err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed dashboard cards: %w", err)
	}
	if seeded > 0 {
		s.log.Info().Int("cards", seeded).Msg("default dashboard cards seeded")
	}
	return nil
}

func (s *settingsService) ListCards(ctx context.Context) ([]*domain.DashboardCard, error) {
	var cards []*domain.DashboardCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		cards, err = repos.Cards.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list dashboard cards: %w", err)
	}
	return cards, nil
}

func (s *settingsService) CreateCard(ctx context.Context, actorID int64, in ports.CardInput) (*domain.DashboardCard, error) {
	in.Key = strings.TrimSpace(in.Key)
	in.Title = strings.TrimSpace(in.Title)
	if err := validateCard(in.Key, in.Title, in.Description); err != nil {
		return nil, err
	}

	card := &domain.DashboardCard{Key: in.Key, Title: in.Title, Description: in.Description, Active: true}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		card.ID = 0
		if err := repos.Cards.Create(ctx, card); err != nil {
			return err
		}
		_, err := s.ledger.Append(ctx, repos.Audit, &actorID, domain.ActionCardCreate, domain.TargetDashboardCard,
			domain.Details{"key": card.Key})
		return err
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *settingsService) UpdateCard(ctx context.Context, actorID, cardID int64, patch domain.CardPatch) (*domain.DashboardCard, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	var card *domain.DashboardCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		card, err = repos.Cards.FindByID(ctx, cardID)
		if err != nil {
			return err
		}
		patch.Apply(card)
		if err := validateCard(card.Key, card.Title, card.Description); err != nil {
			return err
		}
		if err := repos.Cards.Update(ctx, card); err != nil {
			return err
		}
		_, err = s.ledger.Append(ctx, repos.Audit, &actorID, domain.ActionCardUpdate, domain.TargetDashboardCard,
			domain.Details{"card_id": cardID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *settingsService) DeleteCard(ctx context.Context, actorID, cardID int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Cards.Delete(ctx, cardID); err != nil {
			return err
		}
		_, err := s.ledger.Append(ctx, repos.Audit, &actorID, domain.ActionCardDelete, domain.TargetDashboardCard,
			domain.Details{"card_id": cardID})
		return err
	})
}

func (s *settingsService) Layout(ctx context.Context, userID int64) ([]domain.CardPreference, error) {
	var prefs []domain.CardPreference
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		prefs, err = repos.Layouts.ListForUser(ctx, userID)
		return err
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load dashboard layout: %w", err)
	}
	if prefs == nil {
		prefs = []domain.CardPreference{}
	}
	return prefs, nil
}

// SaveLayout replaces the user's layout. Card keys are not checked against
// the catalogue, so a layout survives a card being deleted and re-created.
func (s *settingsService) SaveLayout(ctx context.Context, userID int64, prefs []domain.CardPreference) error {
	seen := make(map[string]struct{}, len(prefs))
	for i := range prefs {
		prefs[i].UserID = userID
		key := strings.TrimSpace(prefs[i].CardKey)
		if key == "" {
			return fmt.Errorf("%w: card_key must not be empty", domain.ErrInvalidInput)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: card_key %q listed twice", domain.ErrInvalidInput, key)
		}
		seen[key] = struct{}{}
		prefs[i].CardKey = key
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Layouts.Replace(ctx, userID, prefs); err != nil {
			return err
		}
		_, err := s.ledger.Append(ctx, repos.Audit, &userID, domain.ActionLayoutUpdate, domain.TargetDashboardLayout,
			domain.Details{"cards": len(prefs)})
		return err
	})
}

func validateCard(key, title, description string) error {
	k, t := utf8.RuneCountInString(key), utf8.RuneCountInString(title)
	switch {
	case k < minCardKeyLength || k > maxCardKeyLength:
		return fmt.Errorf("%w: key must be %d-%d characters", domain.ErrInvalidInput, minCardKeyLength, maxCardKeyLength)
	case t < minCardTitleLength || t > maxCardTitleLength:
		return fmt.Errorf("%w: title must be %d-%d characters", domain.ErrInvalidInput, minCardTitleLength, maxCardTitleLength)
	case utf8.RuneCountInString(description) > maxCardDescLength:
		return fmt.Errorf("%w: description must be at most %d characters", domain.ErrInvalidInput, maxCardDescLength)
	}
	return nil
}
