package memory

import (
	"context"
	"sort"
	"time"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type cardRepo struct{ s *Store }

func (r *cardRepo) List(context.Context) ([]*domain.DashboardCard, error) {
	out := make([]*domain.DashboardCard, 0, len(r.s.st.cards))
	for _, c := range r.s.st.cards {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *cardRepo) Count(context.Context) (int64, error) {
	return int64(len(r.s.st.cards)), nil
}

func (r *cardRepo) FindByID(_ context.Context, id int64) (*domain.DashboardCard, error) {
	c, ok := r.s.st.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *cardRepo) Create(_ context.Context, c *domain.DashboardCard) error {
	for _, existing := range r.s.st.cards {
		if existing.Key == c.Key {
			return domain.ErrConflict
		}
	}
	r.s.st.nextCard++
	now := time.Now().UTC()
	c.ID = r.s.st.nextCard
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.st.cards[c.ID] = *c
	return nil
}

func (r *cardRepo) Update(_ context.Context, c *domain.DashboardCard) error {
	if _, ok := r.s.st.cards[c.ID]; !ok {
		return domain.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	r.s.st.cards[c.ID] = *c
	return nil
}

func (r *cardRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.s.st.cards[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.st.cards, id)
	return nil
}

type layoutRepo struct{ s *Store }

func (r *layoutRepo) ListForUser(_ context.Context, userID int64) ([]domain.CardPreference, error) {
	prefs := append([]domain.CardPreference(nil), r.s.st.layouts[userID]...)
	sort.SliceStable(prefs, func(i, j int) bool { return prefs[i].OrderIndex < prefs[j].OrderIndex })
	return prefs, nil
}

func (r *layoutRepo) Replace(_ context.Context, userID int64, prefs []domain.CardPreference) error {
	if len(prefs) == 0 {
		delete(r.s.st.layouts, userID)
		return nil
	}
	r.s.st.layouts[userID] = append([]domain.CardPreference(nil), prefs...)
	return nil
}
