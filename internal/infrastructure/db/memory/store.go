// Package memory is a transactional in-process ports.Store used by tests and
// by STORE_DRIVER=memory for local development.
package memory

import (
	"context"
	"sync"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

type state struct {
	users      map[int64]domain.User
	sessions   map[int64]domain.SessionToken
	challenges map[int64]domain.OTPChallenge
	audit      []domain.AuditEvent
	cards      map[int64]domain.DashboardCard
	layouts    map[int64][]domain.CardPreference

	nextUser      int64
	nextSession   int64
	nextChallenge int64
	nextCard      int64
}

func newState() *state {
	return &state{
		users:      make(map[int64]domain.User),
		sessions:   make(map[int64]domain.SessionToken),
		challenges: make(map[int64]domain.OTPChallenge),
		cards:      make(map[int64]domain.DashboardCard),
		layouts:    make(map[int64][]domain.CardPreference),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[int64]domain.User, len(s.users)),
		sessions:      make(map[int64]domain.SessionToken, len(s.sessions)),
		challenges:    make(map[int64]domain.OTPChallenge, len(s.challenges)),
		audit:         append([]domain.AuditEvent(nil), s.audit...),
		cards:         make(map[int64]domain.DashboardCard, len(s.cards)),
		layouts:       make(map[int64][]domain.CardPreference, len(s.layouts)),
		nextUser:      s.nextUser,
		nextSession:   s.nextSession,
		nextChallenge: s.nextChallenge,
		nextCard:      s.nextCard,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.challenges {
		c.challenges[k] = v
	}
	for k, v := range s.cards {
		c.cards[k] = v
	}
	for k, v := range s.layouts {
		c.layouts[k] = append([]domain.CardPreference(nil), v...)
	}
	return c
}

// Store serialises units of work behind one mutex; a failed unit restores
// the snapshot taken when it started.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, s.repos()); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) repos() ports.Repositories {
	return ports.Repositories{
		Users:      &userRepo{s: s},
		Sessions:   &sessionRepo{s: s},
		Challenges: &challengeRepo{s: s},
		Audit:      &auditRepo{s: s},
		Cards:      &cardRepo{s: s},
		Layouts:    &layoutRepo{s: s},
	}
}

var _ ports.Store = (*Store)(nil)
