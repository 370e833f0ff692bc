package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// Repositories are only handed out inside WithinTx, which holds Store.mu.

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	for _, existing := range r.s.st.users {
		if strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return domain.ErrUserExists
		}
	}
	r.s.st.nextUser++
	now := time.Now().UTC()
	u.ID = r.s.st.nextUser
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.st.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ptrUser(u), nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.s.st.users {
		if strings.EqualFold(u.Email, email) {
			return ptrUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *userRepo) FindByLogin(_ context.Context, identifier string) (*domain.User, error) {
	var byName *domain.User
	for _, u := range r.s.st.users {
		if strings.EqualFold(u.Email, identifier) {
			return ptrUser(u), nil
		}
		if byName == nil && u.Username == identifier {
			byName = ptrUser(u)
		}
	}
	if byName == nil {
		return nil, domain.ErrNotFound
	}
	return byName, nil
}

func (r *userRepo) Update(_ context.Context, u *domain.User) error {
	if _, ok := r.s.st.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	r.s.st.users[u.ID] = copyUser(u)
	return nil
}

func copyUser(u *domain.User) domain.User {
	c := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		c.LockedUntil = &t
	}
	return c
}

func ptrUser(u domain.User) *domain.User {
	c := copyUser(&u)
	return &c
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(_ context.Context, t *domain.SessionToken) error {
	for _, existing := range r.s.st.sessions {
		if existing.AccessJTI == t.AccessJTI || existing.RefreshJTI == t.RefreshJTI {
			return domain.ErrConflict
		}
	}
	r.s.st.nextSession++
	now := time.Now().UTC()
	t.ID = r.s.st.nextSession
	t.CreatedAt, t.UpdatedAt = now, now
	r.s.st.sessions[t.ID] = *t
	return nil
}

func (r *sessionRepo) FindByRefreshJTI(_ context.Context, jti string) (*domain.SessionToken, error) {
	for _, t := range r.s.st.sessions {
		if t.RefreshJTI == jti {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *sessionRepo) FindByAccessJTI(_ context.Context, jti string) (*domain.SessionToken, error) {
	for _, t := range r.s.st.sessions {
		if t.AccessJTI == jti {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *sessionRepo) Revoke(_ context.Context, id int64) (bool, error) {
	t, ok := r.s.st.sessions[id]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	t.UpdatedAt = time.Now().UTC()
	r.s.st.sessions[id] = t
	return true, nil
}

func (r *sessionRepo) RevokeAllForUser(_ context.Context, userID int64) ([]domain.SessionToken, error) {
	var revoked []domain.SessionToken
	now := time.Now().UTC()
	for id, t := range r.s.st.sessions {
		if t.UserID != userID || t.Revoked {
			continue
		}
		t.Revoked = true
		t.UpdatedAt = now
		r.s.st.sessions[id] = t
		revoked = append(revoked, t)
	}
	sort.Slice(revoked, func(i, j int) bool { return revoked[i].ID < revoked[j].ID })
	return revoked, nil
}

type challengeRepo struct{ s *Store }

func (r *challengeRepo) FindPending(_ context.Context, userID int64) (*domain.OTPChallenge, error) {
	for _, c := range r.s.st.challenges {
		if c.UserID == userID && c.Status == domain.OTPStatusPending {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *challengeRepo) SupersedePending(_ context.Context, userID int64) (int64, error) {
	var n int64
	now := time.Now().UTC()
	for id, c := range r.s.st.challenges {
		if c.UserID == userID && c.Status == domain.OTPStatusPending {
			c.Status = domain.OTPStatusSuperseded
			c.UpdatedAt = now
			r.s.st.challenges[id] = c
			n++
		}
	}
	return n, nil
}

func (r *challengeRepo) Create(_ context.Context, c *domain.OTPChallenge) error {
	if c.Status == domain.OTPStatusPending {
		for _, existing := range r.s.st.challenges {
			if existing.UserID == c.UserID && existing.Status == domain.OTPStatusPending {
				return domain.ErrConflict
			}
		}
	}
	r.s.st.nextChallenge++
	now := time.Now().UTC()
	c.ID = r.s.st.nextChallenge
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.st.challenges[c.ID] = *c
	return nil
}

func (r *challengeRepo) Update(_ context.Context, c *domain.OTPChallenge) error {
	if _, ok := r.s.st.challenges[c.ID]; !ok {
		return domain.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	r.s.st.challenges[c.ID] = *c
	return nil
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Tail(context.Context) (*domain.AuditEvent, error) {
	if len(r.s.st.audit) == 0 {
		return nil, nil
	}
	e := r.s.st.audit[len(r.s.st.audit)-1]
	return &e, nil
}

func (r *auditRepo) Append(_ context.Context, e *domain.AuditEvent) error {
	if n := len(r.s.st.audit); n > 0 && r.s.st.audit[n-1].Seq >= e.Seq {
		return domain.ErrConflict
	}
	r.s.st.audit = append(r.s.st.audit, *e)
	return nil
}

func (r *auditRepo) Walk(_ context.Context, fn func(*domain.AuditEvent) (bool, error)) error {
	for i := range r.s.st.audit {
		e := r.s.st.audit[i]
		more, err := fn(&e)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (r *auditRepo) ListRecent(_ context.Context, limit int) ([]*domain.AuditEvent, error) {
	out := make([]*domain.AuditEvent, 0, limit)
	for i := len(r.s.st.audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.s.st.audit[i]
		out = append(out, &e)
	}
	return out, nil
}
