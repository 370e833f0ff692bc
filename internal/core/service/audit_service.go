package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

const (
	DefaultAuditListLimit = 200
	maxAuditListLimit     = 1000
)

// Ledger appends to and verifies the hash chain. It never opens transactions
// itself; callers hand it the repository of the unit of work being audited.
type Ledger struct {
	now func() time.Time
}

func NewLedger(now func() time.Time) Ledger {
	if now == nil {
		now = time.Now
	}
	return Ledger{now: now}
}

// Append links a new event to the current tail and stores it.
func (l Ledger) Append(
	ctx context.Context,
	repo ports.AuditRepository,
	actorID *int64,
	action, target string,
	details domain.Details,
) (*domain.AuditEvent, error) {
	if action == "" {
		return nil, fmt.Errorf("audit append: %w: empty action", domain.ErrInvalidInput)
	}

	canonical, err := domain.CanonicalDetails(details)
	if err != nil {
		return nil, fmt.Errorf("audit append: %w", err)
	}

	tail, err := repo.Tail(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit tail: %w", err)
	}
	prev, seq := domain.GenesisHash, int64(1)
	if tail != nil {
		prev, seq = tail.EventHash, tail.Seq+1
	}

	e := &domain.AuditEvent{
		Seq:       seq,
		ActorID:   actorID,
		Action:    action,
		Target:    target,
		Details:   canonical,
		PrevHash:  prev,
		EventHash: domain.ComputeEventHash(actorID, action, target, canonical, prev),
		CreatedAt: l.now().UTC(),
	}
	if err := repo.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("audit append: %w", err)
	}
	return e, nil
}

// Verify replays the ledger in ascending order and reports whether every
// link and digest is intact. An empty ledger is valid.
func (l Ledger) Verify(ctx context.Context, repo ports.AuditRepository) (bool, error) {
	valid := true
	prev := domain.GenesisHash
	var lastSeq int64

	err := repo.Walk(ctx, func(e *domain.AuditEvent) (bool, error) {
		if e.Seq <= lastSeq || e.PrevHash != prev {
			valid = false
			return false, nil
		}
		want, err := e.ExpectedHash()
		if err != nil || want != e.EventHash {
			valid = false
			return false, nil
		}
		prev, lastSeq = e.EventHash, e.Seq
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("audit verify: %w", err)
	}
	return valid, nil
}

type auditService struct {
	store  ports.Store
	ledger Ledger
	log    zerolog.Logger
}

// NewAuditService returns an AuditService implementation.
func NewAuditService(store ports.Store, ledger Ledger, log zerolog.Logger) ports.AuditService {
	return &auditService{store: store, ledger: ledger, log: log}
}

// RecordEvent appends a standalone event in its own unit of work.
func (s *auditService) RecordEvent(ctx context.Context, actorID *int64, action, target string, details domain.Details) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		e, err := s.ledger.Append(ctx, repos.Audit, actorID, action, target, details)
		if err != nil {
			return err
		}
		s.log.Debug().Int64("seq", e.Seq).Str("action", action).Msg("audit event recorded")
		return nil
	})
}

func (s *auditService) VerifyAuditChain(ctx context.Context) (bool, error) {
	var valid bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		valid, err = s.ledger.Verify(ctx, repos.Audit)
		return err
	})
	if err != nil {
		return false, err
	}
	if !valid {
		s.log.Warn().Msg("audit chain verification failed")
	}
	return valid, nil
}

func (s *auditService) ListEvents(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	if limit <= 0 {
		limit = DefaultAuditListLimit
	}
	if limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}
	var events []*domain.AuditEvent
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		events, err = repos.Audit.ListRecent(ctx, limit)
		return err
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
