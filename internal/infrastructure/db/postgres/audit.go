package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// auditLockKey names the transaction-scoped advisory lock that serialises
// ledger appends.
const auditLockKey int64 = 0x4d4c545f41554454

type AuditRepository struct {
	db DBTX
}

const auditColumns = `id, actor_user_id, action, target, details, event_hash, prev_hash, created_at`

func scanAudit(row rowScanner) (*domain.AuditEvent, error) {
	var (
		e     domain.AuditEvent
		actor sql.NullInt64
	)
	if err := row.Scan(&e.Seq, &actor, &e.Action, &e.Target, &e.Details, &e.EventHash, &e.PrevHash, &e.CreatedAt); err != nil {
		return nil, err
	}
	if actor.Valid {
		id := actor.Int64
		e.ActorID = &id
	}
	return &e, nil
}

// Tail takes the ledger advisory lock, held until the transaction ends, and
// then reads the newest event.
func (r *AuditRepository) Tail(ctx context.Context) (*domain.AuditEvent, error) {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, auditLockKey); err != nil {
		return nil, fmt.Errorf("lock audit ledger: %w", err)
	}

	e, err := scanAudit(r.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_events ORDER BY id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find audit tail: %w", err)
	}
	return e, nil
}

func (r *AuditRepository) Append(ctx context.Context, e *domain.AuditEvent) error {
	var actor sql.NullInt64
	if e.ActorID != nil {
		actor = sql.NullInt64{Int64: *e.ActorID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (`+auditColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.Seq, actor, e.Action, e.Target, e.Details, e.EventHash, e.PrevHash, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *AuditRepository) Walk(ctx context.Context, fn func(*domain.AuditEvent) (bool, error)) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM audit_events ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("scan audit events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return fmt.Errorf("decode audit event: %w", err)
		}
		more, err := fn(e)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return rows.Err()
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM audit_events ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.AuditEvent, 0, limit)
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
