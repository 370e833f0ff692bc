package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// AuditRepository is the append-only storage of the audit ledger.
type AuditRepository interface {
	// Tail returns the event with the highest Seq, or nil for an empty ledger.
	// Stores serialise Tail+Append pairs running in separate transactions.
	Tail(ctx context.Context) (*domain.AuditEvent, error)
	// Append stores e as-is. A duplicate Seq yields domain.ErrConflict.
	Append(ctx context.Context, e *domain.AuditEvent) error
	// Walk calls fn for every event in ascending Seq order until fn returns
	// false or an error.
	Walk(ctx context.Context, fn func(*domain.AuditEvent) (bool, error)) error
	// ListRecent returns at most limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditEvent, error)
}
