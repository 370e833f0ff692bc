package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// AuditService exposes the ledger to callers outside the identity flows.
type AuditService interface {
	RecordEvent(ctx context.Context, actorID *int64, action, target string, details domain.Details) error
	VerifyAuditChain(ctx context.Context) (bool, error)
	ListEvents(ctx context.Context, limit int) ([]*domain.AuditEvent, error)
}
