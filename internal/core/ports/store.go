package ports

import "context"

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Users      UserRepository
	Sessions   SessionRepository
	Challenges ChallengeRepository
	Audit      AuditRepository
	Cards      CardRepository
	Layouts    LayoutRepository
}

// Store opens units of work over the identity and settings tables.
type Store interface {
	// WithinTx runs fn in a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise; fn's error is returned as-is.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// Ping checks connectivity for readiness probes.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
