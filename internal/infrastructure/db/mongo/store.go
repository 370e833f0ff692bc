package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/agent007moss/MLT/internal/core/ports"
)

const (
	collectionUsers      = "users"
	collectionSessions   = "session_tokens"
	collectionChallenges = "otp_challenges"
	collectionAudit      = "audit_events"
	collectionCounters   = "counters"
	collectionCards      = "dashboard_card_definitions"
	collectionLayouts    = "user_dashboard_preferences"
)

// Store implements ports.Store with multi-document transactions.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{client: client, db: db}
}

// WithinTx runs fn inside a snapshot transaction. The driver retries fn on
// transient errors such as write conflicts, so fn must be safe to re-run.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo start session: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	repos := ports.Repositories{
		Users:      &userRepository{col: s.db.Collection(collectionUsers), ids: s.counters()},
		Sessions:   &sessionRepository{col: s.db.Collection(collectionSessions), ids: s.counters()},
		Challenges: &challengeRepository{col: s.db.Collection(collectionChallenges), ids: s.counters()},
		Audit:      &auditRepository{col: s.db.Collection(collectionAudit), head: s.counters()},
		Cards:      &cardRepository{col: s.db.Collection(collectionCards), ids: s.counters()},
		Layouts:    &layoutRepository{col: s.db.Collection(collectionLayouts)},
	}

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, repos)
	}, txOpts)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) counters() *counters {
	return &counters{col: s.db.Collection(collectionCounters)}
}

var _ ports.Store = (*Store)(nil)
