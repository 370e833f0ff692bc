package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agent007moss/MLT/internal/core/domain"
)

const auditHeadCounter = "audit_head"

// auditRepository stores the ledger with Seq as _id, so a duplicate sequence
// number can never be written.
type auditRepository struct {
	col  *mongo.Collection
	head *counters
}

type auditDoc struct {
	Seq       int64     `bson:"_id"`
	ActorID   *int64    `bson:"actor_user_id,omitempty"`
	Action    string    `bson:"action"`
	Target    string    `bson:"target"`
	Details   string    `bson:"details"`
	EventHash string    `bson:"event_hash"`
	PrevHash  string    `bson:"prev_hash"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d auditDoc) toDomain() *domain.AuditEvent {
	return &domain.AuditEvent{
		Seq:       d.Seq,
		ActorID:   d.ActorID,
		Action:    d.Action,
		Target:    d.Target,
		Details:   d.Details,
		EventHash: d.EventHash,
		PrevHash:  d.PrevHash,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// Tail bumps the ledger head counter before reading, so two transactions
// appending concurrently write-conflict and the later one is retried.
func (r *auditRepository) Tail(ctx context.Context) (*domain.AuditEvent, error) {
	if _, err := r.head.next(ctx, auditHeadCounter); err != nil {
		return nil, err
	}

	var d auditDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := r.col.FindOne(ctx, bson.M{}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find audit tail: %w", err)
	}
	return d.toDomain(), nil
}

func (r *auditRepository) Append(ctx context.Context, e *domain.AuditEvent) error {
	_, err := r.col.InsertOne(ctx, auditDoc{
		Seq:       e.Seq,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Target:    e.Target,
		Details:   e.Details,
		EventHash: e.EventHash,
		PrevHash:  e.PrevHash,
		CreatedAt: e.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *auditRepository) Walk(ctx context.Context, fn func(*domain.AuditEvent) (bool, error)) error {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("scan audit events: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var d auditDoc
		if err := cur.Decode(&d); err != nil {
			return fmt.Errorf("decode audit event: %w", err)
		}
		more, err := fn(d.toDomain())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return cur.Err()
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	out := make([]*domain.AuditEvent, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
