package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type challengeRepository struct {
	col *mongo.Collection
	ids *counters
}

type challengeDoc struct {
	ID        int64     `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	CodeHash  string    `bson:"code_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
	Retries   int       `bson:"retries"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d challengeDoc) toDomain() *domain.OTPChallenge {
	return &domain.OTPChallenge{
		ID:        d.ID,
		UserID:    d.UserID,
		CodeHash:  d.CodeHash,
		ExpiresAt: d.ExpiresAt.UTC(),
		Retries:   d.Retries,
		Status:    domain.OTPStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (r *challengeRepository) FindPending(ctx context.Context, userID int64) (*domain.OTPChallenge, error) {
	var d challengeDoc
	err := r.col.FindOne(ctx, bson.M{"user_id": userID, "status": string(domain.OTPStatusPending)}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find pending challenge: %w", err)
	}
	return d.toDomain(), nil
}

func (r *challengeRepository) SupersedePending(ctx context.Context, userID int64) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"user_id": userID, "status": string(domain.OTPStatusPending)},
		bson.M{"$set": bson.M{"status": string(domain.OTPStatusSuperseded), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("supersede challenges: %w", err)
	}
	return res.ModifiedCount, nil
}

// Create relies on the partial unique index over pending challenges; a
// concurrent winner surfaces as domain.ErrConflict.
func (r *challengeRepository) Create(ctx context.Context, c *domain.OTPChallenge) error {
	id, err := r.ids.next(ctx, collectionChallenges)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	c.ID = id
	c.CreatedAt, c.UpdatedAt = now, now

	_, err = r.col.InsertOne(ctx, challengeDoc{
		ID:        c.ID,
		UserID:    c.UserID,
		CodeHash:  c.CodeHash,
		ExpiresAt: c.ExpiresAt,
		Retries:   c.Retries,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) Update(ctx context.Context, c *domain.OTPChallenge) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"status":     string(c.Status),
		"retries":    c.Retries,
		"updated_at": c.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
