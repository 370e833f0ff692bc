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

type sessionRepository struct {
	col *mongo.Collection
	ids *counters
}

type sessionDoc struct {
	ID         int64     `bson:"_id"`
	UserID     int64     `bson:"user_id"`
	AccessJTI  string    `bson:"token_jti"`
	RefreshJTI string    `bson:"refresh_jti"`
	Revoked    bool      `bson:"revoked"`
	ExpiresAt  time.Time `bson:"expires_at"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d sessionDoc) toDomain() *domain.SessionToken {
	return &domain.SessionToken{
		ID:         d.ID,
		UserID:     d.UserID,
		AccessJTI:  d.AccessJTI,
		RefreshJTI: d.RefreshJTI,
		Revoked:    d.Revoked,
		ExpiresAt:  d.ExpiresAt.UTC(),
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.SessionToken) error {
	id, err := r.ids.next(ctx, collectionSessions)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	s.ID = id
	s.CreatedAt, s.UpdatedAt = now, now

	_, err = r.col.InsertOne(ctx, sessionDoc{
		ID:         s.ID,
		UserID:     s.UserID,
		AccessJTI:  s.AccessJTI,
		RefreshJTI: s.RefreshJTI,
		Revoked:    s.Revoked,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindByRefreshJTI(ctx context.Context, jti string) (*domain.SessionToken, error) {
	return r.findOne(ctx, bson.M{"refresh_jti": jti})
}

func (r *sessionRepository) FindByAccessJTI(ctx context.Context, jti string) (*domain.SessionToken, error) {
	return r.findOne(ctx, bson.M{"token_jti": jti})
}

func (r *sessionRepository) Revoke(ctx context.Context, id int64) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *sessionRepository) RevokeAllForUser(ctx context.Context, userID int64) ([]domain.SessionToken, error) {
	filter := bson.M{"user_id": userID, "revoked": false}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find live sessions: %w", err)
	}
	var docs []sessionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make(bson.A, 0, len(docs))
	out := make([]domain.SessionToken, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
		d.Revoked = true
		out = append(out, *d.toDomain())
	}
	_, err = r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return nil, fmt.Errorf("revoke sessions: %w", err)
	}
	return out, nil
}

func (r *sessionRepository) findOne(ctx context.Context, filter bson.M) (*domain.SessionToken, error) {
	var d sessionDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return d.toDomain(), nil
}
