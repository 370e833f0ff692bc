package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// EnsureIndexes creates the uniqueness guarantees the store relies on. It
// also creates every collection up front, since transactions cannot create
// collections on older servers.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collectionSessions: {
			{Keys: bson.D{{Key: "token_jti", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "refresh_jti", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "revoked", Value: 1}}},
		},
		collectionChallenges: {
			{
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetName("one_pending_per_user").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": string(domain.OTPStatusPending)}),
			},
		},
		collectionCards: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collectionLayouts: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "order_index", Value: 1}}},
		},
		collectionAudit:    nil,
		collectionCounters: nil,
	}

	existing, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for name, indexes := range specs {
		if !have[name] {
			if err := s.db.CreateCollection(ctx, name); err != nil {
				return fmt.Errorf("create collection %s: %w", name, err)
			}
		}
		if len(indexes) == 0 {
			continue
		}
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
