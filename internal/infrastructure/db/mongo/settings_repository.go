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

type cardRepository struct {
	col *mongo.Collection
	ids *counters
}

type cardDoc struct {
	ID          int64     `bson:"_id"`
	Key         string    `bson:"key"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Active      bool      `bson:"is_active"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func newCardDoc(c *domain.DashboardCard) cardDoc {
	return cardDoc{
		ID:          c.ID,
		Key:         c.Key,
		Title:       c.Title,
		Description: c.Description,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (d cardDoc) toDomain() *domain.DashboardCard {
	return &domain.DashboardCard{
		ID:          d.ID,
		Key:         d.Key,
		Title:       d.Title,
		Description: d.Description,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (r *cardRepository) List(ctx context.Context) ([]*domain.DashboardCard, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	var docs []cardDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}
	out := make([]*domain.DashboardCard, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *cardRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

func (r *cardRepository) FindByID(ctx context.Context, id int64) (*domain.DashboardCard, error) {
	var d cardDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return d.toDomain(), nil
}

func (r *cardRepository) Create(ctx context.Context, c *domain.DashboardCard) error {
	id, err := r.ids.next(ctx, collectionCards)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	c.ID = id
	c.CreatedAt, c.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, newCardDoc(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (r *cardRepository) Update(ctx context.Context, c *domain.DashboardCard) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"title":       c.Title,
		"description": c.Description,
		"is_active":   c.Active,
		"updated_at":  c.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *cardRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type layoutRepository struct {
	col *mongo.Collection
}

type layoutDoc struct {
	UserID     int64  `bson:"user_id"`
	CardKey    string `bson:"card_key"`
	OrderIndex int    `bson:"order_index"`
	Visible    bool   `bson:"visible"`
}

func (d layoutDoc) toDomain() domain.CardPreference {
	return domain.CardPreference{UserID: d.UserID, CardKey: d.CardKey, OrderIndex: d.OrderIndex, Visible: d.Visible}
}

func (r *layoutRepository) ListForUser(ctx context.Context, userID int64) ([]domain.CardPreference, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order_index", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list layout: %w", err)
	}
	var docs []layoutDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	out := make([]domain.CardPreference, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *layoutRepository) Replace(ctx context.Context, userID int64, prefs []domain.CardPreference) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("clear layout: %w", err)
	}
	if len(prefs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(prefs))
	for _, p := range prefs {
		docs = append(docs, layoutDoc{UserID: userID, CardKey: p.CardKey, OrderIndex: p.OrderIndex, Visible: p.Visible})
	}
	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert layout: %w", err)
	}
	return nil
}
