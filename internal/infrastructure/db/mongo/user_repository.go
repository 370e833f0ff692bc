package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type userRepository struct {
	col *mongo.Collection
	ids *counters
}

type userDoc struct {
	ID                  int64      `bson:"_id"`
	PublicID            string     `bson:"public_id"`
	Email               string     `bson:"email"`
	Username            string     `bson:"username"`
	PasswordHash        string     `bson:"password_hash"`
	EmailVerified       bool       `bson:"is_email_verified"`
	Role                string     `bson:"role"`
	Active              bool       `bson:"is_active"`
	FailedLoginAttempts int        `bson:"failed_login_attempts"`
	LockedUntil         *time.Time `bson:"locked_until,omitempty"`
	CreatedAt           time.Time  `bson:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at"`
}

func newUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:                  u.ID,
		PublicID:            u.PublicID,
		Email:               strings.ToLower(u.Email),
		Username:            u.Username,
		PasswordHash:        u.PasswordHash,
		EmailVerified:       u.EmailVerified,
		Role:                string(u.Role),
		Active:              u.Active,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (d userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:                  d.ID,
		PublicID:            d.PublicID,
		Email:               d.Email,
		Username:            d.Username,
		PasswordHash:        d.PasswordHash,
		EmailVerified:       d.EmailVerified,
		Role:                domain.Role(d.Role),
		Active:              d.Active,
		FailedLoginAttempts: d.FailedLoginAttempts,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
	if d.LockedUntil != nil {
		t := d.LockedUntil.UTC()
		u.LockedUntil = &t
	}
	return u
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	id, err := r.ids.next(ctx, collectionUsers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.ID = id
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, newUserDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

// FindByLogin prefers an email match over a username match.
func (r *userRepository) FindByLogin(ctx context.Context, identifier string) (*domain.User, error) {
	u, err := r.findOne(ctx, bson.M{"email": strings.ToLower(identifier)})
	if !errors.Is(err, domain.ErrNotFound) {
		return u, err
	}
	return r.findOne(ctx, bson.M{"username": identifier})
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"is_email_verified":     u.EmailVerified,
		"role":                  string(u.Role),
		"is_active":             u.Active,
		"failed_login_attempts": u.FailedLoginAttempts,
		"password_hash":         u.PasswordHash,
		"updated_at":            u.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if u.LockedUntil != nil {
		set["locked_until"] = *u.LockedUntil
	} else {
		update["$unset"] = bson.M{"locked_until": ""}
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var d userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return d.toDomain(), nil
}
