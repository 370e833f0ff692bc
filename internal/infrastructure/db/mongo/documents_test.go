package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/agent007moss/MLT/internal/core/domain"
)

func TestUserDoc_BSONRoundTrip(t *testing.T) {
	locked := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	u := &domain.User{
		ID:                  3,
		PublicID:            "5f0c6c1e-8f3e-4c38-9d4b-4e1d3f1a2b7c",
		Email:               "Mixed@Example.COM",
		Username:            "mixed",
		PasswordHash:        "$argon2id$...",
		Role:                domain.RoleAdmin,
		Active:              true,
		FailedLoginAttempts: 5,
		LockedUntil:         &locked,
	}

	raw, err := bson.Marshal(newUserDoc(u))
	require.NoError(t, err)

	var d userDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	got := d.toDomain()

	require.Equal(t, "mixed@example.com", got.Email)
	require.Equal(t, domain.RoleAdmin, got.Role)
	require.Equal(t, 5, got.FailedLoginAttempts)
	require.NotNil(t, got.LockedUntil)
	require.True(t, got.LockedUntil.Equal(locked))
}

func TestUserDoc_OmitsEmptyLock(t *testing.T) {
	raw, err := bson.Marshal(newUserDoc(&domain.User{ID: 1, Email: "a@b.c"}))
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	_, present := m["locked_until"]
	require.False(t, present)
	require.Equal(t, int64(1), m["_id"])
}

func TestAuditDoc_SeqIsPrimaryKey(t *testing.T) {
	actor := int64(4)
	raw, err := bson.Marshal(auditDoc{Seq: 12, ActorID: &actor, Action: "auth.logout", Details: "{}"})
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	require.Equal(t, int64(12), m["_id"])

	var d auditDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	e := d.toDomain()
	require.Equal(t, int64(12), e.Seq)
	require.Equal(t, int64(4), *e.ActorID)
}

func TestCardDoc_BSONRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c := &domain.DashboardCard{ID: 5, Key: "fitness", Title: "Fitness", Description: "Daily scores", Active: true, CreatedAt: created, UpdatedAt: created}

	raw, err := bson.Marshal(newCardDoc(c))
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	require.Equal(t, int64(5), m["_id"])
	require.Equal(t, true, m["is_active"])

	var d cardDoc
	require.NoError(t, bson.Unmarshal(raw, &d))
	require.Equal(t, c, d.toDomain())
}

func TestLayoutDoc_ToDomain(t *testing.T) {
	d := layoutDoc{UserID: 2, CardKey: "awards", OrderIndex: 3, Visible: false}
	require.Equal(t, domain.CardPreference{UserID: 2, CardKey: "awards", OrderIndex: 3}, d.toDomain())
}
