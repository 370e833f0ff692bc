package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/agent007moss/MLT/internal/core/domain"
)

const (
	accessSecret  = "access-secret-for-tests"
	refreshSecret = "refresh-secret-for-tests"
)

func TestCodec_RoundTrip(t *testing.T) {
	c := NewCodec()

	issued, err := c.Issue("42", TypeAccess, 15*time.Minute, accessSecret, RoleClaim(domain.RoleAdmin))
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)

	claims, err := c.Decode(issued.Token, accessSecret)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, TypeAccess, claims.Type)
	require.Equal(t, issued.JTI, claims.JTI)
	require.Equal(t, "ADMIN", claims.Role)
	require.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestCodec_UniqueJTI(t *testing.T) {
	c := NewCodec()
	a, err := c.Issue("1", TypeRefresh, time.Hour, refreshSecret, nil)
	require.NoError(t, err)
	b, err := c.Issue("1", TypeRefresh, time.Hour, refreshSecret, nil)
	require.NoError(t, err)
	require.NotEqual(t, a.JTI, b.JTI)
	require.NotEqual(t, a.Token, b.Token)
}

func TestCodec_ExtrasCannotOverrideRegisteredClaims(t *testing.T) {
	c := NewCodec()
	issued, err := c.Issue("7", TypeAccess, time.Minute, accessSecret, map[string]any{
		"sub":  "999",
		"type": "refresh",
		"jti":  "fixed",
		"org":  "north",
	})
	require.NoError(t, err)

	claims, err := c.Decode(issued.Token, accessSecret)
	require.NoError(t, err)
	require.Equal(t, "7", claims.Subject)
	require.Equal(t, TypeAccess, claims.Type)
	require.NotEqual(t, "fixed", claims.JTI)
	require.Equal(t, "north", claims.Extra["org"])
}

func TestCodec_WrongSecret(t *testing.T) {
	c := NewCodec()
	issued, err := c.Issue("1", TypeAccess, time.Minute, accessSecret, nil)
	require.NoError(t, err)

	_, err = c.Decode(issued.Token, refreshSecret)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCodec_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	c := NewCodec(WithClock(func() time.Time { return clock }))

	issued, err := c.Issue("1", TypeAccess, time.Minute, accessSecret, nil)
	require.NoError(t, err)

	clock = now.Add(30 * time.Second)
	_, err = c.Decode(issued.Token, accessSecret)
	require.NoError(t, err)

	clock = now.Add(2 * time.Minute)
	_, err = c.Decode(issued.Token, accessSecret)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCodec_RejectsMalformedAndForeignAlgorithms(t *testing.T) {
	c := NewCodec()

	_, err := c.Decode("not-a-jwt", accessSecret)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "type": "access", "jti": "x", "exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Decode(raw, accessSecret)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "1", "type": "access", "jti": "x", "exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err = hs512.SignedString([]byte(accessSecret))
	require.NoError(t, err)
	_, err = c.Decode(raw, accessSecret)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCodec_MissingExpiry(t *testing.T) {
	c := NewCodec()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "type": "access", "jti": "x"})
	raw, err := tok.SignedString([]byte(accessSecret))
	require.NoError(t, err)

	_, err = c.Decode(raw, accessSecret)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCodec_DecodeAs(t *testing.T) {
	c := NewCodec()
	issued, err := c.Issue("1", TypeAccess, time.Minute, refreshSecret, nil)
	require.NoError(t, err)

	_, err = c.DecodeAs(issued.Token, refreshSecret, TypeRefresh)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
	require.True(t, strings.Contains(err.Error(), "refresh"))

	_, err = c.DecodeAs(issued.Token, refreshSecret, TypeAccess)
	require.NoError(t, err)
}
