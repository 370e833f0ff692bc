// Package token issues and decodes HS256 JWTs for the session manager.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// Type discriminates access tokens from refresh tokens.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

const (
	claimSubject  = "sub"
	claimType     = "type"
	claimIssuedAt = "iat"
	claimExpires  = "exp"
	claimID       = "jti"
	claimRole     = "role"
)

var registered = map[string]struct{}{
	claimSubject:  {},
	claimType:     {},
	claimIssuedAt: {},
	claimExpires:  {},
	claimID:       {},
}

var errEmptySecret = errors.New("token secret must not be empty")

// Issued is a signed token together with the identifiers the caller persists.
type Issued struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is the decoded payload of a valid token.
type Claims struct {
	Subject   string
	Type      Type
	JTI       string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// UserID parses the subject as a numeric user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject is not a user id", domain.ErrInvalidToken)
	}
	return id, nil
}

// Codec signs and verifies tokens. The zero value is not usable; use NewCodec.
type Codec struct {
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(opts ...Option) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for subject valid for ttl. Keys in extra that collide
// with registered claims are ignored.
func (c *Codec) Issue(subject string, typ Type, ttl time.Duration, secret string, extra map[string]any) (Issued, error) {
	if secret == "" {
		return Issued{}, errEmptySecret
	}

	now := c.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	jti := uuid.NewString()

	claims := jwt.MapClaims{}
	for k, v := range extra {
		if _, reserved := registered[k]; reserved {
			continue
		}
		claims[k] = v
	}
	claims[claimSubject] = subject
	claims[claimType] = string(typ)
	claims[claimIssuedAt] = now.Unix()
	claims[claimExpires] = exp.Unix()
	claims[claimID] = jti

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, JTI: jti, IssuedAt: now, ExpiresAt: exp}, nil
}

// Decode verifies the signature and expiry of raw under secret. Every failure
// wraps domain.ErrInvalidToken.
func (c *Codec) Decode(raw, secret string) (*Claims, error) {
	if secret == "" {
		return nil, errEmptySecret
	}

	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	jti, _ := mc[claimID].(string)
	if jti == "" {
		return nil, fmt.Errorf("%w: missing jti", domain.ErrInvalidToken)
	}
	typ, _ := mc[claimType].(string)

	out := &Claims{
		Subject: sub,
		Type:    Type(typ),
		JTI:     jti,
		Extra:   map[string]any{},
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	out.Role, _ = mc[claimRole].(string)
	for k, v := range mc {
		if _, reserved := registered[k]; !reserved {
			out.Extra[k] = v
		}
	}
	return out, nil
}

// DecodeAs decodes raw and additionally requires the given token type.
func (c *Codec) DecodeAs(raw, secret string, want Type) (*Claims, error) {
	claims, err := c.Decode(raw, secret)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token", domain.ErrInvalidToken, want)
	}
	return claims, nil
}

// RoleClaim builds the extra claims carried by access tokens.
func RoleClaim(role domain.Role) map[string]any {
	return map[string]any{claimRole: string(role)}
}
