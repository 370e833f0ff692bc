package password

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{Time: 1, Memory: 8 * 1024, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestHasher_RoundTrip(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)

	digest, err := h.Hash("super-secure-password")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$"))

	require.True(t, h.Verify("super-secure-password", digest))
	require.False(t, h.Verify("wrong", digest))
	require.False(t, h.Verify("super-secure-password ", digest))
}

func TestHasher_SaltedDigests(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.True(t, h.Verify("same-password", a))
	require.True(t, h.Verify("same-password", b))
}

func TestHasher_MalformedDigest(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)

	salt := base64.RawStdEncoding.EncodeToString(make([]byte, 16))
	key := base64.RawStdEncoding.EncodeToString(make([]byte, 32))

	for _, digest := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=8192,m=8192,m=8192$" + salt + "$" + key,
		"$argon2id$v=19$m=8192,t=1,t=1$" + salt + "$" + key,
		"$argon2id$v=19$t=1,p=1,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=8192,t=1,p=1,x=1$" + salt + "$" + key,
		"$argon2id$v=19$m=8192,t=0,p=1$" + salt + "$" + key,
	} {
		require.NotPanics(t, func() {
			require.False(t, h.Verify("password1234", digest), digest)
		}, digest)
		require.True(t, h.NeedsRehash(digest), digest)
	}
}

func TestHasher_NeedsRehash(t *testing.T) {
	weak, err := New(testConfig())
	require.NoError(t, err)
	digest, err := weak.Hash("rehash-me-please")
	require.NoError(t, err)

	require.False(t, weak.NeedsRehash(digest))

	stronger := testConfig()
	stronger.Time = 2
	strong, err := New(stronger)
	require.NoError(t, err)
	require.True(t, strong.NeedsRehash(digest))
	require.True(t, strong.NeedsRehash("garbage"))
}

func TestNew_RejectsWeakConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Memory = 1024
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig()
	cfg.SaltLength = 8
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
