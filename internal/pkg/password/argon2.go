// Package password hashes and verifies account passwords with argon2id,
// encoding digests in the PHC string format.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTime        uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

var (
	ErrInvalidConfig = errors.New("invalid argon2 configuration")
	errMalformed     = errors.New("malformed argon2 digest")
)

// Config holds the argon2id cost parameters. Memory is in KiB.
type Config struct {
	Time        uint32
	Memory      uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig matches the production cost: t=3, m=64MiB, p=2, 32-byte key.
func DefaultConfig() Config {
	return Config{Time: 3, Memory: 64 * 1024, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

// Hasher is safe for concurrent use.
type Hasher struct {
	cfg Config
}

// New validates cfg and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("%w: memory must be >= %d KiB", ErrInvalidConfig, minMemoryKB)
	case cfg.Time < minTime:
		return nil, fmt.Errorf("%w: time must be >= %d", ErrInvalidConfig, minTime)
	case cfg.Parallelism < minParallelism:
		return nil, fmt.Errorf("%w: parallelism must be >= %d", ErrInvalidConfig, minParallelism)
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("%w: salt length must be >= %d", ErrInvalidConfig, minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("%w: key length must be >= %d", ErrInvalidConfig, minKeyLength)
	}
	return &Hasher{cfg: cfg}, nil
}

// Hash derives a digest for password under a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.cfg.Time, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.cfg.Memory,
		h.cfg.Time,
		h.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password produced digest. A malformed digest is
// indistinguishable from a wrong password.
func (h *Hasher) Verify(password, digest string) bool {
	d, err := parse(digest)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1
}

// NeedsRehash reports whether digest was produced with weaker parameters than
// the hasher's current configuration.
func (h *Hasher) NeedsRehash(digest string) bool {
	d, err := parse(digest)
	if err != nil {
		return true
	}
	return d.memory < h.cfg.Memory ||
		d.time < h.cfg.Time ||
		d.parallelism < h.cfg.Parallelism ||
		uint32(len(d.key)) != h.cfg.KeyLength
}

type decoded struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parse(digest string) (*decoded, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, errMalformed
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errMalformed
	}

	d := &decoded{}
	var hasM, hasT, hasP bool
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errMalformed
		}
		switch {
		case k == "m" && !hasM:
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minMemoryKB {
				return nil, errMalformed
			}
			d.memory, hasM = uint32(n), true
		case k == "t" && !hasT:
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minTime {
				return nil, errMalformed
			}
			d.time, hasT = uint32(n), true
		case k == "p" && !hasP:
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || uint8(n) < minParallelism {
				return nil, errMalformed
			}
			d.parallelism, hasP = uint8(n), true
		default:
			// Unknown or repeated key.
			return nil, errMalformed
		}
	}
	if !hasM || !hasT || !hasP {
		return nil, errMalformed
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) < int(minSaltLength) {
		return nil, errMalformed
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) < int(minKeyLength) {
		return nil, errMalformed
	}
	return d, nil
}
