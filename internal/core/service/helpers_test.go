package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
	"github.com/agent007moss/MLT/internal/infrastructure/db/memory"
	"github.com/agent007moss/MLT/internal/pkg/password"
	"github.com/agent007moss/MLT/internal/pkg/token"
)

const testPassword = "correct-horse-battery"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *captureNotifier) Notify(_ context.Context, d ports.OTPDelivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = make(map[string]string)
	}
	n.codes[d.Email] = d.Code
	return nil
}

func (n *captureNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

type recordingCache struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (c *recordingCache) MarkRevoked(_ context.Context, jti string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revoked == nil {
		c.revoked = make(map[string]bool)
	}
	c.revoked[jti] = true
	return nil
}

func (c *recordingCache) IsRevoked(_ context.Context, jti string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revoked[jti], nil
}

func (c *recordingCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.revoked)
}

type harness struct {
	store    *memory.Store
	clock    *fakeClock
	notifier *captureNotifier
	cache    *recordingCache
	auth     *AuthService
	audit    ports.AuditService
	settings ports.SettingsService
	codec    *token.Codec

	deps AuthDeps
	opts AuthOptions
}

type harnessOption func(*AuthOptions)

func withBypass() harnessOption {
	return func(o *AuthOptions) { o.BypassSecondFactor = true }
}

func withDebugOTP() harnessOption {
	return func(o *AuthOptions) { o.ExposeDebugOTP = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	hasher, err := password.New(password.Config{Time: 1, Memory: 8 * 1024, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	h := &harness{
		store:    memory.NewStore(),
		clock:    newFakeClock(),
		notifier: &captureNotifier{},
		cache:    &recordingCache{},
	}
	h.codec = token.NewCodec(token.WithClock(h.clock.Now))
	ledger := NewLedger(h.clock.Now)

	o := AuthOptions{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Lockout:       domain.DefaultLockoutPolicy(),
		Now:           h.clock.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	h.deps = AuthDeps{
		Store:       h.store,
		Hasher:      hasher,
		Codec:       h.codec,
		OTP:         NewOTPEngine(domain.DefaultOTPTTL, domain.DefaultOTPRetryCap, h.clock.Now),
		Ledger:      ledger,
		Notifier:    h.notifier,
		Revocations: h.cache,
	}
	h.opts = o
	h.auth = NewAuthService(h.deps, o, zerolog.Nop())
	h.audit = NewAuditService(h.store, ledger, zerolog.Nop())
	h.settings = NewSettingsService(h.store, ledger, zerolog.Nop())
	return h
}

// swapHasher rebuilds the auth service over the same store with hasher,
// as a restart with new cost parameters would.
func (h *harness) swapHasher(hasher ports.PasswordHasher) {
	h.deps.Hasher = hasher
	h.auth = NewAuthService(h.deps, h.opts, zerolog.Nop())
}

func (h *harness) register(t *testing.T, email, username string) *domain.User {
	t.Helper()
	u, err := h.auth.Register(context.Background(), ports.RegisterInput{Email: email, Username: username, Password: testPassword})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func (h *harness) seed(t *testing.T, email string, role domain.Role) {
	t.Helper()
	err := h.auth.EnsureBootstrapUsers(context.Background(), []ports.BootstrapSeed{{Email: email, Password: testPassword, Role: role}})
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
}

// loginWithOTP runs the full two-step login and returns the issued pair.
func (h *harness) loginWithOTP(t *testing.T, identifier, email string) *ports.TokenPair {
	t.Helper()
	ctx := context.Background()
	out, err := h.auth.Authenticate(ctx, identifier, testPassword)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if out.Mode != ports.LoginModeOTPRequired {
		t.Fatalf("expected otp_required, got %s", out.Mode)
	}
	pair, err := h.auth.VerifySecondFactor(ctx, identifier, h.notifier.last(email))
	if err != nil {
		t.Fatalf("verify second factor: %v", err)
	}
	return pair
}

func (h *harness) user(t *testing.T, email string) *domain.User {
	t.Helper()
	var u *domain.User
	err := h.store.WithinTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		var err error
		u, err = repos.Users.FindByEmail(ctx, email)
		return err
	})
	if err != nil {
		t.Fatalf("find user %s: %v", email, err)
	}
	return u
}

func (h *harness) actions(t *testing.T) []string {
	t.Helper()
	var out []string
	err := h.store.WithinTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return repos.Audit.Walk(ctx, func(e *domain.AuditEvent) (bool, error) {
			out = append(out, e.Action)
			return true, nil
		})
	})
	if err != nil {
		t.Fatalf("walk audit: %v", err)
	}
	return out
}

func (h *harness) assertChainValid(t *testing.T) {
	t.Helper()
	ok, err := h.audit.VerifyAuditChain(context.Background())
	if err != nil {
		t.Fatalf("verify chain: %v", err)
	}
	if !ok {
		t.Fatalf("audit chain should be valid")
	}
}

// tamperedStore serves the ledger with one event rewritten on read, as if
// its row had been edited in the database behind the service's back.
type tamperedStore struct {
	ports.Store
	seq    int64
	mutate func(*domain.AuditEvent)
}

func (s tamperedStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		repos.Audit = tamperedAudit{AuditRepository: repos.Audit, seq: s.seq, mutate: s.mutate}
		return fn(ctx, repos)
	})
}

type tamperedAudit struct {
	ports.AuditRepository
	seq    int64
	mutate func(*domain.AuditEvent)
}

func (a tamperedAudit) Walk(ctx context.Context, fn func(*domain.AuditEvent) (bool, error)) error {
	return a.AuditRepository.Walk(ctx, func(e *domain.AuditEvent) (bool, error) {
		if e.Seq == a.seq {
			c := *e
			a.mutate(&c)
			e = &c
		}
		return fn(e)
	})
}

// verifyTampered verifies the chain with event seq rewritten by mutate.
func (h *harness) verifyTampered(t *testing.T, seq int64, mutate func(*domain.AuditEvent)) bool {
	t.Helper()
	audit := NewAuditService(tamperedStore{Store: h.store, seq: seq, mutate: mutate}, NewLedger(h.clock.Now), zerolog.Nop())
	ok, err := audit.VerifyAuditChain(context.Background())
	if err != nil {
		t.Fatalf("verify tampered chain: %v", err)
	}
	return ok
}
