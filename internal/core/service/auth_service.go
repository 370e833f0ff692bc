package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
	"github.com/agent007moss/MLT/internal/pkg/token"
)

const (
	minPasswordLength = 10
	maxPasswordLength = 128
	minUsernameLength = 3
	maxUsernameLength = 120

	otpSentMessage = "OTP sent via email"
	timingDummy    = "timing-equalisation-password"
)

// AuthOptions carries the resolved security settings of the session manager.
// BypassSecondFactor and ExposeDebugOTP must already account for the
// environment; the service never looks at ENV itself.
type AuthOptions struct {
	AccessSecret       string
	RefreshSecret      string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	BypassSecondFactor bool
	ExposeDebugOTP     bool
	Lockout            domain.LockoutPolicy
	Now                func() time.Time
}

// AuthDeps are the collaborators of the session manager. Notifier and
// Revocations are optional.
type AuthDeps struct {
	Store       ports.Store
	Hasher      ports.PasswordHasher
	Codec       *token.Codec
	OTP         *OTPEngine
	Ledger      Ledger
	Notifier    ports.OTPNotifier
	Revocations ports.RevocationCache
}

// AuthService implements registration, login with second factor, token
// rotation and revocation.
type AuthService struct {
	deps AuthDeps
	opts AuthOptions
	log  zerolog.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(deps AuthDeps, opts AuthOptions, log zerolog.Logger) *AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.Lockout.Threshold <= 0 {
		opts.Lockout = domain.DefaultLockoutPolicy()
	}
	return &AuthService{deps: deps, opts: opts, log: log}
}

var _ ports.AuthService = (*AuthService)(nil)

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if err := validateRegistration(email, username, in.Password); err != nil {
		return nil, err
	}

	hash, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user := &domain.User{
		PublicID:     uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	}
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		_, err := s.deps.Ledger.Append(ctx, repos.Audit, nil, domain.ActionRegister, domain.TargetUser,
			domain.Details{"email": email})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// VerifyEmail marks the account verified. It reports false when no account
// uses email.
func (s *AuthService) VerifyEmail(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}

	var found bool
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		found = false
		user, err := repos.Users.FindByEmail(ctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		user.EmailVerified = true
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
		_, err = s.deps.Ledger.Append(ctx, repos.Audit, &user.ID, domain.ActionVerifyEmail, domain.TargetUser,
			domain.Details{"email": email})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("verify email: %w", err)
	}
	return found, nil
}

// Authenticate checks the password and either issues tokens (privileged
// bypass) or opens an OTP challenge.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*ports.LoginOutcome, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	var (
		outcome  *ports.LoginOutcome
		delivery *ports.OTPDelivery
		failure  error
	)
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		outcome, delivery, failure = nil, nil, nil

		user, err := repos.Users.FindByLogin(ctx, identifier)
		if errors.Is(err, domain.ErrNotFound) {
			s.deps.Hasher.Verify(password, s.timingDigest())
			failure = domain.ErrInvalidCredentials
			return nil
		}
		if err != nil {
			return err
		}

		now := s.opts.Now()
		if !s.deps.Hasher.Verify(password, user.PasswordHash) {
			locked := s.opts.Lockout.RecordFailure(user, now)
			if err := repos.Users.Update(ctx, user); err != nil {
				return err
			}
			if _, err := s.deps.Ledger.Append(ctx, repos.Audit, &user.ID, domain.ActionLoginFailed, domain.TargetUser,
				domain.Details{"failed_attempts": user.FailedLoginAttempts, "locked": locked}); err != nil {
				return err
			}
			failure = domain.ErrInvalidCredentials
			return nil
		}
		if s.opts.Lockout.Locked(user, now) {
			failure = domain.ErrAccountLocked
			return nil
		}
		if !user.Active {
			failure = domain.ErrForbidden
			return nil
		}
		if err := s.upgradeDigest(ctx, repos, user, password); err != nil {
			return err
		}

		if s.opts.BypassSecondFactor && user.Role.Privileged() {
			s.opts.Lockout.Reset(user)
			if err := repos.Users.Update(ctx, user); err != nil {
				return err
			}
			pair, _, err := s.issue(ctx, repos, user, domain.ActionAdminBypass2FA, nil)
			if err != nil {
				return err
			}
			outcome = &ports.LoginOutcome{Mode: ports.LoginModeTokens, Tokens: pair}
			return nil
		}

		code, ch, err := s.deps.OTP.Issue(ctx, repos.Challenges, user.ID)
		if err != nil {
			return err
		}
		if _, err := s.deps.Ledger.Append(ctx, repos.Audit, &user.ID, domain.ActionLoginChallenge, domain.TargetSession,
			domain.Details{"challenge_id": ch.ID}); err != nil {
			return err
		}
		delivery = &ports.OTPDelivery{
			UserID:    user.ID,
			Email:     user.Email,
			Username:  user.Username,
			Code:      code,
			ExpiresAt: ch.ExpiresAt,
		}
		outcome = &ports.LoginOutcome{Mode: ports.LoginModeOTPRequired, Message: otpSentMessage}
		if s.opts.ExposeDebugOTP {
			outcome.DebugCode = code
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if failure != nil {
		return nil, failure
	}

	if delivery != nil && s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(ctx, *delivery); err != nil {
			s.log.Warn().Err(err).Int64("user_id", delivery.UserID).Msg("otp delivery failed")
		}
	}
	return outcome, nil
}

// VerifySecondFactor answers the user's pending challenge and issues tokens.
func (s *AuthService) VerifySecondFactor(ctx context.Context, identifier, code string) (*ports.TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	code = strings.TrimSpace(code)
	if identifier == "" {
		return nil, domain.ErrOtpExpired
	}

	var (
		pair    *ports.TokenPair
		failure error
	)
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		pair, failure = nil, nil

		user, err := repos.Users.FindByLogin(ctx, identifier)
		if errors.Is(err, domain.ErrNotFound) {
			failure = domain.ErrOtpExpired
			return nil
		}
		if err != nil {
			return err
		}

		ch, err := s.deps.OTP.Verify(ctx, repos.Challenges, user.ID, code)
		switch {
		case errors.Is(err, domain.ErrOtpInvalid):
			if _, err := s.deps.Ledger.Append(ctx, repos.Audit, &user.ID, domain.ActionOTPFailed, domain.TargetSession,
				domain.Details{"challenge_id": ch.ID, "retries": ch.Retries}); err != nil {
				return err
			}
			failure = domain.ErrOtpInvalid
			return nil
		case errors.Is(err, domain.ErrOtpExpired), errors.Is(err, domain.ErrOtpRetryLimitExceeded):
			failure = err
			return nil
		case err != nil:
			return err
		}

		if !user.Active {
			return domain.ErrForbidden
		}
		s.opts.Lockout.Reset(user)
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
		pair, _, err = s.issue(ctx, repos, user, domain.ActionVerify2FA, domain.Details{"challenge_id": ch.ID})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("verify second factor: %w", err)
	}
	if failure != nil {
		return nil, failure
	}
	return pair, nil
}

// Refresh rotates a refresh token. Replaying a token whose session was
// already rotated revokes every live session of its owner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.deps.Codec.DecodeAs(refreshToken, s.opts.RefreshSecret, token.TypeRefresh)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	var (
		pair      *ports.TokenPair
		failure   error
		revokedAt []string
	)
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		pair, failure, revokedAt = nil, nil, nil

		sess, err := repos.Sessions.FindByRefreshJTI(ctx, claims.JTI)
		if errors.Is(err, domain.ErrNotFound) {
			failure = domain.ErrSessionRevoked
			return nil
		}
		if err != nil {
			return err
		}
		if sess.UserID != userID {
			failure = domain.ErrInvalidToken
			return nil
		}

		if sess.Revoked {
			revoked, err := repos.Sessions.RevokeAllForUser(ctx, sess.UserID)
			if err != nil {
				return err
			}
			for _, r := range revoked {
				revokedAt = append(revokedAt, r.AccessJTI)
			}
			if _, err := s.deps.Ledger.Append(ctx, repos.Audit, &sess.UserID, domain.ActionRefreshReuse, domain.TargetSession,
				domain.Details{"session_id": sess.ID, "revoked_sessions": len(revoked)}); err != nil {
				return err
			}
			failure = domain.ErrSessionRevoked
			return nil
		}

		ok, err := repos.Sessions.Revoke(ctx, sess.ID)
		if err != nil {
			return err
		}
		if !ok {
			failure = domain.ErrSessionRevoked
			return nil
		}

		user, err := repos.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.Active {
			return domain.ErrForbidden
		}

		pair, _, err = s.issue(ctx, repos, user, domain.ActionRefresh, domain.Details{"rotated_from": sess.ID})
		if err != nil {
			return err
		}
		revokedAt = append(revokedAt, sess.AccessJTI)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.markRevoked(ctx, revokedAt)
	if failure != nil {
		if errors.Is(failure, domain.ErrSessionRevoked) && len(revokedAt) > 0 {
			s.log.Warn().Int64("user_id", userID).Int("revoked_sessions", len(revokedAt)).
				Msg("refresh token reuse detected")
		}
		return nil, failure
	}
	return pair, nil
}

// Logout revokes every live session of the user. It is audited even when
// nothing was revoked.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	var revokedAt []string
	err := s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		revoked, err := repos.Sessions.RevokeAllForUser(ctx, userID)
		if err != nil {
			return err
		}
		revokedAt = revokedAt[:0]
		for _, r := range revoked {
			revokedAt = append(revokedAt, r.AccessJTI)
		}
		_, err = s.deps.Ledger.Append(ctx, repos.Audit, &userID, domain.ActionLogout, domain.TargetSession,
			domain.Details{"revoked_sessions": len(revoked)})
		return err
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.markRevoked(ctx, revokedAt)
	return nil
}

// Authorize resolves an access token to its principal. The role is read
// from the stored account so demotions apply immediately.
func (s *AuthService) Authorize(ctx context.Context, accessToken string) (*ports.Principal, error) {
	claims, err := s.deps.Codec.DecodeAs(accessToken, s.opts.AccessSecret, token.TypeAccess)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	if s.deps.Revocations != nil {
		revoked, err := s.deps.Revocations.IsRevoked(ctx, claims.JTI)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("revocation cache lookup failed, falling back to store")
		case revoked:
			return nil, domain.ErrSessionRevoked
		}
	}

	var principal *ports.Principal
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		sess, err := repos.Sessions.FindByAccessJTI(ctx, claims.JTI)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrSessionRevoked
		}
		if err != nil {
			return err
		}
		if sess.Revoked {
			return domain.ErrSessionRevoked
		}
		if sess.UserID != userID {
			return domain.ErrInvalidToken
		}

		user, err := repos.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.Active {
			return domain.ErrForbidden
		}
		principal = &ports.Principal{UserID: user.ID, Role: user.Role, User: user}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return principal, nil
}

// EnsureBootstrapUsers creates each seed account that does not exist yet.
// Seeds without an email or password are skipped.
func (s *AuthService) EnsureBootstrapUsers(ctx context.Context, seeds []ports.BootstrapSeed) error {
	for _, seed := range seeds {
		email := normalizeEmail(seed.Email)
		if email == "" || seed.Password == "" {
			continue
		}
		username := seed.Username
		if username == "" {
			username = strings.ToLower(string(seed.Role))
			if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
				username = local
			}
		}

		hash, err := s.deps.Hasher.Hash(seed.Password)
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", seed.Role, err)
		}

		var created *domain.User
		err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
			created = nil
			if _, err := repos.Users.FindByEmail(ctx, email); err == nil {
				return nil
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}

			u := &domain.User{
				PublicID:      uuid.NewString(),
				Email:         email,
				Username:      username,
				PasswordHash:  hash,
				EmailVerified: true,
				Role:          seed.Role,
				Active:        true,
			}
			if err := repos.Users.Create(ctx, u); err != nil {
				return err
			}
			if _, err := s.deps.Ledger.Append(ctx, repos.Audit, nil, domain.ActionBootstrapUser, domain.TargetUser,
				domain.Details{"email": email, "role": string(seed.Role)}); err != nil {
				return err
			}
			created = u
			return nil
		})
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", seed.Role, err)
		}
		if created != nil {
			s.log.Info().Int64("user_id", created.ID).Str("role", string(created.Role)).Msg("bootstrap user created")
		}
	}
	return nil
}

func (s *AuthService) issue(
	ctx context.Context,
	repos ports.Repositories,
	user *domain.User,
	action string,
	details domain.Details,
) (*ports.TokenPair, *domain.SessionToken, error) {
	subject := strconv.FormatInt(user.ID, 10)

	access, err := s.deps.Codec.Issue(subject, token.TypeAccess, s.opts.AccessTTL, s.opts.AccessSecret, token.RoleClaim(user.Role))
	if err != nil {
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.deps.Codec.Issue(subject, token.TypeRefresh, s.opts.RefreshTTL, s.opts.RefreshSecret, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("issue refresh token: %w", err)
	}

	sess := &domain.SessionToken{
		UserID:     user.ID,
		AccessJTI:  access.JTI,
		RefreshJTI: refresh.JTI,
		ExpiresAt:  refresh.ExpiresAt,
	}
	if err := repos.Sessions.Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	if details == nil {
		details = domain.Details{}
	}
	details["session_id"] = sess.ID
	if _, err := s.deps.Ledger.Append(ctx, repos.Audit, &user.ID, action, domain.TargetSession, details); err != nil {
		return nil, nil, err
	}

	return &ports.TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "bearer",
	}, sess, nil
}

// markRevoked pushes revoked access jtis to the cache. Failures only cost
// the fast path; the store already holds the revocation.
func (s *AuthService) markRevoked(ctx context.Context, jtis []string) {
	if s.deps.Revocations == nil {
		return
	}
	for _, jti := range jtis {
		if err := s.deps.Revocations.MarkRevoked(ctx, jti, s.opts.AccessTTL); err != nil {
			s.log.Warn().Err(err).Str("jti", jti).Msg("revocation cache write failed")
		}
	}
}

// upgradeDigest re-hashes password under the current parameters when the
// stored digest is weaker. A hashing failure keeps the old digest.
func (s *AuthService) upgradeDigest(ctx context.Context, repos ports.Repositories, user *domain.User, password string) error {
	if !s.deps.Hasher.NeedsRehash(user.PasswordHash) {
		return nil
	}
	digest, err := s.deps.Hasher.Hash(password)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("password rehash failed")
		return nil
	}
	user.PasswordHash = digest
	if err := repos.Users.Update(ctx, user); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", user.ID).Msg("password digest upgraded")
	return nil
}

func (s *AuthService) timingDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.deps.Hasher.Hash(timingDummy)
		if err != nil {
			s.log.Error().Err(err).Msg("timing digest unavailable")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(email, username, password string) error {
	local, domainPart, ok := strings.Cut(email, "@")
	switch {
	case !ok || local == "" || domainPart == "" || strings.Contains(domainPart, "@"):
		return fmt.Errorf("%w: email is not valid", domain.ErrInvalidInput)
	case len(username) < minUsernameLength || len(username) > maxUsernameLength:
		return fmt.Errorf("%w: username must be %d-%d characters", domain.ErrInvalidInput, minUsernameLength, maxUsernameLength)
	case len(password) < minPasswordLength || len(password) > maxPasswordLength:
		return fmt.Errorf("%w: password must be %d-%d characters", domain.ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	return nil
}
