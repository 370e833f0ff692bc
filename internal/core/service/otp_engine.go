package service

import (
	"context"
	"fmt"
	"time"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

// OTPEngine runs the second-factor challenge state machine against the
// challenge repository of the caller's unit of work.
type OTPEngine struct {
	ttl        time.Duration
	maxRetries int
	now        func() time.Time
}

func NewOTPEngine(ttl time.Duration, maxRetries int, now func() time.Time) *OTPEngine {
	if ttl <= 0 {
		ttl = domain.DefaultOTPTTL
	}
	if maxRetries <= 0 {
		maxRetries = domain.DefaultOTPRetryCap
	}
	if now == nil {
		now = time.Now
	}
	return &OTPEngine{ttl: ttl, maxRetries: maxRetries, now: now}
}

// Issue supersedes any pending challenge of the user and stores a fresh one.
// The plaintext code is returned once and never persisted.
func (e *OTPEngine) Issue(ctx context.Context, repo ports.ChallengeRepository, userID int64) (string, *domain.OTPChallenge, error) {
	if _, err := repo.SupersedePending(ctx, userID); err != nil {
		return "", nil, fmt.Errorf("supersede challenges: %w", err)
	}

	code, err := domain.GenerateOTPCode()
	if err != nil {
		return "", nil, err
	}
	ch := &domain.OTPChallenge{
		UserID:    userID,
		CodeHash:  domain.HashOTPCode(code),
		ExpiresAt: e.now().UTC().Add(e.ttl),
		Status:    domain.OTPStatusPending,
	}
	if err := repo.Create(ctx, ch); err != nil {
		return "", nil, fmt.Errorf("create challenge: %w", err)
	}
	return code, ch, nil
}

// Verify checks code against the user's pending challenge. A mismatch
// persists the incremented retry counter and returns domain.ErrOtpInvalid,
// so the caller must commit before surfacing the error.
func (e *OTPEngine) Verify(ctx context.Context, repo ports.ChallengeRepository, userID int64, code string) (*domain.OTPChallenge, error) {
	ch, err := repo.FindPending(ctx, userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.ErrOtpExpired
		}
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	if ch.Expired(e.now()) {
		return ch, domain.ErrOtpExpired
	}
	if ch.Retries >= e.maxRetries {
		return ch, domain.ErrOtpRetryLimitExceeded
	}

	if !domain.OTPCodeMatches(ch.CodeHash, code) {
		ch.Retries++
		if err := repo.Update(ctx, ch); err != nil {
			return nil, fmt.Errorf("record otp retry: %w", err)
		}
		return ch, domain.ErrOtpInvalid
	}

	ch.Status = domain.OTPStatusVerified
	if err := repo.Update(ctx, ch); err != nil {
		return nil, fmt.Errorf("mark challenge verified: %w", err)
	}
	return ch, nil
}
