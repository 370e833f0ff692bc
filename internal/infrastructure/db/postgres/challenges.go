package postgres

import (
	"context"
	"fmt"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type ChallengeRepository struct {
	db DBTX
}

func (r *ChallengeRepository) FindPending(ctx context.Context, userID int64) (*domain.OTPChallenge, error) {
	query := `SELECT id, user_id, code_hash, expires_at, retries, status, created_at, updated_at
		FROM otp_challenges
		WHERE user_id = $1 AND status = 'PENDING'
		FOR UPDATE`

	var (
		c      domain.OTPChallenge
		status string
	)
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &c.Retries, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find pending challenge: %w", notFound(err))
	}
	c.Status = domain.OTPStatus(status)
	return &c, nil
}

func (r *ChallengeRepository) SupersedePending(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_challenges SET status = 'SUPERSEDED', updated_at = now() WHERE user_id = $1 AND status = 'PENDING'`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("supersede challenges: %w", err)
	}
	return res.RowsAffected()
}

func (r *ChallengeRepository) Create(ctx context.Context, c *domain.OTPChallenge) error {
	query := `INSERT INTO otp_challenges (user_id, code_hash, expires_at, retries, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, c.UserID, c.CodeHash, c.ExpiresAt, c.Retries, string(c.Status)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepository) Update(ctx context.Context, c *domain.OTPChallenge) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE otp_challenges SET status = $2, retries = $3, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		c.ID, string(c.Status), c.Retries,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update challenge: %w", notFound(err))
	}
	return nil
}
