package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type SessionRepository struct {
	db DBTX
}

const sessionColumns = `id, user_id, token_jti, refresh_jti, revoked, expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.SessionToken, error) {
	var s domain.SessionToken
	if err := row.Scan(&s.ID, &s.UserID, &s.AccessJTI, &s.RefreshJTI, &s.Revoked, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.SessionToken) error {
	query := `INSERT INTO session_tokens (user_id, token_jti, refresh_jti, revoked, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.UserID, s.AccessJTI, s.RefreshJTI, s.Revoked, s.ExpiresAt).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByRefreshJTI(ctx context.Context, jti string) (*domain.SessionToken, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM session_tokens WHERE refresh_jti = $1`, jti))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", notFound(err))
	}
	return s, nil
}

func (r *SessionRepository) FindByAccessJTI(ctx context.Context, jti string) (*domain.SessionToken, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM session_tokens WHERE token_jti = $1`, jti))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", notFound(err))
	}
	return s, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_tokens SET revoked = TRUE, updated_at = now() WHERE id = $1 AND NOT revoked`, id)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return n == 1, nil
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID int64) ([]domain.SessionToken, error) {
	query := `UPDATE session_tokens SET revoked = TRUE, updated_at = now()
		WHERE user_id = $1 AND NOT revoked
		RETURNING ` + sessionColumns

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("revoke sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionToken
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

var _ rowScanner = (*sql.Row)(nil)
