package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type UserRepository struct {
	db DBTX
}

const userColumns = `id, public_user_id, email, username, password_hash, is_email_verified,
	role, is_active, failed_login_attempts, locked_until, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (public_user_id, email, username, password_hash, is_email_verified, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.PublicID, strings.ToLower(u.Email), u.Username, u.PasswordHash, u.EmailVerified, string(u.Role), u.Active,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

// FindByLogin prefers an email match and locks the row for the rest of the
// transaction so concurrent failures cannot lose counter updates.
func (r *UserRepository) FindByLogin(ctx context.Context, identifier string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE email = $1 OR username = $2
		ORDER BY (email = $1) DESC
		LIMIT 1
		FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.ToLower(identifier), identifier))
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET
			is_email_verified = $2,
			role = $3,
			is_active = $4,
			failed_login_attempts = $5,
			locked_until = $6,
			password_hash = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	var locked sql.NullTime
	if u.LockedUntil != nil {
		locked = sql.NullTime{Time: *u.LockedUntil, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.EmailVerified, string(u.Role), u.Active, u.FailedLoginAttempts, locked, u.PasswordHash,
	).Scan(&u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", notFound(err))
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*domain.User, error) {
	var (
		u      domain.User
		role   string
		locked sql.NullTime
	)
	err := row.Scan(&u.ID, &u.PublicID, &u.Email, &u.Username, &u.PasswordHash, &u.EmailVerified,
		&role, &u.Active, &u.FailedLoginAttempts, &locked, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", notFound(err))
	}
	u.Role = domain.Role(role)
	if locked.Valid {
		t := locked.Time.UTC()
		u.LockedUntil = &t
	}
	return &u, nil
}
