package postgres

import (
	"context"
	"fmt"

	"github.com/agent007moss/MLT/internal/core/domain"
)

type CardRepository struct {
	db DBTX
}

const cardColumns = `id, key, title, description, active, created_at, updated_at`

func (r *CardRepository) List(ctx context.Context) ([]*domain.DashboardCard, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM dashboard_card_definitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.DashboardCard
	for rows.Next() {
		var c domain.DashboardCard
		if err := rows.Scan(&c.ID, &c.Key, &c.Title, &c.Description, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, &c)
	}
	return cards, rows.Err()
}

func (r *CardRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM dashboard_card_definitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

func (r *CardRepository) FindByID(ctx context.Context, id int64) (*domain.DashboardCard, error) {
	var c domain.DashboardCard
	err := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM dashboard_card_definitions WHERE id = $1 FOR UPDATE`, id).
		Scan(&c.ID, &c.Key, &c.Title, &c.Description, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find card: %w", notFound(err))
	}
	return &c, nil
}

func (r *CardRepository) Create(ctx context.Context, c *domain.DashboardCard) error {
	query := `INSERT INTO dashboard_card_definitions (key, title, description, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, c.Key, c.Title, c.Description, c.Active).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (r *CardRepository) Update(ctx context.Context, c *domain.DashboardCard) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE dashboard_card_definitions SET title = $2, description = $3, active = $4, updated_at = now()
		WHERE id = $1 RETURNING updated_at`,
		c.ID, c.Title, c.Description, c.Active,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update card: %w", notFound(err))
	}
	return nil
}

func (r *CardRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dashboard_card_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type LayoutRepository struct {
	db DBTX
}

func (r *LayoutRepository) ListForUser(ctx context.Context, userID int64) ([]domain.CardPreference, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, card_key, order_index, visible FROM user_dashboard_preferences
		WHERE user_id = $1 ORDER BY order_index, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list layout: %w", err)
	}
	defer rows.Close()

	var prefs []domain.CardPreference
	for rows.Next() {
		var p domain.CardPreference
		if err := rows.Scan(&p.UserID, &p.CardKey, &p.OrderIndex, &p.Visible); err != nil {
			return nil, fmt.Errorf("scan layout: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

func (r *LayoutRepository) Replace(ctx context.Context, userID int64, prefs []domain.CardPreference) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_dashboard_preferences WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear layout: %w", err)
	}
	for _, p := range prefs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO user_dashboard_preferences (user_id, card_key, order_index, visible) VALUES ($1, $2, $3, $4)`,
			userID, p.CardKey, p.OrderIndex, p.Visible)
		if err != nil {
			return fmt.Errorf("insert layout entry: %w", err)
		}
	}
	return nil
}
