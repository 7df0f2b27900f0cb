package badges

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, b Badge) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO badges (id, person_id, badge_number, access_level, clearance, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.PersonID, b.BadgeNumber, b.AccessLevel, b.Clearance, b.Active)
	return err
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, b Badge) error {
	_, err := tx.Exec(ctx, `
		UPDATE badges
		SET access_level = $2, clearance = $3, active = $4
		WHERE id = $1
	`, b.ID, b.AccessLevel, b.Clearance, b.Active)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (*Badge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, person_id, badge_number, access_level, clearance, active FROM badges WHERE id = $1
	`, id)
	return scanBadge(row)
}

// GetForUpdate reads within tx and locks the row until commit, so concurrent
// mutations of one badge serialize instead of overwriting each other.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Badge, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, person_id, badge_number, access_level, clearance, active FROM badges WHERE id = $1 FOR UPDATE
	`, id)
	return scanBadge(row)
}

func scanBadge(row pgx.Row) (*Badge, error) {
	var b Badge
	err := row.Scan(&b.ID, &b.PersonID, &b.BadgeNumber, &b.AccessLevel, &b.Clearance, &b.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) List(ctx context.Context) ([]Badge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, badge_number, access_level, clearance, active FROM badges ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.PersonID, &b.BadgeNumber, &b.AccessLevel, &b.Clearance, &b.Active); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
