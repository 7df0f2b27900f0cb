package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/db"
	"github.com/avershov/hrstream/libs/event"
)

// Badge is the local read model built from security.badge events.
type Badge struct {
	ID           string    `json:"id"`
	PersonID     string    `json:"personId"`
	BadgeNumber  string    `json:"badgeNumber"`
	AccessLevel  string    `json:"accessLevel"`
	Clearance    string    `json:"clearance"`
	Active       bool      `json:"active"`
	LastUpdated  time.Time `json:"lastUpdated"`
	EventVersion int64     `json:"eventVersion"`
}

func DecodeBadge(env event.Envelope) (Badge, error) {
	var data struct {
		PersonID    string `json:"personId"`
		BadgeNumber string `json:"badgeNumber"`
		AccessLevel string `json:"accessLevel"`
		Clearance   string `json:"clearance"`
		Active      bool   `json:"active"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Badge{}, fmt.Errorf("badge payload: %w", err)
	}
	if data.PersonID == "" {
		return Badge{}, fmt.Errorf("badge payload: missing personId")
	}
	return Badge{
		ID:          env.AggregateID,
		PersonID:    data.PersonID,
		BadgeNumber: data.BadgeNumber,
		AccessLevel: data.AccessLevel,
		Clearance:   data.Clearance,
		Active:      data.Active,
	}, nil
}

type BadgeRepository struct {
	pool *db.Pool
}

func NewBadgeRepository(pool *db.Pool) *BadgeRepository {
	return &BadgeRepository{pool: pool}
}

func (r *BadgeRepository) Upsert(ctx context.Context, tx pgx.Tx, b Badge, updatedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO badge_projections (id, person_id, badge_number, access_level, clearance, active, last_updated, event_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (id) DO UPDATE SET
			person_id = EXCLUDED.person_id,
			badge_number = EXCLUDED.badge_number,
			access_level = EXCLUDED.access_level,
			clearance = EXCLUDED.clearance,
			active = EXCLUDED.active,
			last_updated = EXCLUDED.last_updated,
			event_version = badge_projections.event_version + 1
	`, b.ID, b.PersonID, b.BadgeNumber, b.AccessLevel, b.Clearance, b.Active, updatedAt)
	return err
}

func (r *BadgeRepository) Get(ctx context.Context, id string) (*Badge, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, person_id, badge_number, access_level, clearance, active, last_updated, event_version
		FROM badge_projections WHERE id = $1
	`, id))
}

func (r *BadgeRepository) GetByPersonID(ctx context.Context, personID string) (*Badge, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, person_id, badge_number, access_level, clearance, active, last_updated, event_version
		FROM badge_projections WHERE person_id = $1
		ORDER BY last_updated DESC LIMIT 1
	`, personID))
}

func (r *BadgeRepository) scanOne(row pgx.Row) (*Badge, error) {
	var b Badge
	err := row.Scan(&b.ID, &b.PersonID, &b.BadgeNumber, &b.AccessLevel, &b.Clearance, &b.Active, &b.LastUpdated, &b.EventVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BadgeRepository) List(ctx context.Context) ([]Badge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, badge_number, access_level, clearance, active, last_updated, event_version
		FROM badge_projections ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.PersonID, &b.BadgeNumber, &b.AccessLevel, &b.Clearance, &b.Active, &b.LastUpdated, &b.EventVersion); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BadgeRepository) LastUpdateTime(ctx context.Context) (*time.Time, error) {
	return lastUpdateTime(ctx, r.pool, "badge_projections")
}

func (r *BadgeRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.pool, "badge_projections")
}
