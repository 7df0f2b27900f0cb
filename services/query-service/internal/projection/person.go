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

// Person is the local read model built from hr.person events.
type Person struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	HireDate     *time.Time `json:"hireDate,omitempty"`
	Active       bool       `json:"active"`
	LastUpdated  time.Time  `json:"lastUpdated"`
	EventVersion int64      `json:"eventVersion"`
}

// DecodePerson turns an envelope's data payload into the projection state to
// upsert. A null hireDate is a valid absent value, not an error.
func DecodePerson(env event.Envelope) (Person, error) {
	var data struct {
		Name     string  `json:"name"`
		Email    string  `json:"email"`
		HireDate *string `json:"hireDate"`
		Active   bool    `json:"active"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Person{}, fmt.Errorf("person payload: %w", err)
	}
	if data.Name == "" || data.Email == "" {
		return Person{}, fmt.Errorf("person payload: missing name or email")
	}

	var hireDate *time.Time
	if data.HireDate != nil {
		d, err := time.Parse("2006-01-02", *data.HireDate)
		if err != nil {
			return Person{}, fmt.Errorf("person payload: invalid hireDate %q: %w", *data.HireDate, err)
		}
		hireDate = &d
	}

	return Person{
		ID:       env.AggregateID,
		Name:     data.Name,
		Email:    data.Email,
		HireDate: hireDate,
		Active:   data.Active,
	}, nil
}

type PersonRepository struct {
	pool *db.Pool
}

func NewPersonRepository(pool *db.Pool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

// Upsert overwrites the projection with the event's snapshot, bumping
// event_version. Runs inside the consumer's transaction, alongside the
// processed-event insert.
func (r *PersonRepository) Upsert(ctx context.Context, tx pgx.Tx, p Person, updatedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO person_projections (id, name, email, hire_date, active, last_updated, event_version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			hire_date = EXCLUDED.hire_date,
			active = EXCLUDED.active,
			last_updated = EXCLUDED.last_updated,
			event_version = person_projections.event_version + 1
	`, p.ID, p.Name, p.Email, p.HireDate, p.Active, updatedAt)
	return err
}

func (r *PersonRepository) Get(ctx context.Context, id string) (*Person, error) {
	var p Person
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, hire_date, active, last_updated, event_version
		FROM person_projections WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Email, &p.HireDate, &p.Active, &p.LastUpdated, &p.EventVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PersonRepository) List(ctx context.Context) ([]Person, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, hire_date, active, last_updated, event_version
		FROM person_projections ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.HireDate, &p.Active, &p.LastUpdated, &p.EventVersion); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PersonRepository) LastUpdateTime(ctx context.Context) (*time.Time, error) {
	return lastUpdateTime(ctx, r.pool, "person_projections")
}

func (r *PersonRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.pool, "person_projections")
}
