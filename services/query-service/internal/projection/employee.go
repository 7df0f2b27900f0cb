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

// Employee is the local read model built from employment.employee events.
type Employee struct {
	ID           string    `json:"id"`
	PersonID     string    `json:"personId"`
	Title        string    `json:"title"`
	Department   string    `json:"department"`
	Salary       float64   `json:"salary"`
	Active       bool      `json:"active"`
	LastUpdated  time.Time `json:"lastUpdated"`
	EventVersion int64     `json:"eventVersion"`
}

func DecodeEmployee(env event.Envelope) (Employee, error) {
	var data struct {
		PersonID   string  `json:"personId"`
		Title      string  `json:"title"`
		Department string  `json:"department"`
		Salary     float64 `json:"salary"`
		Active     bool    `json:"active"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Employee{}, fmt.Errorf("employee payload: %w", err)
	}
	if data.PersonID == "" {
		return Employee{}, fmt.Errorf("employee payload: missing personId")
	}
	return Employee{
		ID:         env.AggregateID,
		PersonID:   data.PersonID,
		Title:      data.Title,
		Department: data.Department,
		Salary:     data.Salary,
		Active:     data.Active,
	}, nil
}

type EmployeeRepository struct {
	pool *db.Pool
}

func NewEmployeeRepository(pool *db.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) Upsert(ctx context.Context, tx pgx.Tx, e Employee, updatedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO employee_projections (id, person_id, title, department, salary, active, last_updated, event_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (id) DO UPDATE SET
			person_id = EXCLUDED.person_id,
			title = EXCLUDED.title,
			department = EXCLUDED.department,
			salary = EXCLUDED.salary,
			active = EXCLUDED.active,
			last_updated = EXCLUDED.last_updated,
			event_version = employee_projections.event_version + 1
	`, e.ID, e.PersonID, e.Title, e.Department, e.Salary, e.Active, updatedAt)
	return err
}

func (r *EmployeeRepository) Get(ctx context.Context, id string) (*Employee, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, person_id, title, department, salary, active, last_updated, event_version
		FROM employee_projections WHERE id = $1
	`, id))
}

// GetByPersonID resolves the foreign reference used by the composed view.
func (r *EmployeeRepository) GetByPersonID(ctx context.Context, personID string) (*Employee, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, person_id, title, department, salary, active, last_updated, event_version
		FROM employee_projections WHERE person_id = $1
		ORDER BY last_updated DESC LIMIT 1
	`, personID))
}

func (r *EmployeeRepository) scanOne(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.PersonID, &e.Title, &e.Department, &e.Salary, &e.Active, &e.LastUpdated, &e.EventVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EmployeeRepository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, title, department, salary, active, last_updated, event_version
		FROM employee_projections ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.PersonID, &e.Title, &e.Department, &e.Salary, &e.Active, &e.LastUpdated, &e.EventVersion); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EmployeeRepository) LastUpdateTime(ctx context.Context) (*time.Time, error) {
	return lastUpdateTime(ctx, r.pool, "employee_projections")
}

func (r *EmployeeRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.pool, "employee_projections")
}
