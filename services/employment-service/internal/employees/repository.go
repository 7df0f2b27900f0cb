package employees

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

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, e Employee) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO employees (id, person_id, title, department, salary, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.PersonID, e.Title, e.Department, e.Salary, e.Active)
	return err
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, e Employee) error {
	_, err := tx.Exec(ctx, `
		UPDATE employees
		SET title = $2, department = $3, salary = $4, active = $5
		WHERE id = $1
	`, e.ID, e.Title, e.Department, e.Salary, e.Active)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (*Employee, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, person_id, title, department, salary, active FROM employees WHERE id = $1
	`, id)
	return scanEmployee(row)
}

// GetForUpdate reads within tx and locks the row until commit, so concurrent
// mutations of one employee serialize instead of overwriting each other.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Employee, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, person_id, title, department, salary, active FROM employees WHERE id = $1 FOR UPDATE
	`, id)
	return scanEmployee(row)
}

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.PersonID, &e.Title, &e.Department, &e.Salary, &e.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, title, department, salary, active FROM employees ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.PersonID, &e.Title, &e.Department, &e.Salary, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
