package people

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

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, p Person) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO persons (id, name, email, hire_date, active)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Name, p.Email, p.HireDate, p.Active)
	return err
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, p Person) error {
	_, err := tx.Exec(ctx, `
		UPDATE persons
		SET name = $2, email = $3, hire_date = $4, active = $5
		WHERE id = $1
	`, p.ID, p.Name, p.Email, p.HireDate, p.Active)
	return err
}

// Get returns nil when the person does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*Person, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, hire_date, active FROM persons WHERE id = $1
	`, id)
	return scanPerson(row)
}

// GetForUpdate reads within tx and locks the row until commit, so concurrent
// mutations of one person serialize instead of overwriting each other.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Person, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, name, email, hire_date, active FROM persons WHERE id = $1 FOR UPDATE
	`, id)
	return scanPerson(row)
}

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.HireDate, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) List(ctx context.Context) ([]Person, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, hire_date, active FROM persons ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.HireDate, &p.Active); err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}
