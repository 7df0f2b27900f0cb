package employees

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/db"
	"github.com/avershov/hrstream/libs/outbox"
)

var ErrNotFound = errors.New("employee not found")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type employeeStore interface {
	Insert(ctx context.Context, tx pgx.Tx, e Employee) error
	Update(ctx context.Context, tx pgx.Tx, e Employee) error
	Get(ctx context.Context, id string) (*Employee, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Employee, error)
	List(ctx context.Context) ([]Employee, error)
}

type eventLedger interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

// Service owns employee mutations; each one commits the aggregate change and
// its outbox event atomically.
type Service struct {
	pool   txRunner
	repo   employeeStore
	outbox eventLedger
}

func NewService(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository) *Service {
	return &Service{pool: pool, repo: repo, outbox: outboxRepo}
}

type AssignInput struct {
	PersonID   string
	Title      string
	Department string
	Salary     float64
}

func (s *Service) Assign(ctx context.Context, input AssignInput) (Employee, error) {
	e := Employee{
		ID:         "emp-" + uuid.NewString()[:8],
		PersonID:   input.PersonID,
		Title:      input.Title,
		Department: input.Department,
		Salary:     input.Salary,
		Active:     true,
	}
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.Insert(ctx, tx, e); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, "EmployeeAssigned", e)
	})
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (s *Service) Promote(ctx context.Context, id, title string, salary float64) (Employee, error) {
	return s.mutate(ctx, id, "EmployeePromoted", func(e *Employee) {
		if title != "" {
			e.Title = title
		}
		if salary > 0 {
			e.Salary = salary
		}
	})
}

func (s *Service) Transfer(ctx context.Context, id, department string) (Employee, error) {
	return s.mutate(ctx, id, "EmployeeTransferred", func(e *Employee) {
		e.Department = department
	})
}

func (s *Service) Terminate(ctx context.Context, id string) (Employee, error) {
	return s.mutate(ctx, id, "EmployeeTerminated", func(e *Employee) {
		e.Active = false
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Employee, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

// mutate re-reads the employee under a row lock so concurrent mutations
// serialize rather than overwrite each other.
func (s *Service) mutate(ctx context.Context, id, eventType string, apply func(*Employee)) (Employee, error) {
	var result Employee
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		e, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrNotFound
		}
		apply(e)
		if err := s.repo.Update(ctx, tx, *e); err != nil {
			return err
		}
		result = *e
		return s.appendEvent(ctx, tx, eventType, *e)
	})
	if err != nil {
		return Employee{}, err
	}
	return result, nil
}

func (s *Service) appendEvent(ctx context.Context, tx pgx.Tx, eventType string, e Employee) error {
	evt, err := Envelope(eventType, e, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, evt)
}
