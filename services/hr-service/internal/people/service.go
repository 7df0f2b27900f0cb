package people

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/db"
	"github.com/avershov/hrstream/libs/outbox"
)

var ErrNotFound = errors.New("person not found")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type personStore interface {
	Insert(ctx context.Context, tx pgx.Tx, p Person) error
	Update(ctx context.Context, tx pgx.Tx, p Person) error
	Get(ctx context.Context, id string) (*Person, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Person, error)
	List(ctx context.Context) ([]Person, error)
}

type eventLedger interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

// Service owns person mutations. Every mutation inserts the aggregate change
// and its outbox event in one transaction, so either both commit or neither.
type Service struct {
	pool   txRunner
	repo   personStore
	outbox eventLedger
}

func NewService(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository) *Service {
	return &Service{pool: pool, repo: repo, outbox: outboxRepo}
}

type CreateInput struct {
	Name     string
	Email    string
	HireDate *time.Time
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Person, error) {
	p := Person{
		ID:       "person-" + uuid.NewString()[:8],
		Name:     input.Name,
		Email:    input.Email,
		HireDate: input.HireDate,
		Active:   true,
	}
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.Insert(ctx, tx, p); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, "PersonCreated", p)
	})
	if err != nil {
		return Person{}, err
	}
	return p, nil
}

// Update applies a partial update; empty fields keep their current value.
// The read locks the row so concurrent updates serialize.
func (s *Service) Update(ctx context.Context, id, name, email string) (Person, error) {
	var updated Person
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		p, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		if name != "" {
			p.Name = name
		}
		if email != "" {
			p.Email = email
		}
		if err := s.repo.Update(ctx, tx, *p); err != nil {
			return err
		}
		updated = *p
		return s.appendEvent(ctx, tx, "PersonUpdated", *p)
	})
	if err != nil {
		return Person{}, err
	}
	return updated, nil
}

// Terminate deactivates the person rather than deleting the row, so the
// projection side sees a regular state change.
func (s *Service) Terminate(ctx context.Context, id string) (Person, error) {
	var terminated Person
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		p, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		p.Active = false
		if err := s.repo.Update(ctx, tx, *p); err != nil {
			return err
		}
		terminated = *p
		return s.appendEvent(ctx, tx, "PersonTerminated", *p)
	})
	if err != nil {
		return Person{}, err
	}
	return terminated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Person, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Person, error) {
	return s.repo.List(ctx)
}

func (s *Service) appendEvent(ctx context.Context, tx pgx.Tx, eventType string, p Person) error {
	evt, err := Envelope(eventType, p, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, evt)
}
