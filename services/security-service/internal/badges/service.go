package badges

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/db"
	"github.com/avershov/hrstream/libs/outbox"
)

var ErrNotFound = errors.New("badge not found")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type badgeStore interface {
	Insert(ctx context.Context, tx pgx.Tx, b Badge) error
	Update(ctx context.Context, tx pgx.Tx, b Badge) error
	Get(ctx context.Context, id string) (*Badge, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Badge, error)
	List(ctx context.Context) ([]Badge, error)
}

type eventLedger interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Service struct {
	pool   txRunner
	repo   badgeStore
	outbox eventLedger
}

func NewService(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository) *Service {
	return &Service{pool: pool, repo: repo, outbox: outboxRepo}
}

type ProvisionInput struct {
	PersonID    string
	AccessLevel string
	Clearance   string
}

func (s *Service) Provision(ctx context.Context, input ProvisionInput) (Badge, error) {
	suffix := uuid.NewString()[:8]
	b := Badge{
		ID:          "badge-" + suffix,
		PersonID:    input.PersonID,
		BadgeNumber: "B-" + strings.ToUpper(suffix),
		AccessLevel: input.AccessLevel,
		Clearance:   input.Clearance,
		Active:      true,
	}
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.Insert(ctx, tx, b); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, "BadgeProvisioned", b)
	})
	if err != nil {
		return Badge{}, err
	}
	return b, nil
}

func (s *Service) ChangeAccessLevel(ctx context.Context, id, accessLevel string) (Badge, error) {
	return s.mutate(ctx, id, "AccessLevelChanged", func(b *Badge) {
		b.AccessLevel = accessLevel
	})
}

func (s *Service) ChangeClearance(ctx context.Context, id, clearance string) (Badge, error) {
	return s.mutate(ctx, id, "ClearanceChanged", func(b *Badge) {
		b.Clearance = clearance
	})
}

func (s *Service) Revoke(ctx context.Context, id string) (Badge, error) {
	return s.mutate(ctx, id, "BadgeRevoked", func(b *Badge) {
		b.Active = false
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Badge, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Badge, error) {
	return s.repo.List(ctx)
}

// mutate re-reads the badge under a row lock so concurrent mutations
// serialize rather than overwrite each other.
func (s *Service) mutate(ctx context.Context, id, eventType string, apply func(*Badge)) (Badge, error) {
	var result Badge
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		b, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNotFound
		}
		apply(b)
		if err := s.repo.Update(ctx, tx, *b); err != nil {
			return err
		}
		result = *b
		return s.appendEvent(ctx, tx, eventType, *b)
	})
	if err != nil {
		return Badge{}, err
	}
	return result, nil
}

func (s *Service) appendEvent(ctx context.Context, tx pgx.Tx, eventType string, b Badge) error {
	evt, err := Envelope(eventType, b, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, evt)
}
