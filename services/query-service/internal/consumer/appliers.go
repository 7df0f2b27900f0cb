package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/event"
	"github.com/avershov/hrstream/services/query-service/internal/projection"
)

type PersonApplier struct {
	Repo *projection.PersonRepository
}

func (a PersonApplier) IDField() string  { return "personId" }
func (a PersonApplier) IDPrefix() string { return "person" }

func (a PersonApplier) Apply(ctx context.Context, tx pgx.Tx, env event.Envelope, updatedAt time.Time) error {
	p, err := projection.DecodePerson(env)
	if err != nil {
		return err
	}
	return a.Repo.Upsert(ctx, tx, p, updatedAt)
}

type EmployeeApplier struct {
	Repo *projection.EmployeeRepository
}

func (a EmployeeApplier) IDField() string  { return "employeeId" }
func (a EmployeeApplier) IDPrefix() string { return "employee" }

func (a EmployeeApplier) Apply(ctx context.Context, tx pgx.Tx, env event.Envelope, updatedAt time.Time) error {
	e, err := projection.DecodeEmployee(env)
	if err != nil {
		return err
	}
	return a.Repo.Upsert(ctx, tx, e, updatedAt)
}

type BadgeApplier struct {
	Repo *projection.BadgeRepository
}

func (a BadgeApplier) IDField() string  { return "badgeId" }
func (a BadgeApplier) IDPrefix() string { return "badge" }

func (a BadgeApplier) Apply(ctx context.Context, tx pgx.Tx, env event.Envelope, updatedAt time.Time) error {
	b, err := projection.DecodeBadge(env)
	if err != nil {
		return err
	}
	return a.Repo.Upsert(ctx, tx, b, updatedAt)
}
