package compose

import (
	"context"
	"time"

	"github.com/avershov/hrstream/services/query-service/internal/projection"
)

// Readers are the projection lookups the composed view needs. Everything is
// local: composing never leaves this service's database.
type PersonReader interface {
	Get(ctx context.Context, id string) (*projection.Person, error)
}

type EmployeeReader interface {
	GetByPersonID(ctx context.Context, personID string) (*projection.Employee, error)
}

type BadgeReader interface {
	GetByPersonID(ctx context.Context, personID string) (*projection.Badge, error)
}

// View joins everything known about a person. Employee and Badge are nil when
// the corresponding projection has nothing for this person; a partial
// composition is a valid answer, not an error.
type View struct {
	Person    *projection.Person   `json:"person"`
	Employee  *projection.Employee `json:"employee"`
	Badge     *projection.Badge    `json:"badge"`
	Freshness ViewFreshness        `json:"freshness"`
}

type ViewFreshness struct {
	PersonLastUpdated   *time.Time `json:"personLastUpdated"`
	EmployeeLastUpdated *time.Time `json:"employeeLastUpdated"`
	BadgeLastUpdated    *time.Time `json:"badgeLastUpdated"`
	MaxLagMs            int64      `json:"maxLagMs"`
	DataFreshness       string     `json:"dataFreshness"`
}

type Service struct {
	persons   PersonReader
	employees EmployeeReader
	badges    BadgeReader
}

func NewService(persons PersonReader, employees EmployeeReader, badges BadgeReader) *Service {
	return &Service{persons: persons, employees: employees, badges: badges}
}

// ComposedView answers from local projections only. It returns nil when the
// primary person projection is absent; missing secondaries leave their fields
// nil and are excluded from the lag computation.
func (s *Service) ComposedView(ctx context.Context, personID string, now time.Time) (*View, error) {
	person, err := s.persons.Get(ctx, personID)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, nil
	}

	employee, err := s.employees.GetByPersonID(ctx, personID)
	if err != nil {
		return nil, err
	}
	badge, err := s.badges.GetByPersonID(ctx, personID)
	if err != nil {
		return nil, err
	}

	freshness := ViewFreshness{PersonLastUpdated: &person.LastUpdated}
	lastUpdates := []*time.Time{&person.LastUpdated}
	if employee != nil {
		freshness.EmployeeLastUpdated = &employee.LastUpdated
		lastUpdates = append(lastUpdates, &employee.LastUpdated)
	}
	if badge != nil {
		freshness.BadgeLastUpdated = &badge.LastUpdated
		lastUpdates = append(lastUpdates, &badge.LastUpdated)
	}
	freshness.MaxLagMs = MaxLag(now, lastUpdates...)
	freshness.DataFreshness = FormatLag(freshness.MaxLagMs)

	return &View{
		Person:    person,
		Employee:  employee,
		Badge:     badge,
		Freshness: freshness,
	}, nil
}
