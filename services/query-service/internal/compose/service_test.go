package compose

import (
	"context"
	"testing"
	"time"

	"github.com/avershov/hrstream/services/query-service/internal/projection"
)

type fakePersons struct{ p *projection.Person }

func (f fakePersons) Get(context.Context, string) (*projection.Person, error) { return f.p, nil }

type fakeEmployees struct{ e *projection.Employee }

func (f fakeEmployees) GetByPersonID(context.Context, string) (*projection.Employee, error) {
	return f.e, nil
}

type fakeBadges struct{ b *projection.Badge }

func (f fakeBadges) GetByPersonID(context.Context, string) (*projection.Badge, error) {
	return f.b, nil
}

func TestComposedView_PrimaryMissing(t *testing.T) {
	svc := NewService(fakePersons{}, fakeEmployees{}, fakeBadges{})
	view, err := svc.ComposedView(context.Background(), "person-404", time.Now())
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if view != nil {
		t.Fatalf("expected nil view for missing primary, got %+v", view)
	}
}

func TestComposedView_PartialComposition(t *testing.T) {
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	personUpdated := now.Add(-2 * time.Second)
	person := &projection.Person{ID: "person-001", Name: "Ada", Email: "ada@example.com", Active: true,
		LastUpdated: personUpdated, EventVersion: 3}

	svc := NewService(fakePersons{p: person}, fakeEmployees{}, fakeBadges{})
	view, err := svc.ComposedView(context.Background(), "person-001", now)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if view == nil || view.Person == nil {
		t.Fatal("expected primary fields populated")
	}
	if view.Employee != nil || view.Badge != nil {
		t.Fatal("absent secondaries must stay nil")
	}
	// Lag comes from the only present projection.
	if view.Freshness.MaxLagMs != 2000 {
		t.Fatalf("maxLagMs = %d, want 2000", view.Freshness.MaxLagMs)
	}
	if view.Freshness.EmployeeLastUpdated != nil || view.Freshness.BadgeLastUpdated != nil {
		t.Fatal("absent projections must not report last-updated times")
	}
}

func TestComposedView_MaxLagAcrossSources(t *testing.T) {
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	person := &projection.Person{ID: "person-001", Name: "Ada", Email: "ada@example.com",
		LastUpdated: now.Add(-100 * time.Millisecond)}
	employee := &projection.Employee{ID: "emp-1", PersonID: "person-001", Title: "Engineer",
		LastUpdated: now.Add(-30 * time.Second)}
	badge := &projection.Badge{ID: "badge-1", PersonID: "person-001", BadgeNumber: "B-1",
		LastUpdated: now.Add(-1 * time.Second)}

	svc := NewService(fakePersons{p: person}, fakeEmployees{e: employee}, fakeBadges{b: badge})
	view, err := svc.ComposedView(context.Background(), "person-001", now)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if view.Freshness.MaxLagMs != 30_000 {
		t.Fatalf("maxLagMs = %d, want 30000", view.Freshness.MaxLagMs)
	}
	if view.Freshness.DataFreshness != "30.0s" {
		t.Fatalf("dataFreshness = %q", view.Freshness.DataFreshness)
	}
}
