package employees

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/outbox"
)

type fakeRunner struct{}

func (fakeRunner) WithTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeStore struct {
	employees   map[string]Employee
	lockedReads int
	plainReads  int
}

func (f *fakeStore) Insert(_ context.Context, _ pgx.Tx, e Employee) error {
	f.employees[e.ID] = e
	return nil
}

func (f *fakeStore) Update(_ context.Context, _ pgx.Tx, e Employee) error {
	f.employees[e.ID] = e
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Employee, error) {
	f.plainReads++
	e, ok := f.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeStore) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (*Employee, error) {
	f.lockedReads++
	e, ok := f.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeStore) List(_ context.Context) ([]Employee, error) {
	var out []Employee
	for _, e := range f.employees {
		out = append(out, e)
	}
	return out, nil
}

type fakeLedger struct {
	events []outbox.Event
}

func (f *fakeLedger) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func TestPromote_ReadsRowUnderLock(t *testing.T) {
	store := &fakeStore{employees: map[string]Employee{
		"emp-001": {ID: "emp-001", PersonID: "person-001", Title: "Engineer", Department: "Platform", Salary: 95000, Active: true},
	}}
	ledger := &fakeLedger{}
	svc := &Service{pool: fakeRunner{}, repo: store, outbox: ledger}

	promoted, err := svc.Promote(context.Background(), "emp-001", "Staff Engineer", 120000)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}

	// Mutations read through the row lock, never the pool, so concurrent
	// promote/transfer calls serialize instead of clobbering each other.
	if store.lockedReads != 1 || store.plainReads != 0 {
		t.Fatalf("reads locked=%d plain=%d, want 1/0", store.lockedReads, store.plainReads)
	}
	if promoted.Title != "Staff Engineer" || promoted.Salary != 120000 || promoted.Department != "Platform" {
		t.Fatalf("promote gave %+v", promoted)
	}
	if len(ledger.events) != 1 || ledger.events[0].EventType != "EmployeePromoted" {
		t.Fatalf("unexpected events %+v", ledger.events)
	}
}

func TestTransfer_MissingEmployeeReturnsNotFound(t *testing.T) {
	store := &fakeStore{employees: map[string]Employee{}}
	svc := &Service{pool: fakeRunner{}, repo: store, outbox: &fakeLedger{}}

	if _, err := svc.Transfer(context.Background(), "emp-zzz", "Compilers"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
