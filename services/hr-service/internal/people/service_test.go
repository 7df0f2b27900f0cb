package people

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avershov/hrstream/libs/outbox"
)

type fakeRunner struct{}

func (fakeRunner) WithTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeStore struct {
	persons     map[string]Person
	lockedReads int
	plainReads  int
}

func (f *fakeStore) Insert(_ context.Context, _ pgx.Tx, p Person) error {
	f.persons[p.ID] = p
	return nil
}

func (f *fakeStore) Update(_ context.Context, _ pgx.Tx, p Person) error {
	if _, ok := f.persons[p.ID]; !ok {
		return errors.New("update of missing row")
	}
	f.persons[p.ID] = p
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Person, error) {
	f.plainReads++
	p, ok := f.persons[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (*Person, error) {
	f.lockedReads++
	p, ok := f.persons[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) List(_ context.Context) ([]Person, error) {
	var out []Person
	for _, p := range f.persons {
		out = append(out, p)
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

func newTestService(store *fakeStore) (*Service, *fakeLedger) {
	ledger := &fakeLedger{}
	return &Service{pool: fakeRunner{}, repo: store, outbox: ledger}, ledger
}

func TestUpdate_ReadsRowUnderLockAndMergesFields(t *testing.T) {
	hired := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{persons: map[string]Person{
		"person-001": {ID: "person-001", Name: "Ada", Email: "ada@example.com", HireDate: &hired, Active: true},
	}}
	svc, ledger := newTestService(store)

	updated, err := svc.Update(context.Background(), "person-001", "Ada Lovelace", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// The mutation must read through the transaction's row lock, never the
	// pool, or two concurrent updates could both start from the same base row.
	if store.lockedReads != 1 {
		t.Fatalf("locked reads = %d, want 1", store.lockedReads)
	}
	if store.plainReads != 0 {
		t.Fatalf("plain reads during mutation = %d, want 0", store.plainReads)
	}

	if updated.Name != "Ada Lovelace" || updated.Email != "ada@example.com" {
		t.Fatalf("partial update gave %+v", updated)
	}
	if got := store.persons["person-001"]; got.Name != "Ada Lovelace" || got.HireDate == nil {
		t.Fatalf("stored row %+v lost fields", got)
	}
	if len(ledger.events) != 1 || ledger.events[0].EventType != "PersonUpdated" {
		t.Fatalf("unexpected events %+v", ledger.events)
	}
}

func TestTerminate_DeactivatesUnderLock(t *testing.T) {
	store := &fakeStore{persons: map[string]Person{
		"person-002": {ID: "person-002", Name: "Grace", Email: "grace@example.com", Active: true},
	}}
	svc, ledger := newTestService(store)

	terminated, err := svc.Terminate(context.Background(), "person-002")
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if terminated.Active {
		t.Fatal("terminated person still active")
	}
	if store.lockedReads != 1 || store.plainReads != 0 {
		t.Fatalf("reads locked=%d plain=%d, want 1/0", store.lockedReads, store.plainReads)
	}
	if len(ledger.events) != 1 || ledger.events[0].EventType != "PersonTerminated" {
		t.Fatalf("unexpected events %+v", ledger.events)
	}
}

func TestUpdate_MissingPersonReturnsNotFound(t *testing.T) {
	store := &fakeStore{persons: map[string]Person{}}
	svc, ledger := newTestService(store)

	if _, err := svc.Update(context.Background(), "person-zzz", "X", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(ledger.events) != 0 {
		t.Fatalf("no event expected, got %+v", ledger.events)
	}
}
