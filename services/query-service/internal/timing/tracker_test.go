package timing

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func sample(id string) Propagation {
	base := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	return Calculate(id, "PersonCreated", base, base.Add(40*time.Millisecond), base.Add(55*time.Millisecond))
}

func TestCalculate(t *testing.T) {
	p := sample("person-001")
	if p.OutboxToBrokerMs != 40 {
		t.Fatalf("outboxToBrokerMs = %d, want 40", p.OutboxToBrokerMs)
	}
	if p.ConsumerToProjectionMs != 15 {
		t.Fatalf("consumerToProjectionMs = %d, want 15", p.ConsumerToProjectionMs)
	}
	if p.TotalMs != 55 {
		t.Fatalf("totalMs = %d, want 55", p.TotalMs)
	}
}

func TestTracker_OverwritesByEntity(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(sample("person-001"))

	next := sample("person-001")
	next.EventType = "PersonUpdated"
	tr.Record(next)

	if tr.Len() != 1 {
		t.Fatalf("len = %d, want 1", tr.Len())
	}
	got, ok := tr.Get("person-001")
	if !ok || got.EventType != "PersonUpdated" {
		t.Fatalf("expected latest record, got %+v ok=%v", got, ok)
	}
}

func TestTracker_GetMissing(t *testing.T) {
	tr := NewTracker(10)
	if _, ok := tr.Get("nope"); ok {
		t.Fatal("expected miss")
	}
}

func TestTracker_EvictsOldestHalfAtCapacity(t *testing.T) {
	tr := NewTracker(4)
	for i := 0; i < 4; i++ {
		tr.Record(sample(fmt.Sprintf("person-%03d", i)))
	}

	tr.Record(sample("person-new"))

	if tr.Len() != 3 {
		t.Fatalf("len = %d, want 3 after evicting oldest half", tr.Len())
	}
	for _, evicted := range []string{"person-000", "person-001"} {
		if _, ok := tr.Get(evicted); ok {
			t.Fatalf("%s should have been evicted", evicted)
		}
	}
	for _, kept := range []string{"person-002", "person-003", "person-new"} {
		if _, ok := tr.Get(kept); !ok {
			t.Fatalf("%s should have been kept", kept)
		}
	}
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(sample("person-001"))

	snap := tr.Snapshot()
	delete(snap, "person-001")

	if _, ok := tr.Get("person-001"); !ok {
		t.Fatal("mutating the snapshot must not affect the tracker")
	}
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	tr := NewTracker(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				tr.Record(sample(fmt.Sprintf("entity-%d-%d", g, i%32)))
				tr.Get(fmt.Sprintf("entity-%d-%d", g, i%32))
			}
		}(g)
	}
	wg.Wait()

	if tr.Len() > 64 {
		t.Fatalf("tracker exceeded capacity: %d", tr.Len())
	}
}
