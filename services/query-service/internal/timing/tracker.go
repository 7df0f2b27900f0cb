package timing

import (
	"sync"
	"time"
)

// Propagation is the end-to-end latency breakdown for one entity's most
// recent event: created in the write-side outbox, received from the broker,
// applied to the projection.
type Propagation struct {
	EntityID               string    `json:"entityId"`
	EventType              string    `json:"eventType"`
	EventCreatedAt         time.Time `json:"eventCreatedAt"`
	BrokerReceivedAt       time.Time `json:"brokerReceivedAt"`
	ProjectionUpdatedAt    time.Time `json:"projectionUpdatedAt"`
	OutboxToBrokerMs       int64     `json:"outboxToBrokerMs"`
	ConsumerToProjectionMs int64     `json:"consumerToProjectionMs"`
	TotalMs                int64     `json:"totalMs"`
}

// Calculate fills the derived millisecond fields.
func Calculate(entityID, eventType string, created, received, updated time.Time) Propagation {
	outboxToBroker := received.Sub(created).Milliseconds()
	consumerToProjection := updated.Sub(received).Milliseconds()
	return Propagation{
		EntityID:               entityID,
		EventType:              eventType,
		EventCreatedAt:         created,
		BrokerReceivedAt:       received,
		ProjectionUpdatedAt:    updated,
		OutboxToBrokerMs:       outboxToBroker,
		ConsumerToProjectionMs: consumerToProjection,
		TotalMs:                outboxToBroker + consumerToProjection,
	}
}

// Tracker keeps the latest propagation record per entity, bounded in size.
// It is observability only: dropping entries is always acceptable and
// recording never fails. Safe for use from concurrent consumer goroutines.
type Tracker struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]Propagation
	order    []string // insertion order, for oldest-half eviction
}

const DefaultCapacity = 1000

func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		capacity: capacity,
		entries:  make(map[string]Propagation, capacity),
	}
}

// Record inserts or overwrites the entry for the entity. At capacity the
// oldest-inserted half is evicted first.
func (t *Tracker) Record(p Propagation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[p.EntityID]; exists {
		t.entries[p.EntityID] = p
		return
	}

	if len(t.entries) >= t.capacity {
		evict := len(t.order) / 2
		if evict == 0 {
			evict = 1
		}
		for _, id := range t.order[:evict] {
			delete(t.entries, id)
		}
		t.order = append([]string(nil), t.order[evict:]...)
	}

	t.entries[p.EntityID] = p
	t.order = append(t.order, p.EntityID)
}

// Get returns the latest record for the entity, if any.
func (t *Tracker) Get(entityID string) (Propagation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[entityID]
	return p, ok
}

// Snapshot returns a copy of all current entries.
func (t *Tracker) Snapshot() map[string]Propagation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Propagation, len(t.entries))
	for id, p := range t.entries {
		out[id] = p
	}
	return out
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
