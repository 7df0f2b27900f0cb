package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire payload carried through the outbox and onto Kafka.
// The aggregate id is serialized under a per-aggregate field name
// (personId, employeeId, badgeId), so Encode/Decode take the field name
// explicitly.
type Envelope struct {
	EventType   string
	AggregateID string
	Data        json.RawMessage
	Timestamp   time.Time
}

func Encode(idField string, env Envelope) ([]byte, error) {
	if env.EventType == "" {
		return nil, fmt.Errorf("event: empty eventType")
	}
	if env.AggregateID == "" {
		return nil, fmt.Errorf("event: empty aggregate id")
	}
	wire := map[string]any{
		"eventType": env.EventType,
		idField:     env.AggregateID,
		"data":      env.Data,
		"timestamp": env.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(wire)
}

func Decode(idField string, raw []byte) (Envelope, error) {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Envelope{}, fmt.Errorf("event: decode envelope: %w", err)
	}

	var env Envelope
	if err := unmarshalString(wire, "eventType", &env.EventType); err != nil {
		return Envelope{}, err
	}
	if err := unmarshalString(wire, idField, &env.AggregateID); err != nil {
		return Envelope{}, err
	}

	var ts string
	if err := unmarshalString(wire, "timestamp", &ts); err != nil {
		return Envelope{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Envelope{}, fmt.Errorf("event: invalid timestamp %q: %w", ts, err)
	}
	env.Timestamp = parsed

	data, ok := wire["data"]
	if !ok {
		return Envelope{}, fmt.Errorf("event: missing data")
	}
	env.Data = data

	return env, nil
}

func unmarshalString(wire map[string]json.RawMessage, field string, dst *string) error {
	raw, ok := wire[field]
	if !ok {
		return fmt.Errorf("event: missing %s", field)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("event: invalid %s: %w", field, err)
	}
	if *dst == "" {
		return fmt.Errorf("event: empty %s", field)
	}
	return nil
}

// DeriveID builds a deterministic event id from fields already present in the
// envelope. It is the dedup fallback when a message arrives without the
// outbox-assigned event_id header. Two events for one aggregate emitted within
// the same nanosecond would collide; the header id is the primary key exactly
// because of that.
func DeriveID(prefix, aggregateID string, ts time.Time) string {
	return prefix + "-" + aggregateID + "-" + ts.UTC().Format(time.RFC3339Nano)
}
