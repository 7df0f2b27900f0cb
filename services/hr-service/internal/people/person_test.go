package people

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/avershov/hrstream/libs/event"
)

func TestEnvelope_SnapshotsPersonState(t *testing.T) {
	hired := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	p := Person{ID: "person-001", Name: "Ada", Email: "ada@example.com", HireDate: &hired, Active: true}

	evt, err := Envelope("PersonCreated", p, now)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if evt.AggregateType != "hr.person" || evt.AggregateID != "person-001" || evt.EventType != "PersonCreated" {
		t.Fatalf("unexpected event metadata: %+v", evt)
	}

	env, err := event.Decode("personId", evt.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !env.Timestamp.Equal(now) {
		t.Fatalf("timestamp %s, want %s", env.Timestamp, now)
	}

	var data struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Email    string  `json:"email"`
		HireDate *string `json:"hireDate"`
		Active   bool    `json:"active"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.HireDate == nil || *data.HireDate != "2024-06-01" {
		t.Fatalf("hireDate = %v, want 2024-06-01", data.HireDate)
	}
	if data.Name != "Ada" || !data.Active {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestEnvelope_NilHireDateIsNull(t *testing.T) {
	p := Person{ID: "person-002", Name: "Grace", Email: "grace@example.com", Active: true}

	evt, err := Envelope("PersonCreated", p, time.Now().UTC())
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	env, err := event.Decode("personId", evt.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	v, present := data["hireDate"]
	if !present || v != nil {
		t.Fatalf("hireDate should be an explicit null, got %v (present=%v)", v, present)
	}
}
