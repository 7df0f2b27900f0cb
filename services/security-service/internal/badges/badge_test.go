package badges

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/avershov/hrstream/libs/event"
)

func TestEnvelope_SnapshotsBadgeState(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	b := Badge{
		ID:          "badge-001",
		PersonID:    "person-001",
		BadgeNumber: "B-A1B2C3",
		AccessLevel: "ELEVATED",
		Clearance:   "SECRET",
		Active:      true,
	}

	evt, err := Envelope("BadgeProvisioned", b, now)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if evt.AggregateType != "security.badge" || evt.AggregateID != "badge-001" || evt.EventType != "BadgeProvisioned" {
		t.Fatalf("unexpected event metadata: %+v", evt)
	}

	env, err := event.Decode("badgeId", evt.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if env.AggregateID != "badge-001" {
		t.Fatalf("badgeId = %q, want badge-001", env.AggregateID)
	}

	var data struct {
		PersonID    string `json:"personId"`
		BadgeNumber string `json:"badgeNumber"`
		AccessLevel string `json:"accessLevel"`
		Clearance   string `json:"clearance"`
		Active      bool   `json:"active"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.BadgeNumber != "B-A1B2C3" || data.AccessLevel != "ELEVATED" || data.Clearance != "SECRET" {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestEnvelope_RevokedBadgeInactive(t *testing.T) {
	b := Badge{ID: "badge-002", PersonID: "person-002", BadgeNumber: "B-XYZ", AccessLevel: "NONE", Clearance: "NONE"}

	evt, err := Envelope("BadgeRevoked", b, time.Now().UTC())
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	env, err := event.Decode("badgeId", evt.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var data struct {
		Active bool `json:"active"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Active {
		t.Fatal("revoked badge should be inactive in the event snapshot")
	}
}
