package badges

import (
	"encoding/json"
	"time"

	"github.com/avershov/hrstream/libs/event"
	"github.com/avershov/hrstream/libs/outbox"
)

const (
	AggregateType = "security.badge"
	Topic         = "events.security.badge"
)

type Badge struct {
	ID          string `json:"id"`
	PersonID    string `json:"person_id"`
	BadgeNumber string `json:"badge_number"`
	AccessLevel string `json:"access_level"`
	Clearance   string `json:"clearance"`
	Active      bool   `json:"active"`
}

type badgeData struct {
	ID          string `json:"id"`
	PersonID    string `json:"personId"`
	BadgeNumber string `json:"badgeNumber"`
	AccessLevel string `json:"accessLevel"`
	Clearance   string `json:"clearance"`
	Active      bool   `json:"active"`
}

func Envelope(eventType string, b Badge, now time.Time) (outbox.Event, error) {
	data, err := json.Marshal(badgeData{
		ID:          b.ID,
		PersonID:    b.PersonID,
		BadgeNumber: b.BadgeNumber,
		AccessLevel: b.AccessLevel,
		Clearance:   b.Clearance,
		Active:      b.Active,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	payload, err := event.Encode("badgeId", event.Envelope{
		EventType:   eventType,
		AggregateID: b.ID,
		Data:        data,
		Timestamp:   now,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: AggregateType,
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
