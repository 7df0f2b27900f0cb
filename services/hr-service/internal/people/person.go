package people

import (
	"encoding/json"
	"time"

	"github.com/avershov/hrstream/libs/event"
	"github.com/avershov/hrstream/libs/outbox"
)

const (
	AggregateType = "hr.person"
	Topic         = "events.hr.person"
)

type Person struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	HireDate *time.Time `json:"hire_date,omitempty"`
	Active   bool       `json:"active"`
}

// personData is the event payload snapshot. hireDate serializes as a plain
// date and may be null.
type personData struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	HireDate *string `json:"hireDate"`
	Active   bool    `json:"active"`
}

// Envelope builds the outbox event describing the person's current state.
func Envelope(eventType string, p Person, now time.Time) (outbox.Event, error) {
	var hireDate *string
	if p.HireDate != nil {
		s := p.HireDate.Format("2006-01-02")
		hireDate = &s
	}
	data, err := json.Marshal(personData{
		ID:       p.ID,
		Name:     p.Name,
		Email:    p.Email,
		HireDate: hireDate,
		Active:   p.Active,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	payload, err := event.Encode("personId", event.Envelope{
		EventType:   eventType,
		AggregateID: p.ID,
		Data:        data,
		Timestamp:   now,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: AggregateType,
		AggregateID:   p.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
