package employees

import (
	"encoding/json"
	"time"

	"github.com/avershov/hrstream/libs/event"
	"github.com/avershov/hrstream/libs/outbox"
)

const (
	AggregateType = "employment.employee"
	Topic         = "events.employment.employee"
)

type Employee struct {
	ID         string  `json:"id"`
	PersonID   string  `json:"person_id"`
	Title      string  `json:"title"`
	Department string  `json:"department"`
	Salary     float64 `json:"salary"`
	Active     bool    `json:"active"`
}

type employeeData struct {
	ID         string  `json:"id"`
	PersonID   string  `json:"personId"`
	Title      string  `json:"title"`
	Department string  `json:"department"`
	Salary     float64 `json:"salary"`
	Active     bool    `json:"active"`
}

func Envelope(eventType string, e Employee, now time.Time) (outbox.Event, error) {
	data, err := json.Marshal(employeeData{
		ID:         e.ID,
		PersonID:   e.PersonID,
		Title:      e.Title,
		Department: e.Department,
		Salary:     e.Salary,
		Active:     e.Active,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	payload, err := event.Encode("employeeId", event.Envelope{
		EventType:   eventType,
		AggregateID: e.ID,
		Data:        data,
		Timestamp:   now,
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: AggregateType,
		AggregateID:   e.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
