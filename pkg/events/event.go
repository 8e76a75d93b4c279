package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every message on a comments exchange carries.
// Consumers dedupe on ID and route on Name and Version.
type Event struct {
	ID            string    `json:"id"`
	Name          string    `json:"event"`
	Version       string    `json:"version"`
	Source        string    `json:"source,omitempty"`
	OccurredAt    time.Time `json:"timestamp"`
	TraceID       string    `json:"traceId"`
	CorrelationID string    `json:"correlationId"`
	Payload       any       `json:"payload"`
}

type Headers struct {
	TraceID       string
	CorrelationID string
	Service       string
}

func NewEvent(name, version string, payload any, headers Headers) *Event {
	return &Event{
		ID:            NewID(),
		Name:          name,
		Version:       version,
		Source:        headers.Service,
		OccurredAt:    time.Now().UTC(),
		TraceID:       headers.TraceID,
		CorrelationID: headers.CorrelationID,
		Payload:       payload,
	}
}

// RoutingKey is "<name>.<version>", e.g. comment.deleted.v1.
func (e *Event) RoutingKey() string {
	return e.Name + "." + e.Version
}

func (e *Event) Body() ([]byte, error) {
	return json.Marshal(e)
}

// NewID returns a random identifier for events and request tracing.
func NewID() string {
	return uuid.NewString()
}
