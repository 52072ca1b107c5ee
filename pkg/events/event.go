package events

import "time"

// Event types published on the EVENTS stream. The subject is
// "events.<type>".
const (
	QuoteSubmitted     = "quote_submitted"
	QuoteStatusChanged = "quote_status_changed"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the subject suffix for this event (e.g. "quote_submitted").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic Event implementation used by publishers and by
// the subscriber when it rebuilds an event from the wire.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String reads a string attribute from the payload, "" when absent.
func (e BaseEvent) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}
