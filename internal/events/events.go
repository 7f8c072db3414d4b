// Package events publishes mission lifecycle events to an external stream.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
)

// Event is the envelope written to every backend.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id.
func NewEvent(eventType, source string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Encode returns the wire form of the envelope.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends events to one backend.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error { return nil }
