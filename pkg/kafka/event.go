package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the JSON envelope published for every message.
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"event_type"`
	Key           string          `json:"key"`
	Source        string          `json:"source"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent builds an event with a fresh id. The message key routes all
// events about the same aggregate to one partition.
func NewEvent(eventType, key, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// DecodeEvent parses an envelope produced by Publish.
func DecodeEvent(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

func (e *Event) marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}
