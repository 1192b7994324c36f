package indexer

import (
	"context"

	"github.com/francpeal/buscador/pkg/kafka"
	"github.com/francpeal/buscador/pkg/logger"
)

// EventTypeRebuilt is the event type of a completed rebuild.
const EventTypeRebuilt = "search.index.rebuilt"

// EventProducer is the part of *kafka.Producer the publisher uses.
type EventProducer interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// KafkaPublisher publishes rebuild reports as kafka events keyed by index.
type KafkaPublisher struct {
	producer EventProducer
	topic    string
	source   string
}

// NewKafkaPublisher creates a publisher writing to topic.
func NewKafkaPublisher(p EventProducer, topic, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, source: source}
}

type rebuiltPayload struct {
	RunID      string `json:"run_id"`
	Entity     string `json:"entity"`
	Index      string `json:"index"`
	Documents  int    `json:"documents"`
	Flushes    int    `json:"flushes"`
	DurationMs int64  `json:"duration_ms"`
}

// PublishRebuilt implements Publisher.
func (p *KafkaPublisher) PublishRebuilt(ctx context.Context, r *Report) error {
	event, err := kafka.NewEvent(EventTypeRebuilt, r.Index, p.source, rebuiltPayload{
		RunID:      r.RunID,
		Entity:     string(r.Entity),
		Index:      r.Index,
		Documents:  r.Documents,
		Flushes:    r.Flushes,
		DurationMs: r.Duration.Milliseconds(),
	})
	if err != nil {
		return err
	}
	event.CorrelationID = logger.RunIDFromContext(ctx)
	return p.producer.Publish(ctx, p.topic, event)
}
