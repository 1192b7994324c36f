package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// DefaultProducerConfig returns defaults for low-volume, synchronous publishing.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes Event envelopes.
type Producer struct {
	writer  messageWriter
	brokers []string
	metrics *producerMetrics
	logger  *slog.Logger
}

// NewProducer creates a producer. Metrics are registered with reg when it is
// not nil.
func NewProducer(cfg ProducerConfig, reg prometheus.Registerer, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, cfg.Brokers, reg, logger)
}

func newProducer(w messageWriter, brokers []string, reg prometheus.Registerer, logger *slog.Logger) *Producer {
	return &Producer{
		writer:  w,
		brokers: brokers,
		metrics: newProducerMetrics(reg),
		logger:  logger,
	}
}

// Publish writes event to topic, keyed by event.Key. The active trace context
// travels in the message headers.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	data, err := event.marshal()
	if err != nil {
		return err
	}

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(event.Type)},
		{Key: "source", Value: []byte(event.Source)},
	}
	if event.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &headers})

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(event.Key),
		Value:   data,
		Headers: headers,
	})
	p.metrics.duration.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	if err != nil {
		p.metrics.failed.WithLabelValues(topic).Inc()
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", event.Type),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}

	p.metrics.published.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.Type),
		slog.String("key", event.Key),
	)
	return nil
}

// Ping dials the brokers and succeeds when at least one answers.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
