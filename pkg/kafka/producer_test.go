package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headerValue(msg kafka.Message, key string) string {
	return headerCarrier{headers: &msg.Headers}.Get(key)
}

func TestNewEvent(t *testing.T) {
	type payload struct {
		Index     string `json:"index"`
		Documents int    `json:"documents"`
	}

	e, err := NewEvent("search.index.rebuilt", "items", "buscador", payload{"items", 12})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "search.index.rebuilt", e.Type)
	assert.Equal(t, "items", e.Key)
	assert.Equal(t, "buscador", e.Source)
	assert.WithinDuration(t, time.Now().UTC(), e.OccurredAt, 2*time.Second)
	assert.JSONEq(t, `{"index":"items","documents":12}`, string(e.Data))
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent("x", "k", "s", make(chan int))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	p := newProducer(w, []string{"localhost:9092"}, reg, discardLogger())

	e, err := NewEvent("search.index.rebuilt", "clients", "buscador", map[string]int{"documents": 3})
	require.NoError(t, err)
	e.CorrelationID = "run-1"

	require.NoError(t, p.Publish(context.Background(), "search.index.rebuilt", e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "search.index.rebuilt", msg.Topic)
	assert.Equal(t, "clients", string(msg.Key))
	assert.Equal(t, "search.index.rebuilt", headerValue(msg, "event_type"))
	assert.Equal(t, "buscador", headerValue(msg, "source"))
	assert.Equal(t, "run-1", headerValue(msg, "correlation_id"))

	decoded, err := DecodeEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, e.ID, decoded.ID)
	assert.JSONEq(t, `{"documents":3}`, string(decoded.Data))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.published.WithLabelValues("search.index.rebuilt")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.metrics.failed.WithLabelValues("search.index.rebuilt")))
}

func TestProducer_PublishFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, nil, prometheus.NewRegistry(), discardLogger())

	e, err := NewEvent("search.index.rebuilt", "items", "buscador", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "topic-a", e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.failed.WithLabelValues("topic-a")))
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTextMapPropagator(prevProp)
	})

	ctx, span := tp.Tracer("test").Start(context.Background(), "rebuild")
	defer span.End()

	w := &fakeWriter{}
	p := newProducer(w, nil, nil, discardLogger())
	e, err := NewEvent("search.index.rebuilt", "items", "buscador", nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, "t", e))

	assert.Contains(t, headerValue(w.msgs[0], "traceparent"), span.SpanContext().TraceID().String())
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, nil, discardLogger())
	assert.Error(t, p.Ping(context.Background()))
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, nil, discardLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := headerCarrier{headers: &headers}

	assert.Equal(t, "1", c.Get("a"))
	assert.Empty(t, c.Get("missing"))

	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, headers, 2)
}
