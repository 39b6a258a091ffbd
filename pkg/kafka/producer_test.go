package kafka

import (
	"context"
	"errors"
	"testing"

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

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	return HeaderCarrier{Headers: &msg.Headers}.Get(key)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.cart.updated", Topic("cart", "updated"))
	assert.Equal(t, "storefront.cart.merged", Topic("cart", "merged"))
}

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent("cart.updated", "cart:u1", "cart", "storefront", map[string]int{"totalQuantity": 3})
	require.NoError(t, err)

	assert.Len(t, evt.EventID, 36)
	assert.Equal(t, 1, evt.Version)
	assert.False(t, evt.Timestamp.IsZero())
	assert.JSONEq(t, `{"totalQuantity":3}`, string(evt.Data))

	evt.WithCorrelationID("corr-1").WithMetadata("session_id", "s1").WithMetadata("user_id", "")
	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.Equal(t, map[string]string{"session_id": "s1"}, evt.Metadata)

	_, err = NewEvent("x", "id", "cart", "storefront", make(chan int))
	assert.Error(t, err)
}

func TestEvent_RoundTripPayload(t *testing.T) {
	evt, err := NewEvent("cart.cleared", "cart:guest", "cart", "storefront", map[string]string{"partition": "cart:guest"})
	require.NoError(t, err)
	data, err := evt.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, "cart:guest", payload["partition"])

	_, err = UnmarshalEvent([]byte("{"))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, nil)

	evt, err := NewEvent("cart.updated", "cart:u1", "cart", "storefront", struct{}{})
	require.NoError(t, err)
	evt.WithCorrelationID("corr-7")

	require.NoError(t, p.Publish(context.Background(), Topic("cart", "updated"), evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "storefront.cart.updated", msg.Topic)
	assert.Equal(t, "cart:u1", string(msg.Key))
	assert.Equal(t, "cart.updated", header(msg, "event_type"))
	assert.Equal(t, "storefront", header(msg, "source"))
	assert.Equal(t, "corr-7", header(msg, "correlation_id"))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, nil)
	evt, err := NewEvent("cart.updated", "cart:u1", "cart", "storefront", struct{}{})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, "t", evt))

	assert.Contains(t, header(w.msgs[0], "traceparent"), span.SpanContext().TraceID().String())
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, nil)
	evt, err := NewEvent("cart.updated", "cart:u1", "cart", "storefront", struct{}{})
	require.NoError(t, err)

	err = p.Publish(context.Background(), "storefront.cart.updated", evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to storefront.cart.updated")
}

func TestHeaderCarrier(t *testing.T) {
	var headers []kafka.Header
	c := HeaderCarrier{Headers: &headers}

	c.Set("traceparent", "a")
	c.Set("tracestate", "b")
	c.Set("traceparent", "c")

	assert.Equal(t, "c", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "tracestate"}, c.Keys())
	assert.Len(t, headers, 2)
}

func TestDefaultProducerConfigAndPing(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.Async)

	p := NewProducer(cfg, nil)
	require.NotNil(t, p)
	assert.NoError(t, p.Close())

	assert.EqualError(t, PingBrokers(context.Background(), nil), "kafka: no brokers configured")
}
