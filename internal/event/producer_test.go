package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
	pkgkafka "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/kafka"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/logger"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestProducer(w *recordingWriter) *Producer {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProducer(pkgkafka.NewProducerWithWriter(w, []string{"localhost:9092"}, l), l)
}

func decode(t *testing.T, msg kafka.Message) *pkgkafka.Event {
	t.Helper()
	evt, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	return evt
}

func TestCartRef_AggregateID(t *testing.T) {
	assert.Equal(t, "cart:u1", CartRef{Partition: "cart:u1", SessionID: "s1"}.AggregateID())
	assert.Equal(t, "cart:guest:s1", CartRef{Partition: domain.GuestPartition, SessionID: "s1"}.AggregateID())
	assert.Equal(t, "cart:guest", CartRef{Partition: domain.GuestPartition}.AggregateID())
}

func TestPublishCartUpdated(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	view := domain.NewView("cart:u1", []domain.Line{
		{ProductID: "p1", Variant: domain.VariantOf("M"), UnitPrice: 10, Quantity: 2, MaxQuantity: 5},
	})
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ref := CartRef{Partition: "cart:u1", SessionID: "s1", UserID: "u1"}

	require.NoError(t, p.PublishCartUpdated(ctx, ref, view))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "storefront.cart.updated", msg.Topic)
	assert.Equal(t, "cart:u1", string(msg.Key))

	evt := decode(t, msg)
	assert.Equal(t, "cart.updated", evt.EventType)
	assert.Equal(t, AggregateTypeCart, evt.AggregateType)
	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.Equal(t, map[string]string{"session_id": "s1", "user_id": "u1"}, evt.Metadata)

	var data CartUpdatedData
	require.NoError(t, evt.UnmarshalData(&data))
	assert.Equal(t, 2, data.TotalQuantity)
	assert.Equal(t, 20.0, data.TotalPrice)
	require.Len(t, data.Items, 1)
	assert.Equal(t, domain.VariantOf("M"), data.Items[0].Variant)
}

func TestPublishCartCleared_Guest(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.PublishCartCleared(context.Background(), CartRef{Partition: domain.GuestPartition, SessionID: "s9"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "storefront.cart.cleared", w.msgs[0].Topic)
	assert.Equal(t, "cart:guest:s9", string(w.msgs[0].Key))

	evt := decode(t, w.msgs[0])
	assert.Empty(t, evt.CorrelationID)
	assert.NotContains(t, evt.Metadata, "user_id")
}

func TestPublishCartMerged(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	lines := []domain.Line{
		{ProductID: "p1", Quantity: 3, MaxQuantity: 2},
		{ProductID: "p2", Quantity: 1, MaxQuantity: 1},
	}
	require.NoError(t, p.PublishCartMerged(context.Background(), CartRef{Partition: "cart:u1"}, lines))

	var data CartMergedData
	require.NoError(t, decode(t, w.msgs[0]).UnmarshalData(&data))
	assert.Equal(t, "storefront.cart.merged", w.msgs[0].Topic)
	assert.Equal(t, 4, data.TotalQuantity)
	assert.Len(t, data.Items, 2)
}

func TestPublish_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := newTestProducer(w)

	err := p.PublishCartCleared(context.Background(), CartRef{Partition: "cart:u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish cart.cleared event")
	assert.Contains(t, err.Error(), "leader not available")
}
