package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
	pkgkafka "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/kafka"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/logger"
)

// Kafka topics for cart domain events.
var (
	TopicCartUpdated = pkgkafka.Topic("cart", "updated")
	TopicCartCleared = pkgkafka.Topic("cart", "cleared")
	TopicCartMerged  = pkgkafka.Topic("cart", "merged")
)

// AggregateTypeCart is the aggregate type of every cart event.
const AggregateTypeCart = "cart"

// SourceStorefront identifies events emitted by this service.
const SourceStorefront = "storefront-cart"

// CartRef identifies the cart an event is about.
type CartRef struct {
	Partition string
	SessionID string
	UserID    string
}

// AggregateID returns the partition key, made unique per session for guests.
func (r CartRef) AggregateID() string {
	if r.Partition == domain.GuestPartition && r.SessionID != "" {
		return r.Partition + ":" + r.SessionID
	}
	return r.Partition
}

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	Partition     string        `json:"partition"`
	Items         []domain.Line `json:"items"`
	TotalQuantity int           `json:"totalQuantity"`
	TotalPrice    float64       `json:"totalPrice"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	Partition string `json:"partition"`
}

// CartMergedData is the payload of a cart.merged event.
type CartMergedData struct {
	Partition     string        `json:"partition"`
	Items         []domain.Line `json:"items"`
	TotalQuantity int           `json:"totalQuantity"`
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new cart event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes the read model after a mutation.
func (p *Producer) PublishCartUpdated(ctx context.Context, ref CartRef, view domain.View) error {
	data := CartUpdatedData{
		Partition:     view.Partition,
		Items:         view.Items,
		TotalQuantity: view.TotalQuantity,
		TotalPrice:    view.TotalPrice,
	}
	if err := p.publish(ctx, TopicCartUpdated, "cart.updated", ref, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("partition", ref.Partition),
		slog.Int("total_quantity", view.TotalQuantity),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, ref CartRef) error {
	return p.publish(ctx, TopicCartCleared, "cart.cleared", ref, CartClearedData{Partition: ref.Partition})
}

// PublishCartMerged publishes the result of a guest merge.
func (p *Producer) PublishCartMerged(ctx context.Context, ref CartRef, lines []domain.Line) error {
	data := CartMergedData{
		Partition:     ref.Partition,
		Items:         lines,
		TotalQuantity: domain.TotalQuantity(lines),
	}
	return p.publish(ctx, TopicCartMerged, "cart.merged", ref, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType string, ref CartRef, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, ref.AggregateID(), AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithMetadata("session_id", ref.SessionID).
		WithMetadata("user_id", ref.UserID)

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}
