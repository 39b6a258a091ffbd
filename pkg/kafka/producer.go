package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	// Async makes Publish return once the message is queued. Delivery errors
	// are then only logged and counted.
	Async bool
}

// DefaultProducerConfig flushes small batches quickly; cart events are low
// volume and latency sensitive.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer  MessageWriter
	brokers []string
	logger  *slog.Logger
}

// NewProducer builds a kafka-go writer for cfg. The first broker connection is
// made lazily on publish.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	if cfg.Async {
		w.Completion = asyncCompletion(logger)
	}
	return NewProducerWithWriter(w, cfg.Brokers, logger)
}

func asyncCompletion(logger *slog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			publishErrors.WithLabelValues(m.Topic).Inc()
		}
		logger.Error("async publish failed",
			slog.Int("messages", len(msgs)),
			slog.String("error", err.Error()),
		)
	}
}

// NewProducerWithWriter is used by tests to substitute the writer.
func NewProducerWithWriter(w MessageWriter, brokers []string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{writer: w, brokers: brokers, logger: logger}
}

// message keys evt by its aggregate ID so all events of one cart keep their
// order on a single partition. Trace context from ctx goes into the headers.
func message(ctx context.Context, topic string, evt *Event) (kafka.Message, error) {
	value, err := evt.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	headers := make([]kafka.Header, 0, 5)
	carrier := HeaderCarrier{Headers: &headers}
	carrier.Set("event_type", evt.EventType)
	carrier.Set("source", evt.Source)
	if evt.CorrelationID != "" {
		carrier.Set("correlation_id", evt.CorrelationID)
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(evt.AggregateID),
		Value:   value,
		Headers: headers,
	}, nil
}

// Publish writes evt to topic.
func (p *Producer) Publish(ctx context.Context, topic string, evt *Event) error {
	msg, err := message(ctx, topic, evt)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	publishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	attrs := []any{
		slog.String("topic", topic),
		slog.String("event_type", evt.EventType),
		slog.String("aggregate_id", evt.AggregateID),
	}
	if err != nil {
		publishErrors.WithLabelValues(topic).Inc()
		p.logger.ErrorContext(ctx, "failed to publish event", append(attrs, slog.String("error", err.Error()))...)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	messagesPublished.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published", attrs...)
	return nil
}

// Ping reports whether any configured broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers returns nil as soon as one broker answers a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	var errs []error
	for _, addr := range brokers {
		if err := pingBroker(ctx, addr); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", errors.Join(errs...))
}

func pingBroker(ctx context.Context, addr string) error {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Brokers()
	return err
}

// Close flushes buffered messages.
func (p *Producer) Close() error {
	return p.writer.Close()
}
