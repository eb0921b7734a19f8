package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/inventory-pos-service/internal/config"
	"github.com/fairyhunter13/inventory-pos-service/internal/model"
	"github.com/fairyhunter13/inventory-pos-service/internal/obs"
)

// Publisher delivers one committed low-stock alert downstream.
type Publisher interface {
	Publish(ctx context.Context, a model.LowStockAlert) error
	Close() error
}

// LogPublisher writes alerts to the service log. It is used when no broker is
// configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, a model.LowStockAlert) error {
	obs.Logger.Infow("low_stock_alert",
		"sequence", a.Sequence,
		"notification_id", a.NotificationID,
		"product_id", a.ProductID,
		"product_name", a.ProductName,
		"remaining", a.Remaining,
		"reorder_level", a.ReorderLevel,
	)
	return nil
}

func (LogPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher produces alerts as JSON messages keyed by product id, with
// the trace context carried in message headers.
type KafkaPublisher struct {
	w          messageWriter
	topic      string
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewKafkaPublisher builds a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(w, topic)
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w:      w,
		topic:  topic,
		tracer: otel.Tracer("github.com/fairyhunter13/inventory-pos-service/internal/queue"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, a model.LowStockAlert) error {
	ctx, span := p.tracer.Start(ctx, "alerts.publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", p.topic),
		attribute.Int64("alert.sequence", int64(a.Sequence)),
		attribute.Int64("product.id", a.ProductID),
	)

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert %d: %w", a.Sequence, err)
	}
	prop := p.propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	carrier := propagation.MapCarrier{}
	prop.Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier))
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}

	msg := kafka.Message{
		Key:     []byte(strconv.FormatInt(a.ProductID, 10)),
		Value:   payload,
		Headers: headers,
		Time:    a.CreatedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return fmt.Errorf("write alert %d: %w", a.Sequence, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// NewPublisher returns a Kafka publisher when brokers are configured and a
// LogPublisher otherwise.
func NewPublisher(cfg config.Config) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return LogPublisher{}
	}
	return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
}
