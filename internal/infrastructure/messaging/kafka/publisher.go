// Package kafka publishes order lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

const (
	producerName = "order-api"
	eventVersion = 1
)

// Envelope is the wire format of every message on the order events topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderPayload is the payload of order.created and order.status_changed.
type OrderPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	ActorID     string `json:"actor_id"`
	From        string `json:"from,omitempty"`
	To          string `json:"to"`
	TotalAmount string `json:"total_amount"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.OrderEventSink on top of a kafka-go Writer.
// Messages are keyed by order id so one order's events share a partition.
type Publisher struct {
	w messageWriter
}

// NewPublisher builds a synchronous writer for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", event.ID, err)
	}
	return nil
}

// Close flushes pending writes and releases the connection.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func encode(event domain.OrderEvent) (kafka.Message, error) {
	payload, err := json.Marshal(OrderPayload{
		OrderID:     event.OrderID,
		UserID:      event.UserID,
		ActorID:     event.ActorID,
		From:        string(event.From),
		To:          string(event.To),
		TotalAmount: event.TotalAmount.StringFixed(2),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode payload: %w", err)
	}

	value, err := json.Marshal(Envelope{
		EventID:       event.ID,
		EventType:     string(event.Type),
		EventVersion:  eventVersion,
		OccurredAt:    event.OccurredAt.UTC(),
		Producer:      producerName,
		CorrelationID: event.OrderID,
		Payload:       payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
