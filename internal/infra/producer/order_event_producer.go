package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type OrderEventType string

const (
	OrderCreatedEventName OrderEventType = "OrderCreated"
	OrderUpdatedEventName OrderEventType = "OrderUpdated"
	OrderDeletedEventName OrderEventType = "OrderDeleted"
)

// OrderEvent 訂單異動通知
// Order 為異動後快照，刪除事件時為 nil
type OrderEvent struct {
	EventID     string         `json:"eventId"`
	AggregateID string         `json:"aggregateId"`
	CreatedAt   time.Time      `json:"createdAt"`
	EventType   OrderEventType `json:"eventType"`
	Order       *model.Order   `json:"order,omitempty"`
}

type IOrderEventProducer interface {
	PublishOrderCreated(ctx context.Context, order model.Order) error
	PublishOrderUpdated(ctx context.Context, order model.Order) error
	PublishOrderDeleted(ctx context.Context, orderID string) error
	Close() error
}

// MessageWriter *kafka.Writer 實作此介面
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderEventProducer struct {
	writer MessageWriter
}

var _ IOrderEventProducer = (*OrderEventProducer)(nil)

func NewOrderEventProducer(writer MessageWriter) *OrderEventProducer {
	if writer == nil {
		panic("message writer is nil")
	}
	return &OrderEventProducer{writer: writer}
}

// NewKafkaWriter 同一張訂單的事件依 key 進同一個 partition
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func (p *OrderEventProducer) PublishOrderCreated(ctx context.Context, order model.Order) error {
	return p.publish(ctx, OrderCreatedEventName, order.ID, &order)
}

func (p *OrderEventProducer) PublishOrderUpdated(ctx context.Context, order model.Order) error {
	return p.publish(ctx, OrderUpdatedEventName, order.ID, &order)
}

func (p *OrderEventProducer) PublishOrderDeleted(ctx context.Context, orderID string) error {
	return p.publish(ctx, OrderDeletedEventName, orderID, nil)
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}

func (p *OrderEventProducer) publish(ctx context.Context, eventType OrderEventType, orderID string, order *model.Order) error {
	msg, err := prepareEventMessage(orderID, eventType, OrderEvent{
		EventID:     uuid.New().String(),
		AggregateID: orderID,
		CreatedAt:   time.Now().UTC(),
		EventType:   eventType,
		Order:       order,
	})
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s failed: %w", eventType, err)
	}
	return nil
}

func prepareEventMessage(orderID string, eventType OrderEventType, payload any) (kafka.Message, error) {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(orderID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{
				Key:   "event_type",
				Value: []byte(eventType),
			},
		},
	}, nil
}

// NoopProducer 未設定 broker 時使用
type NoopProducer struct{}

var _ IOrderEventProducer = NoopProducer{}

func (NoopProducer) PublishOrderCreated(context.Context, model.Order) error { return nil }
func (NoopProducer) PublishOrderUpdated(context.Context, model.Order) error { return nil }
func (NoopProducer) PublishOrderDeleted(context.Context, string) error      { return nil }
func (NoopProducer) Close() error                                           { return nil }
