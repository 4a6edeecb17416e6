package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// EventType определяет тип события в топике
type EventType string

const (
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderUpdated EventType = "order.updated"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "cafe.order.events"
	TopicDeadLetterQueue = "cafe.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent — конверт события заказа в топике. Заказ передаётся целиком,
// чтобы инстансы-получатели не ходили в хранилище.
type OrderEvent struct {
	EventType EventType    `json:"event_type"`
	OrderID   string       `json:"order_id"`
	Order     domain.Order `json:"order"`
	Source    string       `json:"source,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewOrderEvent оборачивает событие живого канала. Кадры без заказа
// (connected, ping) в топик не попадают.
func NewOrderEvent(event domain.OrderEvent, source string) (*OrderEvent, error) {
	if event.Order == nil {
		return nil, fmt.Errorf("event %q carries no order", event.Type)
	}

	var eventType EventType
	switch event.Type {
	case domain.EventCreated:
		eventType = EventTypeOrderCreated
	case domain.EventUpdated:
		eventType = EventTypeOrderUpdated
	default:
		return nil, fmt.Errorf("event %q is not an order change", event.Type)
	}

	return &OrderEvent{
		EventType: eventType,
		OrderID:   event.Order.ID,
		Order:     event.Order.Clone(),
		Source:    source,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ToDomain восстанавливает событие живого канала.
func (e *OrderEvent) ToDomain() (domain.OrderEvent, error) {
	switch e.EventType {
	case EventTypeOrderCreated:
		return domain.CreatedEvent(e.Order), nil
	case EventTypeOrderUpdated:
		return domain.UpdatedEvent(e.Order), nil
	default:
		return domain.OrderEvent{}, fmt.Errorf("unknown event type %q", e.EventType)
	}
}

// ParseOrderEvent парсит OrderEvent из сообщения
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	if event.OrderID == "" || event.Order.ID != event.OrderID {
		return nil, fmt.Errorf("order event has inconsistent order id %q", event.OrderID)
	}
	return &event, nil
}
