package domain

import "context"

// EventType — тип кадра в потоке живых обновлений.
type EventType string

const (
	EventConnected EventType = "connected"
	EventPing      EventType = "ping"
	EventCreated   EventType = "created"
	EventUpdated   EventType = "updated"
)

// OrderEvent — кадр потока обновлений. Order есть только у created/updated.
type OrderEvent struct {
	Type  EventType `json:"type"`
	Order *Order    `json:"order,omitempty"`
}

// CreatedEvent строит событие о новом заказе.
func CreatedEvent(order Order) OrderEvent {
	o := order.Clone()
	return OrderEvent{Type: EventCreated, Order: &o}
}

// UpdatedEvent строит событие об изменении заказа.
func UpdatedEvent(order Order) OrderEvent {
	o := order.Clone()
	return OrderEvent{Type: EventUpdated, Order: &o}
}

// EventPublisher доставляет события об изменениях заказов подписчикам.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// EventPublisherFunc адаптирует функцию к EventPublisher.
type EventPublisherFunc func(ctx context.Context, event OrderEvent) error

func (f EventPublisherFunc) Publish(ctx context.Context, event OrderEvent) error {
	return f(ctx, event)
}
