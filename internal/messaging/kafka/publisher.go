package kafka

import (
	"context"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// EventPublisher отправляет события заказов в топик; ключ — ID заказа.
type EventPublisher struct {
	producer *Producer
	topic    string
	source   string
}

// NewEventPublisher создаёт паблишер. source помечает инстанс-отправитель.
func NewEventPublisher(producer *Producer, topic, source string) *EventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &EventPublisher{
		producer: producer,
		topic:    topic,
		source:   source,
	}
}

// Publish игнорирует служебные кадры и публикует created/updated.
func (p *EventPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	if event.Type != domain.EventCreated && event.Type != domain.EventUpdated {
		return nil
	}

	envelope, err := NewOrderEvent(event, p.source)
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(p.topic, envelope.OrderID, envelope)
}

var _ domain.EventPublisher = (*EventPublisher)(nil)
