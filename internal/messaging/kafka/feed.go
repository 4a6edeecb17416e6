package kafka

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
)

const feedSource = "kafka"

// Feed переводит сообщения топика в события локального хаба.
type Feed struct {
	target  domain.EventPublisher
	logger  *log.Entry
	metrics *metrics.FeedMetrics
}

// NewFeed создаёт обработчик, публикующий события в target.
func NewFeed(target domain.EventPublisher, logger *log.Entry, m *metrics.FeedMetrics) *Feed {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Feed{
		target:  target,
		logger:  logger.WithField("component", "kafka-feed"),
		metrics: m,
	}
}

// Handle реализует MessageHandler: сообщение разбирается и публикуется в хаб.
func (f *Feed) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	envelope, err := ParseOrderEvent(message)
	if err != nil {
		f.metrics.RecordEvent(feedSource, metrics.ResultInvalid)
		return err
	}

	event, err := envelope.ToDomain()
	if err != nil {
		f.metrics.RecordEvent(feedSource, metrics.ResultInvalid)
		return err
	}

	if err := f.target.Publish(ctx, event); err != nil {
		f.metrics.RecordEvent(feedSource, metrics.ResultError)
		return fmt.Errorf("publish %s for order %s: %w", event.Type, envelope.OrderID, err)
	}

	f.metrics.RecordEvent(feedSource, metrics.ResultOK)
	f.logger.WithFields(log.Fields{
		"order_id": envelope.OrderID,
		"type":     event.Type,
		"source":   envelope.Source,
	}).Debug("order event relayed")
	return nil
}

// InstanceGroupID возвращает consumer group инстанса: каждый инстанс должен
// получать все события топика. Суффикс берётся из instanceID, затем из имени
// хоста (в Kubernetes это имя пода), чтобы перезапуск возвращался в ту же
// группу. Случайный суффикс только если ни того, ни другого нет.
func InstanceGroupID(prefix, instanceID string) string {
	if prefix == "" {
		prefix = "cafe-live"
	}
	id := strings.TrimSpace(instanceID)
	if id == "" {
		if host, err := os.Hostname(); err == nil {
			id = host
		}
	}
	if id = normalizeGroupPart(id); id == "" {
		id = uuid.NewString()[:8]
	}
	return fmt.Sprintf("%s-%s", prefix, id)
}

func normalizeGroupPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
