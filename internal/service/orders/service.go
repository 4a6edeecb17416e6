// Package orders реализует прикладной сервис заказов кофейни: приём,
// выдачу списка и завершение заказа с рассылкой событий.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
)

const (
	opSubmit   = "submit"
	opList     = "list"
	opGet      = "get"
	opComplete = "complete"
)

// Service связывает репозиторий заказов с каналом живых обновлений.
type Service struct {
	repo      domain.OrderRepository
	publisher domain.EventPublisher
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
	now       func() time.Time
	newID     func() string
}

// Option настраивает Service.
type Option func(*Service)

// WithPublisher задаёт получателя событий created/updated. Без него сервис
// ничего не публикует (так работает режим postgres LISTEN).
func WithPublisher(p domain.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator подменяет генератор ID заказов.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService конструирует сервис поверх репозитория.
func NewService(repo domain.OrderRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: log.NewEntry(log.StandardLogger()),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "order-service")
	return s
}

// Submit проверяет черновик, сохраняет pending-заказ и публикует created.
// Ошибка публикации только логируется: заказ уже сохранён.
func (s *Service) Submit(ctx context.Context, draft domain.Draft) (domain.Order, error) {
	start := time.Now()

	if err := draft.Validate(); err != nil {
		s.record(opSubmit, err, start)
		return domain.Order{}, err
	}

	order := domain.NewOrder(s.newID(), draft, s.now().UTC())
	stored, err := s.repo.Insert(ctx, order)
	if err != nil {
		s.record(opSubmit, err, start)
		entry := s.logger.WithError(err).WithField("order_id", order.ID)
		if errors.Is(err, domain.ErrOrderConflict) {
			entry.Error("order id collision on insert")
		} else {
			entry.Warn("failed to persist order")
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	s.record(opSubmit, nil, start)
	s.metrics.RecordSubmitted()
	s.logger.WithFields(log.Fields{
		"order_id": stored.ID,
		"items":    len(stored.Items),
	}).Info("order submitted")

	s.publish(ctx, domain.CreatedEvent(stored))
	return stored, nil
}

// List возвращает все заказы, новые первыми.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	start := time.Now()

	orders, err := s.repo.ListAll(ctx)
	s.record(opList, err, start)
	if err != nil {
		s.logger.WithError(err).Warn("failed to list orders")
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get возвращает один заказ.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	start := time.Now()

	id = strings.TrimSpace(id)
	if id == "" {
		s.record(opGet, domain.ErrOrderNotFound, start)
		return domain.Order{}, domain.ErrOrderNotFound
	}

	order, err := s.repo.Get(ctx, id)
	s.record(opGet, err, start)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return order, nil
}

// Complete переводит заказ в completed и публикует updated.
// Повторный вызов для завершённого заказа успешен.
func (s *Service) Complete(ctx context.Context, id string) (domain.Order, error) {
	start := time.Now()

	id = strings.TrimSpace(id)
	if id == "" {
		s.record(opComplete, domain.ErrOrderNotFound, start)
		return domain.Order{}, domain.ErrOrderNotFound
	}

	order, err := s.repo.UpdateStatus(ctx, id, domain.OrderStatusCompleted)
	s.record(opComplete, err, start)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.WithError(err).WithField("order_id", id).Warn("failed to complete order")
		}
		return domain.Order{}, fmt.Errorf("complete order %s: %w", id, err)
	}

	s.metrics.RecordCompleted()
	s.logger.WithField("order_id", id).Info("order completed")

	s.publish(ctx, domain.UpdatedEvent(order))
	return order, nil
}

// Menu возвращает каталог кофейни.
func (s *Service) Menu() []domain.MenuItem {
	return domain.Menu()
}

func (s *Service) publish(ctx context.Context, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.RecordPublishFailure()
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.Order.ID,
			"type":     event.Type,
		}).Warn("failed to publish order event")
	}
}

func (s *Service) record(op string, err error, start time.Time) {
	s.metrics.RecordOperation(op, resultOf(err), time.Since(start))
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case domain.IsValidation(err):
		return metrics.ResultInvalid
	case errors.Is(err, domain.ErrOrderNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return metrics.ResultUnavailable
	default:
		return metrics.ResultError
	}
}
