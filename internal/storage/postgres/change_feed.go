package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
)

const (
	// OrderChangesChannel — канал pg_notify, в который пишет триггер orders_notify_change.
	OrderChangesChannel = "order_changes"

	feedSource = "postgres"

	defaultFeedRetryBaseDelay = 200 * time.Millisecond
	defaultFeedRetryMaxDelay  = 10 * time.Second
)

var errInvalidNotification = errors.New("invalid order change notification")

type changeNotification struct {
	Op string `json:"op"`
	ID string `json:"id"`
}

// FeedOption настраивает ChangeFeed.
type FeedOption func(*ChangeFeed)

// WithFeedLogger задаёт logger для слушателя.
func WithFeedLogger(logger *log.Entry) FeedOption {
	return func(f *ChangeFeed) {
		f.logger = logger
	}
}

// WithFeedRetry задаёт границы экспоненциальной задержки переподключения.
func WithFeedRetry(base, max time.Duration) FeedOption {
	return func(f *ChangeFeed) {
		f.retryBase = base
		f.retryMax = max
	}
}

// WithFeedMetrics включает счётчики событий и переподключений.
func WithFeedMetrics(m *metrics.FeedMetrics) FeedOption {
	return func(f *ChangeFeed) {
		f.metrics = m
	}
}

// ChangeFeed слушает LISTEN order_changes на выделенном соединении и
// превращает уведомления триггера в события created/updated.
type ChangeFeed struct {
	dsn       string
	repo      domain.OrderRepository
	publisher domain.EventPublisher
	logger    *log.Entry
	retryBase time.Duration
	retryMax  time.Duration
	metrics   *metrics.FeedMetrics
}

// NewChangeFeed создаёт слушатель изменений для store.
func NewChangeFeed(store *Store, repo domain.OrderRepository, publisher domain.EventPublisher, options ...FeedOption) *ChangeFeed {
	f := &ChangeFeed{
		repo:      repo,
		publisher: publisher,
		retryBase: defaultFeedRetryBaseDelay,
		retryMax:  defaultFeedRetryMaxDelay,
	}
	if store != nil {
		f.dsn = store.dsn
	}
	for _, option := range options {
		option(f)
	}
	if f.logger == nil {
		f.logger = log.WithField("component", "pg-change-feed")
	}
	if f.retryBase <= 0 {
		f.retryBase = defaultFeedRetryBaseDelay
	}
	if f.retryMax < f.retryBase {
		f.retryMax = f.retryBase
	}
	return f
}

// Run держит LISTEN до отмены ctx, переподключаясь с backoff при обрыве.
func (f *ChangeFeed) Run(ctx context.Context) {
	if f.dsn == "" || f.repo == nil || f.publisher == nil {
		f.logger.Warn("postgres change feed is disabled: dsn, repo or publisher is missing")
		return
	}

	attempt := 0
	for {
		err := f.listen(ctx, func() { attempt = 0 })
		if ctx.Err() != nil {
			return
		}
		attempt++
		f.metrics.RecordReconnect(feedSource)
		delay := f.retryBackoff(attempt)
		f.logger.WithError(err).WithField("retry_in", delay.String()).Warn("change feed connection lost")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (f *ChangeFeed) listen(ctx context.Context, onListening func()) error {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return fmt.Errorf("connect listener: %w", classify(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), defaultConnTimeout)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{OrderChangesChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", OrderChangesChannel, classify(err))
	}
	onListening()
	f.logger.WithField("channel", OrderChangesChannel).Info("listening for order changes")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		if err := f.handle(ctx, notification.Payload); err != nil {
			f.metrics.RecordEvent(feedSource, resultOf(err))
			f.logger.WithError(err).WithField("payload", notification.Payload).Warn("failed to handle order change")
			continue
		}
		f.metrics.RecordEvent(feedSource, metrics.ResultOK)
	}
}

// handle загружает актуальную строку и публикует событие.
func (f *ChangeFeed) handle(ctx context.Context, payload string) error {
	var n changeNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return fmt.Errorf("%w: %v", errInvalidNotification, err)
	}
	if n.ID == "" {
		return fmt.Errorf("%w: missing order id", errInvalidNotification)
	}

	var eventType domain.EventType
	switch n.Op {
	case "insert":
		eventType = domain.EventCreated
	case "update":
		eventType = domain.EventUpdated
	default:
		return fmt.Errorf("%w: unsupported op %q", errInvalidNotification, n.Op)
	}

	order, err := f.repo.Get(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("load changed order %s: %w", n.ID, err)
	}

	event := domain.OrderEvent{Type: eventType, Order: &order}
	return f.publisher.Publish(ctx, event)
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return metrics.ResultUnavailable
	case errors.Is(err, errInvalidNotification):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

func (f *ChangeFeed) retryBackoff(attempt int) time.Duration {
	delay := f.retryBase
	for i := 1; i < attempt; i++ {
		if delay >= f.retryMax/2 {
			return f.retryMax
		}
		delay *= 2
	}
	return delay
}
