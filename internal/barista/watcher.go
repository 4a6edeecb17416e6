package barista

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const DefaultReconnectDelay = 2 * time.Second

// Source: откуда доска берёт снимок и поток событий.
// Watch блокируется, пока поток открыт, и вызывает handle последовательно.
type Source interface {
	List(ctx context.Context) ([]domain.Order, error)
	Watch(ctx context.Context, handle func(domain.OrderEvent)) error
}

// Watcher держит доску в актуальном состоянии: снимок при каждом
// подключении, события между ними, переподключение после обрыва.
type Watcher struct {
	source         Source
	board          *Board
	logger         *log.Entry
	reconnectDelay time.Duration
	resyncInterval time.Duration
	onChange       func()
}

type WatcherOption func(*Watcher)

func WithWatcherLogger(logger *log.Entry) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithReconnectDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.reconnectDelay = d
		}
	}
}

// WithResyncInterval включает периодическую сверку со снимком. 0 = выключено.
func WithResyncInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.resyncInterval = d
		}
	}
}

// WithOnChange задаёт колбэк после каждого изменения доски.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

func NewWatcher(source Source, board *Board, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:         source,
		board:          board,
		logger:         log.NewEntry(log.StandardLogger()),
		reconnectDelay: DefaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithField("component", "barista_watcher")
	return w
}

// Run работает до отмены ctx.
func (w *Watcher) Run(ctx context.Context) {
	if w.resyncInterval > 0 {
		go w.resyncLoop(ctx)
	}

	for {
		w.board.SetStatus(StatusConnecting)
		w.changed()

		err := w.source.Watch(ctx, func(event domain.OrderEvent) {
			w.handle(ctx, event)
		})
		w.board.SetStatus(StatusDisconnected)
		w.changed()

		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.WithError(err).Warn("order stream interrupted")
		} else {
			w.logger.Info("order stream closed by server")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.reconnectDelay):
		}
	}
}

// Refresh заменяет доску свежим снимком.
func (w *Watcher) Refresh(ctx context.Context) error {
	orders, err := w.source.List(ctx)
	if err != nil {
		return err
	}
	w.board.Seed(orders)
	w.changed()
	return nil
}

// handle вызывается из Watch. Снимок берётся после connected, поэтому
// события, пришедшие до подключения, не теряются.
func (w *Watcher) handle(ctx context.Context, event domain.OrderEvent) {
	changed := w.board.Apply(event)
	if event.Type == domain.EventConnected {
		if err := w.Refresh(ctx); err != nil {
			w.logger.WithError(err).Warn("snapshot after connect failed")
		}
		return
	}
	if changed {
		w.changed()
	}
}

func (w *Watcher) resyncLoop(ctx context.Context) {
	ticker := time.NewTicker(w.resyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
				w.logger.WithError(err).Warn("periodic resync failed")
			}
		}
	}
}

func (w *Watcher) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}
