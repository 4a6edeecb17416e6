package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
)

const (
	// DefaultHeartbeatInterval: период ping-кадров для удержания соединений.
	DefaultHeartbeatInterval = 30 * time.Second
	// DefaultBufferSize: ёмкость очереди кадров одного подписчика.
	DefaultBufferSize = 64
	// DefaultCloseTimeout ограничивает ожидание горутин записи при закрытии.
	DefaultCloseTimeout = 5 * time.Second
)

// Frame: сериализованный кадр. Event разделяется между подписчиками
// и не должен изменяться.
type Frame struct {
	Event domain.OrderEvent
	Data  []byte
}

// Sink: получатель кадров (SSE-соединение, gRPC-поток, бот).
// Send вызывается из одной горутины подписки; ошибка отключает подписчика.
type Sink interface {
	Send(frame Frame) error
}

// SinkFunc адаптирует функцию к Sink.
type SinkFunc func(frame Frame) error

func (f SinkFunc) Send(frame Frame) error {
	return f(frame)
}

// Hub рассылает события всем зарегистрированным подписчикам.
// Каждый подписчик получает свою очередь и горутину записи, поэтому
// медленный клиент не задерживает остальных.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	heartbeat    time.Duration
	buffer       int
	closeTimeout time.Duration
	logger    *log.Entry
	metrics   *metrics.LiveMetrics

	connected Frame
	ping      Frame
}

// Option настраивает Hub.
type Option func(*Hub)

// WithLogger задаёт логгер хаба.
func WithLogger(logger *log.Entry) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHeartbeatInterval задаёт период ping-кадров.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(h *Hub) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithBufferSize задаёт ёмкость очереди подписчика.
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.buffer = size
		}
	}
}

// WithCloseTimeout задаёт, сколько Close ждёт горутины записи. Горутина,
// застрявшая в Sink.Send, после этого срока бросается: её разбудит
// закрытие транспорта.
func WithCloseTimeout(timeout time.Duration) Option {
	return func(h *Hub) {
		if timeout > 0 {
			h.closeTimeout = timeout
		}
	}
}

// WithMetrics включает prometheus-метрики хаба.
func WithMetrics(m *metrics.LiveMetrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// NewHub создаёт хаб без подписчиков.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:         make(map[uint64]*Subscription),
		heartbeat:    DefaultHeartbeatInterval,
		buffer:       DefaultBufferSize,
		closeTimeout: DefaultCloseTimeout,
		logger:       log.NewEntry(log.StandardLogger()),
		connected:    mustFrame(domain.OrderEvent{Type: domain.EventConnected}),
		ping:         mustFrame(domain.OrderEvent{Type: domain.EventPing}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithField("component", "live_hub")
	return h
}

// Register добавляет подписчика. Первым кадром он всегда получает connected.
// После Close хаба возвращается уже завершённая подписка.
func (h *Hub) Register(sink Sink) *Subscription {
	sub := &Subscription{
		hub:   h,
		sink:  sink,
		queue: make(chan Frame, h.buffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.stopOnce.Do(func() { close(sub.stop) })
		close(sub.done)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	sub.queue <- h.connected
	h.subs[sub.id] = sub
	h.mu.Unlock()

	h.metrics.SinkAdded()
	h.logger.WithField("sink_id", sub.id).Debug("sink registered")

	go sub.writeLoop()
	return sub
}

// Publish ставит событие в очередь каждого подписчика. Ошибка возвращается
// только если событие не сериализуется; сбои доставки отключают подписчика.
func (h *Hub) Publish(_ context.Context, event domain.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	h.broadcast(Frame{Event: event, Data: data})
	return nil
}

// Run рассылает heartbeat-кадры до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(h.ping)
		}
	}
}

// Len возвращает число подключённых подписчиков.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close отключает всех подписчиков и ждёт завершения их горутин записи,
// но не дольше closeTimeout. Повторный вызов ничего не делает.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
		h.removeLocked(sub, metrics.ReasonShutdown)
	}
	h.mu.Unlock()

	timer := time.NewTimer(h.closeTimeout)
	defer timer.Stop()
	for i, sub := range subs {
		select {
		case <-sub.done:
		case <-timer.C:
			h.logger.WithField("stuck_sinks", len(subs)-i).Warn("sink writers still blocked, giving up")
			return
		}
	}
}

// broadcast ставит кадр в очереди под общей блокировкой: так порядок кадров
// у каждого подписчика совпадает с порядком вызовов.
func (h *Hub) broadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.queue <- frame:
		default:
			h.metrics.FrameDropped(metrics.ReasonOverflow)
			h.logger.WithField("sink_id", sub.id).Warn("sink queue overflow, disconnecting")
			h.removeLocked(sub, metrics.ReasonOverflow)
		}
	}
}

func (h *Hub) remove(sub *Subscription, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, reason)
}

func (h *Hub) removeLocked(sub *Subscription, reason string) {
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		h.metrics.SinkRemoved(reason)
		h.logger.WithFields(log.Fields{
			"sink_id": sub.id,
			"reason":  reason,
		}).Debug("sink unregistered")
	}
	sub.stopOnce.Do(func() { close(sub.stop) })
}

// Subscription: регистрация подписчика в хабе.
type Subscription struct {
	id    uint64
	hub   *Hub
	sink  Sink
	queue chan Frame

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Close отписывает подписчика и ждёт остановки горутины записи не дольше
// closeTimeout хаба. Идемпотентен. Нельзя вызывать из Sink.Send.
func (s *Subscription) Close() {
	s.hub.remove(s, metrics.ReasonClosed)

	timer := time.NewTimer(s.hub.closeTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.hub.logger.WithField("sink_id", s.id).Warn("sink writer still blocked, giving up")
	}
}

// Done закрывается, когда подписка перешла в конечное состояние.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) writeLoop() {
	defer close(s.done)

	for {
		// Остановка приоритетнее очереди: после отписки кадры не пишутся.
		select {
		case <-s.stop:
			return
		default:
		}

		select {
		case <-s.stop:
			return
		case frame := <-s.queue:
			if err := s.sink.Send(frame); err != nil {
				s.hub.metrics.FrameDropped(metrics.ReasonWriteFailed)
				s.hub.logger.WithError(err).WithField("sink_id", s.id).Info("sink write failed, disconnecting")
				s.hub.remove(s, metrics.ReasonWriteFailed)
				return
			}
			s.hub.metrics.FrameSent(string(frame.Event.Type))
		}
	}
}

func mustFrame(event domain.OrderEvent) Frame {
	data, err := json.Marshal(event)
	if err != nil {
		panic(fmt.Sprintf("marshal %s frame: %v", event.Type, err))
	}
	return Frame{Event: event, Data: data}
}

var _ domain.EventPublisher = (*Hub)(nil)
