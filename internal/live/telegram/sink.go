// Package telegram дублирует новые заказы в чат бариста через Telegram-бота.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/live"
)

// Sender: часть tgbotapi.BotAPI, которая нужна sink'у.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ Sender = (*tgbotapi.BotAPI)(nil)

// DefaultQueueSize: сколько заказов ждут отправки в Telegram.
const DefaultQueueSize = 256

// Sink публикует сообщение в чат для каждого созданного заказа.
// Send только ставит заказ в собственную очередь, сообщения отправляет Run,
// поэтому медленный Telegram не переполняет очередь хаба. Ошибки Telegram и
// переполнение очереди логируются и не отключают sink от хаба.
type Sink struct {
	api    Sender
	chatID int64
	logger *log.Entry
	queue  chan domain.Order
}

// New подключается к Telegram по токену бота.
func New(token string, chatID int64, logger *log.Entry) (*Sink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return NewWithSender(api, chatID, logger, DefaultQueueSize), nil
}

// NewWithSender собирает sink поверх готового клиента.
func NewWithSender(api Sender, chatID int64, logger *log.Entry, queueSize int) *Sink {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Sink{
		api:    api,
		chatID: chatID,
		logger: logger.WithField("component", "telegram_sink"),
		queue:  make(chan domain.Order, queueSize),
	}
}

func (s *Sink) Send(frame live.Frame) error {
	if frame.Event.Type != domain.EventCreated || frame.Event.Order == nil {
		return nil
	}

	select {
	case s.queue <- *frame.Event.Order:
	default:
		s.logger.WithField("order_id", frame.Event.Order.ID).Warn("telegram queue full, order notification dropped")
	}
	return nil
}

// Run отправляет заказы из очереди до отмены ctx.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case order := <-s.queue:
			s.deliver(order)
		}
	}
}

func (s *Sink) deliver(order domain.Order) {
	msg := tgbotapi.NewMessage(s.chatID, FormatOrder(order))
	if _, err := s.api.Send(msg); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("telegram send failed")
	}
}

// FormatOrder рендерит заказ в текст сообщения.
func FormatOrder(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order for %s\n", order.CustomerName)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %d× %s", item.Quantity, item.Name)
		if item.Sweetness != "" {
			fmt.Fprintf(&b, " (%s)", item.Sweetness)
		}
		b.WriteByte('\n')
	}
	if notes := strings.TrimSpace(order.Notes); notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", notes)
	}
	fmt.Fprintf(&b, "#%s", shortID(order.ID))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ live.Sink = (*Sink)(nil)
