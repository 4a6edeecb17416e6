// Package barista описывает представление бариста: локальная доска заказов, которая
// сверяется по снимку и живым событиям, и её текстовый рендер.
package barista

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// ConnStatus: состояние подключения к потоку обновлений.
type ConnStatus string

const (
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
	StatusDisconnected ConnStatus = "disconnected"
)

// Board хранит заказы по ID. Безопасна для конкурентного использования.
type Board struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	status ConnStatus
}

// NewBoard создаёт пустую доску в состоянии connecting.
func NewBoard() *Board {
	return &Board{
		orders: make(map[string]domain.Order),
		status: StatusConnecting,
	}
}

// Seed заменяет состояние доски снимком.
func (b *Board) Seed(orders []domain.Order) {
	next := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		next[o.ID] = o.Clone()
	}

	b.mu.Lock()
	b.orders = next
	b.mu.Unlock()
}

// Apply применяет кадр потока и сообщает, изменился ли список заказов.
//
// created вставляет или заменяет заказ, updated заменяет только известный.
// Статус не откатывается: completed не становится pending из-за запоздавшего кадра.
func (b *Board) Apply(event domain.OrderEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch event.Type {
	case domain.EventConnected, domain.EventPing:
		b.status = StatusConnected
		return false
	case domain.EventCreated:
		if event.Order == nil || event.Order.ID == "" {
			return false
		}
		return b.upsertLocked(*event.Order)
	case domain.EventUpdated:
		if event.Order == nil {
			return false
		}
		if _, ok := b.orders[event.Order.ID]; !ok {
			return false
		}
		return b.upsertLocked(*event.Order)
	default:
		return false
	}
}

func (b *Board) upsertLocked(order domain.Order) bool {
	if current, ok := b.orders[order.ID]; ok {
		if current.Status == domain.OrderStatusCompleted && order.Status != domain.OrderStatusCompleted {
			return false
		}
	}
	b.orders[order.ID] = order.Clone()
	return true
}

// Pending возвращает заказы в ожидании, новые первыми.
func (b *Board) Pending() []domain.Order {
	return b.partition(domain.OrderStatusPending)
}

// Completed возвращает выданные заказы, новые первыми.
func (b *Board) Completed() []domain.Order {
	return b.partition(domain.OrderStatusCompleted)
}

func (b *Board) partition(status domain.OrderStatus) []domain.Order {
	b.mu.RLock()
	out := make([]domain.Order, 0, len(b.orders))
	for _, o := range b.orders {
		if o.Status == status {
			out = append(out, o.Clone())
		}
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return domain.NewerFirst(out[i], out[j]) })
	return out
}

// Get возвращает заказ с доски.
func (b *Board) Get(id string) (domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

func (b *Board) Status() ConnStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

func (b *Board) SetStatus(s ConnStatus) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}
