package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Insert сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Insert(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.Order{}, domain.ErrOrderConflict
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order.Clone()
	return order.Clone(), nil
}

// ListAll возвращает все заказы, новые первыми.
func (r *orderRepositoryInMemory) ListAll(_ context.Context) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		result = append(result, order.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return domain.NewerFirst(result[i], result[j])
	})

	return result, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// UpdateStatus меняет статус. Повтор текущего статуса не считается ошибкой.
func (r *orderRepositoryInMemory) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !current.Status.CanTransitionTo(status) {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}
	current.Status = status
	r.items[id] = current
	return current.Clone(), nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
