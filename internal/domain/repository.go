package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Insert сохраняет новый заказ. ErrOrderConflict, если ID уже занят.
	Insert(ctx context.Context, order Order) (Order, error)
	// ListAll возвращает все заказы, новые первыми.
	ListAll(ctx context.Context) ([]Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// UpdateStatus меняет статус заказа. Повтор текущего статуса — успешный no-op.
	UpdateStatus(ctx context.Context, id string, status OrderStatus) (Order, error)
}
