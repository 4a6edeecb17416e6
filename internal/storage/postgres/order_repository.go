package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	selectOrderColumns = `id, customer_name, items, notes, status, created_at`
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items, err := json.Marshal(order.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal order items: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, customer_name, items, notes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+selectOrderColumns,
		order.ID, order.CustomerName, string(items), order.Notes, string(order.Status), order.CreatedAt,
	)
	stored, err := scanOrder(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrOrderConflict
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", classify(err))
	}
	return stored, nil
}

func (r *orderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectOrderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", classify(err))
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", classify(err))
	}

	return orders, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+selectOrderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", classify(err))
	}
	return order, nil
}

// UpdateStatus блокирует строку через SELECT ... FOR UPDATE, чтобы параллельные
// complete сериализовались в базе, а повтор статуса не писал ничего.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", classify(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanOrder(tx.QueryRowContext(ctx, `
		SELECT `+selectOrderColumns+`
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			err = domain.ErrOrderNotFound
			return domain.Order{}, err
		}
		err = fmt.Errorf("lock order: %w", classify(err))
		return domain.Order{}, err
	}

	if !current.Status.CanTransitionTo(status) {
		err = domain.ErrInvalidStatusTransition
		return domain.Order{}, err
	}

	if current.Status != status {
		if _, err = tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, string(status), id); err != nil {
			err = fmt.Errorf("update order status: %w", classify(err))
			return domain.Order{}, err
		}
		current.Status = status
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit update order: %w", classify(err))
		return domain.Order{}, err
	}
	return current, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		items  []byte
		status string
	)
	if err := row.Scan(&order.ID, &order.CustomerName, &items, &order.Notes, &status, &order.CreatedAt); err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return domain.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}

// isInvalidUUID — id не является UUID, значит такого заказа быть не может.
func isInvalidUUID(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "22P02"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
