package domain

import (
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа в кофейне.
type OrderStatus string

const (
	// OrderStatusPending — заказ принят и ждёт бариста.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted — заказ выдан, статус терминальный.
	OrderStatusCompleted OrderStatus = "completed"
)

// Valid проверяет, что статус известен.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusCompleted
}

// CanTransitionTo разрешает только pending -> completed и повтор текущего статуса.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return next.Valid()
	}
	return s == OrderStatusPending && next == OrderStatusCompleted
}

// Sweetness — уровень сладости напитка.
type Sweetness string

const (
	SweetnessRegular Sweetness = "regular"
	SweetnessExtra   Sweetness = "extra"
)

// Valid проверяет значение сладости; пустое значение допустимо.
func (s Sweetness) Valid() bool {
	return s == "" || s == SweetnessRegular || s == SweetnessExtra
}

// OrderItem — снимок строки корзины на момент оформления заказа.
type OrderItem struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Ingredients []string  `json:"ingredients,omitempty"`
	Quantity    int       `json:"quantity"`
	Sweetness   Sweetness `json:"sweetness,omitempty"`
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customer_name"`
	Items        []OrderItem `json:"items"`
	Notes        string      `json:"notes"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Draft — черновик заказа от клиента, ещё без ID и статуса.
type Draft struct {
	CustomerName string
	Items        []OrderItem
	Notes        string
}

// Validate проверяет черновик и возвращает *ValidationError со всеми замечаниями.
func (d Draft) Validate() error {
	var problems []error

	if strings.TrimSpace(d.CustomerName) == "" {
		problems = append(problems, ErrCustomerNameRequired)
	}
	if len(d.Items) == 0 {
		problems = append(problems, ErrItemsRequired)
	}

	seen := make(map[int]struct{}, len(d.Items))
	for _, item := range d.Items {
		if item.Quantity <= 0 {
			problems = appendOnce(problems, ErrItemQtyInvalid)
		}
		if !item.Category.Valid() {
			problems = appendOnce(problems, ErrItemCategoryInvalid)
		}
		if !item.Sweetness.Valid() {
			problems = appendOnce(problems, ErrSweetnessInvalid)
		} else if item.Sweetness != "" && item.Category != CategoryDrinks {
			problems = appendOnce(problems, ErrSweetnessNotAllowed)
		}
		if _, dup := seen[item.ID]; dup {
			problems = appendOnce(problems, ErrItemDuplicate)
		}
		seen[item.ID] = struct{}{}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// NewOrder собирает pending-заказ из проверенного черновика.
// Позиции копируются, чтобы заказ не зависел от корзины клиента.
func NewOrder(id string, draft Draft, createdAt time.Time) Order {
	return Order{
		ID:           id,
		CustomerName: strings.TrimSpace(draft.CustomerName),
		Items:        CloneItems(draft.Items),
		Notes:        draft.Notes,
		Status:       OrderStatusPending,
		CreatedAt:    createdAt,
	}
}

// Clone возвращает глубокую копию заказа.
func (o Order) Clone() Order {
	o.Items = CloneItems(o.Items)
	return o
}

// CloneItems копирует позиции вместе со списками ингредиентов.
func CloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	for i, item := range items {
		if item.Ingredients != nil {
			item.Ingredients = append([]string(nil), item.Ingredients...)
		}
		out[i] = item
	}
	return out
}

// NewerFirst задаёт канонический порядок: created_at по убыванию, затем ID по убыванию.
func NewerFirst(a, b Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func appendOnce(errs []error, err error) []error {
	for _, e := range errs {
		if e == err {
			return errs
		}
	}
	return append(errs, err)
}
