package domain

import (
	"errors"
	"strings"
)

var (
	// Ошибка пустого имени клиента (после trim).
	ErrCustomerNameRequired = errors.New("customer_name is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве позиции (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка неизвестной категории позиции.
	ErrItemCategoryInvalid = errors.New("item category must be drinks or pastries")
	// Ошибка недопустимого значения сладости.
	ErrSweetnessInvalid = errors.New("sweetness must be regular or extra")
	// Сладость допустима только для напитков.
	ErrSweetnessNotAllowed = errors.New("sweetness is allowed only for drinks")
	// Одна позиция меню может встречаться в заказе только один раз.
	ErrItemDuplicate = errors.New("order contains duplicate menu item")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderConflict сигнализирует, что заказ с таким ID уже существует.
	ErrOrderConflict = errors.New("order already exists")
	// ErrStoreUnavailable — хранилище недоступно (сеть, таймаут, троттлинг).
	ErrStoreUnavailable = errors.New("order store unavailable")
	// ErrInvalidStatusTransition — переход статуса, запрещённый жизненным циклом.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// ValidationError собирает все замечания к черновику заказа.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "invalid order"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap позволяет использовать errors.Is для отдельных sentinel-ошибок.
func (e *ValidationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Problems
}

// IsValidation сообщает, что ошибка относится к валидации черновика.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
