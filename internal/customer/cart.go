// Package customer описывает сторону клиента: корзина из позиций меню и оформление заказа.
package customer

import (
	"errors"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

var (
	// ErrCartEmpty: попытка оформить пустую корзину.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrLineNotFound: позиции нет в корзине.
	ErrLineNotFound = errors.New("item is not in the cart")
)

// Line: строка корзины.
type Line struct {
	Item      domain.MenuItem
	Quantity  int
	Sweetness domain.Sweetness
}

// OrderItem возвращает снимок строки для черновика заказа.
func (l Line) OrderItem() domain.OrderItem {
	var ingredients []string
	if l.Item.Ingredients != nil {
		ingredients = append([]string(nil), l.Item.Ingredients...)
	}
	return domain.OrderItem{
		ID:          l.Item.ID,
		Name:        l.Item.Name,
		Category:    l.Item.Category,
		Ingredients: ingredients,
		Quantity:    l.Quantity,
		Sweetness:   l.Sweetness,
	}
}

// Cart: одна строка на позицию меню в порядке добавления.
// Не предназначена для конкурентного использования.
type Cart struct {
	lines map[int]*Line
	order []int
}

func NewCart() *Cart {
	return &Cart{lines: make(map[int]*Line)}
}

// Add добавляет позицию или увеличивает её количество на единицу.
// Новый напиток получает сладость regular.
func (c *Cart) Add(item domain.MenuItem) Line {
	if line, ok := c.lines[item.ID]; ok {
		line.Quantity++
		return *line
	}

	line := &Line{Item: item, Quantity: 1}
	if item.IsDrink() {
		line.Sweetness = domain.SweetnessRegular
	}
	c.lines[item.ID] = line
	c.order = append(c.order, item.ID)
	return *line
}

// SetQuantity задаёт количество. q <= 0 удаляет строку.
func (c *Cart) SetQuantity(id, q int) error {
	line, ok := c.lines[id]
	if !ok {
		return ErrLineNotFound
	}
	if q <= 0 {
		c.Remove(id)
		return nil
	}
	line.Quantity = q
	return nil
}

// SetSweetness меняет сладость напитка.
func (c *Cart) SetSweetness(id int, s domain.Sweetness) error {
	line, ok := c.lines[id]
	if !ok {
		return ErrLineNotFound
	}
	if !line.Item.IsDrink() {
		return domain.ErrSweetnessNotAllowed
	}
	if s == "" || !s.Valid() {
		return domain.ErrSweetnessInvalid
	}
	line.Sweetness = s
	return nil
}

func (c *Cart) Remove(id int) {
	if _, ok := c.lines[id]; !ok {
		return
	}
	delete(c.lines, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Lines возвращает копию строк в порядке добавления.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) Clear() {
	c.lines = make(map[int]*Line)
	c.order = nil
}

// Len: число различных позиций.
func (c *Cart) Len() int {
	return len(c.order)
}

// Count: суммарное количество.
func (c *Cart) Count() int {
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// Draft собирает черновик заказа из корзины.
func (c *Cart) Draft(customerName, notes string) domain.Draft {
	items := make([]domain.OrderItem, 0, len(c.order))
	for _, line := range c.Lines() {
		items = append(items, line.OrderItem())
	}
	return domain.Draft{CustomerName: customerName, Items: items, Notes: notes}
}
