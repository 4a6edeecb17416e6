package barista

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func order(id string, minute int, status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:           id,
		CustomerName: "Guest " + id,
		Items:        []domain.OrderItem{{ID: 4, Name: "Croissant", Category: domain.CategoryPastries, Quantity: 1}},
		Status:       status,
		CreatedAt:    baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func ids(orders []domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestBoard_SeedAndPartitions(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, StatusConnecting, b.Status())

	b.Seed([]domain.Order{
		order("a", 1, domain.OrderStatusPending),
		order("b", 3, domain.OrderStatusCompleted),
		order("c", 2, domain.OrderStatusPending),
		order("d", 4, domain.OrderStatusPending),
	})

	assert.Equal(t, []string{"d", "c", "a"}, ids(b.Pending()))
	assert.Equal(t, []string{"b"}, ids(b.Completed()))

	b.Seed([]domain.Order{order("z", 0, domain.OrderStatusPending)})
	assert.Equal(t, 1, b.Len())
}

func TestBoard_CreatedIsIdempotent(t *testing.T) {
	b := NewBoard()
	o := order("a", 1, domain.OrderStatusPending)

	assert.True(t, b.Apply(domain.CreatedEvent(o)))
	assert.True(t, b.Apply(domain.CreatedEvent(o)))
	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.Pending(), 1)
}

func TestBoard_UpdatedMovesToCompleted(t *testing.T) {
	b := NewBoard()
	o := order("a", 1, domain.OrderStatusPending)
	b.Seed([]domain.Order{o})

	o.Status = domain.OrderStatusCompleted
	require.True(t, b.Apply(domain.UpdatedEvent(o)))

	assert.Empty(t, b.Pending())
	assert.Equal(t, []string{"a"}, ids(b.Completed()))
}

func TestBoard_UpdatedForUnknownIsIgnored(t *testing.T) {
	b := NewBoard()
	o := order("ghost", 1, domain.OrderStatusCompleted)

	assert.False(t, b.Apply(domain.UpdatedEvent(o)))
	assert.Zero(t, b.Len())
}

func TestBoard_StatusDoesNotRegress(t *testing.T) {
	b := NewBoard()
	b.Seed([]domain.Order{order("a", 1, domain.OrderStatusCompleted)})

	assert.False(t, b.Apply(domain.CreatedEvent(order("a", 1, domain.OrderStatusPending))))
	got, ok := b.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusCompleted, got.Status)
}

func TestBoard_ControlFramesMarkConnected(t *testing.T) {
	b := NewBoard()

	assert.False(t, b.Apply(domain.OrderEvent{Type: domain.EventConnected}))
	assert.Equal(t, StatusConnected, b.Status())

	b.SetStatus(StatusDisconnected)
	assert.False(t, b.Apply(domain.OrderEvent{Type: domain.EventPing}))
	assert.Equal(t, StatusConnected, b.Status())

	assert.False(t, b.Apply(domain.OrderEvent{Type: domain.EventCreated}))
	assert.Zero(t, b.Len())
}

func TestBoard_ReturnsCopies(t *testing.T) {
	b := NewBoard()
	b.Seed([]domain.Order{order("a", 1, domain.OrderStatusPending)})

	pending := b.Pending()
	pending[0].Items[0].Name = "mutated"

	got, _ := b.Get("a")
	assert.Equal(t, "Croissant", got.Items[0].Name)
}

func TestBoard_Render(t *testing.T) {
	b := NewBoard()
	ana := domain.Order{
		ID:           "0f8fad5b-d9cb-469f-a165-70867728950e",
		CustomerName: "Ana",
		Items: []domain.OrderItem{
			{ID: 1, Name: "Blueberry Matcha", Category: domain.CategoryDrinks, Quantity: 2, Sweetness: domain.SweetnessExtra},
		},
		Notes:     "oat milk please",
		Status:    domain.OrderStatusPending,
		CreatedAt: baseTime,
	}
	b.Seed([]domain.Order{ana})
	b.SetStatus(StatusConnected)

	var buf bytes.Buffer
	require.NoError(t, b.Render(&buf, time.UTC))

	out := buf.String()
	assert.Contains(t, out, "[connected]")
	assert.Contains(t, out, "Pending (1)")
	assert.Contains(t, out, "09:00:00  Ana  #0f8fad5b")
	assert.Contains(t, out, "2× Blueberry Matcha (extra)")
	assert.Contains(t, out, "notes: oat milk please")
	assert.Contains(t, out, "Completed (0)\n  no orders")
}
