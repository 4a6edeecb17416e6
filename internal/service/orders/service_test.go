package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
	"github.com/vladislavdragonenkov/cafe/internal/storage/memory"
)

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return log.NewEntry(logger)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) snapshot() []domain.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderEvent(nil), p.events...)
}

type countingRepo struct {
	domain.OrderRepository
	inserts int
	failAll error
}

func (r *countingRepo) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	r.inserts++
	if r.failAll != nil {
		return domain.Order{}, r.failAll
	}
	return r.OrderRepository.Insert(ctx, order)
}

func (r *countingRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	return r.OrderRepository.ListAll(ctx)
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T, opts ...Option) (*Service, *recordingPublisher, *countingRepo) {
	t.Helper()
	pub := &recordingPublisher{}
	repo := &countingRepo{OrderRepository: memory.NewOrderRepository()}
	clock := &steppingClock{now: time.Date(2026, 5, 14, 8, 0, 0, 0, time.FixedZone("MSK", 3*3600))}
	base := []Option{
		WithPublisher(pub),
		WithLogger(loggerForTests()),
		WithMetrics(metrics.NewOrderMetricsWith(prometheus.NewRegistry())),
		WithClock(clock.Now),
	}
	return NewService(repo, append(base, opts...)...), pub, repo
}

func anaDraft() domain.Draft {
	matcha, _ := domain.MenuItemByID(1)
	return domain.Draft{
		CustomerName: "  Ana ",
		Items: []domain.OrderItem{{
			ID:          matcha.ID,
			Name:        matcha.Name,
			Category:    matcha.Category,
			Ingredients: matcha.Ingredients,
			Quantity:    2,
			Sweetness:   domain.SweetnessExtra,
		}},
	}
}

func TestSubmit_AnaScenario(t *testing.T) {
	svc, pub, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Submit(ctx, anaDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "Ana", order.CustomerName)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, time.UTC, order.CreatedAt.Location())
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, domain.SweetnessExtra, order.Items[0].Sweetness)

	events := pub.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCreated, events[0].Type)
	assert.Equal(t, order.ID, events[0].Order.ID)

	completed, err := svc.Complete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, completed.Status)

	events = pub.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventUpdated, events[1].Type)
	assert.Equal(t, domain.OrderStatusCompleted, events[1].Order.Status)
}

func TestSubmit_UniqueIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		order, err := svc.Submit(context.Background(), anaDraft())
		require.NoError(t, err)
		_, dup := seen[order.ID]
		require.False(t, dup, "duplicate id %s", order.ID)
		seen[order.ID] = struct{}{}
	}
}

func TestSubmit_ValidationBeforePersistence(t *testing.T) {
	svc, pub, repo := newTestService(t)

	_, err := svc.Submit(context.Background(), domain.Draft{CustomerName: " "})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrCustomerNameRequired)
	assert.ErrorIs(t, err, domain.ErrItemsRequired)

	assert.Zero(t, repo.inserts)
	assert.Empty(t, pub.snapshot())
}

func TestSubmit_StoreUnavailable(t *testing.T) {
	svc, pub, repo := newTestService(t)
	repo.failAll = fmt.Errorf("dial: %w", domain.ErrStoreUnavailable)

	_, err := svc.Submit(context.Background(), anaDraft())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Empty(t, pub.snapshot())

	_, err = svc.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestSubmit_PublishFailureDoesNotFail(t *testing.T) {
	svc, pub, _ := newTestService(t)
	pub.err = errors.New("broker down")

	order, err := svc.Submit(context.Background(), anaDraft())
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, stored)
}

func TestComplete_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Submit(ctx, anaDraft())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		completed, err := svc.Complete(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCompleted, completed.Status)
	}
}

func TestComplete_NotFound(t *testing.T) {
	svc, pub, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Complete(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.Complete(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	orders, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, pub.snapshot())
}

func TestList_NewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, anaDraft())
	require.NoError(t, err)
	second, err := svc.Submit(ctx, anaDraft())
	require.NoError(t, err)

	orders, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestService_WithoutPublisher(t *testing.T) {
	svc := NewService(memory.NewOrderRepository(), WithIDGenerator(func() string { return "fixed" }))

	order, err := svc.Submit(context.Background(), anaDraft())
	require.NoError(t, err)
	assert.Equal(t, "fixed", order.ID)

	_, err = svc.Submit(context.Background(), anaDraft())
	assert.ErrorIs(t, err, domain.ErrOrderConflict)

	assert.Len(t, svc.Menu(), 7)
}

func TestResultOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.ResultOK},
		{&domain.ValidationError{Problems: []error{domain.ErrItemsRequired}}, metrics.ResultInvalid},
		{fmt.Errorf("x: %w", domain.ErrOrderNotFound), metrics.ResultNotFound},
		{fmt.Errorf("x: %w", domain.ErrStoreUnavailable), metrics.ResultUnavailable},
		{errors.New("boom"), metrics.ResultError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resultOf(tt.err))
	}
}
