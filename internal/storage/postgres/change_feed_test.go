package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
	"github.com/vladislavdragonenkov/cafe/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) snapshot() []domain.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderEvent(nil), p.events...)
}

func seededRepo(t *testing.T) domain.OrderRepository {
	t.Helper()
	repo := memory.NewOrderRepository()
	_, err := repo.Insert(context.Background(), domain.Order{
		ID:           "5f0c7c2e-8a51-4d2b-9d55-0f3c1f0b9a11",
		CustomerName: "Ana",
		Items:        []domain.OrderItem{{ID: 4, Name: "Croissant", Category: domain.CategoryPastries, Quantity: 1}},
		Status:       domain.OrderStatusPending,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return repo
}

func TestChangeFeedHandle(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)
	pub := &recordingPublisher{}
	feed := NewChangeFeed(nil, repo, pub)

	ctx := context.Background()
	require.NoError(t, feed.handle(ctx, `{"op":"insert","id":"5f0c7c2e-8a51-4d2b-9d55-0f3c1f0b9a11"}`))
	require.NoError(t, feed.handle(ctx, `{"op":"update","id":"5f0c7c2e-8a51-4d2b-9d55-0f3c1f0b9a11"}`))

	events := pub.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, domain.EventCreated, events[0].Type)
	require.Equal(t, domain.EventUpdated, events[1].Type)
	require.Equal(t, "Ana", events[1].Order.CustomerName)
}

func TestChangeFeedHandle_Errors(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)
	pub := &recordingPublisher{}
	feed := NewChangeFeed(nil, repo, pub)
	ctx := context.Background()

	require.Error(t, feed.handle(ctx, `{`))
	require.Error(t, feed.handle(ctx, `{"op":"insert"}`))
	require.Error(t, feed.handle(ctx, `{"op":"delete","id":"x"}`))

	err := feed.handle(ctx, `{"op":"update","id":"missing"}`)
	require.True(t, errors.Is(err, domain.ErrOrderNotFound))
	require.Empty(t, pub.snapshot())
}

func TestChangeFeedRetryBackoff(t *testing.T) {
	t.Parallel()

	feed := NewChangeFeed(nil, nil, nil, WithFeedRetry(100*time.Millisecond, time.Second))
	require.Equal(t, 100*time.Millisecond, feed.retryBackoff(1))
	require.Equal(t, 200*time.Millisecond, feed.retryBackoff(2))
	require.Equal(t, 800*time.Millisecond, feed.retryBackoff(4))
	require.Equal(t, time.Second, feed.retryBackoff(10))
}

func TestChangeFeedRunDisabled(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		NewChangeFeed(nil, nil, nil).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled feed must return immediately")
	}
}

func TestChangeFeedResultOf(t *testing.T) {
	feed := NewChangeFeed(nil, memory.NewOrderRepository(), &recordingPublisher{})
	ctx := context.Background()

	require.Equal(t, metrics.ResultInvalid, resultOf(feed.handle(ctx, `{`)))
	require.Equal(t, metrics.ResultInvalid, resultOf(feed.handle(ctx, `{"op":"truncate","id":"x"}`)))
	require.Equal(t, metrics.ResultNotFound, resultOf(feed.handle(ctx, `{"op":"insert","id":"missing"}`)))
	require.Equal(t, metrics.ResultUnavailable, resultOf(fmt.Errorf("get: %w", domain.ErrStoreUnavailable)))
	require.Equal(t, metrics.ResultError, resultOf(errors.New("boom")))
}
