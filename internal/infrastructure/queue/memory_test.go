package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.SyncQueue = (*MemoryQueue)(nil)
	_ ports.SyncQueue = (*MongoQueue)(nil)
	_ ports.SyncQueue = (*PostgresQueue)(nil)
)

func stockRequest(entityID string, priority int) domain.EnqueueRequest {
	return domain.EnqueueRequest{
		EntityID: entityID,
		SyncType: domain.SyncTypeStock,
		Channels: []domain.ChannelTarget{{IntegrationID: "int-1", Platform: domain.PlatformShopify}},
		Payload:  map[string]interface{}{"quantity": 3},
		Priority: priority,
	}
}

func newTestQueue(start time.Time) (*MemoryQueue, *time.Time) {
	clock := start
	q := NewMemoryQueue(domain.RetryPolicy{})
	q.now = func() time.Time { return clock }
	return q, &clock
}

func TestMemoryQueue_ClaimOrder(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQueue(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	lowFirst, _ := q.Enqueue(ctx, stockRequest("a", 5))
	*clock = clock.Add(time.Second)
	urgent, _ := q.Enqueue(ctx, stockRequest("b", 1))
	*clock = clock.Add(time.Second)
	lowSecond, _ := q.Enqueue(ctx, stockRequest("c", 5))
	_, _ = q.Enqueue(ctx, domain.EnqueueRequest{
		EntityID: "d",
		SyncType: domain.SyncTypePrices,
		Channels: []domain.ChannelTarget{{IntegrationID: "int-1"}},
	})

	claimed, err := q.ClaimBatch(ctx, domain.SyncTypeStock, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	assert.Equal(t, []string{urgent, lowFirst, lowSecond}, []string{claimed[0].ID, claimed[1].ID, claimed[2].ID})
	for _, item := range claimed {
		assert.Equal(t, domain.QueueStatusProcessing, item.Status)
	}

	again, err := q.ClaimBatch(ctx, domain.SyncTypeStock, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestMemoryQueue_ConcurrentClaimsNeverOverlap(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(domain.RetryPolicy{})
	for i := 0; i < 100; i++ {
		_, err := q.Enqueue(ctx, stockRequest("e", 5))
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				batch, _ := q.ClaimBatch(ctx, domain.SyncTypeStock, 7)
				if len(batch) == 0 {
					return
				}
				mu.Lock()
				for _, item := range batch {
					seen[item.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 100)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestMemoryQueue_ThreeFailuresExhaust(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(time.Now())
	req := stockRequest("sku-1", 5)
	req.MaxRetries = 3
	id, err := q.Enqueue(ctx, req)
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		claimed, err := q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1, "attempt %d", attempt)

		err = q.Fail(ctx, id, errors.New("platform down"))
		if attempt < 3 {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, domain.ErrQueueExhausted)
		}
	}

	item, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusFailed, item.Status)
	assert.Equal(t, 3, item.RetryCount)
	assert.Equal(t, "platform down", item.LastError)

	claimed, _ := q.ClaimBatch(ctx, domain.SyncTypeStock, 10)
	assert.Empty(t, claimed)

	failed, _ := q.ListFailed(ctx, 10)
	require.Len(t, failed, 1)
	assert.Equal(t, id, failed[0].ID)

	require.NoError(t, q.Requeue(ctx, id))
	claimed, _ = q.ClaimBatch(ctx, domain.SyncTypeStock, 10)
	assert.Len(t, claimed, 1)
	assert.ErrorIs(t, q.Requeue(ctx, id), domain.ErrQueueItemNotFailed)
}

func TestMemoryQueue_BackoffDelaysReclaim(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, clock := newTestQueue(start)
	q.policy = domain.RetryPolicy{Base: 30 * time.Second, Max: time.Hour}

	id, _ := q.Enqueue(ctx, stockRequest("sku-2", 5))
	_, _ = q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	require.NoError(t, q.Fail(ctx, id, errors.New("429")))

	claimed, _ := q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	assert.Empty(t, claimed)

	*clock = start.Add(31 * time.Second)
	claimed, _ = q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	assert.Len(t, claimed, 1)
}

func TestMemoryQueue_TerminalAndMissing(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(domain.DefaultRetryPolicy())

	assert.ErrorIs(t, q.Complete(ctx, "missing"), domain.ErrQueueItemNotFound)
	_, err := q.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrQueueItemNotFound)

	id, _ := q.Enqueue(ctx, stockRequest("x", 0))
	require.NoError(t, q.Complete(ctx, id))
	assert.ErrorIs(t, q.Fail(ctx, id, errors.New("late")), domain.ErrQueueItemTerminal)

	_, err = q.Enqueue(ctx, domain.EnqueueRequest{EntityID: "x", SyncType: domain.SyncTypeStock})
	assert.Error(t, err)
}

func TestMemoryQueue_ExpiredLeaseIsReclaimed(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, clock := newTestQueue(start)
	q.policy = domain.RetryPolicy{Visibility: 10 * time.Minute}

	id, _ := q.Enqueue(ctx, stockRequest("sku-3", 5))
	claimed, _ := q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	require.Len(t, claimed, 1)

	*clock = start.Add(5 * time.Minute)
	claimed, _ = q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	assert.Empty(t, claimed, "lease still held")

	*clock = start.Add(11 * time.Minute)
	claimed, _ = q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)
	assert.Equal(t, start.Add(11*time.Minute), claimed[0].UpdatedAt)

	require.NoError(t, q.Complete(ctx, id))
	*clock = start.Add(time.Hour)
	claimed, _ = q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	assert.Empty(t, claimed)
}

func TestMemoryQueue_ZeroVisibilityNeverReclaims(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, clock := newTestQueue(start)

	_, _ = q.Enqueue(ctx, stockRequest("sku-4", 5))
	_, _ = q.ClaimBatch(ctx, domain.SyncTypeStock, 1)

	*clock = start.Add(24 * time.Hour)
	claimed, _ := q.ClaimBatch(ctx, domain.SyncTypeStock, 1)
	assert.Empty(t, claimed)
}
