// Package queue implements ports.SyncQueue on MongoDB, PostgreSQL and in memory.
package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process SyncQueue. Claims happen under one mutex.
type MemoryQueue struct {
	mu     sync.Mutex
	items  map[string]*domain.QueueItem
	policy domain.RetryPolicy
	now    func() time.Time
}

// NewMemoryQueue creates an empty queue
func NewMemoryQueue(policy domain.RetryPolicy) *MemoryQueue {
	return &MemoryQueue{
		items:  make(map[string]*domain.QueueItem),
		policy: policy,
		now:    time.Now,
	}
}

// Enqueue stores a pending item
func (q *MemoryQueue) Enqueue(_ context.Context, req domain.EnqueueRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	item := domain.NewQueueItem(uuid.NewString(), req, q.now())
	q.items[item.ID] = item
	return item.ID, nil
}

// ClaimBatch moves up to limit due items to processing. Processing items
// whose lease expired are claimed again.
func (q *MemoryQueue) ClaimBatch(_ context.Context, syncType domain.SyncType, limit int) ([]*domain.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()

	var eligible []*domain.QueueItem
	for _, item := range q.items {
		if item.SyncType == syncType && (item.Claimable(now) || item.LeaseExpired(now, q.policy.Visibility)) {
			eligible = append(eligible, item)
		}
	}
	sortClaimOrder(eligible)
	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}

	claimed := make([]*domain.QueueItem, 0, len(eligible))
	for _, item := range eligible {
		item.MarkProcessing(now)
		c := *item
		claimed = append(claimed, &c)
	}
	return claimed, nil
}

// Complete marks an item completed
func (q *MemoryQueue) Complete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return domain.ErrQueueItemNotFound
	}
	return item.MarkCompleted(q.now())
}

// Fail records a failed attempt
func (q *MemoryQueue) Fail(_ context.Context, id string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return domain.ErrQueueItemNotFound
	}
	return item.ApplyFailure(errorText(cause), q.now(), q.policy)
}

// Get returns a copy of an item
func (q *MemoryQueue) Get(_ context.Context, id string) (*domain.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return nil, domain.ErrQueueItemNotFound
	}
	c := *item
	return &c, nil
}

// ListFailed returns terminal items, most recently failed first
func (q *MemoryQueue) ListFailed(_ context.Context, limit int) ([]*domain.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var failed []*domain.QueueItem
	for _, item := range q.items {
		if item.Status == domain.QueueStatusFailed {
			c := *item
			failed = append(failed, &c)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].UpdatedAt.After(failed[j].UpdatedAt) })
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

// Requeue resets a failed item to pending
func (q *MemoryQueue) Requeue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return domain.ErrQueueItemNotFound
	}
	return item.Requeue(q.now())
}

func sortClaimOrder(items []*domain.QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// persistable reports whether a domain transition must still be written back
func persistable(err error) bool {
	return err == nil || errors.Is(err, domain.ErrQueueExhausted)
}
