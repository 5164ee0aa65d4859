package ports

import (
	"context"

	"archie-core-commerce-sync/internal/domain"
)

// SyncQueue is a durable work queue of outbound propagation tasks
type SyncQueue interface {
	// Enqueue stores a pending item and returns its id
	Enqueue(ctx context.Context, req domain.EnqueueRequest) (string, error)

	// ClaimBatch atomically moves up to limit due pending items to processing,
	// ordered by priority ascending then creation time
	ClaimBatch(ctx context.Context, syncType domain.SyncType, limit int) ([]*domain.QueueItem, error)

	// Complete marks a claimed item as completed
	Complete(ctx context.Context, id string) error

	// Fail records an attempt failure. Returns domain.ErrQueueExhausted when the item became failed.
	Fail(ctx context.Context, id string, cause error) error

	// Get returns an item or domain.ErrQueueItemNotFound
	Get(ctx context.Context, id string) (*domain.QueueItem, error)

	// ListFailed returns terminal items for operator inspection
	ListFailed(ctx context.Context, limit int) ([]*domain.QueueItem, error)

	// Requeue resets a failed item to pending
	Requeue(ctx context.Context, id string) error
}
