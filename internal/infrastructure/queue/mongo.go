package queue

import (
	"context"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/repository"
	"archie-core-commerce-sync/internal/infrastructure/repository/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoQueue implements SyncQueue on a MongoDB collection.
// Each claim is a single FindOneAndUpdate, so no two workers get the same item.
type MongoQueue struct {
	collection *mongo.Collection
	policy     domain.RetryPolicy
}

// NewMongoQueue creates a MongoDB-backed queue
func NewMongoQueue(db *mongo.Database, policy domain.RetryPolicy) *MongoQueue {
	return &MongoQueue{
		collection: db.Collection(repository.CollectionSyncQueue),
		policy:     policy,
	}
}

// Enqueue stores a pending item
func (q *MongoQueue) Enqueue(ctx context.Context, req domain.EnqueueRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	item := domain.NewQueueItem(uuid.NewString(), req, time.Now())
	if _, err := q.collection.InsertOne(ctx, entity.MongoQueueItemDocFromDomain(item)); err != nil {
		return "", fmt.Errorf("failed to enqueue item: %w", err)
	}
	return item.ID, nil
}

// ClaimBatch claims items one at a time in priority then FIFO order
func (q *MongoQueue) ClaimBatch(ctx context.Context, syncType domain.SyncType, limit int) ([]*domain.QueueItem, error) {
	var claimed []*domain.QueueItem
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	for limit <= 0 || len(claimed) < limit {
		now := time.Now()
		filter := q.claimFilter(syncType, now)
		update := bson.M{"$set": bson.M{
			"status":    string(domain.QueueStatusProcessing),
			"updatedAt": now,
		}}

		var doc entity.MongoQueueItemDoc
		err := q.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			break
		}
		if err != nil {
			return claimed, fmt.Errorf("failed to claim queue item: %w", err)
		}
		claimed = append(claimed, doc.ToDomain())
	}
	return claimed, nil
}

// claimFilter matches due pending items and processing items whose lease expired
func (q *MongoQueue) claimFilter(syncType domain.SyncType, now time.Time) bson.M {
	due := bson.M{
		"status":        string(domain.QueueStatusPending),
		"nextAttemptAt": bson.M{"$lte": now},
	}
	if q.policy.Visibility <= 0 {
		due["syncType"] = string(syncType)
		return due
	}
	return bson.M{
		"syncType": string(syncType),
		"$or": bson.A{
			due,
			bson.M{
				"status":    string(domain.QueueStatusProcessing),
				"updatedAt": bson.M{"$lt": now.Add(-q.policy.Visibility)},
			},
		},
	}
}

// Complete marks an item completed
func (q *MongoQueue) Complete(ctx context.Context, id string) error {
	return q.mutate(ctx, id, func(item *domain.QueueItem, now time.Time) error {
		return item.MarkCompleted(now)
	})
}

// Fail records a failed attempt
func (q *MongoQueue) Fail(ctx context.Context, id string, cause error) error {
	return q.mutate(ctx, id, func(item *domain.QueueItem, now time.Time) error {
		return item.ApplyFailure(errorText(cause), now, q.policy)
	})
}

// Requeue resets a failed item
func (q *MongoQueue) Requeue(ctx context.Context, id string) error {
	return q.mutate(ctx, id, func(item *domain.QueueItem, now time.Time) error {
		return item.Requeue(now)
	})
}

// mutate applies a transition guarded by the status read, so a concurrent
// writer that changed the status makes the update miss instead of clobbering it
func (q *MongoQueue) mutate(ctx context.Context, id string, fn func(*domain.QueueItem, time.Time) error) error {
	item, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	previous := item.Status
	transitionErr := fn(item, time.Now())
	if !persistable(transitionErr) {
		return transitionErr
	}

	doc := entity.MongoQueueItemDocFromDomain(item)
	filter := bson.M{"_id": id, "status": string(previous)}
	result, err := q.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrQueueItemTerminal
	}
	return transitionErr
}

// Get returns an item
func (q *MongoQueue) Get(ctx context.Context, id string) (*domain.QueueItem, error) {
	var doc entity.MongoQueueItemDoc
	err := q.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrQueueItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return doc.ToDomain(), nil
}

// ListFailed returns terminal items, most recently failed first
func (q *MongoQueue) ListFailed(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := q.collection.Find(ctx, bson.M{"status": string(domain.QueueStatusFailed)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.QueueItem
	for cursor.Next(ctx) {
		var doc entity.MongoQueueItemDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode queue item: %w", err)
		}
		items = append(items, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return items, nil
}
