package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/repository/entity"
	"archie-core-commerce-sync/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSyncLogRepository implements SyncLogRepository using MongoDB
type MongoSyncLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncLogRepository creates a new MongoDB repository
func NewMongoSyncLogRepository(db *mongo.Database) ports.SyncLogRepository {
	return &MongoSyncLogRepository{
		collection: db.Collection(CollectionSyncLogs),
	}
}

// Insert writes a sync log. Logs are never updated.
func (r *MongoSyncLogRepository) Insert(ctx context.Context, log *domain.SyncLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if _, err := r.collection.InsertOne(ctx, entity.MongoSyncLogDocFromDomain(log)); err != nil {
		return fmt.Errorf("failed to insert sync log: %w", err)
	}
	return nil
}

// ListByIntegration returns the newest logs of an integration
func (r *MongoSyncLogRepository) ListByIntegration(ctx context.Context, integrationID string, limit int) ([]*domain.SyncLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"integrationId": integrationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*domain.SyncLog
	for cursor.Next(ctx) {
		var doc entity.MongoSyncLogDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sync log: %w", err)
		}
		logs = append(logs, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return logs, nil
}
