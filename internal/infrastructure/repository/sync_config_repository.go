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

// MongoSyncConfigRepository implements SyncConfigRepository using MongoDB.
// There is at most one config per integration.
type MongoSyncConfigRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncConfigRepository creates a new MongoDB repository
func NewMongoSyncConfigRepository(db *mongo.Database) ports.SyncConfigRepository {
	return &MongoSyncConfigRepository{
		collection: db.Collection(CollectionSyncConfigs),
	}
}

// Upsert creates or replaces the config of an integration
func (r *MongoSyncConfigRepository) Upsert(ctx context.Context, config *domain.SyncConfig) error {
	now := time.Now()
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}
	config.UpdatedAt = now
	doc := entity.MongoSyncConfigDocFromDomain(config)

	set := bson.M{
		"userId":         doc.UserID,
		"platform":       doc.Platform,
		"syncProducts":   doc.SyncProducts,
		"syncPrices":     doc.SyncPrices,
		"syncStock":      doc.SyncStock,
		"syncOrders":     doc.SyncOrders,
		"syncCustomers":  doc.SyncCustomers,
		"syncTracking":   doc.SyncTracking,
		"direction":      doc.Direction,
		"active":         doc.Active,
		"lastFullSyncAt": doc.LastFullSyncAt,
		"updatedAt":      doc.UpdatedAt,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": doc.ID, "createdAt": doc.CreatedAt},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"integrationId": config.IntegrationID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert sync config: %w", err)
	}

	return nil
}

// GetByIntegration retrieves the config of an integration
func (r *MongoSyncConfigRepository) GetByIntegration(ctx context.Context, integrationID string) (*domain.SyncConfig, error) {
	var doc entity.MongoSyncConfigDoc
	err := r.collection.FindOne(ctx, bson.M{"integrationId": integrationID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync config: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListActive returns the active configs of a tenant, optionally narrowed to platforms
func (r *MongoSyncConfigRepository) ListActive(ctx context.Context, userID string, platforms []domain.Platform) ([]*domain.SyncConfig, error) {
	filter := bson.M{"userId": userID, "active": true}
	if len(platforms) > 0 {
		names := make([]string, 0, len(platforms))
		for _, p := range platforms {
			names = append(names, string(p))
		}
		filter["platform"] = bson.M{"$in": names}
	}
	return r.find(ctx, filter)
}

// ListByUser returns every config of a tenant
func (r *MongoSyncConfigRepository) ListByUser(ctx context.Context, userID string) ([]*domain.SyncConfig, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *MongoSyncConfigRepository) find(ctx context.Context, filter bson.M) ([]*domain.SyncConfig, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync configs: %w", err)
	}
	defer cursor.Close(ctx)

	var configs []*domain.SyncConfig
	for cursor.Next(ctx) {
		var doc entity.MongoSyncConfigDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sync config: %w", err)
		}
		configs = append(configs, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return configs, nil
}

// SetLastFullSync stamps last_full_sync_at
func (r *MongoSyncConfigRepository) SetLastFullSync(ctx context.Context, id string, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastFullSyncAt": at, "updatedAt": time.Now()}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to set last full sync: %w", err)
	}
	return nil
}
