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

// MongoIntegrationRepository implements IntegrationRepository using MongoDB
type MongoIntegrationRepository struct {
	collection *mongo.Collection
}

// NewMongoIntegrationRepository creates a new MongoDB integration repository
func NewMongoIntegrationRepository(db *mongo.Database) ports.IntegrationRepository {
	return &MongoIntegrationRepository{
		collection: db.Collection(CollectionIntegrations),
	}
}

// Create creates a new integration
func (r *MongoIntegrationRepository) Create(ctx context.Context, integration *domain.Integration) error {
	if integration.ID == "" {
		integration.ID = uuid.NewString()
	}
	doc := entity.MongoIntegrationDocFromDomain(integration)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}

	return nil
}

// Update replaces an integration document
func (r *MongoIntegrationRepository) Update(ctx context.Context, integration *domain.Integration) error {
	doc := entity.MongoIntegrationDocFromDomain(integration)
	doc.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": integration.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrIntegrationNotFound
	}
	return nil
}

// GetByID retrieves an integration by id
func (r *MongoIntegrationRepository) GetByID(ctx context.Context, id string) (*domain.Integration, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByStoreIdentifier retrieves the integration owning a platform store
func (r *MongoIntegrationRepository) GetByStoreIdentifier(ctx context.Context, platform domain.Platform, storeIdentifier string) (*domain.Integration, error) {
	return r.findOne(ctx, bson.M{
		"platform":        string(platform),
		"storeIdentifier": storeIdentifier,
	})
}

func (r *MongoIntegrationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Integration, error) {
	var doc entity.MongoIntegrationDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return doc.ToDomain(), nil
}

// List retrieves integrations matching the filter
func (r *MongoIntegrationRepository) List(ctx context.Context, f domain.IntegrationFilter) ([]*domain.Integration, error) {
	filter := bson.M{}
	if f.IntegrationID != "" {
		filter["_id"] = f.IntegrationID
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.ActiveOnly {
		filter["active"] = true
	}
	if len(f.Platforms) > 0 {
		platforms := make([]string, 0, len(f.Platforms))
		for _, p := range f.Platforms {
			platforms = append(platforms, string(p))
		}
		filter["platform"] = bson.M{"$in": platforms}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer cursor.Close(ctx)

	var integrations []*domain.Integration
	for cursor.Next(ctx) {
		var doc entity.MongoIntegrationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode integration: %w", err)
		}
		integrations = append(integrations, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return integrations, nil
}

// RecordWebhook increments the webhook counter server-side so concurrent
// deliveries never lose an update
func (r *MongoIntegrationRepository) RecordWebhook(ctx context.Context, id string, at time.Time) error {
	update := bson.M{
		"$inc": bson.M{"webhookEventCount": 1},
		"$set": bson.M{"lastWebhookAt": at, "updatedAt": time.Now()},
	}
	return r.updateByID(ctx, id, update, "record webhook")
}

// SetSyncInProgress sets the sync flag
func (r *MongoIntegrationRepository) SetSyncInProgress(ctx context.Context, id string, inProgress bool) error {
	update := bson.M{"$set": bson.M{"syncInProgress": inProgress, "updatedAt": time.Now()}}
	return r.updateByID(ctx, id, update, "set sync in progress")
}

// RecordSyncOutcome applies a sync run result and returns the consecutive failure count
func (r *MongoIntegrationRepository) RecordSyncOutcome(ctx context.Context, id string, outcome domain.SyncOutcome) (int, error) {
	inc := bson.M{
		"totalProductsSynced": outcome.ProductsSynced,
		"totalOrdersSynced":   outcome.OrdersSynced,
	}
	set := bson.M{"lastSyncAt": outcome.At, "updatedAt": time.Now()}
	if outcome.Failed {
		inc["consecutiveFailures"] = 1
	} else {
		set["consecutiveFailures"] = 0
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc entity.MongoIntegrationDoc
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": inc, "$set": set}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, domain.ErrIntegrationNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to record sync outcome: %w", err)
	}

	return doc.ConsecutiveFailures, nil
}

// SetActive enables or soft-disables an integration
func (r *MongoIntegrationRepository) SetActive(ctx context.Context, id string, active bool) error {
	update := bson.M{"$set": bson.M{"active": active, "updatedAt": time.Now()}}
	return r.updateByID(ctx, id, update, "set active")
}

func (r *MongoIntegrationRepository) updateByID(ctx context.Context, id string, update bson.M, op string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrIntegrationNotFound
	}
	return nil
}
