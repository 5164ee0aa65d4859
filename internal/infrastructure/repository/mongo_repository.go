package repository

import (
	"context"
	"fmt"

	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	CollectionIntegrations = "integrations"
	CollectionEvents       = "webhook_events"
	CollectionOutbox       = "event_outbox"
	CollectionSyncConfigs  = "sync_configs"
	CollectionSyncLogs     = "sync_logs"
	CollectionSyncQueue    = "sync_queue"
	CollectionProducts     = "products"
	CollectionOrders       = "orders"
	CollectionStock        = "stock_levels"
	CollectionRefunds      = "refunds"
)

// MongoRepositories bundles every MongoDB-backed repository behind its port
type MongoRepositories struct {
	Integrations ports.IntegrationRepository
	Events       ports.EventStore
	Outbox       ports.OutboxRepository
	SyncConfigs  ports.SyncConfigRepository
	SyncLogs     ports.SyncLogRepository
	Projections  ports.ProjectionRepository
}

// NewMongoRepositories creates all MongoDB repositories on one database.
// useTransactions requires a replica set; without it the event and its
// outbox entry are written sequentially.
func NewMongoRepositories(client *mongo.Client, db *mongo.Database, useTransactions bool, logger zerolog.Logger) *MongoRepositories {
	events := NewMongoEventStore(client, db, useTransactions, logger)
	return &MongoRepositories{
		Integrations: NewMongoIntegrationRepository(db),
		Events:       events,
		Outbox:       events,
		SyncConfigs:  NewMongoSyncConfigRepository(db),
		SyncLogs:     NewMongoSyncLogRepository(db),
		Projections:  NewMongoProjectionRepository(db),
	}
}

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

func indexSpecs() []indexSpec {
	naturalKey := bson.D{{Key: "scope", Value: 1}, {Key: "externalId", Value: 1}}
	return []indexSpec{
		{CollectionIntegrations, mongo.IndexModel{
			Keys:    bson.D{{Key: "platform", Value: 1}, {Key: "storeIdentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollectionIntegrations, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "active", Value: 1}}}},
		{CollectionEvents, mongo.IndexModel{Keys: bson.D{{Key: "integrationId", Value: 1}, {Key: "receivedAt", Value: -1}}}},
		{CollectionOutbox, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "nextAttemptAt", Value: 1}}}},
		{CollectionOutbox, mongo.IndexModel{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollectionSyncConfigs, mongo.IndexModel{
			Keys:    bson.D{{Key: "integrationId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollectionSyncLogs, mongo.IndexModel{Keys: bson.D{{Key: "integrationId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{CollectionSyncQueue, mongo.IndexModel{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "syncType", Value: 1},
			{Key: "priority", Value: 1},
			{Key: "createdAt", Value: 1},
		}}},
		{CollectionProducts, mongo.IndexModel{Keys: naturalKey, Options: options.Index().SetUnique(true)}},
		{CollectionOrders, mongo.IndexModel{Keys: naturalKey, Options: options.Index().SetUnique(true)}},
		{CollectionStock, mongo.IndexModel{Keys: naturalKey, Options: options.Index().SetUnique(true)}},
		{CollectionRefunds, mongo.IndexModel{Keys: naturalKey, Options: options.Index().SetUnique(true)}},
	}
}

// EnsureIndexes creates the indexes the repositories rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, spec := range indexSpecs() {
		if _, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", spec.collection, err)
		}
	}
	return nil
}
