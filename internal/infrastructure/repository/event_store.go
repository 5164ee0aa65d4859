package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/repository/entity"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEventStore implements EventStore and OutboxRepository using MongoDB
type MongoEventStore struct {
	client          *mongo.Client
	events          *mongo.Collection
	outbox          *mongo.Collection
	useTransactions bool
	logger          zerolog.Logger
}

// NewMongoEventStore creates a new MongoDB event store
func NewMongoEventStore(client *mongo.Client, db *mongo.Database, useTransactions bool, logger zerolog.Logger) *MongoEventStore {
	return &MongoEventStore{
		client:          client,
		events:          db.Collection(CollectionEvents),
		outbox:          db.Collection(CollectionOutbox),
		useTransactions: useTransactions,
		logger:          logger.With().Str("component", "event_store").Logger(),
	}
}

var (
	_ ports.EventStore       = (*MongoEventStore)(nil)
	_ ports.OutboxRepository = (*MongoEventStore)(nil)
)

// Append writes the event and its outbox entry in one transaction. Without
// transactions the outbox entry is written first and removed again when the
// event insert fails, so an event is never stored without its entry.
func (s *MongoEventStore) Append(ctx context.Context, event *domain.CanonicalEvent, outbox *domain.OutboxEntry) error {
	eventDoc := entity.MongoEventDocFromDomain(event)
	outboxDoc := entity.MongoOutboxDocFromDomain(outbox)

	if !s.useTransactions || s.client == nil {
		return s.appendSequential(ctx, eventDoc, outboxDoc)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.outbox.InsertOne(sc, outboxDoc); err != nil {
			return nil, fmt.Errorf("failed to insert outbox entry: %w", err)
		}
		if _, err := s.events.InsertOne(sc, eventDoc); err != nil {
			return nil, fmt.Errorf("failed to insert event: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *MongoEventStore) appendSequential(ctx context.Context, eventDoc *entity.MongoEventDoc, outboxDoc *entity.MongoOutboxDoc) error {
	if _, err := s.outbox.InsertOne(ctx, outboxDoc); err != nil {
		return fmt.Errorf("failed to insert outbox entry: %w", err)
	}
	if _, err := s.events.InsertOne(ctx, eventDoc); err != nil {
		if _, delErr := s.outbox.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": outboxDoc.ID}); delErr != nil {
			// the processor fails orphan entries on its own
			s.logger.Error().Err(delErr).Str("outboxId", outboxDoc.ID).Msg("Failed to remove outbox entry of unstored event")
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// SupportsTransactions reports whether the deployment is a replica set or a
// sharded cluster. Standalone servers reject multi-document transactions.
func SupportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// GetByID retrieves a stored event
func (s *MongoEventStore) GetByID(ctx context.Context, id string) (*domain.CanonicalEvent, error) {
	var doc entity.MongoEventDoc
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return doc.ToDomain(), nil
}

// MarkProcessed flags an event as dispatched
func (s *MongoEventStore) MarkProcessed(ctx context.Context, id string) error {
	_, err := s.events.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// List returns the newest events matching the filter
func (s *MongoEventStore) List(ctx context.Context, f ports.EventFilter) ([]*domain.CanonicalEvent, error) {
	filter := bson.M{}
	if f.IntegrationID != "" {
		filter["integrationId"] = f.IntegrationID
	}
	if f.Platform != "" {
		filter["platform"] = string(f.Platform)
	}
	if f.Kind != "" {
		filter["eventKind"] = string(f.Kind)
	}
	if f.Unprocessed {
		filter["processed"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "receivedAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.CanonicalEvent
	for cursor.Next(ctx) {
		var doc entity.MongoEventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return events, nil
}

// FindDue returns pending outbox entries whose next attempt is due
func (s *MongoEventStore) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEntry, error) {
	filter := bson.M{
		"status":        string(domain.OutboxStatusPending),
		"nextAttemptAt": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.outbox.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find due outbox entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.OutboxEntry
	for cursor.Next(ctx) {
		var doc entity.MongoOutboxDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode outbox entry: %w", err)
		}
		entries = append(entries, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return entries, nil
}

// GetByEventID retrieves the outbox entry of an event
func (s *MongoEventStore) GetByEventID(ctx context.Context, eventID string) (*domain.OutboxEntry, error) {
	var doc entity.MongoOutboxDoc
	err := s.outbox.FindOne(ctx, bson.M{"eventId": eventID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox entry: %w", err)
	}
	return doc.ToDomain(), nil
}

// Save replaces an outbox entry
func (s *MongoEventStore) Save(ctx context.Context, entry *domain.OutboxEntry) error {
	doc := entity.MongoOutboxDocFromDomain(entry)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.outbox.ReplaceOne(ctx, bson.M{"_id": entry.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save outbox entry: %w", err)
	}
	return nil
}
