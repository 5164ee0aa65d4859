package entity

import (
	"time"

	"archie-core-commerce-sync/internal/domain"
)

// MongoEventDoc represents a canonical event in MongoDB
type MongoEventDoc struct {
	ID            string                 `bson:"_id"`
	Platform      string                 `bson:"platform"`
	IntegrationID *string                `bson:"integrationId"`
	UserID        string                 `bson:"userId,omitempty"`
	Kind          string                 `bson:"eventKind"`
	Action        string                 `bson:"action"`
	Topic         string                 `bson:"topic,omitempty"`
	ExternalID    string                 `bson:"externalId,omitempty"`
	DeliveryID    string                 `bson:"deliveryId,omitempty"`
	StoreID       string                 `bson:"storeIdentifier,omitempty"`
	Snapshot      *domain.EntitySnapshot `bson:"snapshot,omitempty"`
	Payload       map[string]interface{} `bson:"payload"`
	Verified      bool                   `bson:"verified"`
	Processed     bool                   `bson:"processed"`
	ReceivedAt    time.Time              `bson:"receivedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoEventDoc) ToDomain() *domain.CanonicalEvent {
	return &domain.CanonicalEvent{
		ID:            d.ID,
		Platform:      domain.Platform(d.Platform),
		IntegrationID: d.IntegrationID,
		UserID:        d.UserID,
		Kind:          domain.EventKind(d.Kind),
		Action:        domain.EventAction(d.Action),
		Topic:         d.Topic,
		ExternalID:    d.ExternalID,
		DeliveryID:    d.DeliveryID,
		StoreID:       d.StoreID,
		Snapshot:      d.Snapshot,
		Payload:       d.Payload,
		Verified:      d.Verified,
		Processed:     d.Processed,
		ReceivedAt:    d.ReceivedAt,
	}
}

// MongoEventDocFromDomain converts a domain entity to a MongoDB document
func MongoEventDocFromDomain(event *domain.CanonicalEvent) *MongoEventDoc {
	return &MongoEventDoc{
		ID:            event.ID,
		Platform:      string(event.Platform),
		IntegrationID: event.IntegrationID,
		UserID:        event.UserID,
		Kind:          string(event.Kind),
		Action:        string(event.Action),
		Topic:         event.Topic,
		ExternalID:    event.ExternalID,
		DeliveryID:    event.DeliveryID,
		StoreID:       event.StoreID,
		Snapshot:      event.Snapshot,
		Payload:       event.Payload,
		Verified:      event.Verified,
		Processed:     event.Processed,
		ReceivedAt:    event.ReceivedAt,
	}
}

// MongoOutboxDoc represents an outbox entry in MongoDB
type MongoOutboxDoc struct {
	ID            string    `bson:"_id"`
	EventID       string    `bson:"eventId"`
	Status        string    `bson:"status"`
	Attempts      int       `bson:"attempts"`
	LastError     string    `bson:"lastError,omitempty"`
	NextAttemptAt time.Time `bson:"nextAttemptAt"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOutboxDoc) ToDomain() *domain.OutboxEntry {
	return &domain.OutboxEntry{
		ID:            d.ID,
		EventID:       d.EventID,
		Status:        domain.OutboxStatus(d.Status),
		Attempts:      d.Attempts,
		LastError:     d.LastError,
		NextAttemptAt: d.NextAttemptAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoOutboxDocFromDomain converts a domain entity to a MongoDB document
func MongoOutboxDocFromDomain(entry *domain.OutboxEntry) *MongoOutboxDoc {
	return &MongoOutboxDoc{
		ID:            entry.ID,
		EventID:       entry.EventID,
		Status:        string(entry.Status),
		Attempts:      entry.Attempts,
		LastError:     entry.LastError,
		NextAttemptAt: entry.NextAttemptAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
