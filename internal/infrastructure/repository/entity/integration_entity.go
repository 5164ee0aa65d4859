package entity

import (
	"time"

	"archie-core-commerce-sync/internal/domain"
)

// MongoIntegrationDoc represents an integration in MongoDB
type MongoIntegrationDoc struct {
	ID                   string     `bson:"_id"`
	UserID               string     `bson:"userId"`
	Platform             string     `bson:"platform"`
	StoreURL             string     `bson:"storeUrl"`
	StoreIdentifier      string     `bson:"storeIdentifier"`
	EncryptedCredentials string     `bson:"encryptedCredentials"`
	WebhookSecret        string     `bson:"webhookSecret"`
	Active               bool       `bson:"active"`
	SyncInProgress       bool       `bson:"syncInProgress"`
	LastWebhookAt        *time.Time `bson:"lastWebhookAt,omitempty"`
	LastSyncAt           *time.Time `bson:"lastSyncAt,omitempty"`
	WebhookEventCount    int64      `bson:"webhookEventCount"`
	TotalProductsSynced  int64      `bson:"totalProductsSynced"`
	TotalOrdersSynced    int64      `bson:"totalOrdersSynced"`
	ConsecutiveFailures  int        `bson:"consecutiveFailures"`
	CreatedAt            time.Time  `bson:"createdAt"`
	UpdatedAt            time.Time  `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoIntegrationDoc) ToDomain() *domain.Integration {
	return &domain.Integration{
		ID:                   d.ID,
		UserID:               d.UserID,
		Platform:             domain.Platform(d.Platform),
		StoreURL:             d.StoreURL,
		StoreIdentifier:      d.StoreIdentifier,
		EncryptedCredentials: d.EncryptedCredentials,
		WebhookSecret:        d.WebhookSecret,
		Active:               d.Active,
		SyncInProgress:       d.SyncInProgress,
		LastWebhookAt:        d.LastWebhookAt,
		LastSyncAt:           d.LastSyncAt,
		WebhookEventCount:    d.WebhookEventCount,
		TotalProductsSynced:  d.TotalProductsSynced,
		TotalOrdersSynced:    d.TotalOrdersSynced,
		ConsecutiveFailures:  d.ConsecutiveFailures,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// MongoIntegrationDocFromDomain converts a domain entity to a MongoDB document
func MongoIntegrationDocFromDomain(integration *domain.Integration) *MongoIntegrationDoc {
	return &MongoIntegrationDoc{
		ID:                   integration.ID,
		UserID:               integration.UserID,
		Platform:             string(integration.Platform),
		StoreURL:             integration.StoreURL,
		StoreIdentifier:      integration.StoreIdentifier,
		EncryptedCredentials: integration.EncryptedCredentials,
		WebhookSecret:        integration.WebhookSecret,
		Active:               integration.Active,
		SyncInProgress:       integration.SyncInProgress,
		LastWebhookAt:        integration.LastWebhookAt,
		LastSyncAt:           integration.LastSyncAt,
		WebhookEventCount:    integration.WebhookEventCount,
		TotalProductsSynced:  integration.TotalProductsSynced,
		TotalOrdersSynced:    integration.TotalOrdersSynced,
		ConsecutiveFailures:  integration.ConsecutiveFailures,
		CreatedAt:            integration.CreatedAt,
		UpdatedAt:            integration.UpdatedAt,
	}
}
