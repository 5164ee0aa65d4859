package entity

import (
	"time"

	"archie-core-commerce-sync/internal/domain"
)

// MongoSyncConfigDoc represents a sync configuration in MongoDB
type MongoSyncConfigDoc struct {
	ID             string     `bson:"_id"`
	UserID         string     `bson:"userId"`
	IntegrationID  string     `bson:"integrationId"`
	Platform       string     `bson:"platform"`
	SyncProducts   bool       `bson:"syncProducts"`
	SyncPrices     bool       `bson:"syncPrices"`
	SyncStock      bool       `bson:"syncStock"`
	SyncOrders     bool       `bson:"syncOrders"`
	SyncCustomers  bool       `bson:"syncCustomers"`
	SyncTracking   bool       `bson:"syncTracking"`
	Direction      string     `bson:"direction"`
	Active         bool       `bson:"active"`
	LastFullSyncAt *time.Time `bson:"lastFullSyncAt,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSyncConfigDoc) ToDomain() *domain.SyncConfig {
	return &domain.SyncConfig{
		ID:             d.ID,
		UserID:         d.UserID,
		IntegrationID:  d.IntegrationID,
		Platform:       domain.Platform(d.Platform),
		SyncProducts:   d.SyncProducts,
		SyncPrices:     d.SyncPrices,
		SyncStock:      d.SyncStock,
		SyncOrders:     d.SyncOrders,
		SyncCustomers:  d.SyncCustomers,
		SyncTracking:   d.SyncTracking,
		Direction:      domain.SyncDirection(d.Direction),
		Active:         d.Active,
		LastFullSyncAt: d.LastFullSyncAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// MongoSyncConfigDocFromDomain converts a domain entity to a MongoDB document
func MongoSyncConfigDocFromDomain(config *domain.SyncConfig) *MongoSyncConfigDoc {
	return &MongoSyncConfigDoc{
		ID:             config.ID,
		UserID:         config.UserID,
		IntegrationID:  config.IntegrationID,
		Platform:       string(config.Platform),
		SyncProducts:   config.SyncProducts,
		SyncPrices:     config.SyncPrices,
		SyncStock:      config.SyncStock,
		SyncOrders:     config.SyncOrders,
		SyncCustomers:  config.SyncCustomers,
		SyncTracking:   config.SyncTracking,
		Direction:      string(config.Direction),
		Active:         config.Active,
		LastFullSyncAt: config.LastFullSyncAt,
		CreatedAt:      config.CreatedAt,
		UpdatedAt:      config.UpdatedAt,
	}
}

// MongoSyncLogDoc represents a write-once sync log in MongoDB
type MongoSyncLogDoc struct {
	ID             string                 `bson:"_id"`
	UserID         string                 `bson:"userId"`
	IntegrationID  string                 `bson:"integrationId"`
	Platform       string                 `bson:"platform"`
	EntityType     string                 `bson:"entityType"`
	Action         string                 `bson:"action"`
	Status         string                 `bson:"status"`
	ItemsProcessed int                    `bson:"itemsProcessed"`
	ItemsSucceeded int                    `bson:"itemsSucceeded"`
	ItemsFailed    int                    `bson:"itemsFailed"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt      time.Time              `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSyncLogDoc) ToDomain() *domain.SyncLog {
	return &domain.SyncLog{
		ID:             d.ID,
		UserID:         d.UserID,
		IntegrationID:  d.IntegrationID,
		Platform:       domain.Platform(d.Platform),
		EntityType:     d.EntityType,
		Action:         d.Action,
		Status:         domain.SyncLogStatus(d.Status),
		ItemsProcessed: d.ItemsProcessed,
		ItemsSucceeded: d.ItemsSucceeded,
		ItemsFailed:    d.ItemsFailed,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
	}
}

// MongoSyncLogDocFromDomain converts a domain entity to a MongoDB document
func MongoSyncLogDocFromDomain(log *domain.SyncLog) *MongoSyncLogDoc {
	return &MongoSyncLogDoc{
		ID:             log.ID,
		UserID:         log.UserID,
		IntegrationID:  log.IntegrationID,
		Platform:       string(log.Platform),
		EntityType:     log.EntityType,
		Action:         log.Action,
		Status:         string(log.Status),
		ItemsProcessed: log.ItemsProcessed,
		ItemsSucceeded: log.ItemsSucceeded,
		ItemsFailed:    log.ItemsFailed,
		Metadata:       log.Metadata,
		CreatedAt:      log.CreatedAt,
	}
}

// MongoQueueItemDoc represents a sync queue item in MongoDB
type MongoQueueItemDoc struct {
	ID            string                 `bson:"_id"`
	EntityID      string                 `bson:"entityId"`
	SyncType      string                 `bson:"syncType"`
	Channels      []domain.ChannelTarget `bson:"channels"`
	Payload       map[string]interface{} `bson:"payload"`
	Status        string                 `bson:"status"`
	RetryCount    int                    `bson:"retryCount"`
	MaxRetries    int                    `bson:"maxRetries"`
	Priority      int                    `bson:"priority"`
	LastError     string                 `bson:"lastError,omitempty"`
	NextAttemptAt time.Time              `bson:"nextAttemptAt"`
	CreatedAt     time.Time              `bson:"createdAt"`
	UpdatedAt     time.Time              `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoQueueItemDoc) ToDomain() *domain.QueueItem {
	return &domain.QueueItem{
		ID:            d.ID,
		EntityID:      d.EntityID,
		SyncType:      domain.SyncType(d.SyncType),
		Channels:      d.Channels,
		Payload:       d.Payload,
		Status:        domain.QueueStatus(d.Status),
		RetryCount:    d.RetryCount,
		MaxRetries:    d.MaxRetries,
		Priority:      d.Priority,
		LastError:     d.LastError,
		NextAttemptAt: d.NextAttemptAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoQueueItemDocFromDomain converts a domain entity to a MongoDB document
func MongoQueueItemDocFromDomain(item *domain.QueueItem) *MongoQueueItemDoc {
	return &MongoQueueItemDoc{
		ID:            item.ID,
		EntityID:      item.EntityID,
		SyncType:      string(item.SyncType),
		Channels:      item.Channels,
		Payload:       item.Payload,
		Status:        string(item.Status),
		RetryCount:    item.RetryCount,
		MaxRetries:    item.MaxRetries,
		Priority:      item.Priority,
		LastError:     item.LastError,
		NextAttemptAt: item.NextAttemptAt,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}
