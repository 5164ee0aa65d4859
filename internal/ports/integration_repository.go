package ports

import (
	"context"
	"time"

	"archie-core-commerce-sync/internal/domain"
)

// IntegrationRepository defines the interface for integration persistence.
// Getters return nil, nil when the integration does not exist.
type IntegrationRepository interface {
	// Create stores a new integration
	Create(ctx context.Context, integration *domain.Integration) error

	// Update replaces the stored record, counters included
	Update(ctx context.Context, integration *domain.Integration) error

	// GetByID retrieves an integration by id
	GetByID(ctx context.Context, id string) (*domain.Integration, error)

	// GetByStoreIdentifier resolves the integration a webhook belongs to
	GetByStoreIdentifier(ctx context.Context, platform domain.Platform, storeIdentifier string) (*domain.Integration, error)

	// List returns integrations matching the filter
	List(ctx context.Context, filter domain.IntegrationFilter) ([]*domain.Integration, error)

	// RecordWebhook atomically increments webhook_event_count and sets last_webhook_at
	RecordWebhook(ctx context.Context, id string, at time.Time) error

	// SetSyncInProgress sets the sync_in_progress flag (last write wins)
	SetSyncInProgress(ctx context.Context, id string, inProgress bool) error

	// RecordSyncOutcome stamps last_sync_at, increments totals and returns the
	// resulting consecutive failure count
	RecordSyncOutcome(ctx context.Context, id string, outcome domain.SyncOutcome) (int, error)

	// SetActive enables or soft-disables an integration
	SetActive(ctx context.Context, id string, active bool) error
}
