package ports

import (
	"context"
	"time"

	"archie-core-commerce-sync/internal/domain"
)

// EventFilter narrows canonical event listings
type EventFilter struct {
	IntegrationID string
	Platform      domain.Platform
	Kind          domain.EventKind
	Unprocessed   bool
	Limit         int
}

// EventStore is the append-only canonical event log
type EventStore interface {
	// Append writes the event and its outbox entry atomically
	Append(ctx context.Context, event *domain.CanonicalEvent, outbox *domain.OutboxEntry) error
	GetByID(ctx context.Context, id string) (*domain.CanonicalEvent, error)
	// MarkProcessed flips the only mutable field of a stored event
	MarkProcessed(ctx context.Context, id string) error
	List(ctx context.Context, filter EventFilter) ([]*domain.CanonicalEvent, error)
}

// OutboxRepository persists outbox entries written alongside events
type OutboxRepository interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEntry, error)
	GetByEventID(ctx context.Context, eventID string) (*domain.OutboxEntry, error)
	Save(ctx context.Context, entry *domain.OutboxEntry) error
}

// SyncConfigRepository defines the interface for sync configuration persistence
type SyncConfigRepository interface {
	Upsert(ctx context.Context, config *domain.SyncConfig) error
	GetByIntegration(ctx context.Context, integrationID string) (*domain.SyncConfig, error)
	ListActive(ctx context.Context, userID string, platforms []domain.Platform) ([]*domain.SyncConfig, error)
	// ListByUser returns every config of a tenant, active or not
	ListByUser(ctx context.Context, userID string) ([]*domain.SyncConfig, error)
	SetLastFullSync(ctx context.Context, id string, at time.Time) error
}

// SyncLogRepository stores write-once audit records
type SyncLogRepository interface {
	Insert(ctx context.Context, log *domain.SyncLog) error
	ListByIntegration(ctx context.Context, integrationID string, limit int) ([]*domain.SyncLog, error)
}

// ProjectionRepository upserts denormalized entity rows keyed by (scope, external_id)
type ProjectionRepository interface {
	UpsertProduct(ctx context.Context, product *domain.ProductMirror) error
	UpsertOrder(ctx context.Context, order *domain.OrderRecord) error
	UpsertStock(ctx context.Context, stock *domain.StockLevel) error
	UpsertRefund(ctx context.Context, refund *domain.RefundRecord) error
	GetProduct(ctx context.Context, scope, externalID string) (*domain.ProductMirror, error)
	GetOrder(ctx context.Context, scope, externalID string) (*domain.OrderRecord, error)
	GetStock(ctx context.Context, scope, externalID string) (*domain.StockLevel, error)
	// FindProductBySKU links the same article across channels
	FindProductBySKU(ctx context.Context, scope, sku string) (*domain.ProductMirror, error)
	ListProducts(ctx context.Context, scope string, limit int) ([]*domain.ProductMirror, error)
	ListOrders(ctx context.Context, scope string, limit int) ([]*domain.OrderRecord, error)
	ListStock(ctx context.Context, scope string, limit int) ([]*domain.StockLevel, error)
}
