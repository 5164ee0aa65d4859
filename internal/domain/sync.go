package domain

import "time"

// SyncType is one category of outbound propagation
type SyncType string

const (
	SyncTypeProducts  SyncType = "products"
	SyncTypePrices    SyncType = "prices"
	SyncTypeStock     SyncType = "stock"
	SyncTypeOrders    SyncType = "orders"
	SyncTypeCustomers SyncType = "customers"
	SyncTypeTracking  SyncType = "tracking"
)

// AllSyncTypes is the default set run by the orchestrator, in execution order
var AllSyncTypes = []SyncType{
	SyncTypeProducts,
	SyncTypePrices,
	SyncTypeStock,
	SyncTypeOrders,
	SyncTypeCustomers,
	SyncTypeTracking,
}

// IsValid reports whether t is a known sync type
func (t SyncType) IsValid() bool {
	for _, candidate := range AllSyncTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// SyncDirection controls which way data flows for an integration
type SyncDirection string

const (
	DirectionPush          SyncDirection = "push"
	DirectionPull          SyncDirection = "pull"
	DirectionBidirectional SyncDirection = "bidirectional"
)

// Pushes reports whether local state is propagated to the platform
func (d SyncDirection) Pushes() bool {
	return d == DirectionPush || d == DirectionBidirectional || d == ""
}

// Pulls reports whether platform state is imported
func (d SyncDirection) Pulls() bool {
	return d == DirectionPull || d == DirectionBidirectional
}

// Allows reports whether t flows in this direction. Orders are imported from
// the platform; every other sync type is pushed to it.
func (d SyncDirection) Allows(t SyncType) bool {
	if t == SyncTypeOrders {
		return d.Pulls()
	}
	return d.Pushes()
}

// SyncConfig holds the per tenant+integration sync toggles
type SyncConfig struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	IntegrationID  string        `json:"integration_id"`
	Platform       Platform      `json:"platform"`
	SyncProducts   bool          `json:"sync_products"`
	SyncPrices     bool          `json:"sync_prices"`
	SyncStock      bool          `json:"sync_stock"`
	SyncOrders     bool          `json:"sync_orders"`
	SyncCustomers  bool          `json:"sync_customers"`
	SyncTracking   bool          `json:"sync_tracking"`
	Direction      SyncDirection `json:"direction"`
	Active         bool          `json:"active"`
	LastFullSyncAt *time.Time    `json:"last_full_sync_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Enabled reports whether the toggle for t is on
func (c *SyncConfig) Enabled(t SyncType) bool {
	switch t {
	case SyncTypeProducts:
		return c.SyncProducts
	case SyncTypePrices:
		return c.SyncPrices
	case SyncTypeStock:
		return c.SyncStock
	case SyncTypeOrders:
		return c.SyncOrders
	case SyncTypeCustomers:
		return c.SyncCustomers
	case SyncTypeTracking:
		return c.SyncTracking
	}
	return false
}

// Allows reports whether t is both toggled on and permitted by the direction
func (c *SyncConfig) Allows(t SyncType) bool {
	return c.Enabled(t) && c.Direction.Allows(t)
}

// SyncTypeForEvent maps an inbound event kind to the outbound sync type it feeds
func SyncTypeForEvent(kind EventKind) (SyncType, bool) {
	switch kind {
	case EventKindProduct:
		return SyncTypeProducts, true
	case EventKindInventory:
		return SyncTypeStock, true
	}
	return "", false
}

// SyncResult is what a syncer reports for one call
type SyncResult struct {
	ExternalID string                 `json:"external_id,omitempty"`
	Processed  int                    `json:"processed"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Add folds another result into r
func (r *SyncResult) Add(other SyncResult) {
	r.Processed += other.Processed
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
}

// SyncTypeResult is the isolated outcome of one sync type
type SyncTypeResult struct {
	SyncType SyncType    `json:"sync_type"`
	Success  bool        `json:"success"`
	Data     *SyncResult `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// PlatformResult aggregates the sync types run against one integration
type PlatformResult struct {
	IntegrationID string           `json:"integration_id"`
	Platform      Platform         `json:"platform"`
	Status        SyncLogStatus    `json:"status"`
	Results       []SyncTypeResult `json:"results"`
}

// IntegrationRunResult is one scheduler entry
type IntegrationRunResult struct {
	IntegrationID  string   `json:"integration_id"`
	Platform       Platform `json:"platform"`
	Success        bool     `json:"success"`
	ProductsSynced int      `json:"products_synced"`
	OrdersSynced   int      `json:"orders_synced"`
	Error          string   `json:"error,omitempty"`
	Disabled       bool     `json:"disabled,omitempty"`
}

// ScheduledSummary is returned by a batch auto-sync run
type ScheduledSummary struct {
	Total          int                    `json:"total"`
	Successful     int                    `json:"successful"`
	Failed         int                    `json:"failed"`
	ProductsSynced int                    `json:"products_synced"`
	OrdersSynced   int                    `json:"orders_synced"`
	DurationMs     int64                  `json:"duration_ms"`
	Results        []IntegrationRunResult `json:"results"`
}

// ScheduleScope selects integrations for a scheduled run
type ScheduleScope struct {
	IntegrationID string `json:"integration_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
}

// SyncLogStatus summarizes one orchestration run on a platform
type SyncLogStatus string

const (
	SyncLogSuccess SyncLogStatus = "success"
	SyncLogPartial SyncLogStatus = "partial"
	SyncLogFailed  SyncLogStatus = "failed"
)

// DeriveSyncLogStatus is success when nothing failed, failed when nothing succeeded, partial otherwise
func DeriveSyncLogStatus(succeeded, failed int) SyncLogStatus {
	switch {
	case failed == 0:
		return SyncLogSuccess
	case succeeded == 0:
		return SyncLogFailed
	default:
		return SyncLogPartial
	}
}

// SyncLog is a write-once audit record
type SyncLog struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	IntegrationID  string                 `json:"integration_id"`
	Platform       Platform               `json:"platform"`
	EntityType     string                 `json:"entity_type"`
	Action         string                 `json:"action"`
	Status         SyncLogStatus          `json:"status"`
	ItemsProcessed int                    `json:"items_processed"`
	ItemsSucceeded int                    `json:"items_succeeded"`
	ItemsFailed    int                    `json:"items_failed"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
