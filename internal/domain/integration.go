package domain

import "time"

// Integration is a tenant's connection to one external commerce platform
type Integration struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	Platform             Platform   `json:"platform"`
	StoreURL             string     `json:"store_url"`
	StoreIdentifier      string     `json:"store_identifier"` // shop domain, seller id, shop id...
	EncryptedCredentials string     `json:"-"`
	WebhookSecret        string     `json:"-"`
	Active               bool       `json:"active"`
	SyncInProgress       bool       `json:"sync_in_progress"`
	LastWebhookAt        *time.Time `json:"last_webhook_at,omitempty"`
	LastSyncAt           *time.Time `json:"last_sync_at,omitempty"`
	WebhookEventCount    int64      `json:"webhook_event_count"`
	TotalProductsSynced  int64      `json:"total_products_synced"`
	TotalOrdersSynced    int64      `json:"total_orders_synced"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IntegrationFilter narrows integration listings. Empty fields match everything.
type IntegrationFilter struct {
	IntegrationID string
	UserID        string
	Platforms     []Platform
	ActiveOnly    bool
}

// Matches reports whether the integration satisfies the filter
func (f IntegrationFilter) Matches(i *Integration) bool {
	if i == nil {
		return false
	}
	if f.IntegrationID != "" && i.ID != f.IntegrationID {
		return false
	}
	if f.UserID != "" && i.UserID != f.UserID {
		return false
	}
	if f.ActiveOnly && !i.Active {
		return false
	}
	if len(f.Platforms) > 0 {
		for _, p := range f.Platforms {
			if p == i.Platform {
				return true
			}
		}
		return false
	}
	return true
}

// SyncOutcome is applied to an integration after a scheduled sync run
type SyncOutcome struct {
	At             time.Time
	ProductsSynced int
	OrdersSynced   int
	Failed         bool
}

// Credentials are the decrypted per-tenant platform credentials
type Credentials map[string]string

// Get returns the first non-empty value among the given keys
func (c Credentials) Get(keys ...string) string {
	for _, k := range keys {
		if v := c[k]; v != "" {
			return v
		}
	}
	return ""
}

// AccessToken returns the OAuth/API access token
func (c Credentials) AccessToken() string {
	return c.Get("access_token", "accessToken", "token")
}
