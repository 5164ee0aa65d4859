// Package memory holds in-process repository implementations used by tests
// and by the API when no MongoDB URI is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/google/uuid"
)

// IntegrationRepository is an in-memory ports.IntegrationRepository
type IntegrationRepository struct {
	mu   sync.RWMutex
	byID map[string]*domain.Integration
}

// NewIntegrationRepository creates an empty repository
func NewIntegrationRepository() *IntegrationRepository {
	return &IntegrationRepository{byID: make(map[string]*domain.Integration)}
}

func copyIntegration(i *domain.Integration) *domain.Integration {
	c := *i
	return &c
}

// Create stores a copy of the integration
func (r *IntegrationRepository) Create(_ context.Context, integration *domain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if integration.ID == "" {
		integration.ID = uuid.NewString()
	}
	now := time.Now()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}
	integration.UpdatedAt = now
	r.byID[integration.ID] = copyIntegration(integration)
	return nil
}

// Update replaces an existing integration
func (r *IntegrationRepository) Update(_ context.Context, integration *domain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[integration.ID]; !ok {
		return domain.ErrIntegrationNotFound
	}
	integration.UpdatedAt = time.Now()
	r.byID[integration.ID] = copyIntegration(integration)
	return nil
}

// GetByID returns a copy or nil
func (r *IntegrationRepository) GetByID(_ context.Context, id string) (*domain.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.byID[id]; ok {
		return copyIntegration(i), nil
	}
	return nil, nil
}

// GetByStoreIdentifier returns the integration owning the store or nil
func (r *IntegrationRepository) GetByStoreIdentifier(_ context.Context, platform domain.Platform, storeIdentifier string) (*domain.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.byID {
		if i.Platform == platform && i.StoreIdentifier == storeIdentifier {
			return copyIntegration(i), nil
		}
	}
	return nil, nil
}

// List returns matching integrations ordered by creation time
func (r *IntegrationRepository) List(_ context.Context, filter domain.IntegrationFilter) ([]*domain.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Integration
	for _, i := range r.byID {
		if filter.Matches(i) {
			out = append(out, copyIntegration(i))
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out, nil
}

func (r *IntegrationRepository) mutate(id string, fn func(*domain.Integration)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrIntegrationNotFound
	}
	fn(i)
	i.UpdatedAt = time.Now()
	return nil
}

// RecordWebhook increments the webhook counter
func (r *IntegrationRepository) RecordWebhook(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(i *domain.Integration) {
		i.WebhookEventCount++
		t := at
		i.LastWebhookAt = &t
	})
}

// SetSyncInProgress sets the sync flag
func (r *IntegrationRepository) SetSyncInProgress(_ context.Context, id string, inProgress bool) error {
	return r.mutate(id, func(i *domain.Integration) { i.SyncInProgress = inProgress })
}

// RecordSyncOutcome applies the outcome and returns the failure streak
func (r *IntegrationRepository) RecordSyncOutcome(_ context.Context, id string, outcome domain.SyncOutcome) (int, error) {
	var failures int
	err := r.mutate(id, func(i *domain.Integration) {
		t := outcome.At
		i.LastSyncAt = &t
		i.TotalProductsSynced += int64(outcome.ProductsSynced)
		i.TotalOrdersSynced += int64(outcome.OrdersSynced)
		if outcome.Failed {
			i.ConsecutiveFailures++
		} else {
			i.ConsecutiveFailures = 0
		}
		failures = i.ConsecutiveFailures
	})
	return failures, err
}

// SetActive enables or soft-disables an integration
func (r *IntegrationRepository) SetActive(_ context.Context, id string, active bool) error {
	return r.mutate(id, func(i *domain.Integration) { i.Active = active })
}
