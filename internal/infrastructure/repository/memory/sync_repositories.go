package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/google/uuid"
)

// SyncConfigRepository is an in-memory ports.SyncConfigRepository
type SyncConfigRepository struct {
	mu            sync.RWMutex
	byIntegration map[string]*domain.SyncConfig
}

// NewSyncConfigRepository creates an empty repository
func NewSyncConfigRepository() *SyncConfigRepository {
	return &SyncConfigRepository{byIntegration: make(map[string]*domain.SyncConfig)}
}

// Upsert creates or replaces the config of an integration
func (r *SyncConfigRepository) Upsert(_ context.Context, config *domain.SyncConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if existing, ok := r.byIntegration[config.IntegrationID]; ok {
		config.ID = existing.ID
		config.CreatedAt = existing.CreatedAt
	}
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}
	config.UpdatedAt = now
	c := *config
	r.byIntegration[config.IntegrationID] = &c
	return nil
}

// GetByIntegration returns a copy or nil
func (r *SyncConfigRepository) GetByIntegration(_ context.Context, integrationID string) (*domain.SyncConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byIntegration[integrationID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

// ListActive returns active configs of a tenant, optionally narrowed to platforms
func (r *SyncConfigRepository) ListActive(_ context.Context, userID string, platforms []domain.Platform) ([]*domain.SyncConfig, error) {
	return r.list(func(c *domain.SyncConfig) bool {
		if c.UserID != userID || !c.Active {
			return false
		}
		if len(platforms) == 0 {
			return true
		}
		for _, p := range platforms {
			if p == c.Platform {
				return true
			}
		}
		return false
	}), nil
}

// ListByUser returns every config of a tenant
func (r *SyncConfigRepository) ListByUser(_ context.Context, userID string) ([]*domain.SyncConfig, error) {
	return r.list(func(c *domain.SyncConfig) bool { return c.UserID == userID }), nil
}

func (r *SyncConfigRepository) list(match func(*domain.SyncConfig) bool) []*domain.SyncConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.SyncConfig
	for _, c := range r.byIntegration {
		if match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].IntegrationID < out[b].IntegrationID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

// SetLastFullSync stamps last_full_sync_at
func (r *SyncConfigRepository) SetLastFullSync(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byIntegration {
		if c.ID == id {
			t := at
			c.LastFullSyncAt = &t
			c.UpdatedAt = time.Now()
		}
	}
	return nil
}

// SyncLogRepository is an in-memory ports.SyncLogRepository
type SyncLogRepository struct {
	mu   sync.RWMutex
	logs []*domain.SyncLog
}

// NewSyncLogRepository creates an empty repository
func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{}
}

// Insert appends a log
func (r *SyncLogRepository) Insert(_ context.Context, log *domain.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	c := *log
	r.logs = append(r.logs, &c)
	return nil
}

// ListByIntegration returns newest-first logs of an integration
func (r *SyncLogRepository) ListByIntegration(_ context.Context, integrationID string, limit int) ([]*domain.SyncLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.SyncLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].IntegrationID != integrationID {
			continue
		}
		c := *r.logs[i]
		out = append(out, &c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// All returns every log in insertion order
func (r *SyncLogRepository) All() []*domain.SyncLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.SyncLog, 0, len(r.logs))
	for _, l := range r.logs {
		c := *l
		out = append(out, &c)
	}
	return out
}
