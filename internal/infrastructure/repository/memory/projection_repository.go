package memory

import (
	"context"
	"sort"
	"sync"

	"archie-core-commerce-sync/internal/domain"
)

type key struct {
	scope      string
	externalID string
}

// ProjectionRepository is an in-memory ports.ProjectionRepository
type ProjectionRepository struct {
	mu       sync.RWMutex
	products map[key]domain.ProductMirror
	orders   map[key]domain.OrderRecord
	stock    map[key]domain.StockLevel
	refunds  map[key]domain.RefundRecord
}

// NewProjectionRepository creates an empty repository
func NewProjectionRepository() *ProjectionRepository {
	return &ProjectionRepository{
		products: make(map[key]domain.ProductMirror),
		orders:   make(map[key]domain.OrderRecord),
		stock:    make(map[key]domain.StockLevel),
		refunds:  make(map[key]domain.RefundRecord),
	}
}

func (r *ProjectionRepository) UpsertProduct(_ context.Context, p *domain.ProductMirror) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[key{p.Scope, p.ExternalID}] = *p
	return nil
}

func (r *ProjectionRepository) UpsertOrder(_ context.Context, o *domain.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[key{o.Scope, o.ExternalID}] = *o
	return nil
}

func (r *ProjectionRepository) UpsertStock(_ context.Context, s *domain.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock[key{s.Scope, s.ExternalID}] = *s
	return nil
}

func (r *ProjectionRepository) UpsertRefund(_ context.Context, rf *domain.RefundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds[key{rf.Scope, rf.ExternalID}] = *rf
	return nil
}

func (r *ProjectionRepository) GetProduct(_ context.Context, scope, externalID string) (*domain.ProductMirror, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.products[key{scope, externalID}]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *ProjectionRepository) GetOrder(_ context.Context, scope, externalID string) (*domain.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.orders[key{scope, externalID}]; ok {
		return &o, nil
	}
	return nil, nil
}

func (r *ProjectionRepository) GetStock(_ context.Context, scope, externalID string) (*domain.StockLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.stock[key{scope, externalID}]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *ProjectionRepository) FindProductBySKU(_ context.Context, scope, sku string) (*domain.ProductMirror, error) {
	if sku == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k, p := range r.products {
		if k.scope == scope && p.SKU == sku && !p.Deleted {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

// GetRefund is not part of the port; tests use it to inspect refund rows
func (r *ProjectionRepository) GetRefund(scope, externalID string) (*domain.RefundRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rf, ok := r.refunds[key{scope, externalID}]
	return &rf, ok
}

func (r *ProjectionRepository) ListProducts(_ context.Context, scope string, limit int) ([]*domain.ProductMirror, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.ProductMirror
	for k, p := range r.products {
		if k.scope == scope {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.After(out[b].UpdatedAt) })
	return truncate(out, limit), nil
}

func (r *ProjectionRepository) ListOrders(_ context.Context, scope string, limit int) ([]*domain.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.OrderRecord
	for k, o := range r.orders {
		if k.scope == scope {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.After(out[b].UpdatedAt) })
	return truncate(out, limit), nil
}

func (r *ProjectionRepository) ListStock(_ context.Context, scope string, limit int) ([]*domain.StockLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.StockLevel
	for k, s := range r.stock {
		if k.scope == scope {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.After(out[b].UpdatedAt) })
	return truncate(out, limit), nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
