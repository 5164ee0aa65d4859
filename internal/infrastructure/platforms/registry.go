package platforms

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/httpclient"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// Registry maps platform identifiers to adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.Platform]ports.PlatformAdapter
	fallback ports.PlatformAdapter
}

// NewRegistry creates an empty registry that resolves unknown platforms to the generic adapter
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[domain.Platform]ports.PlatformAdapter{},
		fallback: GenericAdapter{},
	}
}

// NewDefaultRegistry registers an adapter for every supported platform
func NewDefaultRegistry(shopifyClient ports.ShopifyClient, client *httpclient.Client, logger zerolog.Logger) *Registry {
	r := NewRegistry()
	r.Register(NewShopifyAdapter(shopifyClient, logger))
	for _, s := range restSpecs() {
		r.Register(newRESTAdapter(s, client, logger))
	}
	return r
}

// Register adds or replaces the adapter for its platform
func (r *Registry) Register(adapter ports.PlatformAdapter) {
	if adapter == nil {
		return
	}
	platform := domain.ParsePlatform(string(adapter.Platform()))
	if platform == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[platform] = adapter
}

// Resolve returns the adapter for platform, or the generic adapter
func (r *Registry) Resolve(platform domain.Platform) ports.PlatformAdapter {
	platform = domain.ParsePlatform(string(platform))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if adapter, ok := r.adapters[platform]; ok {
		return adapter
	}
	return r.fallback
}

// Platforms lists registered platforms in stable order
func (r *Registry) Platforms() []domain.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GenericPlatform is reported by the fallback adapter
const GenericPlatform domain.Platform = "generic"

// GenericAdapter accepts any payload from an unknown platform as a sync event
type GenericAdapter struct{}

func (GenericAdapter) Platform() domain.Platform {
	return GenericPlatform
}

func (GenericAdapter) Signature() ports.SignatureScheme {
	return ports.SignatureScheme{Header: "X-Webhook-Signature", Encoding: ports.SignatureHex, Prefix: "sha256="}
}

func (GenericAdapter) StoreIdentifier(payload map[string]interface{}, headers http.Header) string {
	if v := headers.Get("X-Store-Id"); v != "" {
		return v
	}
	return str(payload, "store_id", "storeId", "shop_id", "shop", "store")
}

func (a GenericAdapter) Normalize(payload map[string]interface{}, headers http.Header) *domain.CanonicalEvent {
	return &domain.CanonicalEvent{
		Platform:   GenericPlatform,
		Kind:       domain.EventKindSync,
		Action:     domain.ActionUpdate,
		Topic:      str(payload, "event", "type", "topic"),
		ExternalID: str(payload, "id"),
		StoreID:    a.StoreIdentifier(payload, headers),
		Payload:    payload,
	}
}

func (GenericAdapter) SyncOutbound(ctx context.Context, req ports.OutboundRequest) (domain.SyncResult, error) {
	return domain.SyncResult{Processed: 1, Failed: 1}, fmt.Errorf("generic platform: %w", domain.ErrUnsupportedEntity)
}

var (
	_ ports.AdapterRegistry = (*Registry)(nil)
	_ ports.PlatformAdapter = GenericAdapter{}
	_ ports.PlatformAdapter = (*restAdapter)(nil)
)
