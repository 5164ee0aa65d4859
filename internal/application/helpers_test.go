package application

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/platforms"
	"archie-core-commerce-sync/internal/ports"
)

// fakeAdapter is a scriptable ports.PlatformAdapter
type fakeAdapter struct {
	platform  domain.Platform
	scheme    ports.SignatureScheme
	normalize func(payload map[string]interface{}) *domain.CanonicalEvent
	outbound  func(req ports.OutboundRequest) (domain.SyncResult, error)

	mu    sync.Mutex
	calls []ports.OutboundRequest
}

func newFakeAdapter(platform domain.Platform) *fakeAdapter {
	return &fakeAdapter{
		platform: platform,
		scheme:   ports.SignatureScheme{Header: "X-Test-Hmac", Encoding: ports.SignatureBase64},
	}
}

func (a *fakeAdapter) Platform() domain.Platform { return a.platform }

func (a *fakeAdapter) Signature() ports.SignatureScheme { return a.scheme }

func (a *fakeAdapter) StoreIdentifier(payload map[string]interface{}, _ http.Header) string {
	store, _ := payload["store"].(string)
	return store
}

func (a *fakeAdapter) Normalize(payload map[string]interface{}, _ http.Header) *domain.CanonicalEvent {
	if a.normalize == nil {
		return nil
	}
	return a.normalize(payload)
}

func (a *fakeAdapter) SyncOutbound(_ context.Context, req ports.OutboundRequest) (domain.SyncResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	a.mu.Unlock()
	if a.outbound != nil {
		return a.outbound(req)
	}
	return domain.SyncResult{ExternalID: req.ExternalID, Processed: 1, Succeeded: 1}, nil
}

func (a *fakeAdapter) Calls() []ports.OutboundRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ports.OutboundRequest, len(a.calls))
	copy(out, a.calls)
	return out
}

func registryOf(adapters ...ports.PlatformAdapter) *platforms.Registry {
	r := platforms.NewRegistry()
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// productEvents normalizes {"id","sku","title","price","quantity"} payloads
func productEvents(platform domain.Platform) func(map[string]interface{}) *domain.CanonicalEvent {
	return func(payload map[string]interface{}) *domain.CanonicalEvent {
		id, _ := payload["id"].(string)
		if id == "" {
			return nil
		}
		snapshot := &domain.EntitySnapshot{}
		snapshot.SKU, _ = payload["sku"].(string)
		snapshot.Title, _ = payload["title"].(string)
		snapshot.Price, _ = payload["price"].(string)
		if q, ok := payload["quantity"].(float64); ok {
			n := int(q)
			snapshot.Quantity = &n
		}
		delivery, _ := payload["delivery"].(string)
		return &domain.CanonicalEvent{
			Platform:   platform,
			Kind:       domain.EventKindProduct,
			Action:     domain.ActionUpdate,
			Topic:      "products/update",
			ExternalID: id,
			DeliveryID: delivery,
			Snapshot:   snapshot,
			Payload:    payload,
		}
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.CanonicalEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *domain.CanonicalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Published() []*domain.CanonicalEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.CanonicalEvent(nil), p.events...)
}

// stubCredentials hands out a fixed token, or an error for listed integrations
type stubCredentials struct {
	failing map[string]error
}

func (s stubCredentials) Credentials(_ context.Context, integration *domain.Integration) (domain.Credentials, error) {
	if err, ok := s.failing[integration.ID]; ok {
		return nil, err
	}
	return domain.Credentials{"access_token": "tok-" + integration.ID}, nil
}

var errBoom = errors.New("boom")

func intPtr(n int) *int { return &n }
