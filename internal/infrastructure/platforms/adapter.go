package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/httpclient"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

type authStyle int

const (
	authBearer authStyle = iota
	authBasic
	authHeader
)

type endpoint struct {
	method string
	// path may contain {id} and {store} placeholders
	path string
}

// spec is the per-platform table driving a restAdapter
type spec struct {
	platform  domain.Platform
	baseURL   string
	signature ports.SignatureScheme

	auth       authStyle
	authHeader string
	// apiKeyHeader carries the app key alongside the bearer token
	apiKeyHeader string

	storeIDHeader  string
	storeIDPaths   []string
	deliveryHeader string
	deliveryPaths  []string

	// discriminator returns the platform's event name for the payload
	discriminator func(payload map[string]interface{}, headers http.Header) string
	// classify overrides keyword classification when set
	classify func(name string, payload map[string]interface{}) (domain.EventKind, domain.EventAction, bool)
	// root returns the object holding the entity fields
	root func(payload map[string]interface{}) map[string]interface{}

	create map[domain.SyncType]endpoint
	update map[domain.SyncType]endpoint
	body   func(req ports.OutboundRequest) interface{}
}

// restAdapter serves every platform reachable through a plain JSON REST API
type restAdapter struct {
	spec   spec
	client *httpclient.Client
	logger zerolog.Logger
}

func newRESTAdapter(s spec, client *httpclient.Client, logger zerolog.Logger) *restAdapter {
	return &restAdapter{
		spec:   s,
		client: client,
		logger: logger.With().Str("platform", string(s.platform)).Logger(),
	}
}

func (a *restAdapter) Platform() domain.Platform {
	return a.spec.platform
}

func (a *restAdapter) Signature() ports.SignatureScheme {
	return a.spec.signature
}

func (a *restAdapter) StoreIdentifier(payload map[string]interface{}, headers http.Header) string {
	if a.spec.storeIDHeader != "" {
		if v := strings.TrimSpace(headers.Get(a.spec.storeIDHeader)); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return strings.TrimRight(str(payload, a.spec.storeIDPaths...), "/")
}

func (a *restAdapter) Normalize(payload map[string]interface{}, headers http.Header) *domain.CanonicalEvent {
	if payload == nil {
		return nil
	}
	name := a.spec.discriminator(payload, headers)
	var (
		kind   domain.EventKind
		action domain.EventAction
		ok     bool
	)
	if a.spec.classify != nil {
		kind, action, ok = a.spec.classify(name, payload)
	} else {
		kind, action, ok = classify(name)
	}
	if !ok {
		return nil
	}
	root := payload
	if a.spec.root != nil {
		if r := a.spec.root(payload); r != nil {
			root = r
		}
	}
	event := newEvent(a.spec.platform, name, kind, action, root, payload)
	event.StoreID = a.StoreIdentifier(payload, headers)
	if a.spec.deliveryHeader != "" {
		event.DeliveryID = strings.TrimSpace(headers.Get(a.spec.deliveryHeader))
	}
	if event.DeliveryID == "" && len(a.spec.deliveryPaths) > 0 {
		event.DeliveryID = str(payload, a.spec.deliveryPaths...)
	}
	return event
}

func (a *restAdapter) SyncOutbound(ctx context.Context, req ports.OutboundRequest) (domain.SyncResult, error) {
	result := domain.SyncResult{Processed: 1}
	if req.Integration == nil {
		result.Failed = 1
		return result, domain.ErrIntegrationNotFound
	}

	routes := a.spec.create
	if req.ExternalID != "" {
		routes = a.spec.update
	}
	ep, ok := routes[req.SyncType]
	if !ok {
		result.Failed = 1
		return result, fmt.Errorf("%s %s: %w", a.spec.platform, req.SyncType, domain.ErrUnsupportedEntity)
	}

	base := strings.TrimRight(req.Integration.StoreURL, "/")
	if base == "" {
		base = a.spec.baseURL
	}
	path := strings.ReplaceAll(ep.path, "{id}", url.PathEscape(req.ExternalID))
	path = strings.ReplaceAll(path, "{store}", url.PathEscape(req.Integration.StoreIdentifier))

	httpReq := httpclient.Request{
		Method: ep.method,
		URL:    base + path,
		Body:   a.outboundBody(req),
	}
	if err := a.authorize(&httpReq, req.Credentials); err != nil {
		result.Failed = 1
		return result, err
	}

	var resp interface{}
	if err := a.client.Do(ctx, httpReq, &resp); err != nil {
		result.Failed = 1
		return result, fmt.Errorf("failed to sync %s to %s: %w", req.SyncType, a.spec.platform, err)
	}

	result.Succeeded = 1
	result.ExternalID = req.ExternalID
	if result.ExternalID == "" {
		if m, ok := resp.(map[string]interface{}); ok {
			result.ExternalID = str(m, "id", "data.id", "product.id", "item.id", "sku")
		}
	}
	a.logger.Debug().
		Str("integration_id", req.Integration.ID).
		Str("sync_type", string(req.SyncType)).
		Str("external_id", result.ExternalID).
		Msg("Outbound sync applied")
	return result, nil
}

func (a *restAdapter) outboundBody(req ports.OutboundRequest) interface{} {
	if a.spec.body != nil {
		return a.spec.body(req)
	}
	return defaultBody(req)
}

func (a *restAdapter) authorize(req *httpclient.Request, creds domain.Credentials) error {
	req.Headers = map[string]string{}
	switch a.spec.auth {
	case authBasic:
		user := creds.Get("consumer_key", "api_key", "username", "service_key")
		pass := creds.Get("consumer_secret", "api_secret", "password", "license_key")
		if user == "" {
			return fmt.Errorf("%s: %w", a.spec.platform, domain.ErrMissingCredentials)
		}
		req.BasicUser = user
		req.BasicPass = pass
	case authHeader:
		token := creds.Get("api_key", "access_token", "token")
		if token == "" {
			return fmt.Errorf("%s: %w", a.spec.platform, domain.ErrMissingCredentials)
		}
		req.Headers[a.spec.authHeader] = token
	default:
		token := creds.AccessToken()
		if token == "" {
			return fmt.Errorf("%s: %w", a.spec.platform, domain.ErrMissingCredentials)
		}
		req.Headers["Authorization"] = "Bearer " + token
	}
	if a.spec.apiKeyHeader != "" {
		if key := creds.Get("client_id", "app_key"); key != "" {
			req.Headers[a.spec.apiKeyHeader] = key
		}
	}
	return nil
}

// defaultBody maps the internal outbound payload onto common REST field names
func defaultBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"price": str(p, "price"), "currency": str(p, "currency")}
	case domain.SyncTypeStock:
		quantity := 0
		if q := intPtr(p, "quantity"); q != nil {
			quantity = *q
		}
		return map[string]interface{}{"sku": str(p, "sku"), "quantity": quantity}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"tracking_number":  str(p, "tracking_number"),
			"tracking_company": str(p, "tracking_company"),
			"tracking_url":     str(p, "tracking_url"),
		}
	}
	return p
}

func newEvent(platform domain.Platform, topic string, kind domain.EventKind, action domain.EventAction, root, payload map[string]interface{}) *domain.CanonicalEvent {
	return &domain.CanonicalEvent{
		Platform:   platform,
		Kind:       kind,
		Action:     action,
		Topic:      topic,
		ExternalID: externalID(kind, root),
		Snapshot:   snapshot(kind, root),
		Payload:    payload,
	}
}
