package ports

import (
	"context"
	"net/http"
	"time"

	"archie-core-commerce-sync/internal/domain"
)

// SignatureEncoding is how a platform encodes its HMAC digest header
type SignatureEncoding string

const (
	SignatureBase64 SignatureEncoding = "base64"
	SignatureHex    SignatureEncoding = "hex"
)

// SignatureScheme describes where and how a platform signs webhook bodies
type SignatureScheme struct {
	Header   string
	Encoding SignatureEncoding
	// Prefix is stripped from the header value before decoding, e.g. "sha256="
	Prefix string
}

// OutboundRequest is one entity pushed to a platform
type OutboundRequest struct {
	Integration *domain.Integration
	Credentials domain.Credentials
	SyncType    domain.SyncType
	ExternalID  string
	Payload     map[string]interface{}
}

// PlatformAdapter normalizes inbound webhooks and pushes outbound updates for one platform
type PlatformAdapter interface {
	Platform() domain.Platform

	Signature() SignatureScheme

	// StoreIdentifier extracts the shop/seller identifier used to resolve the integration
	StoreIdentifier(payload map[string]interface{}, headers http.Header) string

	// Normalize is total: irrelevant payloads return nil, never an error
	Normalize(payload map[string]interface{}, headers http.Header) *domain.CanonicalEvent

	// SyncOutbound upserts one entity by external id
	SyncOutbound(ctx context.Context, req OutboundRequest) (domain.SyncResult, error)
}

// BatchResult is the catalog and orders fetched by a full platform sync
type BatchResult struct {
	Products []*domain.ProductMirror
	Orders   []*domain.OrderRecord
}

// BatchSyncer is implemented by adapters with a specialized full sync
type BatchSyncer interface {
	SyncAll(ctx context.Context, integration *domain.Integration, creds domain.Credentials) (BatchResult, error)
}

// OrderPuller is implemented by adapters able to import recent orders
type OrderPuller interface {
	PullOrders(ctx context.Context, integration *domain.Integration, creds domain.Credentials, since time.Time) ([]*domain.OrderRecord, error)
}

// AdapterRegistry resolves adapters by platform. Resolve never returns nil.
type AdapterRegistry interface {
	Resolve(platform domain.Platform) PlatformAdapter
	Platforms() []domain.Platform
}
