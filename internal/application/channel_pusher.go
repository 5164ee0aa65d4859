package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// channelPusher sends one entity to one integration through its platform adapter
type channelPusher struct {
	adapters    ports.AdapterRegistry
	projections ports.ProjectionRepository
	logger      zerolog.Logger
}

func newChannelPusher(adapters ports.AdapterRegistry, projections ports.ProjectionRepository, logger zerolog.Logger) *channelPusher {
	return &channelPusher{
		adapters:    adapters,
		projections: projections,
		logger:      logger,
	}
}

// push upserts the entity. Catalog entities without an external id are matched
// by SKU against the target's mirror first, and a newly created product is
// recorded in that mirror so a retry updates instead of creating it twice.
func (p *channelPusher) push(
	ctx context.Context,
	integration *domain.Integration,
	creds domain.Credentials,
	syncType domain.SyncType,
	externalID string,
	payload map[string]interface{},
) (domain.SyncResult, error) {
	sku, _ := payload["sku"].(string)
	if externalID == "" && sku != "" && isCatalogType(syncType) {
		match, err := p.projections.FindProductBySKU(ctx, integration.ID, sku)
		if err != nil {
			return domain.SyncResult{Processed: 1, Failed: 1}, fmt.Errorf("failed to match sku %s: %w", sku, err)
		}
		if match != nil {
			externalID = match.ExternalID
		}
	}

	adapter := p.adapters.Resolve(integration.Platform)
	result, err := adapter.SyncOutbound(ctx, ports.OutboundRequest{
		Integration: integration,
		Credentials: creds,
		SyncType:    syncType,
		ExternalID:  externalID,
		Payload:     payload,
	})
	if err != nil {
		return result, err
	}

	if syncType == domain.SyncTypeProducts && externalID == "" && result.ExternalID != "" {
		p.rememberCreated(ctx, integration, result.ExternalID, payload)
	}
	return result, nil
}

func (p *channelPusher) rememberCreated(ctx context.Context, integration *domain.Integration, externalID string, payload map[string]interface{}) {
	mirror := &domain.ProductMirror{
		Scope:         integration.ID,
		ExternalID:    externalID,
		IntegrationID: integration.ID,
		UserID:        integration.UserID,
		Platform:      integration.Platform,
		UpdatedAt:     time.Now().UTC(),
	}
	mirror.Title, _ = payload["title"].(string)
	mirror.SKU, _ = payload["sku"].(string)
	mirror.Currency, _ = payload["currency"].(string)
	if price, ok := payload["price"].(string); ok {
		mirror.Price = domain.ParseAmount(price)
	}
	if q, ok := intValue(payload["quantity"]); ok {
		mirror.InventoryQuantity = q
	}
	if err := p.projections.UpsertProduct(ctx, mirror); err != nil {
		p.logger.Warn().
			Err(err).
			Str("integrationId", integration.ID).
			Str("externalId", externalID).
			Msg("Failed to record created product in mirror")
	}
}

func isCatalogType(t domain.SyncType) bool {
	return t == domain.SyncTypeProducts || t == domain.SyncTypePrices || t == domain.SyncTypeStock
}

// intValue reads a quantity that may have been decoded from JSON or BSON
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
