package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// orderLookback bounds the first order import of an integration
const orderLookback = 30 * 24 * time.Hour

// SyncTarget is one sync type to run against one integration
type SyncTarget struct {
	Integration *domain.Integration
	Config      *domain.SyncConfig
	Credentials domain.Credentials
	SyncType    domain.SyncType
	FullSync    bool
}

// Syncer runs one sync type against one integration
type Syncer interface {
	Sync(ctx context.Context, target SyncTarget) (domain.SyncResult, error)
}

// SyncerFunc adapts a function to Syncer
type SyncerFunc func(ctx context.Context, target SyncTarget) (domain.SyncResult, error)

func (f SyncerFunc) Sync(ctx context.Context, target SyncTarget) (domain.SyncResult, error) {
	return f(ctx, target)
}

// ChannelSyncer reconciles an integration with the tenant's other channels.
// Catalog types push the tenant's mirror to the target, orders are pulled from
// the platform, tracking and customers are pushed from local order records.
type ChannelSyncer struct {
	integrations ports.IntegrationRepository
	projections  ports.ProjectionRepository
	adapters     ports.AdapterRegistry
	pusher       *channelPusher
	logger       zerolog.Logger
}

// NewChannelSyncer creates the default syncer used for every sync type
func NewChannelSyncer(
	integrations ports.IntegrationRepository,
	projections ports.ProjectionRepository,
	adapters ports.AdapterRegistry,
	logger zerolog.Logger,
) *ChannelSyncer {
	logger = logger.With().Str("component", "channel_syncer").Logger()
	return &ChannelSyncer{
		integrations: integrations,
		projections:  projections,
		adapters:     adapters,
		pusher:       newChannelPusher(adapters, projections, logger),
		logger:       logger,
	}
}

// Sync dispatches on the target's sync type. It fails only when nothing
// could be synced; per-item failures are counted in the result.
func (s *ChannelSyncer) Sync(ctx context.Context, target SyncTarget) (domain.SyncResult, error) {
	var (
		result domain.SyncResult
		err    error
	)
	switch target.SyncType {
	case domain.SyncTypeProducts, domain.SyncTypePrices, domain.SyncTypeStock:
		result, err = s.pushCatalog(ctx, target)
	case domain.SyncTypeOrders:
		result, err = s.pullOrders(ctx, target)
	case domain.SyncTypeTracking:
		result, err = s.pushTracking(ctx, target)
	case domain.SyncTypeCustomers:
		result, err = s.pushCustomers(ctx, target)
	default:
		err = fmt.Errorf("%s: %w", target.SyncType, domain.ErrUnsupportedEntity)
	}
	if err == nil && result.Failed > 0 && result.Succeeded == 0 {
		if cause, ok := result.Details["last_error"].(string); ok {
			err = errors.New(cause)
		} else {
			err = fmt.Errorf("all %d items failed", result.Failed)
		}
	}
	if err != nil {
		return result, &domain.SyncError{SyncType: target.SyncType, Platform: target.Integration.Platform, Err: err}
	}
	return result, nil
}

// since is the lower bound of an incremental run, zero for a full sync
func since(target SyncTarget) time.Time {
	if target.FullSync || target.Integration.LastSyncAt == nil {
		return time.Time{}
	}
	return *target.Integration.LastSyncAt
}

// catalog returns the newest mirror row per SKU across the tenant's other channels
func (s *ChannelSyncer) catalog(ctx context.Context, target SyncTarget) ([]*domain.ProductMirror, error) {
	peers, err := s.integrations.List(ctx, domain.IntegrationFilter{UserID: target.Integration.UserID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	bySKU := map[string]*domain.ProductMirror{}
	for _, peer := range peers {
		if peer.ID == target.Integration.ID {
			continue
		}
		products, err := s.projections.ListProducts(ctx, peer.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list products of %s: %w", peer.ID, err)
		}
		for _, p := range products {
			if p.Deleted || p.SKU == "" {
				continue
			}
			if current, ok := bySKU[p.SKU]; !ok || p.UpdatedAt.After(current.UpdatedAt) {
				bySKU[p.SKU] = p
			}
		}
	}

	cutoff := since(target)
	out := make([]*domain.ProductMirror, 0, len(bySKU))
	for _, p := range bySKU {
		if !cutoff.IsZero() && !p.UpdatedAt.After(cutoff) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (s *ChannelSyncer) pushCatalog(ctx context.Context, target SyncTarget) (domain.SyncResult, error) {
	result := domain.SyncResult{Details: map[string]interface{}{}}
	products, err := s.catalog(ctx, target)
	if err != nil {
		return result, err
	}

	skipped := 0
	for _, source := range products {
		match, err := s.projections.FindProductBySKU(ctx, target.Integration.ID, source.SKU)
		if err != nil {
			return result, fmt.Errorf("failed to match sku %s: %w", source.SKU, err)
		}
		if match == nil && target.SyncType != domain.SyncTypeProducts {
			skipped++
			continue
		}
		if match != nil && mirrorInSync(match, source, target.SyncType) {
			skipped++
			continue
		}

		externalID := ""
		if match != nil {
			externalID = match.ExternalID
		}
		res, err := s.pusher.push(ctx, target.Integration, target.Credentials, target.SyncType, externalID, mirrorPayload(target.SyncType, source))
		result.Processed++
		if err != nil {
			result.Failed++
			result.Details["last_error"] = err.Error()
			s.logger.Warn().
				Err(err).
				Str("integrationId", target.Integration.ID).
				Str("sku", source.SKU).
				Str("syncType", string(target.SyncType)).
				Msg("Failed to push catalog item")
			continue
		}
		result.Succeeded++
		if match != nil {
			applyMirror(match, source, target.SyncType)
			if err := s.projections.UpsertProduct(ctx, match); err != nil {
				s.logger.Warn().Err(err).Str("externalId", res.ExternalID).Msg("Failed to update target mirror")
			}
		}
	}
	result.Details["skipped"] = skipped
	return result, nil
}

// mirrorInSync reports whether the target already holds the source's values for the sync type
func mirrorInSync(target, source *domain.ProductMirror, syncType domain.SyncType) bool {
	switch syncType {
	case domain.SyncTypePrices:
		return target.Price.Equal(source.Price)
	case domain.SyncTypeStock:
		return target.InventoryQuantity == source.InventoryQuantity
	default:
		return target.Title == source.Title &&
			target.Price.Equal(source.Price) &&
			target.InventoryQuantity == source.InventoryQuantity
	}
}

func applyMirror(target, source *domain.ProductMirror, syncType domain.SyncType) {
	switch syncType {
	case domain.SyncTypePrices:
		target.Price = source.Price
	case domain.SyncTypeStock:
		target.InventoryQuantity = source.InventoryQuantity
	default:
		target.Title = source.Title
		target.Price = source.Price
		target.InventoryQuantity = source.InventoryQuantity
	}
	target.UpdatedAt = time.Now().UTC()
}

func (s *ChannelSyncer) pullOrders(ctx context.Context, target SyncTarget) (domain.SyncResult, error) {
	var result domain.SyncResult
	puller, ok := s.adapters.Resolve(target.Integration.Platform).(ports.OrderPuller)
	if !ok {
		return result, fmt.Errorf("%s order import: %w", target.Integration.Platform, domain.ErrUnsupportedEntity)
	}

	from := since(target)
	if from.IsZero() {
		from = time.Now().UTC().Add(-orderLookback)
	}
	orders, err := puller.PullOrders(ctx, target.Integration, target.Credentials, from)
	if err != nil {
		return result, fmt.Errorf("failed to pull orders: %w", err)
	}
	return s.storeOrders(ctx, target.Integration, orders), nil
}

func (s *ChannelSyncer) storeOrders(ctx context.Context, integration *domain.Integration, orders []*domain.OrderRecord) domain.SyncResult {
	var result domain.SyncResult
	for _, order := range orders {
		order.Scope = integration.ID
		order.IntegrationID = integration.ID
		order.UserID = integration.UserID
		result.Processed++
		if err := s.projections.UpsertOrder(ctx, order); err != nil {
			result.Failed++
			s.logger.Warn().Err(err).Str("externalId", order.ExternalID).Msg("Failed to store pulled order")
			continue
		}
		result.Succeeded++
	}
	return result
}

func (s *ChannelSyncer) storeProducts(ctx context.Context, integration *domain.Integration, products []*domain.ProductMirror) domain.SyncResult {
	var result domain.SyncResult
	for _, product := range products {
		product.Scope = integration.ID
		product.IntegrationID = integration.ID
		product.UserID = integration.UserID
		result.Processed++
		if err := s.projections.UpsertProduct(ctx, product); err != nil {
			result.Failed++
			s.logger.Warn().Err(err).Str("externalId", product.ExternalID).Msg("Failed to store pulled product")
			continue
		}
		result.Succeeded++
	}
	return result
}

// pushTracking sends tracking numbers recorded locally for orders the platform
// has not marked fulfilled yet
func (s *ChannelSyncer) pushTracking(ctx context.Context, target SyncTarget) (domain.SyncResult, error) {
	result := domain.SyncResult{Details: map[string]interface{}{}}
	orders, err := s.projections.ListOrders(ctx, target.Integration.ID, 0)
	if err != nil {
		return result, fmt.Errorf("failed to list orders: %w", err)
	}
	for _, order := range orders {
		if order.TrackingNumber == "" || order.FulfillmentStatus == "fulfilled" || order.Status == "cancelled" {
			continue
		}
		result.Processed++
		_, err := s.pusher.push(ctx, target.Integration, target.Credentials, domain.SyncTypeTracking, order.ExternalID, map[string]interface{}{
			"tracking_number":  order.TrackingNumber,
			"tracking_company": order.TrackingCompany,
		})
		if err != nil {
			result.Failed++
			result.Details["last_error"] = err.Error()
			continue
		}
		result.Succeeded++
		order.FulfillmentStatus = "fulfilled"
		order.UpdatedAt = time.Now().UTC()
		if err := s.projections.UpsertOrder(ctx, order); err != nil {
			s.logger.Warn().Err(err).Str("externalId", order.ExternalID).Msg("Failed to mark order fulfilled")
		}
	}
	return result, nil
}

// pushCustomers creates the buyers seen on the tenant's other channels
func (s *ChannelSyncer) pushCustomers(ctx context.Context, target SyncTarget) (domain.SyncResult, error) {
	result := domain.SyncResult{Details: map[string]interface{}{}}
	peers, err := s.integrations.List(ctx, domain.IntegrationFilter{UserID: target.Integration.UserID, ActiveOnly: true})
	if err != nil {
		return result, fmt.Errorf("failed to list channels: %w", err)
	}

	cutoff := since(target)
	seen := map[string]bool{}
	for _, peer := range peers {
		if peer.ID == target.Integration.ID {
			continue
		}
		orders, err := s.projections.ListOrders(ctx, peer.ID, 0)
		if err != nil {
			return result, fmt.Errorf("failed to list orders of %s: %w", peer.ID, err)
		}
		for _, order := range orders {
			email := order.CustomerEmail
			if email == "" || seen[email] || (!cutoff.IsZero() && !order.UpdatedAt.After(cutoff)) {
				continue
			}
			seen[email] = true
			result.Processed++
			if _, err := s.pusher.push(ctx, target.Integration, target.Credentials, domain.SyncTypeCustomers, "", map[string]interface{}{"email": email}); err != nil {
				result.Failed++
				result.Details["last_error"] = err.Error()
				continue
			}
			result.Succeeded++
		}
	}
	return result, nil
}
