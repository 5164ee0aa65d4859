package application

import (
	"context"
	"fmt"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// FanOut turns a product or inventory event from one channel into queue items
// for the tenant's other channels
type FanOut struct {
	configs     ports.SyncConfigRepository
	projections ports.ProjectionRepository
	queue       ports.SyncQueue
	logger      zerolog.Logger
}

// NewFanOut creates a fan-out planner
func NewFanOut(
	configs ports.SyncConfigRepository,
	projections ports.ProjectionRepository,
	queue ports.SyncQueue,
	logger zerolog.Logger,
) *FanOut {
	return &FanOut{
		configs:     configs,
		projections: projections,
		queue:       queue,
		logger:      logger.With().Str("component", "fan_out").Logger(),
	}
}

// Plan returns the enqueue request for event, or nil when no other channel wants it
func (f *FanOut) Plan(ctx context.Context, event *domain.CanonicalEvent) (*domain.EnqueueRequest, error) {
	syncType, ok := domain.SyncTypeForEvent(event.Kind)
	if !ok || !event.Attributed() || event.UserID == "" || event.Snapshot == nil {
		return nil, nil
	}
	if event.Action == domain.ActionDelete || event.Snapshot.SKU == "" {
		return nil, nil
	}
	if syncType == domain.SyncTypeStock && event.Snapshot.Quantity == nil {
		return nil, nil
	}

	configs, err := f.configs.ListActive(ctx, event.UserID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync configs: %w", err)
	}

	var channels []domain.ChannelTarget
	for _, config := range configs {
		if config.IntegrationID == *event.IntegrationID {
			continue
		}
		if !config.Allows(syncType) {
			continue
		}
		target, err := f.projections.FindProductBySKU(ctx, config.IntegrationID, event.Snapshot.SKU)
		if err != nil {
			return nil, fmt.Errorf("failed to match product on %s: %w", config.Platform, err)
		}
		if target == nil && syncType == domain.SyncTypeStock {
			continue
		}
		if target != nil && upToDate(target, syncType, event.Snapshot) {
			continue
		}
		channel := domain.ChannelTarget{IntegrationID: config.IntegrationID, Platform: config.Platform}
		if target != nil {
			channel.ExternalID = target.ExternalID
		}
		channels = append(channels, channel)
	}
	if len(channels) == 0 {
		return nil, nil
	}

	return &domain.EnqueueRequest{
		EntityID: event.ExternalID,
		SyncType: syncType,
		Channels: channels,
		Payload:  snapshotPayload(syncType, event.Snapshot),
		Priority: domain.DefaultPriority,
	}, nil
}

// Enqueue plans and stores the queue item. It returns the new item id, or "" when nothing was queued.
func (f *FanOut) Enqueue(ctx context.Context, event *domain.CanonicalEvent) (string, error) {
	req, err := f.Plan(ctx, event)
	if err != nil || req == nil {
		return "", err
	}
	id, err := f.queue.Enqueue(ctx, *req)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue fan-out: %w", err)
	}
	f.logger.Info().
		Str("eventId", event.ID).
		Str("syncType", string(req.SyncType)).
		Int("channels", len(req.Channels)).
		Str("queueItemId", id).
		Msg("Fanned out event to other channels")
	return id, nil
}

// upToDate stops echo loops: a channel already holding the values is not pushed again
func upToDate(target *domain.ProductMirror, syncType domain.SyncType, s *domain.EntitySnapshot) bool {
	switch syncType {
	case domain.SyncTypeStock:
		return s.Quantity != nil && target.InventoryQuantity == *s.Quantity
	case domain.SyncTypeProducts:
		if s.Title != "" && s.Title != target.Title {
			return false
		}
		if s.Price != "" && !domain.ParseAmount(s.Price).Equal(target.Price) {
			return false
		}
		if s.Quantity != nil && *s.Quantity != target.InventoryQuantity {
			return false
		}
		return true
	}
	return false
}

func snapshotPayload(syncType domain.SyncType, s *domain.EntitySnapshot) map[string]interface{} {
	switch syncType {
	case domain.SyncTypeStock:
		return map[string]interface{}{
			"sku":      s.SKU,
			"quantity": *s.Quantity,
		}
	default:
		payload := map[string]interface{}{
			"title": s.Title,
			"sku":   s.SKU,
		}
		if s.Price != "" {
			payload["price"] = domain.ParseAmount(s.Price).String()
		}
		if s.Currency != "" {
			payload["currency"] = s.Currency
		}
		if s.Quantity != nil {
			payload["quantity"] = *s.Quantity
		}
		return payload
	}
}

// mirrorPayload builds the outbound payload of a sync type from a product mirror
func mirrorPayload(syncType domain.SyncType, p *domain.ProductMirror) map[string]interface{} {
	switch syncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{
			"sku":      p.SKU,
			"price":    p.Price.String(),
			"currency": p.Currency,
		}
	case domain.SyncTypeStock:
		return map[string]interface{}{
			"sku":      p.SKU,
			"quantity": p.InventoryQuantity,
		}
	default:
		return map[string]interface{}{
			"title":    p.Title,
			"sku":      p.SKU,
			"price":    p.Price.String(),
			"currency": p.Currency,
			"quantity": p.InventoryQuantity,
		}
	}
}
