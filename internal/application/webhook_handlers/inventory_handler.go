package webhook_handlers

import (
	"context"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// InventoryHandler records stock levels
type InventoryHandler struct {
	projections ports.ProjectionRepository
	logger      zerolog.Logger
}

// NewInventoryHandler creates a new inventory event handler
func NewInventoryHandler(projections ports.ProjectionRepository, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		projections: projections,
		logger:      logger,
	}
}

func (h *InventoryHandler) Name() string {
	return "inventory"
}

// CanHandle returns true for inventory events with a known quantity
func (h *InventoryHandler) CanHandle(event *domain.CanonicalEvent) bool {
	return event.Kind == domain.EventKindInventory &&
		event.ExternalID != "" &&
		event.Snapshot != nil &&
		event.Snapshot.Quantity != nil
}

func (h *InventoryHandler) Handle(ctx context.Context, event *domain.CanonicalEvent) error {
	scope, externalID := event.ProjectionKey()
	level := &domain.StockLevel{
		Scope:      scope,
		ExternalID: externalID,
		UserID:     event.UserID,
		Platform:   event.Platform,
		SKU:        event.Snapshot.SKU,
		Quantity:   *event.Snapshot.Quantity,
		UpdatedAt:  time.Now().UTC(),
	}
	if event.IntegrationID != nil {
		level.IntegrationID = *event.IntegrationID
	}
	if err := h.projections.UpsertStock(ctx, level); err != nil {
		return err
	}

	// keep the mirror's quantity current when the product is known by SKU
	if level.SKU != "" {
		product, err := h.projections.FindProductBySKU(ctx, scope, level.SKU)
		if err == nil && product != nil && product.InventoryQuantity != level.Quantity {
			product.InventoryQuantity = level.Quantity
			product.UpdatedAt = level.UpdatedAt
			if err := h.projections.UpsertProduct(ctx, product); err != nil {
				return err
			}
		}
	}

	h.logger.Info().
		Str("platform", string(event.Platform)).
		Str("externalId", externalID).
		Str("sku", level.SKU).
		Int("quantity", level.Quantity).
		Msg("Stock level updated")
	return nil
}
