package webhook_handlers

import (
	"context"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// ProductHandler keeps the product mirror in step with product events
type ProductHandler struct {
	projections ports.ProjectionRepository
	logger      zerolog.Logger
}

// NewProductHandler creates a new product event handler
func NewProductHandler(projections ports.ProjectionRepository, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		projections: projections,
		logger:      logger,
	}
}

func (h *ProductHandler) Name() string {
	return "product"
}

// CanHandle returns true for product events carrying an external id
func (h *ProductHandler) CanHandle(event *domain.CanonicalEvent) bool {
	return event.Kind == domain.EventKindProduct && event.ExternalID != ""
}

// Handle upserts the mirror row. Deletes are soft so replays stay idempotent.
func (h *ProductHandler) Handle(ctx context.Context, event *domain.CanonicalEvent) error {
	scope, externalID := event.ProjectionKey()
	existing, err := h.projections.GetProduct(ctx, scope, externalID)
	if err != nil {
		return fmt.Errorf("failed to load product mirror: %w", err)
	}

	mirror := &domain.ProductMirror{
		Scope:      scope,
		ExternalID: externalID,
		UserID:     event.UserID,
		Platform:   event.Platform,
	}
	if existing != nil {
		*mirror = *existing
	}
	if event.IntegrationID != nil {
		mirror.IntegrationID = *event.IntegrationID
	}
	mirror.UpdatedAt = time.Now().UTC()

	if event.Action == domain.ActionDelete {
		mirror.Deleted = true
	} else if s := event.Snapshot; s != nil {
		mirror.Deleted = false
		if s.Title != "" {
			mirror.Title = s.Title
		}
		if s.SKU != "" {
			mirror.SKU = s.SKU
		}
		if s.Price != "" {
			mirror.Price = domain.ParseAmount(s.Price)
		}
		if s.Currency != "" {
			mirror.Currency = s.Currency
		}
		if s.Status != "" {
			mirror.Status = s.Status
		}
		if s.Quantity != nil {
			mirror.InventoryQuantity = *s.Quantity
		}
	}

	if err := h.projections.UpsertProduct(ctx, mirror); err != nil {
		return err
	}

	h.logger.Info().
		Str("platform", string(event.Platform)).
		Str("externalId", externalID).
		Str("action", string(event.Action)).
		Str("title", mirror.Title).
		Msg("Product mirror updated")
	return nil
}
