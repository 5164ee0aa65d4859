package webhook_handlers

import (
	"context"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// OrderHandler projects order events into order records
type OrderHandler struct {
	projections ports.ProjectionRepository
	logger      zerolog.Logger
}

// NewOrderHandler creates a new order event handler
func NewOrderHandler(projections ports.ProjectionRepository, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		projections: projections,
		logger:      logger,
	}
}

func (h *OrderHandler) Name() string {
	return "order"
}

// CanHandle returns true for order events carrying an external id
func (h *OrderHandler) CanHandle(event *domain.CanonicalEvent) bool {
	return event.Kind == domain.EventKindOrder && event.ExternalID != ""
}

// Handle merges the event into the order record. Fields absent from the
// payload keep their previous value, so a fulfillment event does not erase totals.
func (h *OrderHandler) Handle(ctx context.Context, event *domain.CanonicalEvent) error {
	scope, externalID := event.ProjectionKey()
	existing, err := h.projections.GetOrder(ctx, scope, externalID)
	if err != nil {
		return fmt.Errorf("failed to load order record: %w", err)
	}

	order := &domain.OrderRecord{
		Scope:      scope,
		ExternalID: externalID,
		UserID:     event.UserID,
		Platform:   event.Platform,
		Status:     "open",
	}
	if existing != nil {
		*order = *existing
	}
	if event.IntegrationID != nil {
		order.IntegrationID = *event.IntegrationID
	}
	order.UpdatedAt = time.Now().UTC()

	if s := event.Snapshot; s != nil {
		if s.OrderNumber != "" {
			order.OrderNumber = s.OrderNumber
		}
		if s.Status != "" {
			order.Status = s.Status
		}
		if s.FinancialStatus != "" {
			order.FinancialStatus = s.FinancialStatus
		}
		if s.FulfillmentStatus != "" {
			order.FulfillmentStatus = s.FulfillmentStatus
		}
		if s.Total != "" {
			order.Total = domain.ParseAmount(s.Total)
		}
		if s.Currency != "" {
			order.Currency = s.Currency
		}
		if s.CustomerEmail != "" {
			order.CustomerEmail = s.CustomerEmail
		}
		if s.TrackingNumber != "" {
			order.TrackingNumber = s.TrackingNumber
		}
		if s.TrackingCompany != "" {
			order.TrackingCompany = s.TrackingCompany
		}
	}

	switch event.Action {
	case domain.ActionCancel:
		order.Status = "cancelled"
	case domain.ActionFulfill:
		order.FulfillmentStatus = "fulfilled"
	}

	if err := h.projections.UpsertOrder(ctx, order); err != nil {
		return err
	}

	h.logger.Info().
		Str("platform", string(event.Platform)).
		Str("externalId", externalID).
		Str("orderNumber", order.OrderNumber).
		Str("status", order.Status).
		Msg("Order record updated")
	return nil
}
