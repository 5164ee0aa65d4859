package webhook_handlers

import (
	"context"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// RefundHandler records refunds
type RefundHandler struct {
	projections ports.ProjectionRepository
	logger      zerolog.Logger
}

// NewRefundHandler creates a new refund event handler
func NewRefundHandler(projections ports.ProjectionRepository, logger zerolog.Logger) *RefundHandler {
	return &RefundHandler{
		projections: projections,
		logger:      logger,
	}
}

func (h *RefundHandler) Name() string {
	return "refund"
}

func (h *RefundHandler) CanHandle(event *domain.CanonicalEvent) bool {
	return event.Kind == domain.EventKindRefund && event.ExternalID != ""
}

func (h *RefundHandler) Handle(ctx context.Context, event *domain.CanonicalEvent) error {
	scope, externalID := event.ProjectionKey()
	refund := &domain.RefundRecord{
		Scope:      scope,
		ExternalID: externalID,
		UserID:     event.UserID,
		Platform:   event.Platform,
		UpdatedAt:  time.Now().UTC(),
	}
	if event.IntegrationID != nil {
		refund.IntegrationID = *event.IntegrationID
	}
	if s := event.Snapshot; s != nil {
		refund.OrderExternalID = s.OrderExternalID
		refund.Amount = domain.ParseAmount(s.Amount)
		refund.Currency = s.Currency
	}
	if err := h.projections.UpsertRefund(ctx, refund); err != nil {
		return err
	}

	h.logger.Info().
		Str("platform", string(event.Platform)).
		Str("externalId", externalID).
		Str("orderId", refund.OrderExternalID).
		Str("amount", refund.Amount.String()).
		Msg("Refund recorded")
	return nil
}
