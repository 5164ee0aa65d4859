package webhook_handlers

import (
	"context"
	"fmt"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler deactivates an integration when the merchant removes the app
type AppUninstalledHandler struct {
	integrations ports.IntegrationRepository
	configs      ports.SyncConfigRepository
	logger       zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled event handler
func NewAppUninstalledHandler(
	integrations ports.IntegrationRepository,
	configs ports.SyncConfigRepository,
	logger zerolog.Logger,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		integrations: integrations,
		configs:      configs,
		logger:       logger,
	}
}

func (h *AppUninstalledHandler) Name() string {
	return "app_uninstalled"
}

// CanHandle returns true for app removal events
func (h *AppUninstalledHandler) CanHandle(event *domain.CanonicalEvent) bool {
	return event.Kind == domain.EventKindApp && event.Action == domain.ActionDelete
}

// Handle soft-disables the integration and its sync configuration.
// Records are kept for audit purposes.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.CanonicalEvent) error {
	if !event.Attributed() {
		h.logger.Warn().
			Str("platform", string(event.Platform)).
			Str("store", event.StoreID).
			Msg("App uninstalled for unknown store, nothing to deactivate")
		return nil
	}
	integrationID := *event.IntegrationID

	if err := h.integrations.SetActive(ctx, integrationID, false); err != nil {
		return fmt.Errorf("failed to deactivate integration: %w", err)
	}

	if h.configs != nil {
		config, err := h.configs.GetByIntegration(ctx, integrationID)
		if err != nil {
			h.logger.Warn().Err(err).Str("integrationId", integrationID).Msg("Failed to load sync config for cleanup")
		} else if config != nil && config.Active {
			config.Active = false
			if err := h.configs.Upsert(ctx, config); err != nil {
				h.logger.Warn().Err(err).Str("integrationId", integrationID).Msg("Failed to deactivate sync config")
			}
		}
	}

	h.logger.Info().
		Str("platform", string(event.Platform)).
		Str("store", event.StoreID).
		Str("integrationId", integrationID).
		Msg("App uninstalled - integration deactivated")
	return nil
}
