package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"archie-core-commerce-sync/internal/application"
	"archie-core-commerce-sync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Ingestor stores inbound webhooks
type Ingestor interface {
	Ingest(ctx context.Context, req application.WebhookRequest) (*application.WebhookResult, error)
}

// WebhookAPI serves POST /webhooks/{platform}
type WebhookAPI struct {
	ingestor Ingestor
	logger   zerolog.Logger
}

// NewWebhookAPI creates the webhook endpoint
func NewWebhookAPI(ingestor Ingestor, logger zerolog.Logger) *WebhookAPI {
	return &WebhookAPI{
		ingestor: ingestor,
		logger:   logger,
	}
}

// HandleWebhook accepts one platform webhook. The X-Platform header overrides the path.
func (a *WebhookAPI) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	if override := r.Header.Get("X-Platform"); override != "" {
		platform = override
	}
	if platform == "" {
		writeError(w, http.StatusBadRequest, "platform is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to read webhook payload")
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	result, err := a.ingestor.Ingest(r.Context(), application.WebhookRequest{
		Platform:      platform,
		IntegrationID: r.URL.Query().Get("integration_id"),
		Headers:       r.Header,
		Body:          body,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		a.logger.Error().Err(err).Str("platform", platform).Msg("Failed to process webhook")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := map[string]interface{}{
		"success":    true,
		"event_type": result.EventType,
		"platform":   result.Platform,
	}
	if result.EventID != "" {
		response["event_id"] = result.EventID
	}
	writeJSON(w, http.StatusOK, response)
}
