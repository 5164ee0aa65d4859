package application

import (
	"context"
	"errors"
	"sync"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookDispatcher routes stored events to every projection handler that accepts them
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers []ports.EventHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher with no handlers
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		logger: logger.With().Str("component", "webhook_dispatcher").Logger(),
	}
}

// RegisterHandler appends a handler. Handlers run in registration order.
func (d *WebhookDispatcher) RegisterHandler(handler ports.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
	d.logger.Debug().Str("handler", handler.Name()).Msg("Registered event handler")
}

// Dispatch runs every matching handler, even after one fails, and wraps
// the failures in a domain.ProjectionError
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.CanonicalEvent) error {
	d.mu.RLock()
	handlers := make([]ports.EventHandler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if !h.CanHandle(event) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			d.logger.Error().
				Err(err).
				Str("handler", h.Name()).
				Str("eventId", event.ID).
				Str("eventType", event.EventType()).
				Msg("Event handler failed")
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &domain.ProjectionError{EventID: event.ID, Kind: event.Kind, Err: errors.Join(errs...)}
}
