package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// EventTypeIgnored is reported for payloads the adapter does not act on
	EventTypeIgnored = "ignored"
	// EventTypeDuplicate is reported for a redelivered webhook
	EventTypeDuplicate = "duplicate"

	defaultDeliveryTTL = 48 * time.Hour
	defaultOutboxGrace = 30 * time.Second
)

// WebhookRequest is one inbound webhook call
type WebhookRequest struct {
	Platform      string
	IntegrationID string
	Headers       http.Header
	Body          []byte
}

// WebhookResult is reported back to the sender
type WebhookResult struct {
	EventID   string          `json:"event_id,omitempty"`
	EventType string          `json:"event_type"`
	Platform  domain.Platform `json:"platform"`
	Verified  bool            `json:"verified"`
}

// WebhookServiceConfig tunes ingestion
type WebhookServiceConfig struct {
	// Secrets are per-platform fallbacks for integrations without their own secret
	Secrets     map[domain.Platform]string
	DeliveryTTL time.Duration
	// OutboxGrace delays background pickup so the inline dispatch normally wins
	OutboxGrace time.Duration
}

// WebhookService is the ingestion gateway: verify, normalize, store, project, publish
type WebhookService struct {
	adapters     ports.AdapterRegistry
	integrations ports.IntegrationRepository
	events       ports.EventStore
	verifier     ports.WebhookVerifier
	deliveries   ports.IdempotencyStore
	outbox       *OutboxProcessor
	live         ports.EventPublisher
	metrics      ports.MetricsRecorder
	config       WebhookServiceConfig
	logger       zerolog.Logger
}

// NewWebhookService creates the ingestion gateway. deliveries, outbox, live and
// metrics may be nil.
func NewWebhookService(
	adapters ports.AdapterRegistry,
	integrations ports.IntegrationRepository,
	events ports.EventStore,
	verifier ports.WebhookVerifier,
	deliveries ports.IdempotencyStore,
	outbox *OutboxProcessor,
	live ports.EventPublisher,
	metrics ports.MetricsRecorder,
	config WebhookServiceConfig,
	logger zerolog.Logger,
) *WebhookService {
	if config.DeliveryTTL <= 0 {
		config.DeliveryTTL = defaultDeliveryTTL
	}
	if config.OutboxGrace <= 0 {
		config.OutboxGrace = defaultOutboxGrace
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &WebhookService{
		adapters:     adapters,
		integrations: integrations,
		events:       events,
		verifier:     verifier,
		deliveries:   deliveries,
		outbox:       outbox,
		live:         live,
		metrics:      metrics,
		config:       config,
		logger:       logger.With().Str("component", "webhook_service").Logger(),
	}
}

// Ingest processes one webhook. It returns an error wrapping domain.ErrAuthentication
// when a configured secret does not match, in which case nothing is stored.
func (s *WebhookService) Ingest(ctx context.Context, req WebhookRequest) (*WebhookResult, error) {
	started := time.Now()
	platform := domain.ParsePlatform(req.Platform)
	adapter := s.adapters.Resolve(platform)
	if req.Headers == nil {
		req.Headers = http.Header{}
	}

	payload := parsePayload(req.Body)

	integration, err := s.resolveIntegration(ctx, platform, adapter, payload, req)
	if err != nil {
		s.metrics.WebhookHandled(string(platform), "error", time.Since(started))
		return nil, err
	}

	verified, err := s.verify(platform, adapter, integration, req)
	if err != nil {
		s.metrics.WebhookHandled(string(platform), "unauthorized", time.Since(started))
		return nil, err
	}

	event := adapter.Normalize(payload, req.Headers)
	if event == nil {
		s.logger.Debug().Str("platform", string(platform)).Msg("Webhook ignored by adapter")
		s.metrics.WebhookHandled(string(platform), EventTypeIgnored, time.Since(started))
		return &WebhookResult{EventType: EventTypeIgnored, Platform: platform, Verified: verified}, nil
	}

	if s.isDuplicate(ctx, platform, event.DeliveryID) {
		s.metrics.WebhookHandled(string(platform), EventTypeDuplicate, time.Since(started))
		return &WebhookResult{EventType: EventTypeDuplicate, Platform: platform, Verified: verified}, nil
	}

	now := time.Now().UTC()
	event.ID = uuid.NewString()
	event.Verified = verified
	event.ReceivedAt = now
	event.Attribute(integration)
	if event.StoreID == "" {
		event.StoreID = adapter.StoreIdentifier(payload, req.Headers)
	}

	entry := domain.NewOutboxEntry(event.ID, now)
	entry.NextAttemptAt = now.Add(s.config.OutboxGrace)
	if err := s.events.Append(ctx, event, entry); err != nil {
		s.forgetDelivery(ctx, platform, event.DeliveryID)
		s.logger.Error().Err(err).Str("platform", string(platform)).Msg("Failed to store webhook event")
		s.metrics.WebhookHandled(string(platform), "error", time.Since(started))
		return nil, fmt.Errorf("failed to store webhook event: %w", err)
	}

	if integration != nil {
		if err := s.integrations.RecordWebhook(ctx, integration.ID, now); err != nil {
			s.logger.Warn().Err(err).Str("integrationId", integration.ID).Msg("Failed to update webhook counters")
		}
	} else {
		s.logger.Warn().
			Err(domain.ErrUnattributedEvent).
			Str("platform", string(platform)).
			Str("store", event.StoreID).
			Str("eventId", event.ID).
			Msg("Stored unattributed webhook event")
	}

	if s.outbox != nil {
		if err := s.outbox.Process(ctx, entry, event); err != nil {
			var projErr *domain.ProjectionError
			if errors.As(err, &projErr) {
				s.metrics.ProjectionFailed(string(event.Kind))
			}
			s.logger.Warn().Err(err).Str("eventId", event.ID).Msg("Inline dispatch failed, left for background processing")
		}
	}

	if s.live != nil {
		if err := s.live.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("eventId", event.ID).Msg("Failed to publish event to subscribers")
		}
	}

	s.logger.Info().
		Str("platform", string(platform)).
		Str("eventType", event.EventType()).
		Str("eventId", event.ID).
		Str("store", event.StoreID).
		Bool("verified", verified).
		Msg("Webhook processed")
	s.metrics.WebhookHandled(string(platform), "stored", time.Since(started))

	return &WebhookResult{
		EventID:   event.ID,
		EventType: event.EventType(),
		Platform:  event.Platform,
		Verified:  verified,
	}, nil
}

// resolveIntegration prefers the explicit id, then the store identifier. A miss is not an error.
func (s *WebhookService) resolveIntegration(
	ctx context.Context,
	platform domain.Platform,
	adapter ports.PlatformAdapter,
	payload map[string]interface{},
	req WebhookRequest,
) (*domain.Integration, error) {
	if req.IntegrationID != "" {
		integration, err := s.integrations.GetByID(ctx, req.IntegrationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve integration: %w", err)
		}
		if integration != nil {
			return integration, nil
		}
	}

	storeID := adapter.StoreIdentifier(payload, req.Headers)
	if storeID == "" {
		return nil, nil
	}
	integration, err := s.integrations.GetByStoreIdentifier(ctx, platform, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve integration: %w", err)
	}
	return integration, nil
}

// verify checks the signature when a secret is known. Without one the event
// is accepted unverified.
func (s *WebhookService) verify(
	platform domain.Platform,
	adapter ports.PlatformAdapter,
	integration *domain.Integration,
	req WebhookRequest,
) (bool, error) {
	secret := ""
	if integration != nil {
		secret = integration.WebhookSecret
	}
	if secret == "" {
		secret = s.config.Secrets[platform]
	}
	if secret == "" {
		secret = s.config.Secrets[adapter.Platform()]
	}

	scheme := adapter.Signature()
	if secret == "" {
		s.logger.Warn().
			Str("platform", string(platform)).
			Msg("No webhook secret configured, accepting unverified payload")
		return false, nil
	}

	if err := s.verifier.Verify(secret, scheme, req.Body, req.Headers.Get(scheme.Header)); err != nil {
		audit := s.logger.Warn().
			Err(err).
			Str("audit", "security").
			Str("platform", string(platform)).
			Str("signatureHeader", scheme.Header).
			Int("bodyBytes", len(req.Body))
		if integration != nil {
			audit = audit.Str("integrationId", integration.ID)
		}
		audit.Msg("Webhook signature rejected")
		if !errors.Is(err, domain.ErrAuthentication) {
			err = fmt.Errorf("%v: %w", err, domain.ErrAuthentication)
		}
		return false, err
	}
	return true, nil
}

// isDuplicate records the delivery id and reports whether it was seen before.
// Dedupe store failures let the event through.
func (s *WebhookService) isDuplicate(ctx context.Context, platform domain.Platform, deliveryID string) bool {
	if s.deliveries == nil || deliveryID == "" {
		return false
	}
	fresh, err := s.deliveries.MarkProcessed(ctx, deliveryKey(platform, deliveryID), s.config.DeliveryTTL)
	if err != nil {
		s.logger.Warn().Err(err).Str("deliveryId", deliveryID).Msg("Delivery dedupe unavailable")
		return false
	}
	if !fresh {
		s.logger.Info().
			Str("platform", string(platform)).
			Str("deliveryId", deliveryID).
			Msg("Duplicate webhook delivery skipped")
	}
	return !fresh
}

// forgetDelivery releases a delivery id claimed by isDuplicate so the sender's
// retry of an unstored event is processed instead of reported as a duplicate
func (s *WebhookService) forgetDelivery(ctx context.Context, platform domain.Platform, deliveryID string) {
	if s.deliveries == nil || deliveryID == "" {
		return
	}
	if err := s.deliveries.Forget(context.WithoutCancel(ctx), deliveryKey(platform, deliveryID)); err != nil {
		s.logger.Error().Err(err).Str("deliveryId", deliveryID).Msg("Failed to release delivery id")
	}
}

func deliveryKey(platform domain.Platform, deliveryID string) string {
	return string(platform) + ":" + deliveryID
}

// parsePayload decodes a JSON object, wrapping anything else as {"raw": body}
func parsePayload(body []byte) map[string]interface{} {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil && payload != nil {
		return payload
	}
	return map[string]interface{}{"raw": string(body)}
}
