package application

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"archie-core-commerce-sync/internal/application/webhook_handlers"
	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/cache"
	"archie-core-commerce-sync/internal/infrastructure/repository/memory"
	"archie-core-commerce-sync/internal/infrastructure/webhook"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

type ingestFixture struct {
	svc          *WebhookService
	adapter      *fakeAdapter
	integrations *memory.IntegrationRepository
	events       *memory.EventStore
	projections  *memory.ProjectionRepository
	dispatcher   *WebhookDispatcher
	downstream   *recordingPublisher
	live         *recordingPublisher
}

func newIngestFixture(t *testing.T, secrets map[domain.Platform]string) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		adapter:      newFakeAdapter(domain.PlatformShopify),
		integrations: memory.NewIntegrationRepository(),
		events:       memory.NewEventStore(),
		projections:  memory.NewProjectionRepository(),
		dispatcher:   NewWebhookDispatcher(zerolog.Nop()),
		downstream:   &recordingPublisher{},
		live:         &recordingPublisher{},
	}
	f.adapter.normalize = productEvents(domain.PlatformShopify)
	f.dispatcher.RegisterHandler(webhook_handlers.NewProductHandler(f.projections, zerolog.Nop()))

	require.NoError(t, f.integrations.Create(context.Background(), &domain.Integration{
		ID:              "int-1",
		UserID:          "u1",
		Platform:        domain.PlatformShopify,
		StoreIdentifier: "shop-1",
		WebhookSecret:   testSecret,
		Active:          true,
	}))

	outbox := NewOutboxProcessor(f.events, f.events, f.dispatcher, nil, f.downstream, nil, OutboxConfig{}, zerolog.Nop())
	f.svc = NewWebhookService(
		registryOf(f.adapter),
		f.integrations,
		f.events,
		webhook.HMACVerifier{},
		cache.NewMemoryIdempotencyStore(),
		outbox,
		f.live,
		nil,
		WebhookServiceConfig{Secrets: secrets},
		zerolog.Nop(),
	)
	return f
}

func (f *ingestFixture) signed(secret, body string) WebhookRequest {
	headers := http.Header{}
	headers.Set(f.adapter.scheme.Header, webhook.NewVerifier(secret, f.adapter.scheme).Sign([]byte(body)))
	return WebhookRequest{Platform: "shopify", Headers: headers, Body: []byte(body)}
}

func TestIngest_StoresAndProjectsSignedEvent(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, nil)
	body := `{"store":"shop-1","id":"p-1","sku":"MUG-1","title":"Mug","price":"9.90","delivery":"d-1"}`

	result, err := f.svc.Ingest(ctx, f.signed(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, "product.update", result.EventType)
	assert.Equal(t, domain.PlatformShopify, result.Platform)
	assert.True(t, result.Verified)
	require.NotEmpty(t, result.EventID)

	assert.Equal(t, 1, f.events.Count())
	stored, err := f.events.GetByID(ctx, result.EventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.True(t, stored.Attributed())
	assert.Equal(t, "int-1", *stored.IntegrationID)
	assert.Equal(t, "u1", stored.UserID)
	assert.True(t, stored.Verified)
	assert.True(t, stored.Processed)

	entry, err := f.events.GetByEventID(ctx, result.EventID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.OutboxStatusProcessed, entry.Status)

	integration, err := f.integrations.GetByID(ctx, "int-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, integration.WebhookEventCount)
	assert.NotNil(t, integration.LastWebhookAt)

	mirror, err := f.projections.GetProduct(ctx, "int-1", "p-1")
	require.NoError(t, err)
	require.NotNil(t, mirror)
	assert.Equal(t, "Mug", mirror.Title)

	assert.Len(t, f.downstream.Published(), 1)
	assert.Len(t, f.live.Published(), 1)
}

func TestIngest_RejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	body := `{"store":"shop-1","id":"p-1"}`

	tests := []struct {
		name      string
		signature string
	}{
		{"wrong secret", webhook.NewVerifier("other", newFakeAdapter(domain.PlatformShopify).scheme).Sign([]byte(body))},
		{"garbage", "bm9wZQ=="},
		{"missing header", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(t, nil)
			headers := http.Header{}
			if tt.signature != "" {
				headers.Set(f.adapter.scheme.Header, tt.signature)
			}

			result, err := f.svc.Ingest(ctx, WebhookRequest{Platform: "shopify", Headers: headers, Body: []byte(body)})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrAuthentication))
			assert.Nil(t, result)
			assert.Equal(t, 0, f.events.Count())

			integration, err := f.integrations.GetByID(ctx, "int-1")
			require.NoError(t, err)
			assert.Zero(t, integration.WebhookEventCount)
			assert.Empty(t, f.live.Published())
		})
	}
}

func TestIngest_PlatformSecretForUnknownStore(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, map[domain.Platform]string{domain.PlatformShopify: "platform-secret"})
	body := `{"store":"unknown-shop","id":"p-9","sku":"X"}`

	result, err := f.svc.Ingest(ctx, f.signed("platform-secret", body))
	require.NoError(t, err)
	assert.True(t, result.Verified)

	stored, err := f.events.GetByID(ctx, result.EventID)
	require.NoError(t, err)
	assert.False(t, stored.Attributed())
	assert.Equal(t, "unknown-shop", stored.StoreID)

	mirror, err := f.projections.GetProduct(ctx, "platform:shopify", "p-9")
	require.NoError(t, err)
	assert.NotNil(t, mirror)
}

func TestIngest_AcceptsUnverifiedWithoutSecret(t *testing.T) {
	f := newIngestFixture(t, nil)

	result, err := f.svc.Ingest(context.Background(), WebhookRequest{Platform: "shopify", Body: []byte(`{"id":"p-2"}`)})
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, 1, f.events.Count())
}

func TestIngest_NonJSONBodyIsWrapped(t *testing.T) {
	f := newIngestFixture(t, nil)
	var seen map[string]interface{}
	f.adapter.normalize = func(payload map[string]interface{}) *domain.CanonicalEvent {
		seen = payload
		return nil
	}

	result, err := f.svc.Ingest(context.Background(), WebhookRequest{Platform: "shopify", Body: []byte("plain text ping")})
	require.NoError(t, err)
	assert.Equal(t, EventTypeIgnored, result.EventType)
	assert.Empty(t, result.EventID)
	assert.Equal(t, map[string]interface{}{"raw": "plain text ping"}, seen)
	assert.Equal(t, 0, f.events.Count())
}

func TestIngest_DuplicateDeliveryIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, nil)
	body := `{"store":"shop-1","id":"p-1","sku":"MUG-1","delivery":"d-42"}`

	first, err := f.svc.Ingest(ctx, f.signed(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, "product.update", first.EventType)

	second, err := f.svc.Ingest(ctx, f.signed(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, EventTypeDuplicate, second.EventType)
	assert.Equal(t, 1, f.events.Count())

	// a different delivery of the same product is a new event
	_, err = f.svc.Ingest(ctx, f.signed(testSecret, `{"store":"shop-1","id":"p-1","sku":"MUG-1","delivery":"d-43"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, f.events.Count())
}

func TestIngest_StoreFailurePublishesNothing(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, nil)
	f.events.FailAppend = errBoom

	_, err := f.svc.Ingest(ctx, f.signed(testSecret, `{"store":"shop-1","id":"p-1"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.live.Published())
	assert.Empty(t, f.downstream.Published())

	integration, err := f.integrations.GetByID(ctx, "int-1")
	require.NoError(t, err)
	assert.Zero(t, integration.WebhookEventCount)
}

func TestIngest_RetryAfterStoreFailureIsStored(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, nil)
	body := `{"store":"shop-1","id":"p-1","sku":"MUG-1","delivery":"d-1"}`

	f.events.FailAppend = errBoom
	_, err := f.svc.Ingest(ctx, f.signed(testSecret, body))
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, f.events.Count())

	// the platform redelivers the same delivery id
	f.events.FailAppend = nil
	result, err := f.svc.Ingest(ctx, f.signed(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, "product.update", result.EventType)
	assert.Equal(t, 1, f.events.Count())

	again, err := f.svc.Ingest(ctx, f.signed(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, EventTypeDuplicate, again.EventType)
	assert.Equal(t, 1, f.events.Count())
}

type failingHandler struct{}

func (failingHandler) Name() string { return "failing" }

func (failingHandler) CanHandle(*domain.CanonicalEvent) bool { return true }

func (failingHandler) Handle(context.Context, *domain.CanonicalEvent) error { return errBoom }

func TestIngest_ProjectionFailureKeepsEvent(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, nil)
	f.dispatcher.RegisterHandler(failingHandler{})

	result, err := f.svc.Ingest(ctx, f.signed(testSecret, `{"store":"shop-1","id":"p-1","sku":"MUG-1"}`))
	require.NoError(t, err)

	stored, err := f.events.GetByID(ctx, result.EventID)
	require.NoError(t, err)
	assert.False(t, stored.Processed)

	entry, err := f.events.GetByEventID(ctx, result.EventID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxStatusPending, entry.Status)
	assert.Equal(t, 1, entry.Attempts)
	assert.Contains(t, entry.LastError, "boom")
	assert.Empty(t, f.downstream.Published())
	assert.Len(t, f.live.Published(), 1)
}

func TestParsePayload(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"a": "b"}, parsePayload([]byte(`{"a":"b"}`)))
	assert.Equal(t, map[string]interface{}{"raw": "[1,2]"}, parsePayload([]byte(`[1,2]`)))
	assert.Equal(t, map[string]interface{}{"raw": ""}, parsePayload(nil))
}
