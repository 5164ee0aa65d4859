package pubsub

import (
	"context"
	"testing"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPubSub_FiltersByPlatformAndIntegration(t *testing.T) {
	ps := NewEventPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := ps.Subscribe(ctx, nil)
	shopifyOnly := ps.Subscribe(ctx, &EventFilter{Platforms: []domain.Platform{domain.PlatformShopify}})
	integration := "int-1"
	byIntegration := ps.Subscribe(ctx, &EventFilter{IntegrationID: integration})

	woo := &domain.CanonicalEvent{ID: "e-1", Platform: domain.PlatformWooCommerce, Kind: domain.EventKindOrder}
	shop := &domain.CanonicalEvent{ID: "e-2", Platform: domain.PlatformShopify, Kind: domain.EventKindProduct, IntegrationID: &integration}

	require.NoError(t, ps.Publish(ctx, woo))
	require.NoError(t, ps.Publish(ctx, shop))

	assert.Equal(t, "e-1", (<-all.Events).ID)
	assert.Equal(t, "e-2", (<-all.Events).ID)
	assert.Equal(t, "e-2", (<-shopifyOnly.Events).ID)
	assert.Equal(t, "e-2", (<-byIntegration.Events).ID)
	assert.Len(t, shopifyOnly.Events, 0)
	assert.Len(t, byIntegration.Events, 0)
}

func TestEventPubSub_UnsubscribeOnContextCancel(t *testing.T) {
	ps := NewEventPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	ch := ps.Subscribe(ctx, nil)
	assert.Equal(t, 1, ps.GetStats()["active_subscriptions"])

	cancel()
	select {
	case <-ch.Done:
	case <-time.After(time.Second):
		t.Fatal("subscription was not removed")
	}
	assert.Equal(t, 0, ps.GetStats()["active_subscriptions"])
}

func TestEventPubSub_FullBufferDoesNotBlock(t *testing.T) {
	ps := NewEventPubSub(zerolog.Nop())
	ps.buffer = 1
	ch := ps.Subscribe(context.Background(), nil)
	defer ps.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ps.Publish(context.Background(), &domain.CanonicalEvent{ID: "e"}))
	}
	assert.Len(t, ch.Events, 1)
}
