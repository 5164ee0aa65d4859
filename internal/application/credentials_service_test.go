package application

import (
	"context"
	"testing"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/encryption"
	"archie-core-commerce-sync/internal/infrastructure/repository/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCredentials(t *testing.T) (*CredentialsService, *encryption.Service) {
	t.Helper()
	enc, err := encryption.NewService("test-passphrase")
	require.NoError(t, err)
	return NewCredentialsService(enc, zerolog.Nop()), enc
}

func TestCredentialsService_SealAndOpen(t *testing.T) {
	svc, _ := newCredentials(t)
	sealed, err := svc.SealCredentials(domain.Credentials{"consumer_key": "ck", "consumer_secret": "cs"})
	require.NoError(t, err)
	assert.NotContains(t, sealed, "ck")

	creds, err := svc.Credentials(context.Background(), &domain.Integration{ID: "int-1", EncryptedCredentials: sealed})
	require.NoError(t, err)
	assert.Equal(t, "ck", creds.Get("consumer_key"))
	assert.Equal(t, "cs", creds.Get("consumer_secret"))
}

func TestCredentialsService_BareTokenAndMissing(t *testing.T) {
	svc, enc := newCredentials(t)
	ctx := context.Background()

	bare, err := enc.Encrypt("shpat_123")
	require.NoError(t, err)
	creds, err := svc.Credentials(ctx, &domain.Integration{EncryptedCredentials: bare})
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", creds.AccessToken())

	_, err = svc.Credentials(ctx, &domain.Integration{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)

	empty, err := enc.Encrypt("{}")
	require.NoError(t, err)
	_, err = svc.Credentials(ctx, &domain.Integration{EncryptedCredentials: empty})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)

	_, err = svc.Credentials(ctx, &domain.Integration{EncryptedCredentials: "not-a-ciphertext"})
	assert.Error(t, err)

	sealed, err := svc.SealCredentials(nil)
	require.NoError(t, err)
	assert.Empty(t, sealed)
}

func TestIntegrationService_ConnectAndReconnect(t *testing.T) {
	ctx := context.Background()
	creds, _ := newCredentials(t)
	integrations := memory.NewIntegrationRepository()
	configs := memory.NewSyncConfigRepository()
	svc := NewIntegrationService(integrations, configs, creds, zerolog.Nop())

	first, err := svc.Connect(ctx, ConnectInput{
		UserID:          "u1",
		Platform:        "Shopify",
		StoreIdentifier: " shop.myshopify.com ",
		WebhookSecret:   "whsec",
		Credentials:     domain.Credentials{"access_token": "tok"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformShopify, first.Platform)
	assert.Equal(t, "shop.myshopify.com", first.StoreIdentifier)
	assert.True(t, first.Active)

	config, err := configs.GetByIntegration(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.True(t, config.Enabled(domain.SyncTypeStock))
	assert.False(t, config.Enabled(domain.SyncTypeCustomers))
	assert.Equal(t, domain.DirectionBidirectional, config.Direction)

	opened, err := creds.Credentials(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "tok", opened.AccessToken())

	require.NoError(t, svc.Deactivate(ctx, first.ID))
	again, err := svc.Connect(ctx, ConnectInput{
		UserID:          "u1",
		Platform:        domain.PlatformShopify,
		StoreIdentifier: "shop.myshopify.com",
		Credentials:     domain.Credentials{"access_token": "tok2"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	stored, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	opened, err = creds.Credentials(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "tok2", opened.AccessToken())

	_, err = svc.Connect(ctx, ConnectInput{UserID: "u2", Platform: domain.PlatformShopify, StoreIdentifier: "shop.myshopify.com"})
	assert.Error(t, err)

	_, err = svc.Connect(ctx, ConnectInput{UserID: "u1", Platform: domain.PlatformShopify})
	assert.Error(t, err)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}

func TestIntegrationService_UpdateSyncConfigKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	creds, _ := newCredentials(t)
	configs := memory.NewSyncConfigRepository()
	svc := NewIntegrationService(memory.NewIntegrationRepository(), configs, creds, zerolog.Nop())

	integration, err := svc.Connect(ctx, ConnectInput{UserID: "u1", Platform: domain.PlatformEtsy, StoreIdentifier: "shop-9"})
	require.NoError(t, err)
	original, err := configs.GetByIntegration(ctx, integration.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateSyncConfig(ctx, &domain.SyncConfig{IntegrationID: integration.ID, SyncPrices: true, Direction: domain.DirectionPush, Active: true})
	require.NoError(t, err)
	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, "u1", updated.UserID)
	assert.Equal(t, domain.PlatformEtsy, updated.Platform)
	assert.False(t, updated.Enabled(domain.SyncTypeProducts))

	_, err = svc.UpdateSyncConfig(ctx, &domain.SyncConfig{IntegrationID: "missing"})
	assert.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}
