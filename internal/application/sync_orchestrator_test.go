package application

import (
	"context"
	"sync"
	"testing"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/repository/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	orchestrator *SyncOrchestrator
	configs      *memory.SyncConfigRepository
	logs         *memory.SyncLogRepository

	mu      sync.Mutex
	targets []SyncTarget
}

func newOrchestratorFixture(t *testing.T, credentials stubCredentials) *orchestratorFixture {
	t.Helper()
	ctx := context.Background()
	integrations := memory.NewIntegrationRepository()
	for _, i := range []*domain.Integration{
		{ID: "int-a", UserID: "u1", Platform: domain.PlatformShopify, StoreIdentifier: "a", Active: true},
		{ID: "int-b", UserID: "u1", Platform: domain.PlatformWooCommerce, StoreIdentifier: "b", Active: true},
		{ID: "int-c", UserID: "u1", Platform: domain.PlatformEtsy, StoreIdentifier: "c", Active: false},
		{ID: "int-d", UserID: "u2", Platform: domain.PlatformWix, StoreIdentifier: "d", Active: true},
	} {
		require.NoError(t, integrations.Create(ctx, i))
	}

	f := &orchestratorFixture{
		configs: memory.NewSyncConfigRepository(),
		logs:    memory.NewSyncLogRepository(),
	}
	for _, c := range []*domain.SyncConfig{
		{ID: "cfg-a", UserID: "u1", IntegrationID: "int-a", Platform: domain.PlatformShopify, SyncProducts: true, SyncPrices: true, Active: true},
		{ID: "cfg-b", UserID: "u1", IntegrationID: "int-b", Platform: domain.PlatformWooCommerce, SyncPrices: true, Active: true},
		{ID: "cfg-c", UserID: "u1", IntegrationID: "int-c", Platform: domain.PlatformEtsy, SyncPrices: true, Active: true},
		{ID: "cfg-d", UserID: "u2", IntegrationID: "int-d", Platform: domain.PlatformWix, SyncPrices: true, Active: true},
	} {
		require.NoError(t, f.configs.Upsert(ctx, c))
	}

	record := func(target SyncTarget) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.targets = append(f.targets, target)
	}
	fallback := SyncerFunc(func(_ context.Context, target SyncTarget) (domain.SyncResult, error) {
		record(target)
		return domain.SyncResult{}, nil
	})
	f.orchestrator = NewSyncOrchestrator(integrations, f.configs, f.logs, credentials, fallback, nil, zerolog.Nop())
	f.orchestrator.RegisterSyncer(domain.SyncTypeProducts, SyncerFunc(func(_ context.Context, target SyncTarget) (domain.SyncResult, error) {
		record(target)
		return domain.SyncResult{Processed: 2, Succeeded: 2}, nil
	}))
	f.orchestrator.RegisterSyncer(domain.SyncTypePrices, SyncerFunc(func(_ context.Context, target SyncTarget) (domain.SyncResult, error) {
		record(target)
		if target.Integration.Platform == domain.PlatformShopify {
			return domain.SyncResult{}, &domain.SyncError{SyncType: domain.SyncTypePrices, Platform: domain.PlatformShopify, Err: errBoom}
		}
		return domain.SyncResult{Processed: 1, Succeeded: 1}, nil
	}))
	return f
}

func byIntegration(results []domain.PlatformResult) map[string]domain.PlatformResult {
	out := make(map[string]domain.PlatformResult, len(results))
	for _, r := range results {
		out[r.IntegrationID] = r
	}
	return out
}

func logsByIntegration(logs []*domain.SyncLog) map[string]*domain.SyncLog {
	out := make(map[string]*domain.SyncLog, len(logs))
	for _, l := range logs {
		out[l.IntegrationID] = l
	}
	return out
}

func TestRunSync_IsolatesFailingTypes(t *testing.T) {
	f := newOrchestratorFixture(t, stubCredentials{})

	results, err := f.orchestrator.RunSync(context.Background(), RunSyncRequest{
		UserID:    "u1",
		SyncTypes: []domain.SyncType{domain.SyncTypeProducts, domain.SyncTypePrices},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	got := byIntegration(results)
	a := got["int-a"]
	assert.Equal(t, domain.SyncLogPartial, a.Status)
	require.Len(t, a.Results, 2)
	assert.Equal(t, domain.SyncTypeProducts, a.Results[0].SyncType)
	assert.True(t, a.Results[0].Success)
	assert.Equal(t, 2, a.Results[0].Data.Succeeded)
	assert.False(t, a.Results[1].Success)
	assert.Contains(t, a.Results[1].Error, "boom")

	b := got["int-b"]
	assert.Equal(t, domain.SyncLogSuccess, b.Status)
	require.Len(t, b.Results, 1)
	assert.Equal(t, domain.SyncTypePrices, b.Results[0].SyncType)

	logs := logsByIntegration(f.logs.All())
	require.Len(t, logs, 2)
	assert.Equal(t, "products,prices", logs["int-a"].EntityType)
	assert.Equal(t, "sync", logs["int-a"].Action)
	assert.Equal(t, domain.SyncLogPartial, logs["int-a"].Status)
	assert.Equal(t, 2, logs["int-a"].ItemsSucceeded)
	assert.Equal(t, "prices", logs["int-b"].EntityType)
}

func TestRunSync_PlatformFilterSkipsDisabledIntegration(t *testing.T) {
	f := newOrchestratorFixture(t, stubCredentials{})

	results, err := f.orchestrator.RunSync(context.Background(), RunSyncRequest{
		UserID:    "u1",
		SyncTypes: []domain.SyncType{domain.SyncTypePrices},
		Platforms: []domain.Platform{"woo", domain.PlatformEtsy},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "int-b", results[0].IntegrationID)
	assert.Len(t, f.logs.All(), 1)
}

func TestRunSync_ForceFullSyncStampsConfigs(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, stubCredentials{})

	_, err := f.orchestrator.RunSync(ctx, RunSyncRequest{UserID: "u1", SyncTypes: []domain.SyncType{domain.SyncTypePrices}, ForceFullSync: true})
	require.NoError(t, err)

	for _, id := range []string{"int-a", "int-b"} {
		config, err := f.configs.GetByIntegration(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, config.LastFullSyncAt, id)
	}
	config, err := f.configs.GetByIntegration(ctx, "int-c")
	require.NoError(t, err)
	assert.Nil(t, config.LastFullSyncAt)

	for _, target := range f.targets {
		assert.True(t, target.FullSync)
	}
	for _, log := range f.logs.All() {
		assert.Equal(t, "full_sync", log.Action)
	}
}

func TestRunSync_CredentialFailureFailsEveryType(t *testing.T) {
	f := newOrchestratorFixture(t, stubCredentials{failing: map[string]error{"int-a": domain.ErrMissingCredentials}})

	results, err := f.orchestrator.RunSync(context.Background(), RunSyncRequest{
		UserID:    "u1",
		SyncTypes: []domain.SyncType{domain.SyncTypeProducts, domain.SyncTypePrices},
	})
	require.NoError(t, err)

	a := byIntegration(results)["int-a"]
	assert.Equal(t, domain.SyncLogFailed, a.Status)
	for _, r := range a.Results {
		assert.False(t, r.Success)
		assert.Equal(t, domain.ErrMissingCredentials.Error(), r.Error)
	}
	assert.Equal(t, domain.SyncLogSuccess, byIntegration(results)["int-b"].Status)
}

func TestRunSync_RecoversPanickingSyncer(t *testing.T) {
	f := newOrchestratorFixture(t, stubCredentials{})
	f.orchestrator.RegisterSyncer(domain.SyncTypeProducts, SyncerFunc(func(context.Context, SyncTarget) (domain.SyncResult, error) {
		panic("nil map")
	}))

	results, err := f.orchestrator.RunSync(context.Background(), RunSyncRequest{
		UserID:    "u1",
		SyncTypes: []domain.SyncType{domain.SyncTypeProducts, domain.SyncTypePrices},
	})
	require.NoError(t, err)

	a := byIntegration(results)["int-a"]
	assert.Equal(t, domain.SyncLogFailed, a.Status)
	assert.Contains(t, a.Results[0].Error, "panic")
	assert.Equal(t, domain.SyncLogSuccess, byIntegration(results)["int-b"].Status)
}

func TestRunSync_DefaultsToEveryEnabledType(t *testing.T) {
	f := newOrchestratorFixture(t, stubCredentials{})

	results, err := f.orchestrator.RunSync(context.Background(), RunSyncRequest{UserID: "u1"})
	require.NoError(t, err)

	a := byIntegration(results)["int-a"]
	require.Len(t, a.Results, 2)
	assert.Equal(t, domain.SyncTypeProducts, a.Results[0].SyncType)
	assert.Equal(t, domain.SyncTypePrices, a.Results[1].SyncType)
}

func TestRunSync_ValidatesRequest(t *testing.T) {
	f := newOrchestratorFixture(t, stubCredentials{})

	_, err := f.orchestrator.RunSync(context.Background(), RunSyncRequest{})
	assert.Error(t, err)

	_, err = f.orchestrator.RunSync(context.Background(), RunSyncRequest{UserID: "u1", SyncTypes: []domain.SyncType{"coupons"}})
	assert.Error(t, err)
	assert.Empty(t, f.logs.All())
}

func TestRunSync_PricesOnlyRunsWherePricesAreEnabled(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, stubCredentials{})
	require.NoError(t, f.configs.Upsert(ctx, &domain.SyncConfig{
		ID: "cfg-b", UserID: "u1", IntegrationID: "int-b", Platform: domain.PlatformWooCommerce, SyncProducts: true, SyncPrices: false, Active: true,
	}))

	results, err := f.orchestrator.RunSync(ctx, RunSyncRequest{UserID: "u1", SyncTypes: []domain.SyncType{domain.SyncTypePrices}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "int-a", results[0].IntegrationID)
	require.Len(t, results[0].Results, 1)
	assert.Equal(t, domain.SyncTypePrices, results[0].Results[0].SyncType)
	assert.Len(t, f.logs.All(), 1)
}

func TestRunSync_HonoursDirection(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, stubCredentials{})
	require.NoError(t, f.configs.Upsert(ctx, &domain.SyncConfig{
		ID: "cfg-a", UserID: "u1", IntegrationID: "int-a", Platform: domain.PlatformShopify,
		SyncProducts: true, SyncOrders: true, Direction: domain.DirectionPull, Active: true,
	}))
	require.NoError(t, f.configs.Upsert(ctx, &domain.SyncConfig{
		ID: "cfg-b", UserID: "u1", IntegrationID: "int-b", Platform: domain.PlatformWooCommerce,
		SyncProducts: true, SyncOrders: true, Direction: domain.DirectionPush, Active: true,
	}))

	results, err := f.orchestrator.RunSync(ctx, RunSyncRequest{
		UserID:    "u1",
		SyncTypes: []domain.SyncType{domain.SyncTypeProducts, domain.SyncTypeOrders},
	})
	require.NoError(t, err)
	got := byIntegration(results)

	require.Len(t, got["int-a"].Results, 1)
	assert.Equal(t, domain.SyncTypeOrders, got["int-a"].Results[0].SyncType)
	require.Len(t, got["int-b"].Results, 1)
	assert.Equal(t, domain.SyncTypeProducts, got["int-b"].Results[0].SyncType)
}
