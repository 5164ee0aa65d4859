package application

import (
	"context"
	"testing"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/queue"
	"archie-core-commerce-sync/internal/infrastructure/repository/memory"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueFixture struct {
	processor   *QueueProcessor
	queue       *queue.MemoryQueue
	adapter     *fakeAdapter
	projections *memory.ProjectionRepository
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	ctx := context.Background()
	integrations := memory.NewIntegrationRepository()
	require.NoError(t, integrations.Create(ctx, &domain.Integration{ID: "int-2", UserID: "u1", Platform: domain.PlatformWooCommerce, StoreIdentifier: "woo", Active: true}))
	require.NoError(t, integrations.Create(ctx, &domain.Integration{ID: "int-3", UserID: "u1", Platform: domain.PlatformWooCommerce, StoreIdentifier: "woo-old", Active: false}))

	f := &queueFixture{
		queue:       queue.NewMemoryQueue(domain.RetryPolicy{}),
		adapter:     newFakeAdapter(domain.PlatformWooCommerce),
		projections: memory.NewProjectionRepository(),
	}
	f.processor = NewQueueProcessor(
		f.queue,
		integrations,
		stubCredentials{},
		registryOf(f.adapter),
		f.projections,
		nil,
		QueueProcessorConfig{SyncTypes: []domain.SyncType{domain.SyncTypeStock, domain.SyncTypeProducts}},
		zerolog.Nop(),
	)
	return f
}

func (f *queueFixture) enqueue(t *testing.T, syncType domain.SyncType, channels []domain.ChannelTarget, payload map[string]interface{}) string {
	t.Helper()
	id, err := f.queue.Enqueue(context.Background(), domain.EnqueueRequest{
		EntityID: "s-1",
		SyncType: syncType,
		Channels: channels,
		Payload:  payload,
	})
	require.NoError(t, err)
	return id
}

func TestQueueProcessor_PushesAndCompletes(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t)
	require.NoError(t, f.projections.UpsertProduct(ctx, &domain.ProductMirror{Scope: "int-2", ExternalID: "w-1", SKU: "MUG-1"}))
	id := f.enqueue(t, domain.SyncTypeStock, []domain.ChannelTarget{{IntegrationID: "int-2"}}, map[string]interface{}{"sku": "MUG-1", "quantity": 7})

	n, err := f.processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := f.adapter.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "w-1", calls[0].ExternalID)
	assert.Equal(t, domain.SyncTypeStock, calls[0].SyncType)
	assert.Equal(t, "tok-int-2", calls[0].Credentials.AccessToken())

	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusCompleted, item.Status)
}

func TestQueueProcessor_ExhaustsAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t)
	f.adapter.outbound = func(ports.OutboundRequest) (domain.SyncResult, error) {
		return domain.SyncResult{Processed: 1, Failed: 1}, errBoom
	}
	id := f.enqueue(t, domain.SyncTypeStock, []domain.ChannelTarget{{IntegrationID: "int-2", ExternalID: "w-1"}}, map[string]interface{}{"sku": "MUG-1", "quantity": 1})

	for i := 0; i < domain.DefaultMaxRetries+1; i++ {
		n, err := f.processor.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}

	assert.Len(t, f.adapter.Calls(), domain.DefaultMaxRetries)
	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusFailed, item.Status)
	assert.Equal(t, domain.DefaultMaxRetries, item.RetryCount)
	assert.Contains(t, item.LastError, "boom")

	failed, err := f.queue.ListFailed(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestQueueProcessor_SkipsInactiveChannel(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t)
	id := f.enqueue(t, domain.SyncTypeStock, []domain.ChannelTarget{{IntegrationID: "int-3", ExternalID: "w-1"}}, map[string]interface{}{"quantity": 1})

	n, err := f.processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.adapter.Calls())

	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusCompleted, item.Status)
}

func TestQueueProcessor_UnknownChannelFails(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t)
	id := f.enqueue(t, domain.SyncTypeStock, []domain.ChannelTarget{{IntegrationID: "int-404"}}, map[string]interface{}{"quantity": 1})

	_, err := f.processor.RunOnce(ctx)
	require.NoError(t, err)

	item, err := f.queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, item.RetryCount)
	assert.Contains(t, item.LastError, domain.ErrIntegrationNotFound.Error())
}

func TestQueueProcessor_RemembersCreatedProducts(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t)
	f.adapter.outbound = func(req ports.OutboundRequest) (domain.SyncResult, error) {
		if req.ExternalID == "" {
			return domain.SyncResult{ExternalID: "w-new", Processed: 1, Succeeded: 1}, nil
		}
		return domain.SyncResult{ExternalID: req.ExternalID, Processed: 1, Succeeded: 1}, nil
	}
	payload := map[string]interface{}{"sku": "LAMP-1", "title": "Lamp", "price": "20.00", "quantity": float64(3)}

	f.enqueue(t, domain.SyncTypeProducts, []domain.ChannelTarget{{IntegrationID: "int-2"}}, payload)
	_, err := f.processor.RunOnce(ctx)
	require.NoError(t, err)

	mirror, err := f.projections.GetProduct(ctx, "int-2", "w-new")
	require.NoError(t, err)
	require.NotNil(t, mirror)
	assert.Equal(t, "LAMP-1", mirror.SKU)
	assert.Equal(t, 3, mirror.InventoryQuantity)

	// the retry of the same article updates instead of creating again
	f.enqueue(t, domain.SyncTypeProducts, []domain.ChannelTarget{{IntegrationID: "int-2"}}, payload)
	_, err = f.processor.RunOnce(ctx)
	require.NoError(t, err)

	calls := f.adapter.Calls()
	require.Len(t, calls, 2)
	assert.Empty(t, calls[0].ExternalID)
	assert.Equal(t, "w-new", calls[1].ExternalID)
}
