package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"archie-core-commerce-sync/internal/application"
	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/queue"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	syncReq  application.RunSyncRequest
	scope    domain.ScheduleScope
	syncType domain.SyncType
}

func (f *fakeRunner) RunSync(_ context.Context, req application.RunSyncRequest) ([]domain.PlatformResult, error) {
	f.syncReq = req
	return []domain.PlatformResult{{IntegrationID: "int-1", Platform: domain.PlatformEbay, Status: domain.SyncLogSuccess}}, nil
}

func (f *fakeRunner) RunScheduled(_ context.Context, scope domain.ScheduleScope, syncType domain.SyncType) (*domain.ScheduledSummary, error) {
	f.scope = scope
	f.syncType = syncType
	return &domain.ScheduledSummary{Total: 2, Successful: 2}, nil
}

func newSyncRouter(runner *fakeRunner, q *queue.MemoryQueue) chi.Router {
	r := chi.NewRouter()
	r.Route("/internal", NewSyncAPI(runner, runner, q, zerolog.Nop()).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestSyncAPI_RunSync(t *testing.T) {
	runner := &fakeRunner{}
	r := newSyncRouter(runner, queue.NewMemoryQueue(domain.DefaultRetryPolicy()))

	status, body := do(t, r, http.MethodPost, "/internal/sync/run", `{"user_id":"u1","sync_types":["prices"],"force_full_sync":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["results"], 1)
	assert.Equal(t, []domain.SyncType{domain.SyncTypePrices}, runner.syncReq.SyncTypes)
	assert.True(t, runner.syncReq.ForceFullSync)

	status, _ = do(t, r, http.MethodPost, "/internal/sync/run", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, r, http.MethodPost, "/internal/sync/run", `{"user_id":"u1","sync_types":["coupons"]}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSyncAPI_RunScheduled(t *testing.T) {
	runner := &fakeRunner{}
	r := newSyncRouter(runner, queue.NewMemoryQueue(domain.DefaultRetryPolicy()))

	status, body := do(t, r, http.MethodPost, "/internal/sync/scheduled", `{"user_id":"u1","sync_type":"stock"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", runner.scope.UserID)
	assert.Equal(t, domain.SyncTypeStock, runner.syncType)
	summary := body["summary"].(map[string]interface{})
	assert.EqualValues(t, 2, summary["successful"])

	status, _ = do(t, r, http.MethodPost, "/internal/sync/scheduled", ``)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.ScheduleScope{}, runner.scope)
}

func TestSyncAPI_QueueLifecycle(t *testing.T) {
	q := queue.NewMemoryQueue(domain.RetryPolicy{})
	r := newSyncRouter(&fakeRunner{}, q)
	ctx := context.Background()

	status, body := do(t, r, http.MethodPost, "/internal/queue",
		`{"entity_id":"sku-1","sync_type":"stock","channels":[{"integration_id":"int-2"}],"payload":{"quantity":3}}`)
	require.Equal(t, http.StatusCreated, status)
	id := body["id"].(string)

	status, _ = do(t, r, http.MethodPost, "/internal/queue/"+id+"/requeue", ``)
	assert.Equal(t, http.StatusConflict, status)

	for i := 0; i < domain.DefaultMaxRetries; i++ {
		items, err := q.ClaimBatch(ctx, domain.SyncTypeStock, 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
		_ = q.Fail(ctx, id, errors.New("timeout"))
	}

	status, body = do(t, r, http.MethodGet, "/internal/queue/failed", ``)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, _ = do(t, r, http.MethodPost, "/internal/queue/"+id+"/requeue", ``)
	assert.Equal(t, http.StatusOK, status)

	item, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusPending, item.Status)

	status, _ = do(t, r, http.MethodPost, "/internal/queue/missing/requeue", ``)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSyncAPI_EnqueueValidation(t *testing.T) {
	r := newSyncRouter(&fakeRunner{}, queue.NewMemoryQueue(domain.DefaultRetryPolicy()))

	status, body := do(t, r, http.MethodPost, "/internal/queue", `{"entity_id":"sku-1","sync_type":"stock"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "channel")

	status, _ = do(t, r, http.MethodPost, "/internal/queue", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, r, http.MethodGet, "/internal/queue/failed?limit=zero", ``)
	assert.Equal(t, http.StatusBadRequest, status)
}
