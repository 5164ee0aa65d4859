package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.WebhookHandled("shopify", "stored", 10*time.Millisecond)
	m.WebhookHandled("shopify", "stored", 20*time.Millisecond)
	m.WebhookHandled("etsy", "unauthorized", time.Millisecond)
	m.IntegrationDisabled()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhooksTotal.WithLabelValues("shopify", "stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhooksTotal.WithLabelValues("etsy", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.integrationsDisabled))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.WebhookHandled("shopify", "stored", time.Second)
		m.QueueItem("stock", "completed")
		m.SyncRun("wix", "success")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.QueueItem("stock", "completed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `commerce_sync_queue_items_total{result="completed",sync_type="stock"} 1`))
}
