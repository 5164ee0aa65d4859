package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestClient_DoRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "19.99", body["price"])
		_, _ = w.Write([]byte(`{"id":"p-1"}`))
	}))
	defer srv.Close()

	c := New(testConfig(), srv.Client(), zerolog.Nop())
	var out struct {
		ID string `json:"id"`
	}
	err := c.Do(context.Background(), Request{
		Method:  http.MethodPut,
		URL:     srv.URL + "/products/1",
		Headers: map[string]string{"Authorization": "Bearer tok"},
		Body:    map[string]string{"price": "19.99"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "p-1", out.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"bad sku"}`))
	}))
	defer srv.Close()

	c := New(testConfig(), srv.Client(), zerolog.Nop())
	err := c.Do(context.Background(), Request{Method: http.MethodPost, URL: srv.URL}, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "bad sku")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_DoGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(testConfig(), srv.Client(), zerolog.Nop())
	err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL, BasicUser: "ck", BasicPass: "cs"}, nil)

	require.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}
