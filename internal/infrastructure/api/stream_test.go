package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStream_DeliversMatchingEvents(t *testing.T) {
	ps := pubsub.NewEventPubSub(zerolog.Nop())
	defer ps.Close()
	server := httptest.NewServer(http.HandlerFunc(NewEventStream(ps, zerolog.Nop()).HandleStream))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"?platform=shopify&kind=order", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	_ = ps.Publish(ctx, &domain.CanonicalEvent{ID: "skip", Platform: domain.PlatformShopify, Kind: domain.EventKindProduct, Action: domain.ActionUpdate})
	_ = ps.Publish(ctx, &domain.CanonicalEvent{ID: "evt-1", Platform: domain.PlatformShopify, Kind: domain.EventKindOrder, Action: domain.ActionCreate})

	var frame []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" && len(frame) > 0 {
			break
		}
		if strings.TrimSpace(line) != "" {
			frame = append(frame, strings.TrimSpace(line))
		}
	}
	require.Len(t, frame, 3)
	assert.Equal(t, "id: evt-1", frame[0])
	assert.Equal(t, "event: order.create", frame[1])
	assert.Contains(t, frame[2], `"event_kind":"order"`)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"shopify", "etsy"}, splitList(" shopify, ,etsy "))
	assert.Nil(t, splitList(""))
}
