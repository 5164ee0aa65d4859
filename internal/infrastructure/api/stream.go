package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

const heartbeatInterval = 15 * time.Second

// EventStream serves stored events to dashboards as server-sent events
type EventStream struct {
	pubsub *pubsub.EventPubSub
	logger zerolog.Logger
}

// NewEventStream creates the SSE endpoint
func NewEventStream(ps *pubsub.EventPubSub, logger zerolog.Logger) *EventStream {
	return &EventStream{
		pubsub: ps,
		logger: logger,
	}
}

// HandleStream subscribes until the client disconnects. Query parameters
// platform and kind take comma separated lists.
func (s *EventStream) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	q := r.URL.Query()
	filter := &pubsub.EventFilter{
		IntegrationID: q.Get("integration_id"),
		UserID:        q.Get("user_id"),
	}
	for _, p := range splitList(q.Get("platform")) {
		filter.Platforms = append(filter.Platforms, domain.ParsePlatform(p))
	}
	for _, k := range splitList(q.Get("kind")) {
		filter.Kinds = append(filter.Kinds, domain.EventKind(k))
	}

	sub := s.pubsub.Subscribe(r.Context(), filter)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-sub.Events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Error().Err(err).Str("eventId", event.ID).Msg("Failed to encode event")
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.EventType(), data)
			flusher.Flush()
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
