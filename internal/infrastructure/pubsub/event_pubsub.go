package pubsub

import (
	"context"
	"fmt"
	"sync"

	"archie-core-commerce-sync/internal/domain"

	"github.com/rs/zerolog"
)

// EventChannel represents a subscription channel
type EventChannel struct {
	ID     string
	Filter *EventFilter
	Events chan *domain.CanonicalEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// EventFilter filters canonical events
type EventFilter struct {
	Platforms     []domain.Platform
	Kinds         []domain.EventKind
	IntegrationID string
	UserID        string
}

// EventPubSub fans stored events out to live subscribers
type EventPubSub struct {
	mu       sync.RWMutex
	channels map[string]*EventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
	buffer   int
}

// NewEventPubSub creates a new event pub/sub system
func NewEventPubSub(logger zerolog.Logger) *EventPubSub {
	return &EventPubSub{
		channels: make(map[string]*EventChannel),
		logger:   logger.With().Str("component", "event_pubsub").Logger(),
		buffer:   32,
	}
}

// Subscribe creates a new subscription channel, removed when ctx ends
func (ps *EventPubSub) Subscribe(ctx context.Context, filter *EventFilter) *EventChannel {
	ps.idMu.Lock()
	id := ps.generateID()
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &EventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.CanonicalEvent, ps.buffer),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Event subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *EventPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Event subscription removed")
}

// Publish broadcasts an event to all matching subscribers without blocking
func (ps *EventPubSub) Publish(_ context.Context, event *domain.CanonicalEvent) error {
	if event == nil {
		return nil
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
			publishedCount++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("eventId", event.ID).
				Msg("Channel buffer full, dropping event")
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("eventType", event.EventType()).
			Str("platform", string(event.Platform)).
			Int("subscribers", publishedCount).
			Msg("Published event to subscribers")
	}
	return nil
}

// Close drops every subscription
func (ps *EventPubSub) Close() error {
	ps.mu.RLock()
	ids := make([]string, 0, len(ps.channels))
	for id := range ps.channels {
		ids = append(ids, id)
	}
	ps.mu.RUnlock()
	for _, id := range ids {
		ps.Unsubscribe(id)
	}
	return nil
}

func matchesFilter(event *domain.CanonicalEvent, filter *EventFilter) bool {
	if filter == nil {
		return true
	}

	if len(filter.Platforms) > 0 {
		match := false
		for _, p := range filter.Platforms {
			if event.Platform == p {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if len(filter.Kinds) > 0 {
		match := false
		for _, k := range filter.Kinds {
			if event.Kind == k {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if filter.IntegrationID != "" && (event.IntegrationID == nil || *event.IntegrationID != filter.IntegrationID) {
		return false
	}
	if filter.UserID != "" && event.UserID != filter.UserID {
		return false
	}
	return true
}

// generateID generates a unique channel ID
func (ps *EventPubSub) generateID() string {
	ps.nextID++
	return fmt.Sprintf("channel-%d", ps.nextID)
}

// GetStats returns pub/sub statistics
func (ps *EventPubSub) GetStats() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(ps.channels),
	}
}
