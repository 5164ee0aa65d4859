package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

// EventStore is an in-memory ports.EventStore and ports.OutboxRepository.
// Append is atomic under one lock.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]*domain.CanonicalEvent
	order  []string
	outbox map[string]*domain.OutboxEntry

	// FailAppend makes Append fail, for exercising rollback paths
	FailAppend error
}

// NewEventStore creates an empty store
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[string]*domain.CanonicalEvent),
		outbox: make(map[string]*domain.OutboxEntry),
	}
}

// Append stores the event and its outbox entry together
func (s *EventStore) Append(_ context.Context, event *domain.CanonicalEvent, outbox *domain.OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("failed to insert event: duplicate id %s", event.ID)
	}
	e := *event
	s.events[event.ID] = &e
	s.order = append(s.order, event.ID)
	if outbox != nil {
		o := *outbox
		s.outbox[outbox.ID] = &o
	}
	return nil
}

// GetByID returns a copy of the event or nil
func (s *EventStore) GetByID(_ context.Context, id string) (*domain.CanonicalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.events[id]; ok {
		c := *e
		return &c, nil
	}
	return nil, nil
}

// MarkProcessed flags an event as dispatched
func (s *EventStore) MarkProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		e.Processed = true
	}
	return nil
}

// List returns newest-first events matching the filter
func (s *EventStore) List(_ context.Context, f ports.EventFilter) ([]*domain.CanonicalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.CanonicalEvent
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.events[s.order[i]]
		if f.IntegrationID != "" && (e.IntegrationID == nil || *e.IntegrationID != f.IntegrationID) {
			continue
		}
		if f.Platform != "" && e.Platform != f.Platform {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Unprocessed && e.Processed {
			continue
		}
		c := *e
		out = append(out, &c)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of stored events
func (s *EventStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// FindDue returns due pending outbox entries, oldest first
func (s *EventStore) FindDue(_ context.Context, now time.Time, limit int) ([]*domain.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.OutboxEntry
	for _, o := range s.outbox {
		if o.Status == domain.OutboxStatusPending && !o.NextAttemptAt.After(now) {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetByEventID returns the outbox entry of an event or nil
func (s *EventStore) GetByEventID(_ context.Context, eventID string) (*domain.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.outbox {
		if o.EventID == eventID {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

// Save replaces an outbox entry
func (s *EventStore) Save(_ context.Context, entry *domain.OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *entry
	s.outbox[entry.ID] = &c
	return nil
}
