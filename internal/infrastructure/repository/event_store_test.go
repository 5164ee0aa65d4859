package repository

import (
	"context"
	"testing"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func sampleEvent(now time.Time) (*domain.CanonicalEvent, *domain.OutboxEntry) {
	event := &domain.CanonicalEvent{
		ID:         "evt-1",
		Platform:   domain.PlatformShopify,
		Kind:       domain.EventKindProduct,
		Action:     domain.ActionUpdate,
		Topic:      "products/update",
		Payload:    map[string]interface{}{"id": 1},
		ReceivedAt: now,
	}
	return event, domain.NewOutboxEntry(event.ID, now)
}

func startedCommands(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName+":"+evt.Command.Lookup(evt.CommandName).StringValue())
	}
	return names
}

func TestMongoEventStore_AppendWithoutTransactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("outbox entry is written before the event", func(mt *mtest.T) {
		store := NewMongoEventStore(mt.Client, mt.DB, false, zerolog.Nop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		event, entry := sampleEvent(time.Now().UTC())
		require.NoError(mt, store.Append(context.Background(), event, entry))
		assert.Equal(mt, []string{"insert:" + CollectionOutbox, "insert:" + CollectionEvents}, startedCommands(mt))
	})

	mt.Run("failed event insert removes the outbox entry", func(mt *mtest.T) {
		store := NewMongoEventStore(mt.Client, mt.DB, false, zerolog.Nop())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		event, entry := sampleEvent(time.Now().UTC())
		err := store.Append(context.Background(), event, entry)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to insert event")
		assert.Equal(mt, []string{
			"insert:" + CollectionOutbox,
			"insert:" + CollectionEvents,
			"delete:" + CollectionOutbox,
		}, startedCommands(mt))
	})

	mt.Run("failed outbox insert writes nothing else", func(mt *mtest.T) {
		store := NewMongoEventStore(mt.Client, mt.DB, false, zerolog.Nop())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		event, entry := sampleEvent(time.Now().UTC())
		err := store.Append(context.Background(), event, entry)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to insert outbox entry")
		assert.Equal(mt, []string{"insert:" + CollectionOutbox}, startedCommands(mt))
	})
}

func TestSupportsTransactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("replica set", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "setName", Value: "rs0"}))
		assert.True(mt, SupportsTransactions(context.Background(), mt.Client))
	})

	mt.Run("mongos", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "msg", Value: "isdbgrid"}))
		assert.True(mt, SupportsTransactions(context.Background(), mt.Client))
	})

	mt.Run("standalone", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "isWritablePrimary", Value: true}))
		assert.False(mt, SupportsTransactions(context.Background(), mt.Client))
	})
}
