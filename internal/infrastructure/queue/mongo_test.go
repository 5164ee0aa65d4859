package queue

import (
	"context"
	"testing"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func queueDoc(id string, status domain.QueueStatus, updated time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "entityId", Value: "sku-1"},
		{Key: "syncType", Value: "stock"},
		{Key: "status", Value: string(status)},
		{Key: "maxRetries", Value: 3},
		{Key: "priority", Value: 5},
		{Key: "nextAttemptAt", Value: updated},
		{Key: "createdAt", Value: updated},
		{Key: "updatedAt", Value: updated},
	}
}

func TestMongoQueue_ClaimBatch(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("expired leases are part of the claim filter", func(mt *mtest.T) {
		q := NewMongoQueue(mt.DB, domain.RetryPolicy{Visibility: 10 * time.Minute})
		stale := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: queueDoc("stuck", domain.QueueStatusProcessing, stale)}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
		)

		items, err := q.ClaimBatch(context.Background(), domain.SyncTypeStock, 5)
		require.NoError(mt, err)
		require.Len(mt, items, 1)
		assert.Equal(mt, "stuck", items[0].ID)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		_, err = started.Command.LookupErr("query", "$or")
		assert.NoError(mt, err)
	})

	mt.Run("zero visibility only claims pending items", func(mt *mtest.T) {
		q := NewMongoQueue(mt.DB, domain.RetryPolicy{})
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		items, err := q.ClaimBatch(context.Background(), domain.SyncTypeStock, 5)
		require.NoError(mt, err)
		assert.Empty(mt, items)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		_, err = started.Command.LookupErr("query", "$or")
		assert.Error(mt, err)
		status, err := started.Command.LookupErr("query", "status")
		require.NoError(mt, err)
		assert.Equal(mt, "pending", status.StringValue())
	})
}
