package queue

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnNames = []string{
	"id", "entity_id", "sync_type", "channels", "payload", "status", "retry_count", "max_retries",
	"priority", "last_error", "next_attempt_at", "created_at", "updated_at",
}

func queueRow(rows *sqlmock.Rows, id string, priority int, status domain.QueueStatus, retry int, created time.Time) *sqlmock.Rows {
	channels, _ := json.Marshal([]domain.ChannelTarget{{IntegrationID: "int-1", Platform: domain.PlatformWooCommerce}})
	return rows.AddRow(id, "sku-1", "stock", channels, []byte(`{"quantity":4}`), string(status),
		retry, 3, priority, "", created, created, created)
}

func TestPostgresQueue_ClaimBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columnNames)
	queueRow(rows, "late", 5, domain.QueueStatusProcessing, 0, created.Add(time.Minute))
	queueRow(rows, "urgent", 1, domain.QueueStatusProcessing, 0, created.Add(2*time.Minute))
	queueRow(rows, "early", 5, domain.QueueStatusProcessing, 0, created)

	mock.ExpectQuery(`UPDATE sync_queue SET status = 'processing'.*FOR UPDATE SKIP LOCKED`).
		WithArgs("stock", 10, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	q := NewPostgresQueue(db, domain.DefaultRetryPolicy())
	items, err := q.ClaimBatch(context.Background(), domain.SyncTypeStock, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "urgent", items[0].ID)
	assert.Equal(t, "early", items[1].ID)
	assert.Equal(t, "late", items[2].ID)
	assert.Equal(t, domain.PlatformWooCommerce, items[0].Channels[0].Platform)
	assert.EqualValues(t, 4, items[0].Payload["quantity"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// leaseCutoff matches the stale-claim cutoff passed to the claim statement
type leaseCutoff struct {
	visibility time.Duration
}

func (c leaseCutoff) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	if !ok {
		return false
	}
	if c.visibility <= 0 {
		return ts.IsZero()
	}
	want := time.Now().UTC().Add(-c.visibility)
	return ts.After(want.Add(-time.Minute)) && !ts.After(want)
}

func TestPostgresQueue_ClaimBatchReclaimsExpiredLeases(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stale := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery(`status = 'processing' AND updated_at < \$4`).
		WithArgs("stock", 5, sqlmock.AnyArg(), leaseCutoff{visibility: 10 * time.Minute}).
		WillReturnRows(queueRow(sqlmock.NewRows(columnNames), "stuck", 5, domain.QueueStatusProcessing, 0, stale))

	q := NewPostgresQueue(db, domain.RetryPolicy{Base: time.Second, Visibility: 10 * time.Minute})
	items, err := q.ClaimBatch(context.Background(), domain.SyncTypeStock, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "stuck", items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_ClaimBatchWithoutLease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE sync_queue SET status = 'processing'`).
		WithArgs("stock", 100, sqlmock.AnyArg(), leaseCutoff{}).
		WillReturnRows(sqlmock.NewRows(columnNames))

	q := NewPostgresQueue(db, domain.RetryPolicy{})
	items, err := q.ClaimBatch(context.Background(), domain.SyncTypeStock, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_FailExhausts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Now().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM sync_queue WHERE id = \$1 FOR UPDATE`).
		WithArgs("item-1").
		WillReturnRows(queueRow(sqlmock.NewRows(columnNames), "item-1", 5, domain.QueueStatusProcessing, 2, created))
	mock.ExpectExec(`UPDATE sync_queue`).
		WithArgs("item-1", "failed", 3, "timeout", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	q := NewPostgresQueue(db, domain.DefaultRetryPolicy())
	err = q.Fail(context.Background(), "item-1", errors.New("timeout"))
	assert.ErrorIs(t, err, domain.ErrQueueExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_CompleteTerminalRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM sync_queue WHERE id = \$1 FOR UPDATE`).
		WithArgs("item-2").
		WillReturnRows(queueRow(sqlmock.NewRows(columnNames), "item-2", 5, domain.QueueStatusFailed, 3, time.Now()))
	mock.ExpectRollback()

	q := NewPostgresQueue(db, domain.DefaultRetryPolicy())
	assert.ErrorIs(t, q.Complete(context.Background(), "item-2"), domain.ErrQueueItemTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_MissingItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FOR UPDATE`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(columnNames))
	mock.ExpectRollback()

	q := NewPostgresQueue(db, domain.DefaultRetryPolicy())
	assert.ErrorIs(t, q.Requeue(context.Background(), "nope"), domain.ErrQueueItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_Enqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sync_queue`).
		WithArgs(sqlmock.AnyArg(), "sku-9", "stock", sqlmock.AnyArg(), sqlmock.AnyArg(), "pending",
			0, domain.DefaultMaxRetries, domain.DefaultPriority, "",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := NewPostgresQueue(db, domain.DefaultRetryPolicy())
	id, err := q.Enqueue(context.Background(), stockRequest("sku-9", 0))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
