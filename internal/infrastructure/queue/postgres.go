package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sync_queue (
	id              TEXT PRIMARY KEY,
	entity_id       TEXT NOT NULL,
	sync_type       TEXT NOT NULL,
	channels        JSONB NOT NULL,
	payload         JSONB NOT NULL,
	status          TEXT NOT NULL,
	retry_count     INTEGER NOT NULL DEFAULT 0,
	max_retries     INTEGER NOT NULL,
	priority        INTEGER NOT NULL,
	last_error      TEXT NOT NULL DEFAULT '',
	next_attempt_at TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sync_queue_claim_idx
	ON sync_queue (status, sync_type, priority, created_at);
CREATE INDEX IF NOT EXISTS sync_queue_lease_idx
	ON sync_queue (status, updated_at);`

const queueColumns = `id, entity_id, sync_type, channels, payload, status, retry_count, max_retries,
	priority, last_error, next_attempt_at, created_at, updated_at`

// PostgresQueue implements SyncQueue on PostgreSQL. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never share an item.
type PostgresQueue struct {
	db     *sql.DB
	policy domain.RetryPolicy
}

// OpenPostgres opens a lib/pq connection pool
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return db, nil
}

// NewPostgresQueue creates a PostgreSQL-backed queue
func NewPostgresQueue(db *sql.DB, policy domain.RetryPolicy) *PostgresQueue {
	return &PostgresQueue{db: db, policy: policy}
}

// EnsureSchema creates the queue table if needed
func (q *PostgresQueue) EnsureSchema(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create queue schema: %w", err)
	}
	return nil
}

// Enqueue stores a pending item
func (q *PostgresQueue) Enqueue(ctx context.Context, req domain.EnqueueRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	item := domain.NewQueueItem(uuid.NewString(), req, time.Now().UTC())
	channels, payload, err := marshalItem(item)
	if err != nil {
		return "", err
	}

	_, err = q.db.ExecContext(ctx, `INSERT INTO sync_queue (`+queueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.ID, item.EntityID, string(item.SyncType), channels, payload, string(item.Status),
		item.RetryCount, item.MaxRetries, item.Priority, item.LastError,
		item.NextAttemptAt, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue item: %w", err)
	}
	return item.ID, nil
}

// ClaimBatch moves up to limit due items, and processing items whose lease
// expired, to processing in one statement
func (q *PostgresQueue) ClaimBatch(ctx context.Context, syncType domain.SyncType, limit int) ([]*domain.QueueItem, error) {
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()
	// a zero cutoff never matches, which disables lease reclaim
	var leaseCutoff time.Time
	if q.policy.Visibility > 0 {
		leaseCutoff = now.Add(-q.policy.Visibility)
	}
	rows, err := q.db.QueryContext(ctx, `UPDATE sync_queue SET status = 'processing', updated_at = $3
		WHERE id IN (
			SELECT id FROM sync_queue
			WHERE sync_type = $1 AND (
				(status = 'pending' AND next_attempt_at <= $3) OR
				(status = 'processing' AND updated_at < $4))
			ORDER BY priority ASC, created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED)
		RETURNING `+queueColumns, string(syncType), limit, now, leaseCutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to claim queue items: %w", err)
	}
	defer rows.Close()

	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claimed items: %w", err)
	}
	// RETURNING does not preserve the subquery order
	sortClaimOrder(items)
	return items, nil
}

// Complete marks an item completed
func (q *PostgresQueue) Complete(ctx context.Context, id string) error {
	return q.mutate(ctx, id, func(item *domain.QueueItem, now time.Time) error {
		return item.MarkCompleted(now)
	})
}

// Fail records a failed attempt
func (q *PostgresQueue) Fail(ctx context.Context, id string, cause error) error {
	return q.mutate(ctx, id, func(item *domain.QueueItem, now time.Time) error {
		return item.ApplyFailure(errorText(cause), now, q.policy)
	})
}

// Requeue resets a failed item
func (q *PostgresQueue) Requeue(ctx context.Context, id string) error {
	return q.mutate(ctx, id, func(item *domain.QueueItem, now time.Time) error {
		return item.Requeue(now)
	})
}

func (q *PostgresQueue) mutate(ctx context.Context, id string, fn func(*domain.QueueItem, time.Time) error) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM sync_queue WHERE id = $1 FOR UPDATE`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrQueueItemNotFound
	}
	if err != nil {
		return err
	}

	transitionErr := fn(item, time.Now().UTC())
	if !persistable(transitionErr) {
		return transitionErr
	}

	_, err = tx.ExecContext(ctx, `UPDATE sync_queue
		SET status = $2, retry_count = $3, last_error = $4, next_attempt_at = $5, updated_at = $6
		WHERE id = $1`,
		item.ID, string(item.Status), item.RetryCount, item.LastError, item.NextAttemptAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit queue update: %w", err)
	}
	committed = true
	return transitionErr
}

// Get returns an item
func (q *PostgresQueue) Get(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM sync_queue WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQueueItemNotFound
	}
	return item, err
}

// ListFailed returns terminal items, most recently failed first
func (q *PostgresQueue) ListFailed(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx, `SELECT `+queueColumns+` FROM sync_queue
		WHERE status = 'failed' ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed items: %w", err)
	}
	defer rows.Close()

	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read failed items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*domain.QueueItem, error) {
	var (
		item              domain.QueueItem
		syncType, status  string
		channels, payload []byte
	)
	err := row.Scan(&item.ID, &item.EntityID, &syncType, &channels, &payload, &status,
		&item.RetryCount, &item.MaxRetries, &item.Priority, &item.LastError,
		&item.NextAttemptAt, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue item: %w", err)
	}
	item.SyncType = domain.SyncType(syncType)
	item.Status = domain.QueueStatus(status)
	if err := json.Unmarshal(channels, &item.Channels); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %w", err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &item.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
	}
	return &item, nil
}

func marshalItem(item *domain.QueueItem) ([]byte, []byte, error) {
	channels, err := json.Marshal(item.Channels)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode channels: %w", err)
	}
	payload := item.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return channels, encoded, nil
}
