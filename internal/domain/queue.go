package domain

import (
	"errors"
	"time"
)

// QueueStatus is the lifecycle state of a sync queue item
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

const (
	DefaultMaxRetries = 3
	DefaultPriority   = 5
)

// ChannelTarget is one destination of a queue item
type ChannelTarget struct {
	IntegrationID string   `json:"integration_id" bson:"integration_id"`
	Platform      Platform `json:"platform,omitempty" bson:"platform,omitempty"`
	ExternalID    string   `json:"external_id,omitempty" bson:"external_id,omitempty"`
}

// QueueItem is a deferred outbound propagation task
type QueueItem struct {
	ID            string                 `json:"id"`
	EntityID      string                 `json:"entity_id"`
	SyncType      SyncType               `json:"sync_type"`
	Channels      []ChannelTarget        `json:"channels"`
	Payload       map[string]interface{} `json:"payload"`
	Status        QueueStatus            `json:"status"`
	RetryCount    int                    `json:"retry_count"`
	MaxRetries    int                    `json:"max_retries"`
	Priority      int                    `json:"priority"`
	LastError     string                 `json:"last_error,omitempty"`
	NextAttemptAt time.Time              `json:"next_attempt_at"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// EnqueueRequest describes a new queue item
type EnqueueRequest struct {
	EntityID   string                 `json:"entity_id"`
	SyncType   SyncType               `json:"sync_type"`
	Channels   []ChannelTarget        `json:"channels"`
	Payload    map[string]interface{} `json:"payload"`
	Priority   int                    `json:"priority"`
	MaxRetries int                    `json:"max_retries"`
}

// Validate checks the request and fills defaults
func (r *EnqueueRequest) Validate() error {
	if r.EntityID == "" {
		return errors.New("queue: entity_id is required")
	}
	if !r.SyncType.IsValid() {
		return errors.New("queue: unknown sync_type " + string(r.SyncType))
	}
	if len(r.Channels) == 0 {
		return errors.New("queue: at least one channel is required")
	}
	for _, ch := range r.Channels {
		if ch.IntegrationID == "" {
			return errors.New("queue: channel integration_id is required")
		}
	}
	if r.Priority <= 0 {
		r.Priority = DefaultPriority
	}
	if r.MaxRetries <= 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	return nil
}

// NewQueueItem builds a pending item from a validated request
func NewQueueItem(id string, req EnqueueRequest, now time.Time) *QueueItem {
	return &QueueItem{
		ID:            id,
		EntityID:      req.EntityID,
		SyncType:      req.SyncType,
		Channels:      req.Channels,
		Payload:       req.Payload,
		Status:        QueueStatusPending,
		MaxRetries:    req.MaxRetries,
		Priority:      req.Priority,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Claimable reports whether the item may be handed to a worker at now
func (q *QueueItem) Claimable(now time.Time) bool {
	return q.Status == QueueStatusPending && !q.NextAttemptAt.After(now)
}

// LeaseExpired reports whether a processing item was claimed more than
// visibility ago, so its worker is presumed dead. Zero visibility never expires.
func (q *QueueItem) LeaseExpired(now time.Time, visibility time.Duration) bool {
	if visibility <= 0 || q.Status != QueueStatusProcessing {
		return false
	}
	return q.UpdatedAt.Before(now.Add(-visibility))
}

// MarkProcessing transitions a claimed item
func (q *QueueItem) MarkProcessing(now time.Time) {
	q.Status = QueueStatusProcessing
	q.UpdatedAt = now
}

// MarkCompleted transitions a processed item
func (q *QueueItem) MarkCompleted(now time.Time) error {
	if q.Status == QueueStatusCompleted || q.Status == QueueStatusFailed {
		return ErrQueueItemTerminal
	}
	q.Status = QueueStatusCompleted
	q.LastError = ""
	q.UpdatedAt = now
	return nil
}

// ApplyFailure increments the retry count and either requeues the item with
// backoff or moves it to failed. It returns ErrQueueExhausted on the terminal transition.
func (q *QueueItem) ApplyFailure(errMsg string, now time.Time, policy RetryPolicy) error {
	if q.Status == QueueStatusCompleted || q.Status == QueueStatusFailed {
		return ErrQueueItemTerminal
	}
	q.RetryCount++
	q.LastError = errMsg
	q.UpdatedAt = now
	if q.RetryCount >= q.MaxRetries {
		q.RetryCount = q.MaxRetries
		q.Status = QueueStatusFailed
		return ErrQueueExhausted
	}
	q.Status = QueueStatusPending
	q.NextAttemptAt = now.Add(policy.Delay(q.RetryCount))
	return nil
}

// Requeue resets a failed item for another full round of retries
func (q *QueueItem) Requeue(now time.Time) error {
	if q.Status != QueueStatusFailed {
		return ErrQueueItemNotFailed
	}
	q.Status = QueueStatusPending
	q.LastError = ""
	q.RetryCount = 0
	q.NextAttemptAt = now
	q.UpdatedAt = now
	return nil
}

// RetryPolicy computes exponential backoff delays
type RetryPolicy struct {
	Base time.Duration
	Max  time.Duration
	// Visibility is the processing lease; expired claims become claimable again
	Visibility time.Duration
}

// DefaultRetryPolicy waits 30s, 1m, 2m... capped at 30 minutes, with a 10 minute lease
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Base: 30 * time.Second, Max: 30 * time.Minute, Visibility: 10 * time.Minute}
}

// Delay returns Base*2^(retry-1), capped at Max. A zero Base means immediate retry.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if p.Base <= 0 || retry <= 0 {
		return 0
	}
	delay := p.Base
	for i := 1; i < retry; i++ {
		delay *= 2
		if p.Max > 0 && delay >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && delay > p.Max {
		return p.Max
	}
	return delay
}
