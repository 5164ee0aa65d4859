package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when a webhook signature is missing or wrong
	ErrAuthentication = errors.New("webhook: signature verification failed")
	// ErrUnattributedEvent marks an event no integration could be resolved for
	ErrUnattributedEvent = errors.New("webhook: no integration matches event")
	// ErrQueueExhausted is returned by Fail when the item reached max retries
	ErrQueueExhausted = errors.New("queue: item exhausted its retries")

	ErrQueueItemNotFound   = errors.New("queue: item not found")
	ErrQueueItemTerminal   = errors.New("queue: item is already completed or failed")
	ErrQueueItemNotFailed  = errors.New("queue: only failed items can be requeued")
	ErrIntegrationNotFound = errors.New("integration: not found")
	ErrMissingCredentials  = errors.New("integration: missing credentials")
	ErrUnsupportedEntity   = errors.New("sync: entity not supported by platform")
)

// ProjectionError wraps a failed best-effort projection of a stored event
type ProjectionError struct {
	EventID string
	Kind    EventKind
	Err     error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection of %s event %s failed: %v", e.Kind, e.EventID, e.Err)
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}

// SyncError is the failure of one sync type against one platform
type SyncError struct {
	SyncType SyncType
	Platform Platform
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s sync on %s failed: %v", e.SyncType, e.Platform, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
