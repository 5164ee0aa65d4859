package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a canonical event by entity
type EventKind string

const (
	EventKindProduct   EventKind = "product"
	EventKindOrder     EventKind = "order"
	EventKindInventory EventKind = "inventory"
	EventKindRefund    EventKind = "refund"
	EventKindSync      EventKind = "sync"
	EventKindApp       EventKind = "app"
)

// EventAction is what happened to the entity
type EventAction string

const (
	ActionCreate  EventAction = "create"
	ActionUpdate  EventAction = "update"
	ActionDelete  EventAction = "delete"
	ActionCancel  EventAction = "cancel"
	ActionFulfill EventAction = "fulfill"
	ActionSync    EventAction = "sync"
)

// EntitySnapshot holds the platform-independent fields an adapter could extract
// from the payload. Fields the platform did not send stay empty.
type EntitySnapshot struct {
	Title             string `json:"title,omitempty" bson:"title,omitempty"`
	SKU               string `json:"sku,omitempty" bson:"sku,omitempty"`
	Price             string `json:"price,omitempty" bson:"price,omitempty"`
	Currency          string `json:"currency,omitempty" bson:"currency,omitempty"`
	Status            string `json:"status,omitempty" bson:"status,omitempty"`
	Quantity          *int   `json:"quantity,omitempty" bson:"quantity,omitempty"`
	OrderNumber       string `json:"order_number,omitempty" bson:"order_number,omitempty"`
	FinancialStatus   string `json:"financial_status,omitempty" bson:"financial_status,omitempty"`
	FulfillmentStatus string `json:"fulfillment_status,omitempty" bson:"fulfillment_status,omitempty"`
	Total             string `json:"total,omitempty" bson:"total,omitempty"`
	CustomerEmail     string `json:"customer_email,omitempty" bson:"customer_email,omitempty"`
	TrackingNumber    string `json:"tracking_number,omitempty" bson:"tracking_number,omitempty"`
	TrackingCompany   string `json:"tracking_company,omitempty" bson:"tracking_company,omitempty"`
	OrderExternalID   string `json:"order_external_id,omitempty" bson:"order_external_id,omitempty"`
	Amount            string `json:"amount,omitempty" bson:"amount,omitempty"`
}

// CanonicalEvent is the platform-agnostic record of one inbound webhook.
// It is immutable once stored except for Processed.
type CanonicalEvent struct {
	ID            string                 `json:"id"`
	Platform      Platform               `json:"platform"`
	IntegrationID *string                `json:"integration_id"`
	UserID        string                 `json:"user_id,omitempty"`
	Kind          EventKind              `json:"event_kind"`
	Action        EventAction            `json:"action"`
	Topic         string                 `json:"topic,omitempty"`
	ExternalID    string                 `json:"external_id,omitempty"`
	DeliveryID    string                 `json:"delivery_id,omitempty"`
	StoreID       string                 `json:"store_identifier,omitempty"`
	Snapshot      *EntitySnapshot        `json:"snapshot,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Verified      bool                   `json:"verified"`
	Processed     bool                   `json:"processed"`
	ReceivedAt    time.Time              `json:"received_at"`
}

// EventType is the "<kind>.<action>" label returned to webhook senders
func (e *CanonicalEvent) EventType() string {
	return string(e.Kind) + "." + string(e.Action)
}

// Attributed reports whether the event was matched to an integration
func (e *CanonicalEvent) Attributed() bool {
	return e.IntegrationID != nil && *e.IntegrationID != ""
}

// Attribute binds the event to an integration and its tenant
func (e *CanonicalEvent) Attribute(integration *Integration) {
	if integration == nil {
		e.IntegrationID = nil
		return
	}
	id := integration.ID
	e.IntegrationID = &id
	e.UserID = integration.UserID
}

// ProjectionKey is the natural key used by idempotent projection upserts.
// Unattributed events fall back to the platform as scope.
func (e *CanonicalEvent) ProjectionKey() (scope string, externalID string) {
	if e.Attributed() {
		return *e.IntegrationID, e.ExternalID
	}
	return "platform:" + string(e.Platform), e.ExternalID
}

// OutboxStatus tracks the asynchronous processing of a stored event
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEntry is written in the same transaction as its CanonicalEvent
type OutboxEntry struct {
	ID            string       `json:"id"`
	EventID       string       `json:"event_id"`
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	LastError     string       `json:"last_error,omitempty"`
	NextAttemptAt time.Time    `json:"next_attempt_at"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewOutboxEntry creates a pending entry due immediately
func NewOutboxEntry(eventID string, now time.Time) *OutboxEntry {
	return &OutboxEntry{
		ID:            uuid.NewString(),
		EventID:       eventID,
		Status:        OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkProcessed records a successful dispatch
func (o *OutboxEntry) MarkProcessed(now time.Time) {
	o.Status = OutboxStatusProcessed
	o.LastError = ""
	o.UpdatedAt = now
}

// RecordFailure schedules the next attempt or gives up after maxAttempts
func (o *OutboxEntry) RecordFailure(errMsg string, now time.Time, policy RetryPolicy, maxAttempts int) {
	o.Attempts++
	o.LastError = errMsg
	o.UpdatedAt = now
	if o.Attempts >= maxAttempts {
		o.Status = OutboxStatusFailed
		return
	}
	o.Status = OutboxStatusPending
	o.NextAttemptAt = now.Add(policy.Delay(o.Attempts))
}
