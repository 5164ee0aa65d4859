package ports

import (
	"context"
	"time"

	"archie-core-commerce-sync/internal/domain"
)

// EncryptionService encrypts credentials at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CredentialProvider resolves decrypted credentials for an integration
type CredentialProvider interface {
	Credentials(ctx context.Context, integration *domain.Integration) (domain.Credentials, error)
}

// IdempotencyStore remembers webhook delivery ids
type IdempotencyStore interface {
	// MarkProcessed returns true when the key was newly recorded
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Forget releases a key so the next delivery with it is processed again
	Forget(ctx context.Context, key string) error
}

// EventPublisher forwards stored canonical events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.CanonicalEvent) error
	Close() error
}

// WebhookVerifier checks a platform signature over the raw body.
// Failures wrap domain.ErrAuthentication.
type WebhookVerifier interface {
	Verify(secret string, scheme SignatureScheme, payload []byte, signature string) error
}

// EventHandler projects one kind of stored event into local state
type EventHandler interface {
	Name() string
	CanHandle(event *domain.CanonicalEvent) bool
	Handle(ctx context.Context, event *domain.CanonicalEvent) error
}

// MetricsRecorder receives operational counters. Implementations must tolerate concurrent use.
type MetricsRecorder interface {
	WebhookHandled(platform, outcome string, elapsed time.Duration)
	ProjectionFailed(kind string)
	OutboxDispatched(result string)
	QueueItem(syncType, result string)
	SyncRun(platform, status string)
	SyncDuration(mode string, elapsed time.Duration)
	IntegrationDisabled()
}
