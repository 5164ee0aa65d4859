package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// OutboxConfig tunes the background outbox processor
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryPolicy  domain.RetryPolicy
}

// DefaultOutboxConfig polls every five seconds and gives up after ten attempts
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    50,
		MaxAttempts:  10,
		RetryPolicy:  domain.RetryPolicy{Base: 10 * time.Second, Max: 10 * time.Minute},
	}
}

// OutboxProcessor projects stored events, fans them out and publishes them downstream
type OutboxProcessor struct {
	events     ports.EventStore
	outbox     ports.OutboxRepository
	dispatcher *WebhookDispatcher
	fanOut     *FanOut
	publisher  ports.EventPublisher
	metrics    ports.MetricsRecorder
	config     OutboxConfig
	logger     zerolog.Logger
	now        func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewOutboxProcessor creates a processor. fanOut and publisher may be nil.
func NewOutboxProcessor(
	events ports.EventStore,
	outbox ports.OutboxRepository,
	dispatcher *WebhookDispatcher,
	fanOut *FanOut,
	publisher ports.EventPublisher,
	metrics ports.MetricsRecorder,
	config OutboxConfig,
	logger zerolog.Logger,
) *OutboxProcessor {
	defaults := DefaultOutboxConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &OutboxProcessor{
		events:     events,
		outbox:     outbox,
		dispatcher: dispatcher,
		fanOut:     fanOut,
		publisher:  publisher,
		metrics:    metrics,
		config:     config,
		logger:     logger.With().Str("component", "outbox_processor").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
		stop:       make(chan struct{}),
	}
}

// Process dispatches one entry. On failure the entry is rescheduled with backoff
// and the error returned.
func (p *OutboxProcessor) Process(ctx context.Context, entry *domain.OutboxEntry, event *domain.CanonicalEvent) error {
	err := p.dispatch(ctx, event)
	now := p.now()
	if err != nil {
		entry.RecordFailure(err.Error(), now, p.config.RetryPolicy, p.config.MaxAttempts)
		result := "retry"
		if entry.Status == domain.OutboxStatusFailed {
			result = "failed"
			p.logger.Error().Err(err).Str("eventId", event.ID).Int("attempts", entry.Attempts).Msg("Outbox entry gave up")
		}
		p.metrics.OutboxDispatched(result)
		if saveErr := p.outbox.Save(ctx, entry); saveErr != nil {
			return errors.Join(err, fmt.Errorf("failed to save outbox entry: %w", saveErr))
		}
		return err
	}

	if err := p.events.MarkProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	event.Processed = true
	entry.MarkProcessed(now)
	if err := p.outbox.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save outbox entry: %w", err)
	}
	p.metrics.OutboxDispatched("processed")
	return nil
}

// dispatch projects first so a publish or fan-out retry never sees a stale mirror
func (p *OutboxProcessor) dispatch(ctx context.Context, event *domain.CanonicalEvent) error {
	if p.dispatcher != nil {
		if err := p.dispatcher.Dispatch(ctx, event); err != nil {
			return err
		}
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
	}
	if p.fanOut != nil {
		if _, err := p.fanOut.Enqueue(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// ProcessDue handles one batch of due entries and returns how many succeeded
func (p *OutboxProcessor) ProcessDue(ctx context.Context) (int, error) {
	entries, err := p.outbox.FindDue(ctx, p.now(), p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find due outbox entries: %w", err)
	}

	processed := 0
	for _, entry := range entries {
		event, err := p.events.GetByID(ctx, entry.EventID)
		if err != nil {
			p.logger.Error().Err(err).Str("eventId", entry.EventID).Msg("Failed to load outbox event")
			continue
		}
		if event == nil {
			entry.RecordFailure("event not found", p.now(), p.config.RetryPolicy, 1)
			if err := p.outbox.Save(ctx, entry); err != nil {
				p.logger.Error().Err(err).Str("outboxId", entry.ID).Msg("Failed to save orphan outbox entry")
			}
			continue
		}
		if err := p.Process(ctx, entry, event); err != nil {
			p.logger.Warn().Err(err).Str("eventId", event.ID).Int("attempts", entry.Attempts).Msg("Outbox dispatch failed")
			continue
		}
		processed++
	}
	return processed, nil
}

// Start polls the outbox until Stop is called
func (p *OutboxProcessor) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.config.PollInterval)
		defer ticker.Stop()

		p.logger.Info().Dur("interval", p.config.PollInterval).Msg("Outbox processor started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				if n, err := p.ProcessDue(ctx); err != nil {
					p.logger.Error().Err(err).Msg("Outbox poll failed")
				} else if n > 0 {
					p.logger.Debug().Int("processed", n).Msg("Outbox batch processed")
				}
			}
		}
	}()
}

// Stop ends polling and waits for the current batch
func (p *OutboxProcessor) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
	p.logger.Info().Msg("Outbox processor stopped")
}
