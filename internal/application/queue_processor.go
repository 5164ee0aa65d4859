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

// QueueProcessorConfig tunes the sync queue workers
type QueueProcessorConfig struct {
	PollInterval time.Duration
	BatchSize    int
	SyncTypes    []domain.SyncType
}

// QueueProcessor claims sync queue items and pushes them to each target channel
type QueueProcessor struct {
	queue        ports.SyncQueue
	integrations ports.IntegrationRepository
	credentials  ports.CredentialProvider
	pusher       *channelPusher
	metrics      ports.MetricsRecorder
	config       QueueProcessorConfig
	logger       zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewQueueProcessor creates a queue processor
func NewQueueProcessor(
	queue ports.SyncQueue,
	integrations ports.IntegrationRepository,
	credentials ports.CredentialProvider,
	adapters ports.AdapterRegistry,
	projections ports.ProjectionRepository,
	metrics ports.MetricsRecorder,
	config QueueProcessorConfig,
	logger zerolog.Logger,
) *QueueProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	if len(config.SyncTypes) == 0 {
		config.SyncTypes = domain.AllSyncTypes
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	logger = logger.With().Str("component", "queue_processor").Logger()
	return &QueueProcessor{
		queue:        queue,
		integrations: integrations,
		credentials:  credentials,
		pusher:       newChannelPusher(adapters, projections, logger),
		metrics:      metrics,
		config:       config,
		logger:       logger,
		stop:         make(chan struct{}),
	}
}

// RunOnce claims and processes one batch per sync type and returns the number
// of items completed
func (p *QueueProcessor) RunOnce(ctx context.Context) (int, error) {
	completed := 0
	var errs []error
	for _, syncType := range p.config.SyncTypes {
		items, err := p.queue.ClaimBatch(ctx, syncType, p.config.BatchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to claim %s items: %w", syncType, err))
			continue
		}
		for _, item := range items {
			if p.processItem(ctx, item) {
				completed++
			}
		}
	}
	return completed, errors.Join(errs...)
}

// processItem pushes every channel, then completes or fails the item as a whole
func (p *QueueProcessor) processItem(ctx context.Context, item *domain.QueueItem) bool {
	var errs []error
	for _, channel := range item.Channels {
		if err := p.processChannel(ctx, item, channel); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", channel.IntegrationID, err))
		}
	}

	if len(errs) == 0 {
		if err := p.queue.Complete(ctx, item.ID); err != nil {
			p.logger.Error().Err(err).Str("itemId", item.ID).Msg("Failed to complete queue item")
			return false
		}
		p.metrics.QueueItem(string(item.SyncType), "completed")
		return true
	}

	cause := errors.Join(errs...)
	err := p.queue.Fail(ctx, item.ID, cause)
	switch {
	case errors.Is(err, domain.ErrQueueExhausted):
		p.metrics.QueueItem(string(item.SyncType), "exhausted")
		p.logger.Error().
			Err(cause).
			Str("itemId", item.ID).
			Str("syncType", string(item.SyncType)).
			Int("maxRetries", item.MaxRetries).
			Msg("Queue item exhausted its retries")
	case err != nil:
		p.logger.Error().Err(err).Str("itemId", item.ID).Msg("Failed to record queue item failure")
	default:
		p.metrics.QueueItem(string(item.SyncType), "retry")
		p.logger.Warn().
			Err(cause).
			Str("itemId", item.ID).
			Str("syncType", string(item.SyncType)).
			Int("retryCount", item.RetryCount+1).
			Msg("Queue item failed, will retry")
	}
	return false
}

func (p *QueueProcessor) processChannel(ctx context.Context, item *domain.QueueItem, channel domain.ChannelTarget) error {
	integration, err := p.integrations.GetByID(ctx, channel.IntegrationID)
	if err != nil {
		return fmt.Errorf("failed to load integration: %w", err)
	}
	if integration == nil {
		return domain.ErrIntegrationNotFound
	}
	if !integration.Active {
		p.logger.Info().
			Str("itemId", item.ID).
			Str("integrationId", integration.ID).
			Msg("Skipping inactive channel")
		return nil
	}

	creds, err := p.credentials.Credentials(ctx, integration)
	if err != nil {
		return err
	}
	result, err := p.pusher.push(ctx, integration, creds, item.SyncType, channel.ExternalID, item.Payload)
	if err != nil {
		return err
	}
	p.logger.Debug().
		Str("itemId", item.ID).
		Str("integrationId", integration.ID).
		Str("platform", string(integration.Platform)).
		Str("externalId", result.ExternalID).
		Msg("Queue item pushed to channel")
	return nil
}

// Start polls the queue until Stop is called
func (p *QueueProcessor) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.config.PollInterval)
		defer ticker.Stop()

		p.logger.Info().Dur("interval", p.config.PollInterval).Msg("Queue processor started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				if _, err := p.RunOnce(ctx); err != nil {
					p.logger.Error().Err(err).Msg("Queue poll failed")
				}
			}
		}
	}()
}

// Stop ends polling and waits for the current batch
func (p *QueueProcessor) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
	p.logger.Info().Msg("Queue processor stopped")
}
