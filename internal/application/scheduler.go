package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SchedulerConfig tunes batch auto-sync runs
type SchedulerConfig struct {
	BatchSize int
	Interval  time.Duration
	// FailureThreshold soft-disables an integration after that many failed runs in a row. Zero disables the check.
	FailureThreshold int
}

// DefaultSchedulerConfig syncs five integrations at a time every fifteen minutes
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BatchSize:        5,
		Interval:         15 * time.Minute,
		FailureThreshold: 5,
	}
}

// defaultScheduledTypes is the generic channel sync: push catalog and stock, pull orders
var defaultScheduledTypes = []domain.SyncType{
	domain.SyncTypeProducts,
	domain.SyncTypeStock,
	domain.SyncTypeOrders,
}

// Scheduler runs periodic syncs over active integrations in bounded batches
type Scheduler struct {
	integrations ports.IntegrationRepository
	configs      ports.SyncConfigRepository
	credentials  ports.CredentialProvider
	adapters     ports.AdapterRegistry
	channel      *ChannelSyncer
	metrics      ports.MetricsRecorder
	config       SchedulerConfig
	logger       zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. Integrations without a stored sync config
// run every default sync type.
func NewScheduler(
	integrations ports.IntegrationRepository,
	configs ports.SyncConfigRepository,
	credentials ports.CredentialProvider,
	adapters ports.AdapterRegistry,
	channel *ChannelSyncer,
	metrics ports.MetricsRecorder,
	config SchedulerConfig,
	logger zerolog.Logger,
) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Scheduler{
		integrations: integrations,
		configs:      configs,
		credentials:  credentials,
		adapters:     adapters,
		channel:      channel,
		metrics:      metrics,
		config:       config,
		logger:       logger.With().Str("component", "scheduler").Logger(),
		stop:         make(chan struct{}),
	}
}

// RunScheduled syncs every active integration in scope. An empty syncType runs
// the platform's full sync when it has one, the generic channel sync otherwise.
// The run is detached from ctx cancellation so flags are always cleared.
func (s *Scheduler) RunScheduled(ctx context.Context, scope domain.ScheduleScope, syncType domain.SyncType) (*domain.ScheduledSummary, error) {
	if syncType != "" && !syncType.IsValid() {
		return nil, fmt.Errorf("unknown sync type %q", syncType)
	}
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	candidates, err := s.integrations.List(ctx, domain.IntegrationFilter{
		IntegrationID: scope.IntegrationID,
		UserID:        scope.UserID,
		ActiveOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	summary := &domain.ScheduledSummary{
		Total:   len(candidates),
		Results: make([]domain.IntegrationRunResult, len(candidates)),
	}
	for start := 0; start < len(candidates); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(candidates))
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				summary.Results[i] = s.syncIntegration(ctx, candidates[i], syncType)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, r := range summary.Results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.ProductsSynced += r.ProductsSynced
		summary.OrdersSynced += r.OrdersSynced
	}
	elapsed := time.Since(started)
	summary.DurationMs = elapsed.Milliseconds()
	s.metrics.SyncDuration("scheduled", elapsed)

	s.logger.Info().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Int("productsSynced", summary.ProductsSynced).
		Int("ordersSynced", summary.OrdersSynced).
		Int64("durationMs", summary.DurationMs).
		Msg("Scheduled sync completed")
	return summary, nil
}

// syncIntegration holds sync_in_progress for the duration of the run and always
// releases it, stamping last_sync_at, even when the sync panics
func (s *Scheduler) syncIntegration(ctx context.Context, integration *domain.Integration, syncType domain.SyncType) (result domain.IntegrationRunResult) {
	result.IntegrationID = integration.ID
	result.Platform = integration.Platform

	if integration.SyncInProgress {
		s.logger.Warn().Str("integrationId", integration.ID).Msg("Previous sync still flagged in progress, running anyway")
	}
	if err := s.integrations.SetSyncInProgress(ctx, integration.ID, true); err != nil {
		s.logger.Warn().Err(err).Str("integrationId", integration.ID).Msg("Failed to set sync in progress")
	}

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
			s.logger.Error().Str("integrationId", integration.ID).Interface("panic", r).Msg("Scheduled sync panicked")
		}
		s.finish(ctx, integration, &result)
	}()

	products, orders, err := s.run(ctx, integration, syncType)
	result.ProductsSynced = products
	result.OrdersSynced = orders
	if err != nil {
		result.Error = err.Error()
		s.logger.Warn().
			Err(err).
			Str("integrationId", integration.ID).
			Str("platform", string(integration.Platform)).
			Msg("Scheduled sync failed")
		return result
	}
	result.Success = true
	return result
}

func (s *Scheduler) finish(ctx context.Context, integration *domain.Integration, result *domain.IntegrationRunResult) {
	if err := s.integrations.SetSyncInProgress(ctx, integration.ID, false); err != nil {
		s.logger.Error().Err(err).Str("integrationId", integration.ID).Msg("Failed to clear sync in progress")
	}

	failures, err := s.integrations.RecordSyncOutcome(ctx, integration.ID, domain.SyncOutcome{
		At:             time.Now().UTC(),
		ProductsSynced: result.ProductsSynced,
		OrdersSynced:   result.OrdersSynced,
		Failed:         !result.Success,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("integrationId", integration.ID).Msg("Failed to record sync outcome")
		return
	}

	status := "success"
	if !result.Success {
		status = "failed"
	}
	s.metrics.SyncRun(string(integration.Platform), status)

	if result.Success || s.config.FailureThreshold <= 0 || failures < s.config.FailureThreshold {
		return
	}
	if err := s.integrations.SetActive(ctx, integration.ID, false); err != nil {
		s.logger.Error().Err(err).Str("integrationId", integration.ID).Msg("Failed to disable failing integration")
		return
	}
	result.Disabled = true
	s.metrics.IntegrationDisabled()
	s.logger.Warn().
		Str("integrationId", integration.ID).
		Str("platform", string(integration.Platform)).
		Int("consecutiveFailures", failures).
		Msg("Integration disabled after repeated sync failures")
}

// run returns the products and orders synced
func (s *Scheduler) run(ctx context.Context, integration *domain.Integration, syncType domain.SyncType) (int, int, error) {
	requested := defaultScheduledTypes
	if syncType != "" {
		requested = []domain.SyncType{syncType}
	}
	types, err := s.allowedTypes(ctx, integration, requested)
	if err != nil {
		return 0, 0, err
	}
	if len(types) == 0 {
		s.logger.Debug().Str("integrationId", integration.ID).Msg("No scheduled sync type enabled")
		return 0, 0, nil
	}

	creds, err := s.credentials.Credentials(ctx, integration)
	if err != nil {
		return 0, 0, err
	}

	adapter := s.adapters.Resolve(integration.Platform)
	if batch, ok := adapter.(ports.BatchSyncer); ok && syncType == "" {
		fetched, err := batch.SyncAll(ctx, integration, creds)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to run %s full sync: %w", integration.Platform, err)
		}
		productsSynced, ordersSynced := 0, 0
		if slices.Contains(types, domain.SyncTypeProducts) {
			productsSynced = s.channel.storeProducts(ctx, integration, fetched.Products).Succeeded
		}
		if slices.Contains(types, domain.SyncTypeOrders) {
			ordersSynced = s.channel.storeOrders(ctx, integration, fetched.Orders).Succeeded
		}
		return productsSynced, ordersSynced, nil
	}

	productsSynced, ordersSynced := 0, 0
	var errs []error
	for _, t := range types {
		res, err := s.channel.Sync(ctx, SyncTarget{Integration: integration, Credentials: creds, SyncType: t})
		if err != nil {
			// platforms without an order import simply skip that leg of the default run
			if syncType == "" && errors.Is(err, domain.ErrUnsupportedEntity) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		switch t {
		case domain.SyncTypeOrders:
			ordersSynced += res.Succeeded
		case domain.SyncTypeProducts, domain.SyncTypePrices, domain.SyncTypeStock:
			productsSynced += res.Succeeded
		}
	}
	return productsSynced, ordersSynced, errors.Join(errs...)
}

// allowedTypes narrows requested to what the integration's sync config permits
func (s *Scheduler) allowedTypes(ctx context.Context, integration *domain.Integration, requested []domain.SyncType) ([]domain.SyncType, error) {
	if s.configs == nil {
		return requested, nil
	}
	config, err := s.configs.GetByIntegration(ctx, integration.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync config: %w", err)
	}
	if config == nil {
		return requested, nil
	}
	if !config.Active {
		return nil, nil
	}
	var types []domain.SyncType
	for _, t := range requested {
		if config.Allows(t) {
			types = append(types, t)
		}
	}
	return types, nil
}

// Start triggers RunScheduled over every active integration on each interval
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", s.config.Interval).Msg("Scheduler started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if _, err := s.RunScheduled(ctx, domain.ScheduleScope{}, ""); err != nil {
					s.logger.Error().Err(err).Msg("Scheduled run failed")
				}
			}
		}
	}()
}

// Stop ends the ticker and waits for a run in progress
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}
