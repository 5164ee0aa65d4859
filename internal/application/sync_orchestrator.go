package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultOrchestratorConcurrency = 5

// RunSyncRequest selects what an orchestration run covers. Empty slices mean everything.
type RunSyncRequest struct {
	UserID        string            `json:"user_id"`
	SyncTypes     []domain.SyncType `json:"sync_types,omitempty"`
	Platforms     []domain.Platform `json:"platforms,omitempty"`
	ForceFullSync bool              `json:"force_full_sync,omitempty"`
}

// SyncOrchestrator runs the enabled sync types of a tenant's integrations, isolating
// each sync type's failure from the others
type SyncOrchestrator struct {
	integrations ports.IntegrationRepository
	configs      ports.SyncConfigRepository
	logs         ports.SyncLogRepository
	credentials  ports.CredentialProvider
	fallback     Syncer
	syncers      map[domain.SyncType]Syncer
	metrics      ports.MetricsRecorder
	concurrency  int
	logger       zerolog.Logger
}

// NewSyncOrchestrator creates an orchestrator that uses fallback for every sync
// type without a registered syncer
func NewSyncOrchestrator(
	integrations ports.IntegrationRepository,
	configs ports.SyncConfigRepository,
	logs ports.SyncLogRepository,
	credentials ports.CredentialProvider,
	fallback Syncer,
	metrics ports.MetricsRecorder,
	logger zerolog.Logger,
) *SyncOrchestrator {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &SyncOrchestrator{
		integrations: integrations,
		configs:      configs,
		logs:         logs,
		credentials:  credentials,
		fallback:     fallback,
		syncers:      map[domain.SyncType]Syncer{},
		metrics:      metrics,
		concurrency:  defaultOrchestratorConcurrency,
		logger:       logger.With().Str("component", "sync_orchestrator").Logger(),
	}
}

// RegisterSyncer overrides the syncer of one sync type
func (o *SyncOrchestrator) RegisterSyncer(syncType domain.SyncType, syncer Syncer) {
	o.syncers[syncType] = syncer
}

// RunSync returns one result per integration that had at least one requested
// sync type enabled in its configured direction, and writes exactly one sync log for each
func (o *SyncOrchestrator) RunSync(ctx context.Context, req RunSyncRequest) ([]domain.PlatformResult, error) {
	if req.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	requested := req.SyncTypes
	if len(requested) == 0 {
		requested = domain.AllSyncTypes
	}
	for _, t := range requested {
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown sync type %q", t)
		}
	}
	platforms := make([]domain.Platform, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		platforms = append(platforms, domain.ParsePlatform(string(p)))
	}

	configs, err := o.configs.ListActive(ctx, req.UserID, platforms)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync configs: %w", err)
	}

	started := time.Now()
	results := make([]*domain.PlatformResult, len(configs))
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(o.concurrency)
	for i, config := range configs {
		i, config := i, config
		g.Go(func() error {
			result, err := o.runConfig(gctx, config, requested, req.ForceFullSync)
			if err != nil {
				o.logger.Error().Err(err).Str("integrationId", config.IntegrationID).Msg("Sync run failed")
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.PlatformResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	o.metrics.SyncDuration("orchestrated", time.Since(started))
	o.logger.Info().
		Str("userId", req.UserID).
		Int("configs", len(configs)).
		Int("platforms", len(out)).
		Bool("forceFullSync", req.ForceFullSync).
		Dur("duration", time.Since(started)).
		Msg("Sync run completed")
	return out, nil
}

// runConfig returns nil, nil when the integration is skipped
func (o *SyncOrchestrator) runConfig(
	ctx context.Context,
	config *domain.SyncConfig,
	requested []domain.SyncType,
	fullSync bool,
) (*domain.PlatformResult, error) {
	integration, err := o.integrations.GetByID(ctx, config.IntegrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if integration == nil || !integration.Active {
		return nil, nil
	}

	var types []domain.SyncType
	for _, t := range requested {
		if config.Allows(t) {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return nil, nil
	}

	creds, credErr := o.credentials.Credentials(ctx, integration)

	result := &domain.PlatformResult{
		IntegrationID: integration.ID,
		Platform:      integration.Platform,
		Results:       make([]domain.SyncTypeResult, 0, len(types)),
	}
	var totals domain.SyncResult
	succeeded, failed := 0, 0
	for _, t := range types {
		var typeResult domain.SyncTypeResult
		if credErr != nil {
			typeResult = domain.SyncTypeResult{SyncType: t, Error: credErr.Error()}
		} else {
			typeResult = o.runType(ctx, SyncTarget{
				Integration: integration,
				Config:      config,
				Credentials: creds,
				SyncType:    t,
				FullSync:    fullSync,
			})
		}
		if typeResult.Success {
			succeeded++
		} else {
			failed++
		}
		if typeResult.Data != nil {
			totals.Add(*typeResult.Data)
		}
		result.Results = append(result.Results, typeResult)
	}
	result.Status = domain.DeriveSyncLogStatus(succeeded, failed)

	o.writeLog(ctx, integration, types, result, totals, fullSync)
	o.metrics.SyncRun(string(integration.Platform), string(result.Status))

	if fullSync {
		if err := o.configs.SetLastFullSync(ctx, config.ID, time.Now().UTC()); err != nil {
			o.logger.Warn().Err(err).Str("configId", config.ID).Msg("Failed to stamp last full sync")
		}
	}
	return result, nil
}

// runType never lets a syncer failure or panic escape
func (o *SyncOrchestrator) runType(ctx context.Context, target SyncTarget) (out domain.SyncTypeResult) {
	out.SyncType = target.SyncType
	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Data = nil
			out.Error = fmt.Sprintf("panic: %v", r)
			o.logger.Error().
				Str("integrationId", target.Integration.ID).
				Str("syncType", string(target.SyncType)).
				Interface("panic", r).
				Msg("Syncer panicked")
		}
	}()

	syncer, ok := o.syncers[target.SyncType]
	if !ok {
		syncer = o.fallback
	}
	if syncer == nil {
		out.Error = fmt.Sprintf("no syncer for %s", target.SyncType)
		return out
	}

	data, err := syncer.Sync(ctx, target)
	if err != nil {
		out.Error = err.Error()
		o.logger.Warn().
			Err(err).
			Str("integrationId", target.Integration.ID).
			Str("platform", string(target.Integration.Platform)).
			Str("syncType", string(target.SyncType)).
			Msg("Sync type failed")
		return out
	}
	out.Success = true
	out.Data = &data
	return out
}

func (o *SyncOrchestrator) writeLog(
	ctx context.Context,
	integration *domain.Integration,
	types []domain.SyncType,
	result *domain.PlatformResult,
	totals domain.SyncResult,
	fullSync bool,
) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	perType := make(map[string]interface{}, len(result.Results))
	for _, r := range result.Results {
		if r.Success {
			perType[string(r.SyncType)] = map[string]interface{}{"success": true, "data": r.Data}
		} else {
			perType[string(r.SyncType)] = map[string]interface{}{"success": false, "error": r.Error}
		}
	}
	action := "sync"
	if fullSync {
		action = "full_sync"
	}

	log := &domain.SyncLog{
		ID:             uuid.NewString(),
		UserID:         integration.UserID,
		IntegrationID:  integration.ID,
		Platform:       integration.Platform,
		EntityType:     strings.Join(names, ","),
		Action:         action,
		Status:         result.Status,
		ItemsProcessed: totals.Processed,
		ItemsSucceeded: totals.Succeeded,
		ItemsFailed:    totals.Failed,
		Metadata:       map[string]interface{}{"results": perType},
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.logs.Insert(ctx, log); err != nil {
		o.logger.Error().Err(err).Str("integrationId", integration.ID).Msg("Failed to write sync log")
	}
}
