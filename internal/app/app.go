// Package app wires repositories, adapters and services from a Config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"archie-core-commerce-sync/internal/application"
	"archie-core-commerce-sync/internal/application/webhook_handlers"
	"archie-core-commerce-sync/internal/infrastructure/cache"
	"archie-core-commerce-sync/internal/infrastructure/config"
	"archie-core-commerce-sync/internal/infrastructure/encryption"
	"archie-core-commerce-sync/internal/infrastructure/httpclient"
	"archie-core-commerce-sync/internal/infrastructure/messaging"
	"archie-core-commerce-sync/internal/infrastructure/metrics"
	"archie-core-commerce-sync/internal/infrastructure/platforms"
	"archie-core-commerce-sync/internal/infrastructure/pubsub"
	"archie-core-commerce-sync/internal/infrastructure/queue"
	"archie-core-commerce-sync/internal/infrastructure/repository"
	"archie-core-commerce-sync/internal/infrastructure/repository/memory"
	shopifyinfra "archie-core-commerce-sync/internal/infrastructure/shopify"
	"archie-core-commerce-sync/internal/infrastructure/webhook"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App holds every long-lived component of the service
type App struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Live    *pubsub.EventPubSub

	Integrations ports.IntegrationRepository
	SyncConfigs  ports.SyncConfigRepository
	Queue        ports.SyncQueue

	Webhooks     *application.WebhookService
	Outbox       *application.OutboxProcessor
	QueueWorker  *application.QueueProcessor
	Orchestrator *application.SyncOrchestrator
	Scheduler    *application.Scheduler
	Integration  *application.IntegrationService

	closers []func(context.Context) error
	logger  zerolog.Logger
}

type repositories struct {
	integrations ports.IntegrationRepository
	events       ports.EventStore
	outbox       ports.OutboxRepository
	configs      ports.SyncConfigRepository
	logs         ports.SyncLogRepository
	projections  ports.ProjectionRepository
}

// New connects to the configured backends and builds the services.
// Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	repos, db, err := a.openRepositories(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	syncQueue, err := a.openQueue(ctx, db)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	deliveries, err := a.openIdempotencyStore(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	publisher := a.openPublisher()

	if cfg.EncryptionKey == "" {
		a.Close(ctx)
		return nil, fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}
	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize encryption service: %w", err)
	}

	a.Metrics = metrics.New()
	a.Live = pubsub.NewEventPubSub(logger)
	a.closers = append(a.closers, func(context.Context) error { return a.Live.Close() })

	// Outbound platform clients
	shopifyClient := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifySecret, logger)
	clientConfig := httpclient.DefaultConfig()
	clientConfig.Timeout = cfg.RequestTimeout
	clientConfig.RatePerSecond = cfg.PlatformRPS
	clientConfig.Burst = cfg.PlatformBurst
	restClient := httpclient.New(clientConfig, &http.Client{Timeout: cfg.RequestTimeout}, logger)
	adapters := platforms.NewDefaultRegistry(shopifyClient, restClient, logger)

	credentials := application.NewCredentialsService(encryptionService, logger)
	a.Integration = application.NewIntegrationService(repos.integrations, repos.configs, credentials, logger)

	// Projection handlers
	dispatcher := application.NewWebhookDispatcher(logger)
	dispatcher.RegisterHandler(webhook_handlers.NewProductHandler(repos.projections, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(repos.projections, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewInventoryHandler(repos.projections, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewRefundHandler(repos.projections, logger))
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(repos.integrations, repos.configs, logger))

	fanOut := application.NewFanOut(repos.configs, repos.projections, syncQueue, logger)
	a.Outbox = application.NewOutboxProcessor(
		repos.events,
		repos.outbox,
		dispatcher,
		fanOut,
		publisher,
		a.Metrics,
		application.OutboxConfig{
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			MaxAttempts:  cfg.OutboxMaxAttempts,
			RetryPolicy:  cfg.RetryPolicy(),
		},
		logger,
	)

	a.Webhooks = application.NewWebhookService(
		adapters,
		repos.integrations,
		repos.events,
		webhook.HMACVerifier{},
		deliveries,
		a.Outbox,
		a.Live,
		a.Metrics,
		application.WebhookServiceConfig{
			Secrets:     config.WebhookSecrets(os.Getenv),
			DeliveryTTL: cfg.DeliveryTTL,
		},
		logger,
	)

	a.QueueWorker = application.NewQueueProcessor(
		syncQueue,
		repos.integrations,
		credentials,
		adapters,
		repos.projections,
		a.Metrics,
		application.QueueProcessorConfig{
			PollInterval: cfg.QueuePollInterval,
			BatchSize:    cfg.QueueBatchSize,
		},
		logger,
	)

	channel := application.NewChannelSyncer(repos.integrations, repos.projections, adapters, logger)
	a.Orchestrator = application.NewSyncOrchestrator(
		repos.integrations,
		repos.configs,
		repos.logs,
		credentials,
		channel,
		a.Metrics,
		logger,
	)
	a.Scheduler = application.NewScheduler(
		repos.integrations,
		repos.configs,
		credentials,
		adapters,
		channel,
		a.Metrics,
		application.SchedulerConfig{
			BatchSize:        cfg.SchedulerBatchSize,
			Interval:         cfg.SchedulerInterval,
			FailureThreshold: cfg.SyncFailureThreshold,
		},
		logger,
	)

	a.Integrations = repos.integrations
	a.SyncConfigs = repos.configs
	a.Queue = syncQueue
	return a, nil
}

// Start launches the background workers
func (a *App) Start(ctx context.Context) {
	a.Outbox.Start(ctx)
	a.QueueWorker.Start(ctx)
	if a.Config.SchedulerEnabled {
		a.Scheduler.Start(ctx)
	} else {
		a.logger.Info().Msg("Scheduler disabled")
	}
}

// Stop halts the background workers started by Start
func (a *App) Stop() {
	if a.Config.SchedulerEnabled {
		a.Scheduler.Stop()
	}
	a.QueueWorker.Stop()
	a.Outbox.Stop()
}

// Close releases backend connections in reverse order of opening
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
}

func (a *App) openRepositories(ctx context.Context) (*repositories, *mongo.Database, error) {
	if a.Config.MongoURI == "" {
		a.logger.Warn().Msg("MONGODB_URI not set, using in-memory repositories")
		events := memory.NewEventStore()
		return &repositories{
			integrations: memory.NewIntegrationRepository(),
			events:       events,
			outbox:       events,
			configs:      memory.NewSyncConfigRepository(),
			logs:         memory.NewSyncLogRepository(),
			projections:  memory.NewProjectionRepository(),
		}, nil, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.Config.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)

	db := client.Database(a.Config.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	useTransactions := a.Config.MongoTransactions
	if useTransactions && !repository.SupportsTransactions(ctx, client) {
		a.logger.Warn().Msg("MongoDB deployment is standalone, event and outbox writes are not transactional")
		useTransactions = false
	}
	mongoRepos := repository.NewMongoRepositories(client, db, useTransactions, a.logger)
	return &repositories{
		integrations: mongoRepos.Integrations,
		events:       mongoRepos.Events,
		outbox:       mongoRepos.Outbox,
		configs:      mongoRepos.SyncConfigs,
		logs:         mongoRepos.SyncLogs,
		projections:  mongoRepos.Projections,
	}, db, nil
}

func (a *App) openQueue(ctx context.Context, db *mongo.Database) (ports.SyncQueue, error) {
	policy := a.Config.RetryPolicy()
	switch a.Config.QueueDriver {
	case config.QueueDriverPostgres:
		sqlDB, err := queue.OpenPostgres(a.Config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeSQL(sqlDB))
		pq := queue.NewPostgresQueue(sqlDB, policy)
		if err := pq.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pq, nil
	case config.QueueDriverMongo:
		if db == nil {
			return nil, fmt.Errorf("mongo queue requires MONGODB_URI")
		}
		return queue.NewMongoQueue(db, policy), nil
	default:
		return queue.NewMemoryQueue(policy), nil
	}
}

func (a *App) openIdempotencyStore(ctx context.Context) (ports.IdempotencyStore, error) {
	if a.Config.RedisURL == "" {
		return cache.NewMemoryIdempotencyStore(), nil
	}
	store, err := cache.NewRedisIdempotencyStore(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	return store, nil
}

func (a *App) openPublisher() ports.EventPublisher {
	if len(a.Config.KafkaBrokers) == 0 {
		return messaging.NoopPublisher{}
	}
	publisher := messaging.NewKafkaPublisher(a.Config.KafkaBrokers, a.Config.KafkaTopic, a.logger)
	a.closers = append(a.closers, func(context.Context) error { return publisher.Close() })
	return publisher
}

func closeSQL(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}
