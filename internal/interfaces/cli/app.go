package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	appExpiry "github.com/turtacn/FreshGuard/internal/application/expiry"
	"github.com/turtacn/FreshGuard/internal/config"
	domainExpiry "github.com/turtacn/FreshGuard/internal/domain/expiry"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/memory"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/postgres"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/redis"
	"github.com/turtacn/FreshGuard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FreshGuard/internal/infrastructure/storage/minio"
	"github.com/turtacn/FreshGuard/internal/interfaces/http/handlers"
)

// BootstrapOptions selects optional collaborators.
type BootstrapOptions struct {
	// Redis connects the redis client even when the lock backend is local.
	Redis bool
}

type appFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger, opts BootstrapOptions) (*App, error)

// App is the wired engine with every collaborator the config enables.
type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Calendar *domainExpiry.Calendar
	Store    domainExpiry.Store
	Service  appExpiry.Service

	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Producer  *kafka.Producer
	Archive   *minio.ArchiveStore
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	Checkers  []handlers.HealthChecker

	closers []func()
}

// Bootstrap connects the configured backends and builds the service. On
// error every backend opened so far is closed again.
func Bootstrap(ctx context.Context, cfg *config.Config, logger logging.Logger, opts BootstrapOptions) (_ *App, err error) {
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if app.Calendar, err = domainExpiry.LoadCalendar(domainExpiry.SystemClock{}, cfg.Expiry.Timezone); err != nil {
		return nil, err
	}
	if err = app.openStore(); err != nil {
		return nil, err
	}
	if err = app.Store.Ping(ctx); err != nil {
		return nil, err
	}

	var svcOpts []appExpiry.Option

	if cfg.Metrics.Enabled {
		collector, cerr := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if cerr != nil {
			return nil, cerr
		}
		app.Collector = collector
		app.Metrics = prometheus.NewAppMetrics(collector)
		svcOpts = append(svcOpts, appExpiry.WithMetrics(prometheus.NewExpiryMetrics(app.Metrics)))
	}

	if cfg.Expiry.LockBackend == config.LockRedis || opts.Redis {
		client, rerr := redis.NewClient(cfg.Redis, logger.Named("redis"))
		if rerr != nil {
			return nil, rerr
		}
		app.Redis = client
		app.closers = append(app.closers, func() { _ = client.Close() })
		app.Checkers = append(app.Checkers, handlers.CheckFunc("redis", client.Ping))
		if cfg.Expiry.LockBackend == config.LockRedis {
			svcOpts = append(svcOpts, appExpiry.WithLocker(redis.NewProductLocker(client, cfg.Expiry.LockTTL)))
		}
	}

	if cfg.Kafka.Enabled {
		producer, kerr := kafka.NewProducer(cfg.Kafka, logger.Named("kafka"))
		if kerr != nil {
			return nil, kerr
		}
		app.Producer = producer
		app.closers = append(app.closers, func() { _ = producer.Close() })
		svcOpts = append(svcOpts, appExpiry.WithNotifier(kafka.NewNotifier(producer, logger)))
	}

	if cfg.MinIO.Enabled {
		client, merr := minio.NewMinIOClient(cfg.MinIO, logger.Named("minio"))
		if merr != nil {
			return nil, merr
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		app.Archive = minio.NewArchiveStore(client, logger)
		app.Checkers = append(app.Checkers, handlers.CheckFunc("minio", func(ctx context.Context) error {
			_, herr := client.HealthCheck(ctx)
			return herr
		}))
		svcOpts = append(svcOpts, appExpiry.WithArchive(app.Archive))
	}

	policy, err := domainExpiry.ParseFallbackPolicy(cfg.Expiry.DedupFallback)
	if err != nil {
		return nil, err
	}
	app.Service = appExpiry.NewService(app.Store, app.Calendar, appExpiry.Config{
		FallbackPolicy:      policy,
		UndoRestoresDate:    cfg.Expiry.UndoRestoresDate,
		HistoryDefaultLimit: cfg.Expiry.HistoryDefaultLimit,
		HistoryMaxLimit:     cfg.Expiry.HistoryMaxLimit,
		MaxNoteLength:       cfg.Expiry.MaxNoteLength,
		ArchivePrefix:       cfg.Expiry.ArchivePrefix,
		ReminderItemLimit:   cfg.Expiry.ReminderItemLimit,
	}, logger, svcOpts...)

	logger.Info("engine ready",
		logging.String("store", cfg.Expiry.StoreBackend),
		logging.String("lock", cfg.Expiry.LockBackend),
		logging.String("timezone", cfg.Expiry.Timezone),
		logging.Bool("kafka", app.Producer != nil),
		logging.Bool("archive", app.Archive != nil),
	)
	return app, nil
}

func (a *App) openStore() error {
	cfg := a.Config
	seed := domainExpiry.Settings{Enabled: true, WarningDays: cfg.Expiry.WarningDays, CriticalDays: cfg.Expiry.CriticalDays}

	switch cfg.Expiry.StoreBackend {
	case config.StorePostgres:
		pool, err := postgres.NewConnectionPool(cfg.Database, a.Logger.Named("postgres"))
		if err != nil {
			return err
		}
		a.Pool = pool
		a.closers = append(a.closers, func() { postgres.Close(pool) })
		a.Store = repositories.NewExpiryStore(pool, a.Logger, repositories.WithDefaultSettings(seed))
		a.Checkers = append(a.Checkers, handlers.CheckFunc("postgres", func(ctx context.Context) error {
			return postgres.HealthCheck(ctx, pool, a.Logger)
		}))
	case config.StoreMemory:
		store, err := memory.NewStore(memory.WithSnapshot(cfg.Expiry.SnapshotPath), memory.WithDefaultSettings(seed))
		if err != nil {
			return err
		}
		a.Store = store
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Expiry.StoreBackend)
	}
	return nil
}

// ProductImporter is implemented by stores that accept catalog products.
type ProductImporter interface {
	UpsertProduct(ctx context.Context, p *domainExpiry.Product) error
}

// RecordPoolStats publishes pool gauges every interval until ctx is done.
func (a *App) RecordPoolStats(ctx context.Context, interval time.Duration) {
	if a.Pool == nil || a.Metrics == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := a.Pool.Stat()
			prometheus.RecordPoolStats(a.Metrics, "postgres", stat.TotalConns(), stat.AcquiredConns())
		}
	}
}

// Close releases the backends in reverse opening order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
