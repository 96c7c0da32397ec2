// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cartwise/v3/internal/application/planning"
	"github.com/cartwise/v3/internal/infrastructure/cache"
	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/cartwise/v3/internal/infrastructure/http/adminserver"
	"github.com/cartwise/v3/internal/infrastructure/http/apiserver"
	"github.com/cartwise/v3/internal/infrastructure/ingest"
	"github.com/cartwise/v3/internal/infrastructure/monitoring"
	gormRepo "github.com/cartwise/v3/internal/infrastructure/persistence/gorm"
	"github.com/cartwise/v3/internal/infrastructure/persistence/memory"
	"github.com/cartwise/v3/internal/infrastructure/persistence/migrations"
	"github.com/cartwise/v3/internal/infrastructure/persistence/postgres"
	"github.com/cartwise/v3/internal/infrastructure/persistence/sqlite"
	"github.com/cartwise/v3/internal/infrastructure/security"
	"github.com/cartwise/v3/internal/ports/inbound"
	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/cartwise/v3/pkg/healthcheck"
	"github.com/cartwise/v3/pkg/logger"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	FactsModule,
	CacheModule,
	CatalogModule,

	// Service modules
	ServiceModule,
	SecurityModule,

	// Observability modules
	MonitoringModule,
	HealthModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
	// Provide sugared logger
	func(log *zap.Logger) *zap.SugaredLogger {
		return log.Sugar()
	},
)

// FactsModule provides the facts store for the configured driver.
// Postgres gets the pgx pool with versioned migrations; anything else
// falls back to embedded SQLite with auto-migration and seed data.
// Exactly one of the two handles is non-nil.
var FactsModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (outbound.FactsRepository, *postgres.ConnectionManager, *gorm.DB, error) {
		if cfg.Database.Driver == "postgres" {
			manager, err := postgres.NewConnectionManager(cfg, log)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to connect to postgres facts store: %w", err)
			}

			if cfg.Database.AutoMigrate {
				if err := migrateFactsStore(manager, log); err != nil {
					manager.Close()
					return nil, nil, nil, err
				}
			}

			return postgres.NewFactsRepository(manager.Pool(), log), manager, nil, nil
		}

		dbPath := cfg.Database.Database

		// Set log level based on config
		logLevel := gormLogger.Silent
		if cfg.App.Debug {
			logLevel = gormLogger.Info
		}

		db, err := sqlite.SetupDatabase(dbPath, logLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to setup SQLite facts store: %w", err)
		}

		// Seed reference facts so a fresh install plans sensibly
		if err := sqlite.SeedDatabase(db); err != nil {
			log.Warn("Failed to seed facts store", zap.Error(err))
		}

		log.Info("Connected to SQLite facts store",
			zap.String("path", dbPath),
			zap.Bool("in_memory", dbPath == ":memory:"),
		)

		return gormRepo.NewFactsRepository(db), nil, db, nil
	},
)

// migrateFactsStore runs the embedded SQL migrations against postgres
func migrateFactsStore(manager *postgres.ConnectionManager, log *zap.Logger) error {
	sqlDB := manager.SQLDB()
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("Failed to close migration connection", zap.Error(err))
		}
	}()

	migrator, err := migrations.New(sqlDB, log)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run facts store migrations: %w", err)
	}

	return nil
}

// CacheModule provides the plan cache. Redis when enabled, otherwise an
// in-process cache sized for single-node deployments.
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (outbound.PlanCache, *cache.RedisClient, *memory.PlanCache, error) {
		if cfg.Redis.Enabled {
			client, err := cache.NewRedisClient(&cfg.Redis, log)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
			}
			return cache.NewRedisPlanCache(client, log), client, nil, nil
		}

		log.Info("Using in-memory plan cache")
		memCache := memory.NewPlanCache()
		return memCache, nil, memCache, nil
	},
)

// CatalogModule provides the catalog source, loader, product index, and
// the optional file watcher for hot reload
var CatalogModule = fx.Provide(
	// Catalog source
	func(cfg *config.Config) (outbound.CatalogSource, error) {
		if cfg.Catalog.Source == "s3" {
			client, err := newS3Client(&cfg.AWS)
			if err != nil {
				return nil, err
			}
			return ingest.NewS3Source(client, cfg.Catalog.Bucket, cfg.Catalog.Key), nil
		}
		return ingest.NewFileSource(cfg.Catalog.Path), nil
	},

	// Loader
	func(source outbound.CatalogSource, cfg *config.Config, log *zap.Logger) (*ingest.Loader, error) {
		return ingest.NewLoader(source, cfg.StoreRoster(), log)
	},

	// The product index doubles as retrieval surface and admin control
	fx.Annotate(
		memory.NewProductIndex,
		fx.As(new(outbound.ProductIndex)),
		fx.As(new(outbound.CatalogAdmin)),
	),

	// Watcher is nil unless a watched file source is configured
	func(cfg *config.Config, admin outbound.CatalogAdmin, log *zap.Logger) (*ingest.Watcher, error) {
		if !cfg.Catalog.Watch || cfg.Catalog.Source != "file" {
			return nil, nil
		}
		return ingest.NewWatcher(cfg.Catalog.Path, cfg.Catalog.ReloadDebounce, admin.Reload, log)
	},
)

// newS3Client builds the catalog S3 client, honoring custom endpoints
// for S3-compatible object stores
func newS3Client(cfg *config.AWSConfig) (*s3.S3, error) {
	awsConfig := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(cfg.ForcePathStyle)
	}
	if cfg.AccessKeyID != "" {
		awsConfig = awsConfig.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return s3.New(sess), nil
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	// Planning service
	func(
		index outbound.ProductIndex,
		facts outbound.FactsRepository,
		planCache outbound.PlanCache,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.PlanningService {
		return planning.NewPlanningService(
			index,
			facts,
			planCache,
			cfg.PlannerConfig(),
			cfg.BrandRegistry(),
			cfg.Plans.TTL,
			log,
		)
	},

	// Catalog admin service
	planning.NewCatalogAdminService,
)

// SecurityModule provides operator authentication
var SecurityModule = fx.Provide(
	security.NewAuthService,
)

// MonitoringModule provides metrics collection and tracing
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,

	func(cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*monitoring.OpenTelemetryProvider, error) {
		return monitoring.NewOpenTelemetryProvider(monitoring.OpenTelemetryConfig{
			ServiceName:       cfg.App.Name,
			ServiceVersion:    cfg.App.Version,
			Environment:       cfg.App.Environment,
			TracingEnabled:    cfg.Monitoring.EnableTracing,
			JaegerEndpoint:    cfg.Monitoring.JaegerEndpoint,
			OTLPTraceEndpoint: cfg.Monitoring.OTLPEndpoint,
			SamplingRate:      cfg.Monitoring.SamplingRate,
			MetricsEnabled:    cfg.Monitoring.EnableMetrics,
		}, log, metrics.Registry())
	},
)

// HealthModule assembles the health check with one checker per
// dependency that can take planning down
var HealthModule = fx.Provide(
	func(
		cfg *config.Config,
		log *zap.Logger,
		manager *postgres.ConnectionManager,
		db *gorm.DB,
		redisClient *cache.RedisClient,
		catalogAdmin outbound.CatalogAdmin,
	) *healthcheck.HealthCheck {
		health := healthcheck.New(cfg.App.Version, log)

		if manager != nil {
			health.Register("facts_store", healthcheck.NewDatabaseChecker(manager.Pool()))
		} else if db != nil {
			health.Register("facts_store", sqliteChecker(db))
		}

		if redisClient != nil {
			health.Register("plan_cache", healthcheck.NewRedisChecker(redisClient.Client()))
		}

		health.Register("catalog", catalogChecker(catalogAdmin))

		return health
	},
)

// sqliteChecker pings the embedded facts database
func sqliteChecker(db *gorm.DB) healthcheck.Checker {
	return healthcheck.NewCustomChecker("facts_store", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		sqlDB, err := db.DB()
		if err != nil {
			return healthcheck.StatusUnhealthy, fmt.Sprintf("facts store unavailable: %v", err), nil
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return healthcheck.StatusUnhealthy, fmt.Sprintf("facts store ping failed: %v", err), nil
		}
		return healthcheck.StatusHealthy, "SQLite facts store responding", nil
	})
}

// catalogChecker reports readiness of the loaded catalog. The service
// is not ready until the first load succeeds.
func catalogChecker(admin outbound.CatalogAdmin) healthcheck.Checker {
	return healthcheck.NewCustomChecker("catalog", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		stats, err := admin.Stats(ctx)
		if err != nil {
			return healthcheck.StatusUnhealthy, fmt.Sprintf("catalog not loaded: %v", err), nil
		}

		metadata := map[string]interface{}{
			"products":    stats.Products,
			"stores":      stats.Stores,
			"generation":  stats.Generation,
			"fingerprint": stats.Fingerprint,
		}
		if stats.Products == 0 {
			return healthcheck.StatusDegraded, "catalog loaded but empty", metadata
		}
		return healthcheck.StatusHealthy, fmt.Sprintf("catalog generation %d with %d products", stats.Generation, stats.Products), metadata
	})
}

// HTTPModule provides the public planning API and the operator API
var HTTPModule = fx.Provide(
	apiserver.NewAPIServer,
	adminserver.NewAdminServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks.
// Startup order matters: the catalog must load before either server
// accepts traffic.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	catalogAdmin outbound.CatalogAdmin,
	watcher *ingest.Watcher,
	apiServer *apiserver.APIServer,
	adminServer *adminserver.AdminServer,
	metrics *monitoring.MetricsCollector,
	telemetry *monitoring.OpenTelemetryProvider,
	manager *postgres.ConnectionManager,
	db *gorm.DB,
	redisClient *cache.RedisClient,
	memCache *memory.PlanCache,
) {
	appCtx, cancelApp := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Cartwise",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			if err := catalogAdmin.Reload(ctx); err != nil {
				return fmt.Errorf("initial catalog load failed: %w", err)
			}

			if watcher != nil {
				if err := watcher.Start(); err != nil {
					return fmt.Errorf("failed to start catalog watcher: %w", err)
				}
			}

			go metrics.StartUptimeCounter(appCtx)

			// Start planning API server
			go func() {
				if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal("Planning API server failed", zap.Error(err))
				}
			}()

			// Start operator API server
			if cfg.Admin.Enabled {
				go func() {
					if err := adminServer.Start(); err != nil && err != http.ErrServerClosed {
						log.Fatal("Operator API server failed", zap.Error(err))
					}
				}()
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Cartwise")
			cancelApp()

			if watcher != nil {
				if err := watcher.Stop(); err != nil {
					log.Error("Failed to stop catalog watcher", zap.Error(err))
				}
			}

			// Shutdown HTTP servers
			if cfg.Admin.Enabled {
				if err := adminServer.Shutdown(ctx); err != nil {
					log.Error("Failed to shutdown operator API server", zap.Error(err))
				}
			}
			if err := apiServer.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown planning API server", zap.Error(err))
			}

			if err := telemetry.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown OpenTelemetry provider", zap.Error(err))
			}

			// Close the plan cache
			if redisClient != nil {
				if err := redisClient.Close(); err != nil {
					log.Error("Failed to close Redis client", zap.Error(err))
				}
			}
			if memCache != nil {
				memCache.Close()
			}

			// Close facts store connections
			if manager != nil {
				if err := manager.Close(); err != nil {
					log.Error("Failed to close facts store", zap.Error(err))
				}
			}
			if db != nil {
				sqlDB, err := db.DB()
				if err == nil {
					if err := sqlDB.Close(); err != nil {
						log.Error("Failed to close facts store connection", zap.Error(err))
					}
				}
			}

			// Flush logs
			_ = log.Sync()

			return nil
		},
	})
}
