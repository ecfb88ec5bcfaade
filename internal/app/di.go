// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/rueidis"
	otelmetric "go.opentelemetry.io/otel/metric"

	accountHTTP "github.com/assignment-sets/audio-saas-backend/internal/account/http"
	accountRepository "github.com/assignment-sets/audio-saas-backend/internal/account/repository"
	accountUsecase "github.com/assignment-sets/audio-saas-backend/internal/account/usecase"
	artistHTTP "github.com/assignment-sets/audio-saas-backend/internal/artist/http"
	artistRepository "github.com/assignment-sets/audio-saas-backend/internal/artist/repository"
	artistUsecase "github.com/assignment-sets/audio-saas-backend/internal/artist/usecase"
	"github.com/assignment-sets/audio-saas-backend/internal/authz"
	"github.com/assignment-sets/audio-saas-backend/internal/config"
	"github.com/assignment-sets/audio-saas-backend/internal/database"
	"github.com/assignment-sets/audio-saas-backend/internal/http"
	"github.com/assignment-sets/audio-saas-backend/internal/identity"
	"github.com/assignment-sets/audio-saas-backend/internal/metrics"
	outboxDomain "github.com/assignment-sets/audio-saas-backend/internal/outbox/domain"
	outboxRepository "github.com/assignment-sets/audio-saas-backend/internal/outbox/repository"
	outboxUsecase "github.com/assignment-sets/audio-saas-backend/internal/outbox/usecase"
	"github.com/assignment-sets/audio-saas-backend/internal/queue"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	db          *sql.DB
	redisClient rueidis.Client

	// Managers
	txManager database.TxManager

	// External service clients
	authzClient    authz.Client
	identityClient identity.Client

	// Queue
	mux        *queue.Mux
	redisQueue *queue.RedisQueue

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Repositories
	outboxRepo  outboxUsecase.OutboxEntryRepository
	artistRepo  artistUsecase.ArtistRepository
	accountRepo accountUsecase.AccountRepository

	// Outbox machinery
	dispatcher *outboxUsecase.Dispatcher
	worker     *outboxUsecase.Worker
	sweeper    *outboxUsecase.Sweeper

	// Use cases
	artistUseCase   artistUsecase.UseCase
	accountUseCase  accountUsecase.UseCase
	cleanupPipeline *accountUsecase.CleanupPipeline

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	redisClientInit     sync.Once
	txManagerInit       sync.Once
	authzClientInit     sync.Once
	identityClientInit  sync.Once
	muxInit             sync.Once
	redisQueueInit      sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	outboxRepoInit      sync.Once
	artistRepoInit      sync.Once
	accountRepoInit     sync.Once
	dispatcherInit      sync.Once
	workerInit          sync.Once
	sweeperInit         sync.Once
	artistUseCaseInit   sync.Once
	accountUseCaseInit  sync.Once
	cleanupInit         sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// RedisClient returns the Redis client backing the work queue.
func (c *Container) RedisClient() (rueidis.Client, error) {
	c.redisClientInit.Do(func() {
		client, err := rueidis.NewClient(rueidis.ClientOption{
			InitAddress: []string{c.config.RedisAddress},
		})
		if err != nil {
			c.initErrors["redisClient"] = fmt.Errorf("failed to create redis client: %w", err)
			return
		}
		c.redisClient = client
	})
	if storedErr, exists := c.initErrors["redisClient"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// AuthzClient returns the authorization graph client.
func (c *Container) AuthzClient() (authz.Client, error) {
	c.authzClientInit.Do(func() {
		client, err := authz.NewOpenFGAClient(authz.Config{
			APIURL:       c.config.AuthzAPIURL,
			StoreID:      c.config.AuthzStoreID,
			ModelID:      c.config.AuthzModelID,
			TokenIssuer:  c.config.AuthzTokenIssuer,
			APIAudience:  c.config.AuthzAPIAudience,
			ClientID:     c.config.AuthzClientID,
			ClientSecret: c.config.AuthzClientSecret,
		}, c.Logger())
		if err != nil {
			c.initErrors["authzClient"] = fmt.Errorf("failed to create authorization client: %w", err)
			return
		}
		c.authzClient = client
	})
	if storedErr, exists := c.initErrors["authzClient"]; exists {
		return nil, storedErr
	}
	return c.authzClient, nil
}

// IdentityClient returns the identity provider management client.
func (c *Container) IdentityClient() (identity.Client, error) {
	c.identityClientInit.Do(func() {
		client, err := identity.NewAuth0Client(context.Background(), identity.Config{
			Domain:       c.config.IdentityDomain,
			ClientID:     c.config.IdentityClientID,
			ClientSecret: c.config.IdentityClientSecret,
		}, c.Logger())
		if err != nil {
			c.initErrors["identityClient"] = fmt.Errorf("failed to create identity client: %w", err)
			return
		}
		c.identityClient = client
	})
	if storedErr, exists := c.initErrors["identityClient"]; exists {
		return nil, storedErr
	}
	return c.identityClient, nil
}

// Mux returns the job router used by the queue consumer pool.
func (c *Container) Mux() *queue.Mux {
	c.muxInit.Do(func() {
		c.mux = queue.NewMux(c.Logger())
	})
	return c.mux
}

// RedisQueue returns the Redis-backed queue used for job transport.
func (c *Container) RedisQueue() (*queue.RedisQueue, error) {
	c.redisQueueInit.Do(func() {
		client, err := c.RedisClient()
		if err != nil {
			c.initErrors["redisQueue"] = fmt.Errorf("failed to get redis client for queue: %w", err)
			return
		}
		c.redisQueue = queue.NewRedisQueue(client, queue.Config{
			Stream:       c.config.QueueStream,
			Group:        c.config.QueueGroup,
			ConsumerName: c.config.QueueConsumerName,
			Concurrency:  c.config.WorkerConcurrency,
			MaxAttempts:  c.config.JobMaxAttempts,
			BackoffBase:  c.config.JobBackoffBase,
		}, c.Mux(), c.Logger())
	})
	if storedErr, exists := c.initErrors["redisQueue"]; exists {
		return nil, storedErr
	}
	return c.redisQueue, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. When metrics are
// disabled a no-op implementation is returned.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = bm
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// OutboxRepository returns the outbox entry repository instance.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEntryRepository, error) {
	c.outboxRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["outboxRepo"] = fmt.Errorf("failed to get database for outbox repository: %w", err)
			return
		}

		// Select the appropriate repository based on the database driver
		switch c.config.DBDriver {
		case "mysql":
			c.outboxRepo = outboxRepository.NewMySQLOutboxEntryRepository(db)
		case "postgres", "postgresql":
			c.outboxRepo = outboxRepository.NewPostgreSQLOutboxEntryRepository(db)
		default:
			c.initErrors["outboxRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// ArtistRepository returns the artist profile repository instance.
func (c *Container) ArtistRepository() (artistUsecase.ArtistRepository, error) {
	c.artistRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["artistRepo"] = fmt.Errorf("failed to get database for artist repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.artistRepo = artistRepository.NewMySQLArtistRepository(db)
		case "postgres", "postgresql":
			c.artistRepo = artistRepository.NewPostgreSQLArtistRepository(db)
		default:
			c.initErrors["artistRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["artistRepo"]; exists {
		return nil, storedErr
	}
	return c.artistRepo, nil
}

// AccountRepository returns the account repository instance.
func (c *Container) AccountRepository() (accountUsecase.AccountRepository, error) {
	c.accountRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["accountRepo"] = fmt.Errorf("failed to get database for account repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.accountRepo = accountRepository.NewMySQLAccountRepository(db)
		case "postgres", "postgresql":
			c.accountRepo = accountRepository.NewPostgreSQLAccountRepository(db)
		default:
			c.initErrors["accountRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["accountRepo"]; exists {
		return nil, storedErr
	}
	return c.accountRepo, nil
}

// Dispatcher returns the outbox dispatcher instance.
func (c *Container) Dispatcher() (*outboxUsecase.Dispatcher, error) {
	c.dispatcherInit.Do(func() {
		redisQueue, err := c.RedisQueue()
		if err != nil {
			c.initErrors["dispatcher"] = fmt.Errorf("failed to get queue for dispatcher: %w", err)
			return
		}
		c.dispatcher = outboxUsecase.NewDispatcher(redisQueue, c.Logger())
	})
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// Worker returns the outbox worker with all intent handlers registered.
func (c *Container) Worker() (*outboxUsecase.Worker, error) {
	c.workerInit.Do(func() {
		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["worker"] = fmt.Errorf("failed to get outbox repository for worker: %w", err)
			return
		}

		artistRepo, err := c.ArtistRepository()
		if err != nil {
			c.initErrors["worker"] = fmt.Errorf("failed to get artist repository for worker: %w", err)
			return
		}

		authzClient, err := c.AuthzClient()
		if err != nil {
			c.initErrors["worker"] = fmt.Errorf("failed to get authorization client for worker: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["worker"] = fmt.Errorf("failed to get business metrics for worker: %w", err)
			return
		}

		worker := outboxUsecase.NewWorker(outboxRepo, businessMetrics, c.Logger())
		worker.RegisterHandler(
			outboxDomain.IntentCreateArtistProfile,
			artistUsecase.NewCreateArtistProfileHandler(artistRepo, authzClient, c.Logger()),
		)
		c.worker = worker
	})
	if storedErr, exists := c.initErrors["worker"]; exists {
		return nil, storedErr
	}
	return c.worker, nil
}

// Sweeper returns the outbox sweeper instance.
func (c *Container) Sweeper() (*outboxUsecase.Sweeper, error) {
	c.sweeperInit.Do(func() {
		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["sweeper"] = fmt.Errorf("failed to get outbox repository for sweeper: %w", err)
			return
		}

		dispatcher, err := c.Dispatcher()
		if err != nil {
			c.initErrors["sweeper"] = fmt.Errorf("failed to get dispatcher for sweeper: %w", err)
			return
		}

		c.sweeper = outboxUsecase.NewSweeper(outboxUsecase.SweeperConfig{
			Interval:   c.config.SweeperInterval,
			BatchSize:  c.config.SweeperBatchSize,
			StaleAfter: c.config.SweeperStaleAfter,
		}, outboxRepo, dispatcher, c.Logger())
	})
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}

// ArtistUseCase returns the artist use case instance wrapped with metrics.
func (c *Container) ArtistUseCase() (artistUsecase.UseCase, error) {
	c.artistUseCaseInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["artistUseCase"] = fmt.Errorf("failed to get tx manager for artist use case: %w", err)
			return
		}

		artistRepo, err := c.ArtistRepository()
		if err != nil {
			c.initErrors["artistUseCase"] = fmt.Errorf("failed to get artist repository for artist use case: %w", err)
			return
		}

		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["artistUseCase"] = fmt.Errorf("failed to get outbox repository for artist use case: %w", err)
			return
		}

		dispatcher, err := c.Dispatcher()
		if err != nil {
			c.initErrors["artistUseCase"] = fmt.Errorf("failed to get dispatcher for artist use case: %w", err)
			return
		}

		authzClient, err := c.AuthzClient()
		if err != nil {
			c.initErrors["artistUseCase"] = fmt.Errorf("failed to get authorization client for artist use case: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["artistUseCase"] = fmt.Errorf("failed to get business metrics for artist use case: %w", err)
			return
		}

		useCase := artistUsecase.NewArtistUseCase(txManager, artistRepo, outboxRepo, dispatcher, authzClient)
		c.artistUseCase = artistUsecase.NewUseCaseWithMetrics(useCase, businessMetrics)
	})
	if storedErr, exists := c.initErrors["artistUseCase"]; exists {
		return nil, storedErr
	}
	return c.artistUseCase, nil
}

// AccountUseCase returns the account use case instance wrapped with metrics.
func (c *Container) AccountUseCase() (accountUsecase.UseCase, error) {
	c.accountUseCaseInit.Do(func() {
		accountRepo, err := c.AccountRepository()
		if err != nil {
			c.initErrors["accountUseCase"] = fmt.Errorf("failed to get account repository for account use case: %w", err)
			return
		}

		identityClient, err := c.IdentityClient()
		if err != nil {
			c.initErrors["accountUseCase"] = fmt.Errorf("failed to get identity client for account use case: %w", err)
			return
		}

		redisQueue, err := c.RedisQueue()
		if err != nil {
			c.initErrors["accountUseCase"] = fmt.Errorf("failed to get queue for account use case: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["accountUseCase"] = fmt.Errorf("failed to get business metrics for account use case: %w", err)
			return
		}

		useCase := accountUsecase.NewAccountUseCase(accountRepo, identityClient, redisQueue, c.Logger())
		c.accountUseCase = accountUsecase.NewUseCaseWithMetrics(useCase, businessMetrics)
	})
	if storedErr, exists := c.initErrors["accountUseCase"]; exists {
		return nil, storedErr
	}
	return c.accountUseCase, nil
}

// CleanupPipeline returns the account cleanup pipeline instance.
func (c *Container) CleanupPipeline() (*accountUsecase.CleanupPipeline, error) {
	c.cleanupInit.Do(func() {
		accountRepo, err := c.AccountRepository()
		if err != nil {
			c.initErrors["cleanupPipeline"] = fmt.Errorf("failed to get account repository for cleanup pipeline: %w", err)
			return
		}

		authzClient, err := c.AuthzClient()
		if err != nil {
			c.initErrors["cleanupPipeline"] = fmt.Errorf("failed to get authorization client for cleanup pipeline: %w", err)
			return
		}

		identityClient, err := c.IdentityClient()
		if err != nil {
			c.initErrors["cleanupPipeline"] = fmt.Errorf("failed to get identity client for cleanup pipeline: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["cleanupPipeline"] = fmt.Errorf("failed to get business metrics for cleanup pipeline: %w", err)
			return
		}

		c.cleanupPipeline = accountUsecase.NewCleanupPipeline(accountRepo, authzClient, identityClient, businessMetrics, c.Logger())
	})
	if storedErr, exists := c.initErrors["cleanupPipeline"]; exists {
		return nil, storedErr
	}
	return c.cleanupPipeline, nil
}

// HTTPServer returns the HTTP server instance with the full router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get database for http server: %w", err)
			return
		}

		artistUseCase, err := c.ArtistUseCase()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get artist use case for http server: %w", err)
			return
		}

		accountUseCase, err := c.AccountUseCase()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get account use case for http server: %w", err)
			return
		}

		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get metrics provider for http server: %w", err)
			return
		}

		logger := c.Logger()
		server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)

		var meterProvider otelmetric.MeterProvider
		if provider != nil {
			meterProvider = provider.MeterProvider()
		}

		server.SetupRouter(c.config,
			artistHTTP.NewArtistHandler(artistUseCase, logger),
			accountHTTP.NewAccountHandler(accountUseCase, logger),
			meterProvider,
		)

		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server and provider if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close Redis client if initialized
	if c.redisClient != nil {
		c.redisClient.Close()
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
