// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/grailpoint/storefront/internal/config"
	"github.com/grailpoint/storefront/internal/database"
	"github.com/grailpoint/storefront/internal/http"
	"github.com/grailpoint/storefront/internal/metrics"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	ordersHTTP "github.com/grailpoint/storefront/internal/orders/http"
	ordersUseCase "github.com/grailpoint/storefront/internal/orders/usecase"
	paymentsHTTP "github.com/grailpoint/storefront/internal/payments/http"
	paymentsService "github.com/grailpoint/storefront/internal/payments/service"
	paymentsUseCase "github.com/grailpoint/storefront/internal/payments/usecase"
)

// catalogRepository combines the catalog-facing contracts served by one
// repository per driver.
type catalogRepository interface {
	paymentsUseCase.CatalogSyncer
	paymentsUseCase.CacheInvalidator
}

// notificationRepository is the storage surface behind the notification
// collaborators.
type notificationRepository interface {
	ListNotifiableStaff(ctx context.Context) ([]string, error)
	InsertAdminNotification(ctx context.Context, kind string, order *ordersDomain.Order) error
	paymentsUseCase.PickupThreads
}

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider

	// Managers
	txManager database.TxManager

	// Repositories
	orderRepo        paymentsUseCase.OrderRepository
	orderEventRepo   paymentsUseCase.OrderEventRepository
	processedRepo    paymentsUseCase.ProcessedEventRepository
	catalogRepo      catalogRepository
	taxRepo          paymentsUseCase.TaxRecorder
	notificationRepo notificationRepository

	// Services and clients
	gatewayClient     paymentsUseCase.GatewayClient
	mailer            paymentsUseCase.Mailer
	staffNotifier     paymentsUseCase.StaffNotifier
	signatureVerifier *paymentsService.SignatureVerifier

	// Use Cases
	webhookUseCase paymentsUseCase.UseCase
	orderUseCase   ordersUseCase.OrderUseCase

	// Handlers and servers
	webhookHandler *paymentsHTTP.WebhookHandler
	orderHandler   *ordersHTTP.OrderHandler
	httpServer     *http.Server
	metricsServer  *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	dbInit               sync.Once
	metricsProviderInit  sync.Once
	txManagerInit        sync.Once
	orderRepoInit        sync.Once
	orderEventRepoInit   sync.Once
	processedRepoInit    sync.Once
	catalogRepoInit      sync.Once
	taxRepoInit          sync.Once
	notificationRepoInit sync.Once
	gatewayClientInit    sync.Once
	mailerInit           sync.Once
	staffNotifierInit    sync.Once
	verifierInit         sync.Once
	webhookUseCaseInit   sync.Once
	orderUseCaseInit     sync.Once
	webhookHandlerInit   sync.Once
	orderHandlerInit     sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
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
// It creates a new logger on first access based on the log level in
// configuration.
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

// MetricsProvider returns the metrics provider, or nil when metrics are
// disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
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

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
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

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

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

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log
// level.
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

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	webhookHandler, err := c.WebhookHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook handler for http server: %w", err)
	}

	orderHandler, err := c.OrderHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get order handler for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	var meterProvider metric.MeterProvider
	if provider != nil {
		meterProvider = provider.MeterProvider()
	}

	return http.NewServer(
		c.config,
		webhookHandler,
		orderHandler,
		meterProvider,
		c.Logger(),
	), nil
}
