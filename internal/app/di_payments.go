package app

import (
	"fmt"

	catalogRepositoryPkg "github.com/grailpoint/storefront/internal/catalog/repository"
	"github.com/grailpoint/storefront/internal/gateway"
	"github.com/grailpoint/storefront/internal/metrics"
	notificationRepositoryPkg "github.com/grailpoint/storefront/internal/notification/repository"
	notificationService "github.com/grailpoint/storefront/internal/notification/service"
	paymentsHTTP "github.com/grailpoint/storefront/internal/payments/http"
	paymentsRepository "github.com/grailpoint/storefront/internal/payments/repository"
	paymentsService "github.com/grailpoint/storefront/internal/payments/service"
	paymentsUseCase "github.com/grailpoint/storefront/internal/payments/usecase"
	taxRepositoryPkg "github.com/grailpoint/storefront/internal/tax/repository"
)

// ProcessedEventRepository returns the gateway event dedup store instance.
func (c *Container) ProcessedEventRepository() (paymentsUseCase.ProcessedEventRepository, error) {
	c.processedRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["processedRepo"] = fmt.Errorf("failed to get database for processed event repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.processedRepo = paymentsRepository.NewMySQLProcessedEventRepository(db)
		case "postgres":
			c.processedRepo = paymentsRepository.NewPostgreSQLProcessedEventRepository(db)
		default:
			c.initErrors["processedRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["processedRepo"]; exists {
		return nil, storedErr
	}
	return c.processedRepo, nil
}

// CatalogRepository returns the derived-catalog repository instance.
func (c *Container) CatalogRepository() (catalogRepository, error) {
	c.catalogRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["catalogRepo"] = fmt.Errorf("failed to get database for catalog repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.catalogRepo = catalogRepositoryPkg.NewMySQLCatalogRepository(db)
		case "postgres":
			c.catalogRepo = catalogRepositoryPkg.NewPostgreSQLCatalogRepository(db)
		default:
			c.initErrors["catalogRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["catalogRepo"]; exists {
		return nil, storedErr
	}
	return c.catalogRepo, nil
}

// TaxRepository returns the sales-tax ledger repository instance.
func (c *Container) TaxRepository() (paymentsUseCase.TaxRecorder, error) {
	c.taxRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["taxRepo"] = fmt.Errorf("failed to get database for tax repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.taxRepo = taxRepositoryPkg.NewMySQLTaxRepository(db)
		case "postgres":
			c.taxRepo = taxRepositoryPkg.NewPostgreSQLTaxRepository(db)
		default:
			c.initErrors["taxRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["taxRepo"]; exists {
		return nil, storedErr
	}
	return c.taxRepo, nil
}

// NotificationRepository returns the notification storage instance.
func (c *Container) NotificationRepository() (notificationRepository, error) {
	c.notificationRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["notificationRepo"] = fmt.Errorf("failed to get database for notification repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.notificationRepo = notificationRepositoryPkg.NewMySQLNotificationRepository(db)
		case "postgres":
			c.notificationRepo = notificationRepositoryPkg.NewPostgreSQLNotificationRepository(db)
		default:
			c.initErrors["notificationRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["notificationRepo"]; exists {
		return nil, storedErr
	}
	return c.notificationRepo, nil
}

// GatewayClient returns the outbound payment-gateway client instance.
func (c *Container) GatewayClient() (paymentsUseCase.GatewayClient, error) {
	c.gatewayClientInit.Do(func() {
		c.gatewayClient = gateway.NewClient(
			c.config.GatewayBaseURL,
			c.config.GatewayAPIKey,
			c.config.GatewayTimeout,
		)
	})
	return c.gatewayClient, nil
}

// Mailer returns the customer mailer instance.
func (c *Container) Mailer() (paymentsUseCase.Mailer, error) {
	c.mailerInit.Do(func() {
		c.mailer = notificationService.NewMailer(c.config.SiteBaseURL, c.Logger())
	})
	return c.mailer, nil
}

// StaffNotifier returns the back-office notifier instance.
func (c *Container) StaffNotifier() (paymentsUseCase.StaffNotifier, error) {
	c.staffNotifierInit.Do(func() {
		store, err := c.NotificationRepository()
		if err != nil {
			c.initErrors["staffNotifier"] = fmt.Errorf("failed to get notification repository for staff notifier: %w", err)
			return
		}

		c.staffNotifier = notificationService.NewStaffNotifier(
			store,
			c.config.NotificationTimeout,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["staffNotifier"]; exists {
		return nil, storedErr
	}
	return c.staffNotifier, nil
}

// SignatureVerifier returns the webhook signature verifier instance.
func (c *Container) SignatureVerifier() (*paymentsService.SignatureVerifier, error) {
	c.verifierInit.Do(func() {
		if c.config.WebhookSigningSecret == "" {
			c.initErrors["signatureVerifier"] = fmt.Errorf("webhook signing secret is not configured")
			return
		}
		c.signatureVerifier = paymentsService.NewSignatureVerifier(
			c.config.WebhookSigningSecret,
			c.config.WebhookSignatureTolerance,
		)
	})
	if storedErr, exists := c.initErrors["signatureVerifier"]; exists {
		return nil, storedErr
	}
	return c.signatureVerifier, nil
}

// WebhookUseCase returns the payment event processing use case instance.
func (c *Container) WebhookUseCase() (paymentsUseCase.UseCase, error) {
	c.webhookUseCaseInit.Do(func() {
		useCase, err := c.initWebhookUseCase()
		if err != nil {
			c.initErrors["webhookUseCase"] = err
			return
		}
		c.webhookUseCase = useCase
	})
	if storedErr, exists := c.initErrors["webhookUseCase"]; exists {
		return nil, storedErr
	}
	return c.webhookUseCase, nil
}

// WebhookHandler returns the webhook ingress HTTP handler instance.
func (c *Container) WebhookHandler() (*paymentsHTTP.WebhookHandler, error) {
	c.webhookHandlerInit.Do(func() {
		verifier, err := c.SignatureVerifier()
		if err != nil {
			c.initErrors["webhookHandler"] = fmt.Errorf("failed to get signature verifier for webhook handler: %w", err)
			return
		}

		useCase, err := c.WebhookUseCase()
		if err != nil {
			c.initErrors["webhookHandler"] = fmt.Errorf("failed to get webhook use case for webhook handler: %w", err)
			return
		}

		c.webhookHandler = paymentsHTTP.NewWebhookHandler(verifier, useCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["webhookHandler"]; exists {
		return nil, storedErr
	}
	return c.webhookHandler, nil
}

// initWebhookUseCase creates the webhook use case with all its dependencies.
func (c *Container) initWebhookUseCase() (paymentsUseCase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for webhook use case: %w", err)
	}

	orderRepo, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for webhook use case: %w", err)
	}

	orderEventRepo, err := c.OrderEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order event repository for webhook use case: %w", err)
	}

	processedRepo, err := c.ProcessedEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get processed event repository for webhook use case: %w", err)
	}

	gatewayClient, err := c.GatewayClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway client for webhook use case: %w", err)
	}

	mailer, err := c.Mailer()
	if err != nil {
		return nil, fmt.Errorf("failed to get mailer for webhook use case: %w", err)
	}

	staffNotifier, err := c.StaffNotifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get staff notifier for webhook use case: %w", err)
	}

	catalogRepo, err := c.CatalogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog repository for webhook use case: %w", err)
	}

	taxRepo, err := c.TaxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get tax repository for webhook use case: %w", err)
	}

	notificationRepo, err := c.NotificationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification repository for webhook use case: %w", err)
	}

	webhookMetrics := metrics.NewNoOpWebhookMetrics()
	if provider, err := c.MetricsProvider(); err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for webhook use case: %w", err)
	} else if provider != nil {
		webhookMetrics, err = metrics.NewWebhookMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook metrics: %w", err)
		}
	}

	useCaseConfig := paymentsUseCase.Config{
		GuestEmailDomain: c.config.GuestEmailDomain,
		EffectTimeout:    c.config.NotificationTimeout,
	}

	return paymentsUseCase.NewWebhookUseCase(
		useCaseConfig,
		txManager,
		orderRepo,
		orderEventRepo,
		processedRepo,
		gatewayClient,
		mailer,
		staffNotifier,
		catalogRepo,
		taxRepo,
		catalogRepo,
		notificationRepo,
		c.Logger(),
		webhookMetrics,
	), nil
}
