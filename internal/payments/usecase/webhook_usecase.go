package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/grailpoint/storefront/internal/database"
	apperrors "github.com/grailpoint/storefront/internal/errors"
	"github.com/grailpoint/storefront/internal/metrics"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// Config holds the tunables of the webhook pipeline.
type Config struct {
	// GuestEmailDomain is the domain of the deterministic placeholder
	// address used when no contact email can be resolved for a guest order.
	GuestEmailDomain string
	// EffectTimeout bounds each outbound side-effect call so a slow
	// collaborator cannot block acknowledging the delivery.
	EffectTimeout time.Duration
}

// WebhookUseCase processes verified gateway events: event-level dedup, then
// dispatch to the matching handler, then the write-once processed record.
type WebhookUseCase struct {
	config         Config
	txManager      database.TxManager
	orderRepo      OrderRepository
	orderEventRepo OrderEventRepository
	processedRepo  ProcessedEventRepository
	gateway        GatewayClient
	mailer         Mailer
	staff          StaffNotifier
	catalog        CatalogSyncer
	tax            TaxRecorder
	cache          CacheInvalidator
	pickup         PickupThreads
	logger         *slog.Logger
	metrics        metrics.WebhookMetrics
}

// NewWebhookUseCase creates a new WebhookUseCase.
func NewWebhookUseCase(
	config Config,
	txManager database.TxManager,
	orderRepo OrderRepository,
	orderEventRepo OrderEventRepository,
	processedRepo ProcessedEventRepository,
	gateway GatewayClient,
	mailer Mailer,
	staff StaffNotifier,
	catalog CatalogSyncer,
	tax TaxRecorder,
	cache CacheInvalidator,
	pickup PickupThreads,
	logger *slog.Logger,
	webhookMetrics metrics.WebhookMetrics,
) *WebhookUseCase {
	if config.EffectTimeout <= 0 {
		config.EffectTimeout = 10 * time.Second
	}
	if webhookMetrics == nil {
		webhookMetrics = metrics.NewNoOpWebhookMetrics()
	}

	return &WebhookUseCase{
		config:         config,
		txManager:      txManager,
		orderRepo:      orderRepo,
		orderEventRepo: orderEventRepo,
		processedRepo:  processedRepo,
		gateway:        gateway,
		mailer:         mailer,
		staff:          staff,
		catalog:        catalog,
		tax:            tax,
		cache:          cache,
		pickup:         pickup,
		logger:         logger,
		metrics:        webhookMetrics,
	}
}

// Process runs one verified gateway event through the pipeline. The dedup
// check runs first; the processed record is written only after the handler
// succeeds, so a failed delivery stays retryable. The only error callers
// must surface to the gateway is ErrPaidTransitionFailed; everything else is
// logged and acknowledged.
func (u *WebhookUseCase) Process(ctx context.Context, event *paymentsDomain.Event) error {
	start := time.Now()
	u.metrics.RecordEventReceived(ctx, string(event.Type))

	exists, err := u.processedRepo.Exists(ctx, event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to check processed event")
	}
	if exists {
		u.logger.Info("duplicate event ignored",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
		)
		u.metrics.RecordEventProcessed(ctx, string(event.Type), "duplicate")
		return nil
	}

	switch event.Type {
	case paymentsDomain.EventPaymentSucceeded:
		err = u.handlePaymentSucceeded(ctx, event)
	case paymentsDomain.EventPaymentProcessing:
		err = u.handlePaymentProcessing(ctx, event)
	case paymentsDomain.EventPaymentFailed:
		err = u.handlePaymentFailed(ctx, event)
	case paymentsDomain.EventRefundCreated, paymentsDomain.EventRefundUpdated, paymentsDomain.EventChargeRefunded:
		err = u.handleRefund(ctx, event)
	default:
		u.logger.Warn("unhandled event type", slog.String("event_type", string(event.Type)))
		u.metrics.RecordEventProcessed(ctx, string(event.Type), "skipped")
		return nil
	}

	if err != nil {
		u.metrics.RecordEventProcessed(ctx, string(event.Type), "error")
		u.metrics.RecordProcessingDuration(ctx, string(event.Type), time.Since(start))
		return err
	}

	record := &paymentsDomain.ProcessedEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		PayloadHash: event.PayloadHash,
		OrderID:     u.resolvableOrderID(event),
	}
	if err := u.processedRepo.RecordProcessed(ctx, record); err != nil {
		// The handler already succeeded; a lost dedup record only means a
		// redelivery will re-run handlers that are idempotent anyway.
		u.logger.Warn("failed to record processed event",
			slog.String("event_id", event.ID),
			slog.Any("error", err),
		)
	}

	u.metrics.RecordEventProcessed(ctx, string(event.Type), "processed")
	u.metrics.RecordProcessingDuration(ctx, string(event.Type), time.Since(start))
	return nil
}

// resolvableOrderID returns the order uuid from the event metadata when it
// parses, nil otherwise.
func (u *WebhookUseCase) resolvableOrderID(event *paymentsDomain.Event) *uuid.UUID {
	raw := event.OrderID()
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
