package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WebhookMetrics defines the interface for recording webhook pipeline metrics.
// Implementations track event volume, processing outcomes and durations, side
// effect outcomes and fallback activations.
type WebhookMetrics interface {
	// RecordEventReceived counts an inbound gateway event by type.
	RecordEventReceived(ctx context.Context, eventType string)

	// RecordEventProcessed counts a completed event by type and outcome.
	// Status examples: "processed", "duplicate", "skipped", "error".
	RecordEventProcessed(ctx context.Context, eventType, status string)

	// RecordProcessingDuration records how long one event took end to end.
	RecordProcessingDuration(ctx context.Context, eventType string, duration time.Duration)

	// RecordSideEffect counts a dispatched side effect by name and outcome.
	// Status examples: "success", "skipped", "error".
	RecordSideEffect(ctx context.Context, effect, status string)

	// RecordFallback counts an activation of the fallback paid transition.
	// A rising rate means the primary transactional path is degrading.
	RecordFallback(ctx context.Context)
}

// webhookMetrics implements WebhookMetrics using OpenTelemetry metrics.
type webhookMetrics struct {
	eventCounter      metric.Int64Counter
	processedCounter  metric.Int64Counter
	durationHisto     metric.Float64Histogram
	sideEffectCounter metric.Int64Counter
	fallbackCounter   metric.Int64Counter
}

// NewWebhookMetrics creates a new WebhookMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "storefront").
// Returns error if meters cannot be initialized.
func NewWebhookMetrics(meterProvider metric.MeterProvider, namespace string) (WebhookMetrics, error) {
	meter := meterProvider.Meter(namespace)

	eventCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_webhook_events_received_total", namespace),
		metric.WithDescription("Total number of gateway events received"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}

	processedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_webhook_events_processed_total", namespace),
		metric.WithDescription("Total number of gateway events processed by outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_webhook_processing_duration_seconds", namespace),
		metric.WithDescription("Duration of gateway event processing in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	sideEffectCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_webhook_side_effects_total", namespace),
		metric.WithDescription("Total number of dispatched side effects by outcome"),
		metric.WithUnit("{effect}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create side effect counter: %w", err)
	}

	fallbackCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_webhook_paid_fallback_total", namespace),
		metric.WithDescription("Total number of fallback paid transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	return &webhookMetrics{
		eventCounter:      eventCounter,
		processedCounter:  processedCounter,
		durationHisto:     durationHisto,
		sideEffectCounter: sideEffectCounter,
		fallbackCounter:   fallbackCounter,
	}, nil
}

// RecordEventReceived increments the received counter with the event type label.
func (w *webhookMetrics) RecordEventReceived(ctx context.Context, eventType string) {
	w.eventCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event_type", eventType)),
	)
}

// RecordEventProcessed increments the processed counter with event type and status labels.
func (w *webhookMetrics) RecordEventProcessed(ctx context.Context, eventType, status string) {
	w.processedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event_type", eventType),
			attribute.String("status", status),
		),
	)
}

// RecordProcessingDuration records the event processing duration in seconds.
func (w *webhookMetrics) RecordProcessingDuration(
	ctx context.Context,
	eventType string,
	duration time.Duration,
) {
	w.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("event_type", eventType)),
	)
}

// RecordSideEffect increments the side effect counter with effect and status labels.
func (w *webhookMetrics) RecordSideEffect(ctx context.Context, effect, status string) {
	w.sideEffectCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("effect", effect),
			attribute.String("status", status),
		),
	)
}

// RecordFallback increments the fallback transition counter.
func (w *webhookMetrics) RecordFallback(ctx context.Context) {
	w.fallbackCounter.Add(ctx, 1)
}

// NoOpWebhookMetrics is a no-op implementation of WebhookMetrics for when metrics are disabled.
type NoOpWebhookMetrics struct{}

// NewNoOpWebhookMetrics creates a no-op WebhookMetrics implementation.
func NewNoOpWebhookMetrics() WebhookMetrics {
	return &NoOpWebhookMetrics{}
}

// RecordEventReceived does nothing when metrics are disabled.
func (n *NoOpWebhookMetrics) RecordEventReceived(ctx context.Context, eventType string) {
	// No-op
}

// RecordEventProcessed does nothing when metrics are disabled.
func (n *NoOpWebhookMetrics) RecordEventProcessed(ctx context.Context, eventType, status string) {
	// No-op
}

// RecordProcessingDuration does nothing when metrics are disabled.
func (n *NoOpWebhookMetrics) RecordProcessingDuration(
	ctx context.Context,
	eventType string,
	duration time.Duration,
) {
	// No-op
}

// RecordSideEffect does nothing when metrics are disabled.
func (n *NoOpWebhookMetrics) RecordSideEffect(ctx context.Context, effect, status string) {
	// No-op
}

// RecordFallback does nothing when metrics are disabled.
func (n *NoOpWebhookMetrics) RecordFallback(ctx context.Context) {
	// No-op
}
