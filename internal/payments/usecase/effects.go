package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
)

// Effect is one post-transition side effect. When Marker is set the
// dispatcher checks the order event log before running and appends the
// marker after a successful run, making the effect at-most-once per order
// across redeliveries. Effects without a marker must be safe to repeat.
type Effect struct {
	Name    string
	Marker  ordersDomain.OrderEventType
	Message string
	Run     func(ctx context.Context) error
}

// runEffects executes the effect list in order. Every failure is logged and
// swallowed: the order is already in its final state and the worst
// acceptable outcome is a missing notification, never an unmarked payment.
func (u *WebhookUseCase) runEffects(ctx context.Context, orderID uuid.UUID, effects []Effect) {
	for _, effect := range effects {
		u.runEffect(ctx, orderID, effect)
	}
}

func (u *WebhookUseCase) runEffect(ctx context.Context, orderID uuid.UUID, effect Effect) {
	if effect.Marker != "" {
		done, err := u.orderEventRepo.HasEvent(ctx, orderID, effect.Marker)
		if err != nil {
			u.logger.Warn("side effect guard check failed",
				slog.String("effect", effect.Name),
				slog.String("order_id", orderID.String()),
				slog.Any("error", err),
			)
			u.metrics.RecordSideEffect(ctx, effect.Name, "error")
			return
		}
		if done {
			u.metrics.RecordSideEffect(ctx, effect.Name, "skipped")
			return
		}
	}

	if effect.Run != nil {
		effectCtx, cancel := context.WithTimeout(ctx, u.config.EffectTimeout)
		err := effect.Run(effectCtx)
		cancel()
		if err != nil {
			u.logger.Warn("side effect failed",
				slog.String("effect", effect.Name),
				slog.String("order_id", orderID.String()),
				slog.Any("error", err),
			)
			u.metrics.RecordSideEffect(ctx, effect.Name, "error")
			return
		}
	}

	if effect.Marker != "" {
		entry := &ordersDomain.OrderEvent{
			OrderID: orderID,
			Type:    effect.Marker,
			Message: effect.Message,
		}
		if err := u.orderEventRepo.Append(ctx, entry); err != nil {
			// The effect ran but the marker was lost; a redelivery may
			// repeat it. Logged so operators can spot the gap.
			u.logger.Warn("failed to append side effect marker",
				slog.String("effect", effect.Name),
				slog.String("order_id", orderID.String()),
				slog.Any("error", err),
			)
			u.metrics.RecordSideEffect(ctx, effect.Name, "error")
			return
		}
	}

	u.metrics.RecordSideEffect(ctx, effect.Name, "success")
}
