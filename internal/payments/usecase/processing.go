package usecase

import (
	"context"
	"log/slog"

	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// handlePaymentProcessing covers asynchronous payment methods that authorize
// before settling: pending moves to processing, nothing else. An order
// already past pending is left alone.
func (u *WebhookUseCase) handlePaymentProcessing(ctx context.Context, event *paymentsDomain.Event) error {
	intent := event.PaymentIntent

	order, err := u.resolveOrderFromMetadata(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	// This may be the first event carrying contact information.
	u.resolveGuestContact(ctx, order, intent)

	if !ordersDomain.CanTransition(order.Status, ordersDomain.StatusProcessing) {
		u.logger.Info("processing event ignored, order already moved",
			slog.String("order_id", order.ID.String()),
			slog.String("status", string(order.Status)),
		)
		return nil
	}

	moved, err := u.orderRepo.ConditionalUpdateStatus(
		ctx,
		order.ID,
		[]ordersDomain.OrderStatus{ordersDomain.StatusPending},
		ordersDomain.StatusProcessing,
		&intent.ID,
	)
	if err != nil {
		return err
	}
	if !moved {
		// A concurrent writer already moved the order; that is success.
		u.logger.Info("processing transition lost the race",
			slog.String("order_id", order.ID.String()),
		)
	}

	return nil
}
