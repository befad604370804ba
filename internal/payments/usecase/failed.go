package usecase

import (
	"context"
	"log/slog"

	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// handlePaymentFailed moves a pending or processing order to failed and logs
// the gateway's failure message. It must never overwrite paid or any refund
// state, and it touches neither inventory nor notifications.
func (u *WebhookUseCase) handlePaymentFailed(ctx context.Context, event *paymentsDomain.Event) error {
	intent := event.PaymentIntent

	order, err := u.resolveOrderFromMetadata(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	if !ordersDomain.CanTransition(order.Status, ordersDomain.StatusFailed) {
		u.logger.Info("failed event ignored, order already moved",
			slog.String("order_id", order.ID.String()),
			slog.String("status", string(order.Status)),
		)
		return nil
	}

	moved, err := u.orderRepo.ConditionalUpdateStatus(
		ctx,
		order.ID,
		ordersDomain.FailureSources(),
		ordersDomain.StatusFailed,
		nil,
	)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	message := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
		message = intent.LastPaymentError.Message
	}

	entry := &ordersDomain.OrderEvent{
		OrderID: order.ID,
		Type:    ordersDomain.OrderEventPaymentFailed,
		Message: message,
	}
	if err := u.orderEventRepo.Append(ctx, entry); err != nil {
		// The transition already landed; a lost audit entry is logged only.
		u.logger.Warn("failed to append payment_failed event",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", err),
		)
	}

	return nil
}
