package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// handleRefund recomputes the order's refund picture from the gateway's full
// refund listing rather than trusting the single event, which makes the
// handler idempotent and immune to reordered partial refunds. Only when the
// listing fails does it degrade to the current event's amount.
func (u *WebhookUseCase) handleRefund(ctx context.Context, event *paymentsDomain.Event) error {
	order, err := u.resolveOrderForRefund(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	succeededCents, pendingCents, degraded := u.refundTotals(ctx, event, order)
	if degraded {
		u.logger.Warn("refund recomputation degraded to single-event amounts",
			slog.String("order_id", order.ID.String()),
			slog.String("event_id", event.ID),
		)
	}

	newStatus := deriveRefundStatus(order, event, succeededCents, pendingCents)
	if newStatus != "" && ordersDomain.CanTransition(order.Status, newStatus) {
		moved, err := u.orderRepo.ConditionalUpdateStatus(
			ctx,
			order.ID,
			[]ordersDomain.OrderStatus{order.Status},
			newStatus,
			nil,
		)
		if err != nil {
			return err
		}
		if !moved {
			u.logger.Info("refund status transition lost the race",
				slog.String("order_id", order.ID.String()),
				slog.String("to", string(newStatus)),
			)
		}
	}

	total := succeededCents + pendingCents
	var refundedAt *time.Time
	if total > 0 {
		now := time.Now().UTC()
		refundedAt = &now
	}
	if err := u.orderRepo.UpdateRefundSummary(ctx, order.ID, total, refundedAt); err != nil {
		return apperrors.Wrap(err, "failed to persist refund summary")
	}

	return nil
}

// resolveOrderForRefund resolves the order from metadata when present, then
// by the event's charge or payment-intent reference. Refund events created
// from the gateway dashboard carry no metadata.
func (u *WebhookUseCase) resolveOrderForRefund(
	ctx context.Context,
	event *paymentsDomain.Event,
) (*ordersDomain.Order, error) {
	if raw := event.OrderID(); raw != "" {
		if orderID, err := uuid.Parse(raw); err == nil {
			order, err := u.orderRepo.GetByID(ctx, orderID)
			if err == nil {
				return order, nil
			}
			if !apperrors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Wrap(err, "failed to load order")
			}
		}
	}

	chargeID, paymentIntentID := event.PaymentReferences()
	if chargeID == "" && paymentIntentID == "" {
		u.logger.Info("refund event carries no resolvable reference",
			slog.String("event_id", event.ID),
		)
		return nil, nil
	}

	order, err := u.orderRepo.GetByPaymentReference(ctx, chargeID, paymentIntentID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			u.logger.Info("no order matches refund event references",
				slog.String("event_id", event.ID),
				slog.String("charge_id", chargeID),
				slog.String("payment_intent_id", paymentIntentID),
			)
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to resolve order by payment reference")
	}

	return order, nil
}

// refundTotals returns succeeded and pending refund sums in cents. Primary
// source is the gateway's full listing; on listing failure it approximates
// from the event itself and reports degraded=true.
func (u *WebhookUseCase) refundTotals(
	ctx context.Context,
	event *paymentsDomain.Event,
	order *ordersDomain.Order,
) (succeededCents, pendingCents int64, degraded bool) {
	paymentIntentID := ""
	if _, pi := event.PaymentReferences(); pi != "" {
		paymentIntentID = pi
	} else if order.PaymentIntentID != nil {
		paymentIntentID = *order.PaymentIntentID
	}

	if paymentIntentID != "" {
		listCtx, cancel := context.WithTimeout(ctx, u.config.EffectTimeout)
		refunds, err := u.gateway.ListRefunds(listCtx, paymentIntentID)
		cancel()
		if err == nil {
			for _, refund := range refunds {
				switch refund.Status {
				case paymentsDomain.RefundSucceeded:
					succeededCents += refund.Amount
				case paymentsDomain.RefundPending:
					pendingCents += refund.Amount
				}
			}
			return succeededCents, pendingCents, false
		}
		u.logger.Warn("failed to list refunds from gateway",
			slog.String("payment_intent_id", paymentIntentID),
			slog.Any("error", err),
		)
	}

	// Degraded path: only the current event's own amounts.
	switch {
	case event.Refund != nil:
		switch event.Refund.Status {
		case paymentsDomain.RefundSucceeded:
			succeededCents = event.Refund.Amount
		case paymentsDomain.RefundPending:
			pendingCents = event.Refund.Amount
		}
	case event.Charge != nil:
		succeededCents = event.Charge.AmountRefunded
	}
	return succeededCents, pendingCents, true
}

// deriveRefundStatus maps the refund sums onto the order state machine.
// Empty string means no status change.
func deriveRefundStatus(
	order *ordersDomain.Order,
	event *paymentsDomain.Event,
	succeededCents, pendingCents int64,
) ordersDomain.OrderStatus {
	switch {
	case pendingCents > 0:
		return ordersDomain.StatusRefundPending
	case succeededCents >= order.Total && succeededCents > 0:
		return ordersDomain.StatusRefunded
	case succeededCents > 0:
		return ordersDomain.StatusPartiallyRefunded
	case event.Refund != nil && event.Refund.Status == paymentsDomain.RefundFailed:
		return ordersDomain.StatusRefundFailed
	}
	return ""
}
