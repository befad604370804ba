package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// handlePaymentSucceeded is the critical path: it must leave the order paid
// or surface ErrPaidTransitionFailed so the gateway redelivers. Everything
// after the confirmed transition is best-effort.
func (u *WebhookUseCase) handlePaymentSucceeded(ctx context.Context, event *paymentsDomain.Event) error {
	intent := event.PaymentIntent

	order, err := u.resolveOrderFromMetadata(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	// May be the first event carrying contact information for a guest order.
	u.resolveGuestContact(ctx, order, intent)

	items, err := u.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load order items")
	}

	// Primary transition: mark paid, record references and decrement stock
	// in one transaction, or none of it.
	var transitioned bool
	txErr := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		transitioned, err = u.orderRepo.MarkPaidAndDecrementStock(
			ctx, order.ID, intent.ID, intent.LatestCharge, items,
		)
		return err
	})
	if txErr != nil {
		u.logger.Warn("primary paid transition failed",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", txErr),
		)
	}

	primaryApplied := txErr == nil && transitioned

	// Fallback: a narrower conditional update that deliberately skips stock.
	// Stock adjustment failures must never block marking a paying customer's
	// order as paid.
	if !primaryApplied {
		moved, fbErr := u.orderRepo.ConditionalUpdateStatus(
			ctx, order.ID, ordersDomain.PaidSources(), ordersDomain.StatusPaid, &intent.ID,
		)
		if fbErr != nil {
			u.logger.Warn("fallback paid transition failed",
				slog.String("order_id", order.ID.String()),
				slog.Any("error", fbErr),
			)
		}
		if moved {
			u.logger.Warn("order marked paid via fallback, stock not decremented",
				slog.String("order_id", order.ID.String()),
				slog.String("payment_intent_id", intent.ID),
			)
			u.metrics.RecordFallback(ctx)
		}
	}

	// Re-read: the one place failure propagates. Money moved without a paid
	// order must trigger redelivery and alerting.
	order, err = u.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPaidTransitionFailed, err.Error())
	}
	if order.Status != ordersDomain.StatusPaid && !ordersDomain.IsRefundState(order.Status) {
		return apperrors.Wrap(
			apperrors.ErrPaidTransitionFailed,
			fmt.Sprintf("order %s is %s after both transition attempts", order.ID, order.Status),
		)
	}

	u.runEffects(ctx, order.ID, u.paidEffects(order, intent, items, primaryApplied))
	return nil
}

// paidEffects builds the ordered side-effect list for a confirmed paid order.
func (u *WebhookUseCase) paidEffects(
	order *ordersDomain.Order,
	intent *paymentsDomain.PaymentIntent,
	items []ordersDomain.OrderItem,
	primaryApplied bool,
) []Effect {
	productIDs := affectedProductIDs(items)

	path := "primary"
	if !primaryApplied {
		path = "fallback"
	}

	effects := []Effect{
		{
			Name:    "paid_log",
			Marker:  ordersDomain.OrderEventPaid,
			Message: fmt.Sprintf("payment %s settled via %s path", intent.ID, path),
		},
		{
			Name: "size_tag_sync",
			Run: func(ctx context.Context) error {
				return u.catalog.SyncSizeTags(ctx, productIDs)
			},
		},
		{
			Name: "sales_tax_ledger",
			Run: func(ctx context.Context) error {
				return u.tax.RecordSale(ctx, order, items)
			},
		},
	}

	if order.Fulfillment == ordersDomain.FulfillmentShip && intent.Shipping != nil {
		effects = append(effects, Effect{
			Name: "shipping_snapshot",
			Run: func(ctx context.Context) error {
				return u.captureShippingSnapshot(ctx, order.ID, intent.Shipping)
			},
		})
	}

	if order.Fulfillment == ordersDomain.FulfillmentPickup {
		effects = append(effects, Effect{
			Name: "pickup_thread",
			Run: func(ctx context.Context) error {
				return u.pickup.EnsureThread(ctx, order.ID, order.UserID)
			},
		})
	}

	if order.TaxCalculationID != nil && order.TaxTransactionID == nil {
		taxCalculationID := *order.TaxCalculationID
		tenantID := ""
		if order.TenantID != nil {
			tenantID = *order.TenantID
		}
		effects = append(effects, Effect{
			Name: "tax_transaction",
			Run: func(ctx context.Context) error {
				transactionID, err := u.gateway.CreateTaxTransaction(
					ctx, taxCalculationID, order.ID.String(), tenantID,
				)
				if err != nil {
					return err
				}
				return u.orderRepo.SetTaxTransactionID(ctx, order.ID, transactionID)
			},
		})
	}

	effects = append(effects,
		Effect{
			Name:    "staff_notification",
			Marker:  ordersDomain.OrderEventAdminOrderEmailSent,
			Message: "staff notified of new paid order",
			Run: func(ctx context.Context) error {
				return u.staff.NotifyNewOrder(ctx, order)
			},
		},
		Effect{
			Name:    "confirmation_email",
			Marker:  ordersDomain.OrderEventConfirmationEmailSent,
			Message: fmt.Sprintf("confirmation email sent to %s", order.ContactEmail()),
			Run: func(ctx context.Context) error {
				return u.mailer.SendOrderConfirmation(ctx, order, items)
			},
		},
	)

	if order.Fulfillment == ordersDomain.FulfillmentPickup {
		effects = append(effects, Effect{
			Name:    "pickup_instructions",
			Marker:  ordersDomain.OrderEventPickupInstructionsSent,
			Message: fmt.Sprintf("pickup instructions sent to %s", order.ContactEmail()),
			Run: func(ctx context.Context) error {
				return u.mailer.SendPickupInstructions(ctx, order)
			},
		})
	}

	effects = append(effects, Effect{
		Name: "cache_invalidation",
		Run: func(ctx context.Context) error {
			return u.cache.InvalidateProducts(ctx, productIDs)
		},
	})

	return effects
}

// captureShippingSnapshot persists the shipping address from the payment and
// queues the order for fulfillment. The insert is write-once so redeliveries
// cannot overwrite an existing snapshot.
func (u *WebhookUseCase) captureShippingSnapshot(
	ctx context.Context,
	orderID uuid.UUID,
	shipping *paymentsDomain.ShippingDetails,
) error {
	snapshot := &ordersDomain.ShippingSnapshot{
		OrderID: orderID,
		Name:    shipping.Name,
		Phone:   shipping.Phone,
	}
	if shipping.Address != nil {
		snapshot.Line1 = shipping.Address.Line1
		snapshot.Line2 = shipping.Address.Line2
		snapshot.City = shipping.Address.City
		snapshot.State = shipping.Address.State
		snapshot.PostalCode = shipping.Address.PostalCode
		snapshot.Country = shipping.Address.Country
	}

	if err := u.orderRepo.InsertShippingSnapshot(ctx, snapshot); err != nil {
		return err
	}
	return u.orderRepo.SetFulfillmentStatus(ctx, orderID, "unfulfilled")
}

// resolveOrderFromMetadata loads the order referenced by the event metadata.
// Missing, malformed or unknown references are logged no-ops (nil order, nil
// error): there is nothing meaningful for the gateway to retry. Storage
// errors propagate so the event is not recorded as processed.
func (u *WebhookUseCase) resolveOrderFromMetadata(
	ctx context.Context,
	event *paymentsDomain.Event,
) (*ordersDomain.Order, error) {
	raw := event.OrderID()
	if raw == "" {
		u.logger.Info("event carries no order reference",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
		)
		return nil, nil
	}

	orderID, err := uuid.Parse(raw)
	if err != nil {
		u.logger.Warn("event carries malformed order reference",
			slog.String("event_id", event.ID),
			slog.String("order_id", raw),
		)
		return nil, nil
	}

	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			u.logger.Info("order not found for event",
				slog.String("event_id", event.ID),
				slog.String("order_id", raw),
			)
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to load order")
	}

	return order, nil
}

// affectedProductIDs collects the distinct products whose variants appear on
// the order's line items.
func affectedProductIDs(items []ordersDomain.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(items))
	var ids []uuid.UUID
	for _, item := range items {
		if item.VariantID == nil || seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	return ids
}
