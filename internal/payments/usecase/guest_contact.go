package usecase

import (
	"context"
	"fmt"
	"log/slog"

	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// resolveGuestContact backfills a contact email for guest orders that have
// none yet. Candidates in order: payment receipt email, charge billing
// email, payment-method billing email, then a deterministic placeholder
// scoped to the order id. Best-effort and at most once per order; failure
// here must never abort payment marking.
func (u *WebhookUseCase) resolveGuestContact(
	ctx context.Context,
	order *ordersDomain.Order,
	intent *paymentsDomain.PaymentIntent,
) {
	if !order.IsGuest() || order.GuestEmail != nil {
		return
	}

	email := u.lookupGuestEmail(ctx, intent)
	if email == "" {
		email = fmt.Sprintf("orders+%s@%s", order.ID, u.config.GuestEmailDomain)
	}

	if err := u.orderRepo.UpdateGuestEmail(ctx, order.ID, email); err != nil {
		u.logger.Warn("failed to backfill guest email",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", err),
		)
		return
	}
	order.GuestEmail = &email
}

func (u *WebhookUseCase) lookupGuestEmail(
	ctx context.Context,
	intent *paymentsDomain.PaymentIntent,
) string {
	if intent.ReceiptEmail != nil && *intent.ReceiptEmail != "" {
		return *intent.ReceiptEmail
	}

	lookupCtx, cancel := context.WithTimeout(ctx, u.config.EffectTimeout)
	defer cancel()

	if intent.LatestCharge != nil {
		charge, err := u.gateway.GetCharge(lookupCtx, *intent.LatestCharge)
		if err != nil {
			u.logger.Warn("failed to fetch charge for guest email",
				slog.String("charge_id", *intent.LatestCharge),
				slog.Any("error", err),
			)
		} else if email := billingEmail(charge.BillingDetails); email != "" {
			return email
		}
	}

	if intent.PaymentMethod != nil {
		method, err := u.gateway.GetPaymentMethod(lookupCtx, *intent.PaymentMethod)
		if err != nil {
			u.logger.Warn("failed to fetch payment method for guest email",
				slog.String("payment_method_id", *intent.PaymentMethod),
				slog.Any("error", err),
			)
		} else if email := billingEmail(method.BillingDetails); email != "" {
			return email
		}
	}

	return ""
}

func billingEmail(details *paymentsDomain.BillingDetails) string {
	if details == nil || details.Email == nil {
		return ""
	}
	return *details.Email
}
