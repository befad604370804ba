// Package service implements the outbound notification collaborators. Email
// delivery goes through the provider worker that tails the log stream, so the
// mailer here renders and emits structured send records rather than speaking
// SMTP directly.
package service

import (
	"context"
	"fmt"
	"log/slog"

	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
)

// Mailer emits customer-facing order emails.
type Mailer struct {
	siteBaseURL string
	logger      *slog.Logger
}

// NewMailer creates a new mailer with required dependencies.
func NewMailer(siteBaseURL string, logger *slog.Logger) *Mailer {
	return &Mailer{siteBaseURL: siteBaseURL, logger: logger}
}

// SendOrderConfirmation sends the order confirmation with line items and the
// order-status link.
func (m *Mailer) SendOrderConfirmation(
	ctx context.Context,
	order *ordersDomain.Order,
	items []ordersDomain.OrderItem,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recipient := order.ContactEmail()
	if recipient == "" {
		return fmt.Errorf("order %s has no contact email", order.ID)
	}

	m.logger.Info("email queued",
		slog.String("template", "order_confirmation"),
		slog.String("recipient", recipient),
		slog.String("order_id", order.ID.String()),
		slog.Int("item_count", len(items)),
		slog.Int64("total_cents", order.Total),
		slog.String("status_url", m.orderStatusURL(order)),
	)
	return nil
}

// SendPickupInstructions sends the pickup instructions for a pickup order.
func (m *Mailer) SendPickupInstructions(ctx context.Context, order *ordersDomain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recipient := order.ContactEmail()
	if recipient == "" {
		return fmt.Errorf("order %s has no contact email", order.ID)
	}

	m.logger.Info("email queued",
		slog.String("template", "pickup_instructions"),
		slog.String("recipient", recipient),
		slog.String("order_id", order.ID.String()),
		slog.String("status_url", m.orderStatusURL(order)),
	)
	return nil
}

func (m *Mailer) orderStatusURL(order *ordersDomain.Order) string {
	return fmt.Sprintf("%s/orders/%s", m.siteBaseURL, order.ID)
}
