package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
)

// staffStore is the storage surface the notifier needs. Declared here so the
// service works with any repository driver.
type staffStore interface {
	ListNotifiableStaff(ctx context.Context) ([]string, error)
	InsertAdminNotification(ctx context.Context, kind string, order *ordersDomain.Order) error
}

// StaffNotifier fans one new-order alert out to every staff member who has
// order notifications enabled, then records an in-app admin notification.
type StaffNotifier struct {
	store   staffStore
	timeout time.Duration
	logger  *slog.Logger
}

// NewStaffNotifier creates a new staff notifier with required dependencies.
func NewStaffNotifier(store staffStore, timeout time.Duration, logger *slog.Logger) *StaffNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StaffNotifier{store: store, timeout: timeout, logger: logger}
}

// NotifyNewOrder alerts the back office about a paid order. Individual send
// failures do not stop the fan-out; the first error is reported after all
// sends finish so the caller can log it.
func (s *StaffNotifier) NotifyNewOrder(ctx context.Context, order *ordersDomain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	emails, err := s.store.ListNotifiableStaff(ctx)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, email := range emails {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			s.logger.Info("email queued",
				slog.String("template", "admin_new_order"),
				slog.String("recipient", email),
				slog.String("order_id", order.ID.String()),
				slog.Int64("total_cents", order.Total),
			)
			return nil
		})
	}
	sendErr := group.Wait()

	if err := s.store.InsertAdminNotification(ctx, "new_order", order); err != nil {
		s.logger.Warn("failed to record admin notification",
			slog.String("order_id", order.ID.String()),
			slog.Any("error", err),
		)
	}

	return sendErr
}
