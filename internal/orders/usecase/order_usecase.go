// Package usecase implements read operations for the storefront order-status
// page. All writes to orders happen through the payment event pipeline.
package usecase

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	"github.com/grailpoint/storefront/internal/orders/domain"
)

// OrderReader provides the order rows needed to assemble a status view.
type OrderReader interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	GetShippingSnapshot(ctx context.Context, orderID uuid.UUID) (*domain.ShippingSnapshot, error)
}

// OrderEventReader lists the append-only event log for an order.
type OrderEventReader interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error)
}

// OrderDetails is the assembled order-status view.
type OrderDetails struct {
	Order    *domain.Order
	Items    []domain.OrderItem
	Events   []*domain.OrderEvent
	Shipping *domain.ShippingSnapshot
}

// OrderUseCase defines read operations over orders.
type OrderUseCase interface {
	// Get returns the order with its items, event log and shipping snapshot.
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDetails, error)
}

type orderUseCase struct {
	orderRepo      OrderReader
	orderEventRepo OrderEventReader
}

// NewOrderUseCase creates a new order read use case.
func NewOrderUseCase(orderRepo OrderReader, orderEventRepo OrderEventReader) OrderUseCase {
	return &orderUseCase{orderRepo: orderRepo, orderEventRepo: orderEventRepo}
}

func (u *orderUseCase) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetails, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := u.orderRepo.GetItems(ctx, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load order items")
	}

	events, err := u.orderEventRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load order events")
	}

	// Ship orders only have a snapshot after the paid transition captured one.
	snapshot, err := u.orderRepo.GetShippingSnapshot(ctx, orderID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Wrap(err, "failed to load shipping snapshot")
	}

	return &OrderDetails{
		Order:    order,
		Items:    items,
		Events:   events,
		Shipping: snapshot,
	}, nil
}
