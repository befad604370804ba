// Package http provides HTTP handlers for the order status API.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grailpoint/storefront/internal/httputil"
	"github.com/grailpoint/storefront/internal/orders/http/dto"
	ordersUseCase "github.com/grailpoint/storefront/internal/orders/usecase"
)

// OrderHandler handles HTTP requests for the order status view.
type OrderHandler struct {
	orderUseCase ordersUseCase.OrderUseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler with required dependencies.
func NewOrderHandler(orderUseCase ordersUseCase.OrderUseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orderUseCase: orderUseCase, logger: logger}
}

// GetHandler returns the order summary with its event log.
// GET /v1/orders/:id
// Returns 200 OK with the order view, 404 when the order does not exist.
func (h *OrderHandler) GetHandler(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid order id: must be a uuid"),
			h.logger,
		)
		return
	}

	details, err := h.orderUseCase.Get(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderDetailsToResponse(details))
}
