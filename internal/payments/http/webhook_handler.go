// Package http provides the HTTP ingress for payment gateway webhooks.
// Deliveries are signature-checked before any parsing and acknowledged with
// 200 for every outcome that must not be redelivered.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	"github.com/grailpoint/storefront/internal/httputil"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
	paymentsService "github.com/grailpoint/storefront/internal/payments/service"
	paymentsUseCase "github.com/grailpoint/storefront/internal/payments/usecase"
)

// SignatureHeader carries the gateway's timestamped HMAC over the raw body.
const SignatureHeader = "Gateway-Signature"

// AckResponse is the body returned for every accepted delivery.
type AckResponse struct {
	Received bool `json:"received"`
}

// WebhookHandler handles payment gateway webhook deliveries.
type WebhookHandler struct {
	verifier       *paymentsService.SignatureVerifier
	webhookUseCase paymentsUseCase.UseCase
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with required dependencies.
func NewWebhookHandler(
	verifier *paymentsService.SignatureVerifier,
	webhookUseCase paymentsUseCase.UseCase,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:       verifier,
		webhookUseCase: webhookUseCase,
		logger:         logger,
	}
}

// ReceiveHandler ingests one gateway event.
// POST /v1/webhooks/payment
//
// Returns 400 when the signature does not verify, 502 when a succeeded event
// could not leave the order paid (so the gateway redelivers), and 200 with
// {"received": true} for everything else. Parse failures and unknown event
// types are acknowledged: redelivering them cannot make them parse.
func (h *WebhookHandler) ReceiveHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.verifier.Verify(c.GetHeader(SignatureHeader), body); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	event, err := paymentsDomain.ParseEvent(body)
	if err != nil {
		h.logger.Warn("discarding unparseable webhook delivery",
			slog.Any("error", err),
		)
		c.JSON(http.StatusOK, AckResponse{Received: true})
		return
	}

	if err := h.webhookUseCase.Process(c.Request.Context(), event); err != nil {
		if apperrors.Is(err, apperrors.ErrPaidTransitionFailed) {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		// Any other processing failure is acknowledged: the event was not
		// recorded as processed, and the handlers tolerate replays, so a
		// later delivery or manual replay can finish the work.
		h.logger.Error("webhook processing failed",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err),
		)
	}

	c.JSON(http.StatusOK, AckResponse{Received: true})
}
