// Package integration provides end-to-end tests for the storefront payment
// core. Tests drive signed webhook deliveries through the full HTTP stack
// against a real PostgreSQL database and a stubbed payment gateway.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailpoint/storefront/internal/app"
	"github.com/grailpoint/storefront/internal/config"
	ordersDomain "github.com/grailpoint/storefront/internal/orders/domain"
	ordersDTO "github.com/grailpoint/storefront/internal/orders/http/dto"
	paymentsHTTP "github.com/grailpoint/storefront/internal/payments/http"
	paymentsService "github.com/grailpoint/storefront/internal/payments/service"
	"github.com/grailpoint/storefront/internal/testutil"
)

const integrationSigningSecret = "whsec_integration"

// gatewayStub fakes the outbound payment-gateway REST API. Refund listings
// are mutable so tests can change what the gateway reports between
// deliveries.
type gatewayStub struct {
	mu      sync.Mutex
	refunds []map[string]any
}

func (g *gatewayStub) setRefunds(refunds []map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = refunds
}

func (g *gatewayStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/refunds" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		g.mu.Lock()
		refunds := g.refunds
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":     refunds,
			"has_more": false,
		})
	})
}

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	gateway   *gatewayStub
	verifier  *paymentsService.SignatureVerifier
}

func setupIntegrationContext(t *testing.T) *integrationTestContext {
	t.Helper()

	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)

	stub := &gatewayStub{}
	gatewayServer := httptest.NewServer(stub.handler())

	cfg := &config.Config{
		ServerHost:                "127.0.0.1",
		ServerPort:                0,
		DBDriver:                  "postgres",
		DBConnectionString:        testutil.GetPostgresTestDSN(),
		DBMaxOpenConnections:      5,
		DBMaxIdleConnections:      5,
		DBConnMaxLifetime:         time.Minute,
		LogLevel:                  "error",
		WebhookSigningSecret:      integrationSigningSecret,
		WebhookSignatureTolerance: 5 * time.Minute,
		GatewayBaseURL:            gatewayServer.URL,
		GatewayAPIKey:             "sk_test",
		GatewayTimeout:            5 * time.Second,
		NotificationTimeout:       2 * time.Second,
		GuestEmailDomain:          "guests.example.com",
		SiteBaseURL:               "https://shop.example.com",
	}

	gin.SetMode(gin.TestMode)
	container := app.NewContainer(cfg)

	httpServer, err := container.HTTPServer()
	require.NoError(t, err, "failed to initialize HTTP server")

	server := httptest.NewServer(httpServer.GetHandler())

	t.Cleanup(func() {
		server.Close()
		gatewayServer.Close()
		_ = container.Shutdown(context.Background())
		testutil.TeardownDB(t, db)
	})

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    server,
		gateway:   stub,
		verifier: paymentsService.NewSignatureVerifier(
			integrationSigningSecret,
			cfg.WebhookSignatureTolerance,
		),
	}
}

// deliverWebhook posts a signed webhook body and returns the response status
// and decoded body.
func (ctx *integrationTestContext) deliverWebhook(t *testing.T, body string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(
		http.MethodPost,
		ctx.server.URL+"/v1/webhooks/payment",
		bytes.NewReader([]byte(body)),
	)
	require.NoError(t, err, "failed to create webhook request")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(paymentsHTTP.SignatureHeader, ctx.verifier.Sign([]byte(body), time.Now()))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to deliver webhook")
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read webhook response")
	return resp.StatusCode, respBody
}

// getOrder fetches the order view through the public endpoint.
func (ctx *integrationTestContext) getOrder(t *testing.T, orderID uuid.UUID) ordersDTO.GetOrderResponse {
	t.Helper()

	resp, err := http.Get(ctx.server.URL + "/v1/orders/" + orderID.String())
	require.NoError(t, err, "failed to get order")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var order ordersDTO.GetOrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	return order
}

func (ctx *integrationTestContext) variantStock(t *testing.T, variantID uuid.UUID) int {
	t.Helper()

	var stock int
	err := ctx.db.QueryRow(`SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&stock)
	require.NoError(t, err, "failed to read variant stock")
	return stock
}

func (ctx *integrationTestContext) countOrderEvents(t *testing.T, orderID uuid.UUID, eventType string) int {
	t.Helper()

	var count int
	err := ctx.db.QueryRow(
		`SELECT COUNT(*) FROM order_events WHERE order_id = $1 AND type = $2`,
		orderID, eventType,
	).Scan(&count)
	require.NoError(t, err, "failed to count order events")
	return count
}

func succeededEventBody(eventID string, orderID uuid.UUID) string {
	return fmt.Sprintf(`{
		"id": %q,
		"type": "payment.succeeded",
		"data": {
			"object": {
				"id": "pi_int1",
				"amount": 10800,
				"currency": "usd",
				"receipt_email": "buyer@example.com",
				"latest_charge": "ch_int1",
				"shipping": {
					"name": "Jordan Buyer",
					"address": {
						"line1": "1 Main St",
						"city": "Portland",
						"state": "OR",
						"postal_code": "97201",
						"country": "US"
					}
				},
				"metadata": {"order_id": %q}
			}
		}
	}`, eventID, orderID)
}

func TestIntegration_PaymentSucceededLifecycle(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationContext(t)

	testutil.CreateTestStaff(t, ctx.db, "postgres", "ops@example.com")
	productID, variantID := testutil.CreateTestVariant(t, ctx.db, "postgres", "US 10", 5)

	orderID := uuid.Must(uuid.NewV7())
	order := &ordersDomain.Order{
		ID:          orderID,
		Status:      ordersDomain.StatusPending,
		Fulfillment: ordersDomain.FulfillmentShip,
		Currency:    "usd",
		Subtotal:    10000,
		Tax:         800,
		Total:       10800,
	}
	testutil.CreateTestOrder(t, ctx.db, "postgres", order)
	testutil.CreateTestOrderItem(t, ctx.db, "postgres", orderID, productID, &variantID, 2, 5000)

	body := succeededEventBody("evt_int1", orderID)
	status, respBody := ctx.deliverWebhook(t, body)
	require.Equal(t, http.StatusOK, status, "unexpected webhook response: %s", respBody)
	assert.JSONEq(t, `{"received": true}`, string(respBody))

	view := ctx.getOrder(t, orderID)
	assert.Equal(t, "paid", view.Status)
	require.NotNil(t, view.FulfillmentStatus)
	assert.Equal(t, "unfulfilled", *view.FulfillmentStatus)
	require.NotNil(t, view.Shipping)
	require.NotNil(t, view.Shipping.Country)
	assert.Equal(t, "US", *view.Shipping.Country)

	// Stock decremented by the purchased quantity.
	assert.Equal(t, 3, ctx.variantStock(t, variantID))

	// Guest contact backfilled from the payment receipt email.
	var guestEmail sql.NullString
	require.NoError(t, ctx.db.QueryRow(
		`SELECT guest_email FROM orders WHERE id = $1`, orderID,
	).Scan(&guestEmail))
	require.True(t, guestEmail.Valid)
	assert.Equal(t, "buyer@example.com", guestEmail.String)

	// Delivery recorded for dedup.
	var seen bool
	require.NoError(t, ctx.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM gateway_events WHERE event_id = $1)`, "evt_int1",
	).Scan(&seen))
	assert.True(t, seen)

	assert.Equal(t, 1, ctx.countOrderEvents(t, orderID, "paid"))
	assert.Equal(t, 1, ctx.countOrderEvents(t, orderID, "confirmation_email_sent"))

	// Redelivering the exact same event is acknowledged without side effects.
	status, _ = ctx.deliverWebhook(t, body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, ctx.countOrderEvents(t, orderID, "paid"))
	assert.Equal(t, 3, ctx.variantStock(t, variantID))
}

func TestIntegration_RefundFlow(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationContext(t)

	paymentIntentID := "pi_int1"
	chargeID := "ch_int1"
	orderID := uuid.Must(uuid.NewV7())
	order := &ordersDomain.Order{
		ID:              orderID,
		Status:          ordersDomain.StatusPaid,
		Fulfillment:     ordersDomain.FulfillmentShip,
		Currency:        "usd",
		Subtotal:        10000,
		Tax:             800,
		Total:           10800,
		PaymentIntentID: &paymentIntentID,
		ChargeID:        &chargeID,
	}
	testutil.CreateTestOrder(t, ctx.db, "postgres", order)

	refundBody := func(eventID string, amount int64) string {
		return fmt.Sprintf(`{
			"id": %q,
			"type": "refund.updated",
			"data": {
				"object": {
					"id": "re_int1",
					"amount": %d,
					"status": "succeeded",
					"payment_intent": "pi_int1",
					"metadata": {"order_id": %q}
				}
			}
		}`, eventID, amount, orderID)
	}

	// Partial refund: gateway reports 3000 of 10800 refunded.
	ctx.gateway.setRefunds([]map[string]any{
		{"id": "re_int1", "amount": 3000, "status": "succeeded"},
	})
	status, _ := ctx.deliverWebhook(t, refundBody("evt_ref1", 3000))
	require.Equal(t, http.StatusOK, status)

	view := ctx.getOrder(t, orderID)
	assert.Equal(t, "partially_refunded", view.Status)
	assert.Equal(t, int64(3000), view.RefundCents)

	// Remainder refunded: cumulative amount now covers the full total.
	ctx.gateway.setRefunds([]map[string]any{
		{"id": "re_int1", "amount": 3000, "status": "succeeded"},
		{"id": "re_int2", "amount": 7800, "status": "succeeded"},
	})
	status, _ = ctx.deliverWebhook(t, refundBody("evt_ref2", 7800))
	require.Equal(t, http.StatusOK, status)

	view = ctx.getOrder(t, orderID)
	assert.Equal(t, "refunded", view.Status)
	assert.Equal(t, int64(10800), view.RefundCents)
	require.NotNil(t, view.RefundedAt)
}

func TestIntegration_FailedPayment(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationContext(t)

	orderID := uuid.Must(uuid.NewV7())
	order := &ordersDomain.Order{
		ID:          orderID,
		Status:      ordersDomain.StatusPending,
		Fulfillment: ordersDomain.FulfillmentShip,
		Currency:    "usd",
		Total:       10800,
	}
	testutil.CreateTestOrder(t, ctx.db, "postgres", order)

	body := fmt.Sprintf(`{
		"id": "evt_fail1",
		"type": "payment.failed",
		"data": {
			"object": {
				"id": "pi_int1",
				"amount": 10800,
				"currency": "usd",
				"last_payment_error": {"message": "card declined"},
				"metadata": {"order_id": %q}
			}
		}
	}`, orderID)

	status, _ := ctx.deliverWebhook(t, body)
	require.Equal(t, http.StatusOK, status)

	view := ctx.getOrder(t, orderID)
	assert.Equal(t, "failed", view.Status)

	require.Len(t, view.Events, 1)
	assert.Equal(t, "payment_failed", view.Events[0].Type)
	assert.Contains(t, view.Events[0].Message, "card declined")
}

func TestIntegration_RejectsBadSignature(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := setupIntegrationContext(t)

	req, err := http.NewRequest(
		http.MethodPost,
		ctx.server.URL+"/v1/webhooks/payment",
		bytes.NewReader([]byte(`{"id": "evt_x", "type": "payment.succeeded"}`)),
	)
	require.NoError(t, err)
	req.Header.Set(paymentsHTTP.SignatureHeader, "t=1,v1=deadbeef")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
