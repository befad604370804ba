// Package gateway implements the outbound payment-gateway REST client used
// by the webhook pipeline for refund listings, charge lookups and tax
// transaction commits.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	paymentsDomain "github.com/grailpoint/storefront/internal/payments/domain"
)

// TenantHeader selects the connected sub-account for a gateway call.
const TenantHeader = "Gateway-Account"

// Client is a thin HTTP client for the payment gateway's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new gateway client. The timeout bounds every call in
// addition to the caller's context deadline.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// listResponse is the gateway's paginated collection envelope.
type listResponse struct {
	Data    []paymentsDomain.Refund `json:"data"`
	HasMore bool                    `json:"has_more"`
}

// ListRefunds returns every refund attached to a payment intent.
func (c *Client) ListRefunds(ctx context.Context, paymentIntentID string) ([]paymentsDomain.Refund, error) {
	query := url.Values{}
	query.Set("payment_intent", paymentIntentID)
	query.Set("limit", "100")

	body, err := c.do(ctx, http.MethodGet, "/refunds?"+query.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode refund list")
	}
	return list.Data, nil
}

// GetCharge retrieves one charge by id.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*paymentsDomain.Charge, error) {
	body, err := c.do(ctx, http.MethodGet, "/charges/"+url.PathEscape(chargeID), nil, "")
	if err != nil {
		return nil, err
	}

	var charge paymentsDomain.Charge
	if err := json.Unmarshal(body, &charge); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode charge")
	}
	return &charge, nil
}

// GetPaymentMethod retrieves one payment method by id.
func (c *Client) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*paymentsDomain.PaymentMethod, error) {
	body, err := c.do(ctx, http.MethodGet, "/payment_methods/"+url.PathEscape(paymentMethodID), nil, "")
	if err != nil {
		return nil, err
	}

	var method paymentsDomain.PaymentMethod
	if err := json.Unmarshal(body, &method); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode payment method")
	}
	return &method, nil
}

// CreateTaxTransaction commits the tax transaction for a checkout tax
// calculation on the given connected account and returns its reference.
func (c *Client) CreateTaxTransaction(
	ctx context.Context,
	taxCalculationID, reference, tenantID string,
) (string, error) {
	form := url.Values{}
	form.Set("calculation", taxCalculationID)
	form.Set("reference", reference)

	body, err := c.do(
		ctx,
		http.MethodPost,
		"/tax/transactions/create_from_calculation",
		strings.NewReader(form.Encode()),
		tenantID,
	)
	if err != nil {
		return "", err
	}

	var transaction struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &transaction); err != nil {
		return "", apperrors.Wrap(err, "failed to decode tax transaction")
	}
	if transaction.ID == "" {
		return "", apperrors.New("gateway returned tax transaction without id")
	}
	return transaction.ID, nil
}

// do performs one authenticated request and returns the response body.
// Non-2xx responses become errors carrying the gateway's status code.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	payload io.Reader,
	tenantID string,
) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build gateway request")
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if tenantID != "" {
		req.Header.Set(TenantHeader, tenantID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "gateway request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.New(
			fmt.Sprintf("gateway returned status %d for %s %s", resp.StatusCode, method, path),
		)
	}

	return body, nil
}
