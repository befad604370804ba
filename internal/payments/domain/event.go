// Package domain defines the inbound payment-gateway event model.
// Gateway payloads are loosely shaped on the wire; they are parsed into a
// tagged union per event category and validated at the boundary so handlers
// never deal with optional chaining into unknown maps.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	validation "github.com/jellydator/validation"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	customValidation "github.com/grailpoint/storefront/internal/validation"
)

// EventType identifies the inbound gateway event category.
type EventType string

const (
	EventPaymentSucceeded  EventType = "payment.succeeded"
	EventPaymentProcessing EventType = "payment.processing"
	EventPaymentFailed     EventType = "payment.failed"
	EventRefundCreated     EventType = "refund.created"
	EventRefundUpdated     EventType = "refund.updated"
	EventChargeRefunded    EventType = "charge.refunded"
)

// Known reports whether the event type is one this service processes.
func (t EventType) Known() bool {
	switch t {
	case EventPaymentSucceeded, EventPaymentProcessing, EventPaymentFailed,
		EventRefundCreated, EventRefundUpdated, EventChargeRefunded:
		return true
	}
	return false
}

// IsRefund reports whether the event belongs to the refund lifecycle.
func (t EventType) IsRefund() bool {
	switch t {
	case EventRefundCreated, EventRefundUpdated, EventChargeRefunded:
		return true
	}
	return false
}

// Envelope is the outer wire shape of every gateway event.
type Envelope struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Validate checks the envelope shape before the payload is interpreted.
func (e *Envelope) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.ID, validation.Required, customValidation.GatewayID),
		validation.Field(&e.Type, validation.Required),
	)
}

// Metadata carries the application references attached to gateway objects at
// checkout time. OrderID may be absent for events this service did not
// originate; handlers treat that as nothing-to-do.
type Metadata struct {
	OrderID          string `json:"order_id"`
	TenantID         string `json:"tenant_id"`
	TaxCalculationID string `json:"tax_calculation_id"`
}

// Address is a postal address as the gateway reports it.
type Address struct {
	Line1      *string `json:"line1"`
	Line2      *string `json:"line2"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

// BillingDetails is the billing contact attached to a charge or payment method.
type BillingDetails struct {
	Name    *string  `json:"name"`
	Email   *string  `json:"email"`
	Phone   *string  `json:"phone"`
	Address *Address `json:"address"`
}

// ShippingDetails is the shipping contact captured with the payment.
type ShippingDetails struct {
	Name    *string  `json:"name"`
	Phone   *string  `json:"phone"`
	Address *Address `json:"address"`
}

// PaymentError is the gateway's description of a failed payment attempt.
type PaymentError struct {
	Message string `json:"message"`
}

// PaymentIntent is the payload object of payment.* events.
type PaymentIntent struct {
	ID               string           `json:"id"`
	Amount           int64            `json:"amount"`
	Currency         string           `json:"currency"`
	ReceiptEmail     *string          `json:"receipt_email"`
	LatestCharge     *string          `json:"latest_charge"`
	PaymentMethod    *string          `json:"payment_method"`
	Shipping         *ShippingDetails `json:"shipping"`
	LastPaymentError *PaymentError    `json:"last_payment_error"`
	Metadata         Metadata         `json:"metadata"`
}

// Validate checks required payment-intent fields.
func (p *PaymentIntent) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required, customValidation.GatewayID),
		validation.Field(&p.Amount, validation.Min(int64(0))),
	)
}

// RefundStatus is the lifecycle state of a single gateway refund.
type RefundStatus string

const (
	RefundSucceeded RefundStatus = "succeeded"
	RefundPending   RefundStatus = "pending"
	RefundFailed    RefundStatus = "failed"
)

// Refund is the payload object of refund.created / refund.updated events and
// the element shape returned by the gateway refund listing.
type Refund struct {
	ID              string       `json:"id"`
	Amount          int64        `json:"amount"`
	Status          RefundStatus `json:"status"`
	ChargeID        *string      `json:"charge"`
	PaymentIntentID *string      `json:"payment_intent"`
	Metadata        Metadata     `json:"metadata"`
}

// Validate checks required refund fields.
func (r *Refund) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required, customValidation.GatewayID),
		validation.Field(&r.Amount, validation.Min(int64(0))),
	)
}

// Charge is the payload object of charge.refunded events.
type Charge struct {
	ID              string          `json:"id"`
	PaymentIntentID *string         `json:"payment_intent"`
	Amount          int64           `json:"amount"`
	AmountRefunded  int64           `json:"amount_refunded"`
	BillingDetails  *BillingDetails `json:"billing_details"`
	Metadata        Metadata        `json:"metadata"`
}

// Validate checks required charge fields.
func (c *Charge) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required, customValidation.GatewayID),
	)
}

// PaymentMethod is the gateway payment-method object, fetched when resolving
// a guest contact email.
type PaymentMethod struct {
	ID             string          `json:"id"`
	BillingDetails *BillingDetails `json:"billing_details"`
}

// Event is the parsed, validated form of one gateway delivery. Exactly one
// of the payload pointers is set, matching Type.
type Event struct {
	ID          string
	Type        EventType
	PayloadHash string

	PaymentIntent *PaymentIntent
	Refund        *Refund
	Charge        *Charge
}

// ParseEvent parses a raw webhook body into a typed event. Unknown event
// types and malformed payloads are rejected with ErrInvalidInput.
func ParseEvent(body []byte) (*Event, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed event envelope")
	}
	if err := envelope.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	if !envelope.Type.Known() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unknown event type "+string(envelope.Type))
	}

	event := &Event{
		ID:          envelope.ID,
		Type:        envelope.Type,
		PayloadHash: HashPayload(body),
	}

	switch envelope.Type {
	case EventPaymentSucceeded, EventPaymentProcessing, EventPaymentFailed:
		var intent PaymentIntent
		if err := json.Unmarshal(envelope.Data.Object, &intent); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed payment intent payload")
		}
		if err := intent.Validate(); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		event.PaymentIntent = &intent

	case EventRefundCreated, EventRefundUpdated:
		var refund Refund
		if err := json.Unmarshal(envelope.Data.Object, &refund); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed refund payload")
		}
		if err := refund.Validate(); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		event.Refund = &refund

	case EventChargeRefunded:
		var charge Charge
		if err := json.Unmarshal(envelope.Data.Object, &charge); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed charge payload")
		}
		if err := charge.Validate(); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		event.Charge = &charge
	}

	return event, nil
}

// OrderID returns the order reference embedded in the payload metadata, or
// empty string when the event carries none.
func (e *Event) OrderID() string {
	switch {
	case e.PaymentIntent != nil:
		return e.PaymentIntent.Metadata.OrderID
	case e.Refund != nil:
		return e.Refund.Metadata.OrderID
	case e.Charge != nil:
		return e.Charge.Metadata.OrderID
	}
	return ""
}

// PaymentReferences returns the charge and payment-intent references carried
// by the event, either of which may be empty. Used to resolve orders for
// refund events.
func (e *Event) PaymentReferences() (chargeID, paymentIntentID string) {
	switch {
	case e.PaymentIntent != nil:
		if e.PaymentIntent.LatestCharge != nil {
			chargeID = *e.PaymentIntent.LatestCharge
		}
		paymentIntentID = e.PaymentIntent.ID
	case e.Refund != nil:
		if e.Refund.ChargeID != nil {
			chargeID = *e.Refund.ChargeID
		}
		if e.Refund.PaymentIntentID != nil {
			paymentIntentID = *e.Refund.PaymentIntentID
		}
	case e.Charge != nil:
		chargeID = e.Charge.ID
		if e.Charge.PaymentIntentID != nil {
			paymentIntentID = *e.Charge.PaymentIntentID
		}
	}
	return chargeID, paymentIntentID
}

// HashPayload returns the hex SHA-256 digest of a raw event body, stored with
// the processed-event record for audit purposes.
func HashPayload(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
