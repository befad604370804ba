// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/grailpoint/storefront/internal/errors"
)

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// gatewayIDRegex matches gateway object identifiers such as pi_..., ch_...,
	// re_... and evt_...: a short lowercase prefix, an underscore, then an
	// alphanumeric body.
	gatewayIDRegex = regexp.MustCompile(`^[a-z]{2,5}_[a-zA-Z0-9]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email validates email format using regex
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// GatewayID validates payment-gateway object identifier format
var GatewayID = validation.NewStringRuleWithError(
	func(s string) bool {
		return gatewayIDRegex.MatchString(s)
	},
	validation.NewError("validation_gateway_id", "must be a valid gateway object id"),
)
