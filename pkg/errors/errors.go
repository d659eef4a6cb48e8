package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies acquirer failures for logging and metrics
type ErrorCategory string

const (
	CategoryDeclined       ErrorCategory = "declined"
	CategoryNetworkError   ErrorCategory = "network_error"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryUnavailable    ErrorCategory = "unavailable"
	CategorySystemError    ErrorCategory = "system_error"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
	CategoryBadResponse    ErrorCategory = "bad_response"
)

// PaymentError is an acquirer-side failure with enough context to decide
// how it is reported. Nothing in this service retries on IsRetriable; it is
// recorded for operators.
type PaymentError struct {
	Code           string
	Message        string
	GatewayMessage string
	Acquirer       string
	RawResponse    string // bank body as received, kept for audit
	IsRetriable    bool
	Category       ErrorCategory
	Err            error
}

func (e *PaymentError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Acquirer != "" {
		msg = e.Acquirer + " " + msg
	}
	if e.GatewayMessage != "" {
		msg += fmt.Sprintf(" (gateway: %s)", e.GatewayMessage)
	}
	return msg
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, category ErrorCategory, retriable bool) *PaymentError {
	return &PaymentError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
	}
}

// WithAcquirer tags the error with the bank that produced it
func (e *PaymentError) WithAcquirer(name string) *PaymentError {
	e.Acquirer = name
	return e
}

// WithRawResponse keeps the bank's answer body
func (e *PaymentError) WithRawResponse(body []byte) *PaymentError {
	e.RawResponse = string(body)
	return e
}

// RawResponseOf returns the bank body carried by a PaymentError in err's
// chain, or "".
func RawResponseOf(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.RawResponse
	}
	return ""
}

// WithCause attaches the underlying error
func (e *PaymentError) WithCause(err error) *PaymentError {
	e.Err = err
	return e
}

// CategoryOf returns the category of a PaymentError anywhere in err's chain,
// or CategorySystemError.
func CategoryOf(err error) ErrorCategory {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategorySystemError
}
