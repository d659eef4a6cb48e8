package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Authentication & Authorization Errors (AUTH_*)
	ErrorCodeAuthMissing       ErrorCode = "AUTH_MISSING"
	ErrorCodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	ErrorCodeAuthAccessDenied  ErrorCode = "AUTH_ACCESS_DENIED"
	ErrorCodeAuthUserInactive  ErrorCode = "AUTH_USER_INACTIVE"
	ErrorCodeAuthBadCredential ErrorCode = "AUTH_BAD_CREDENTIALS"

	// Transaction Errors (TXN_*)
	ErrorCodeTxnNotFound            ErrorCode = "TXN_NOT_FOUND"
	ErrorCodeTxnInvalidState        ErrorCode = "TXN_INVALID_STATE"
	ErrorCodeTxnRefundWindowExpired ErrorCode = "TXN_REFUND_WINDOW_EXPIRED"

	// Terminal Errors (TERMINAL_*)
	ErrorCodeTerminalNotFound    ErrorCode = "TERMINAL_NOT_FOUND"
	ErrorCodeTerminalUnavailable ErrorCode = "TERMINAL_UNAVAILABLE"
	ErrorCodeTerminalExists      ErrorCode = "TERMINAL_ALREADY_EXISTS"

	// Card Errors (CARD_*)
	ErrorCodeCardNotFound      ErrorCode = "CARD_NOT_FOUND"
	ErrorCodeCardDuplicate     ErrorCode = "CARD_DUPLICATE"
	ErrorCodeCardInactive      ErrorCode = "CARD_INACTIVE"
	ErrorCodeCardVerified      ErrorCode = "CARD_ALREADY_VERIFIED"
	ErrorCodeNoPrimaryCard     ErrorCode = "CARD_NO_PRIMARY"
	ErrorCodeBiometryRejected  ErrorCode = "BIOMETRY_NOT_VERIFIED"
	ErrorCodeCardNumberInvalid ErrorCode = "CARD_NUMBER_INVALID"

	// User Errors (USER_*)
	ErrorCodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	ErrorCodeUserExists   ErrorCode = "USER_ALREADY_EXISTS"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Acquirer Errors (ACQUIRER_*)
	ErrorCodeAcquirerError    ErrorCode = "ACQUIRER_ERROR"
	ErrorCodeAcquirerTimeout  ErrorCode = "ACQUIRER_TIMEOUT"
	ErrorCodeAcquirerDeclined ErrorCode = "ACQUIRER_DECLINED"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so freshly built errors
// compare equal to the sentinels below.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// Validation builds a VALIDATION_FAILED error naming the offending field.
func Validation(field, message string) *DomainError {
	return NewDomainError(ErrorCodeValidationFailed, message).WithDetail("field", field)
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeTxnNotFound, ErrorCodeTerminalNotFound, ErrorCodeCardNotFound, ErrorCodeUserNotFound:
		return true
	}
	return false
}

// IsAuthError checks if an error is authentication/authorization related
func IsAuthError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeAuthMissing, ErrorCodeAuthInvalid, ErrorCodeAuthAccessDenied,
		ErrorCodeAuthUserInactive, ErrorCodeAuthBadCredential:
		return true
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeValidationFailed, ErrorCodeValidationAmountInvalid,
		ErrorCodeValidationMissingField, ErrorCodeCardNumberInvalid:
		return true
	}
	return false
}

// IsStateError reports conflicts with the current state of a resource.
func IsStateError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeTxnInvalidState, ErrorCodeTxnRefundWindowExpired, ErrorCodeTerminalUnavailable,
		ErrorCodeTerminalExists, ErrorCodeCardDuplicate, ErrorCodeCardInactive,
		ErrorCodeCardVerified, ErrorCodeUserExists:
		return true
	}
	return false
}

// IsAcquirerError checks if an error terminated a payment at the acquirer stage
func IsAcquirerError(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeAcquirerError, ErrorCodeAcquirerTimeout, ErrorCodeAcquirerDeclined,
		ErrorCodeBiometryRejected, ErrorCodeNoPrimaryCard:
		return true
	}
	return false
}

var (
	ErrAuthMissing       = NewDomainError(ErrorCodeAuthMissing, "authentication required")
	ErrAuthInvalid       = NewDomainError(ErrorCodeAuthInvalid, "invalid authentication")
	ErrAuthAccessDenied  = NewDomainError(ErrorCodeAuthAccessDenied, "access denied")
	ErrUserInactive      = NewDomainError(ErrorCodeAuthUserInactive, "user is not active")
	ErrBadCredentials    = NewDomainError(ErrorCodeAuthBadCredential, "invalid login or password")
	ErrTxnNotFound       = NewDomainError(ErrorCodeTxnNotFound, "transaction not found")
	ErrInvalidState      = NewDomainError(ErrorCodeTxnInvalidState, "transaction is in invalid state for this operation")
	ErrRefundExpired     = NewDomainError(ErrorCodeTxnRefundWindowExpired, "refund window has expired")
	ErrTerminalNotFound  = NewDomainError(ErrorCodeTerminalNotFound, "terminal not found")
	ErrTerminalOffline   = NewDomainError(ErrorCodeTerminalUnavailable, "terminal is not available for payments")
	ErrTerminalExists    = NewDomainError(ErrorCodeTerminalExists, "terminal already exists")
	ErrCardNotFound      = NewDomainError(ErrorCodeCardNotFound, "card not found")
	ErrDuplicateCard     = NewDomainError(ErrorCodeCardDuplicate, "card already added")
	ErrCardInactive      = NewDomainError(ErrorCodeCardInactive, "card is not active")
	ErrCardVerified      = NewDomainError(ErrorCodeCardVerified, "card already verified")
	ErrInvalidCardNumber = NewDomainError(ErrorCodeCardNumberInvalid, "invalid card number")
	ErrNoPrimaryCard     = NewDomainError(ErrorCodeNoPrimaryCard, "no active primary card on file")
	ErrBiometryRejected  = NewDomainError(ErrorCodeBiometryRejected, "biometric verification failed")
	ErrUserNotFound      = NewDomainError(ErrorCodeUserNotFound, "user not found")
	ErrUserExists        = NewDomainError(ErrorCodeUserExists, "user with this email or phone already exists")
	ErrValidationFailed  = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrInvalidAmount     = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrMissingField      = NewDomainError(ErrorCodeValidationMissingField, "required field missing")
	ErrAcquirer          = NewDomainError(ErrorCodeAcquirerError, "acquirer error")
	ErrAcquirerTimeout   = NewDomainError(ErrorCodeAcquirerTimeout, "acquirer timeout")
	ErrAcquirerDeclined  = NewDomainError(ErrorCodeAcquirerDeclined, "payment declined by acquirer")
	ErrInternal          = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabase          = NewDomainError(ErrorCodeDatabaseError, "database error")
)
