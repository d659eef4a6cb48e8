package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a terminal payment
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

// PaymentMethod is how the customer presented payment at the terminal
type PaymentMethod string

const (
	PaymentMethodNFCCard             PaymentMethod = "nfc_card"
	PaymentMethodNFCPhone            PaymentMethod = "nfc_phone"
	PaymentMethodQRCode              PaymentMethod = "qr_code"
	PaymentMethodBiometryFace        PaymentMethod = "biometry_face"
	PaymentMethodBiometryFingerprint PaymentMethod = "biometry_fingerprint"
)

// BankAcquirer identifies the bank or network that settles a payment
type BankAcquirer string

const (
	BankAcquirerVTB         BankAcquirer = "vtb"
	BankAcquirerAlfabank    BankAcquirer = "alfabank"
	BankAcquirerCentrinvest BankAcquirer = "centrinvest"
	BankAcquirerSBP         BankAcquirer = "sbp"
)

const (
	DefaultCurrency = "RUB"

	// PaymentRequestTTL is how long a PENDING transaction stays confirmable.
	PaymentRequestTTL = 5 * time.Minute

	// RefundWindow bounds how long after completion a refund is accepted.
	RefundWindow = 90 * 24 * time.Hour
)

// MaxPaymentAmount is the upper bound for a single terminal payment.
var MaxPaymentAmount = decimal.NewFromInt(1_000_000)

// Transaction represents a single payment attempt at a terminal
type Transaction struct {
	CreatedAt         time.Time         `json:"created_at"`
	ExpiresAt         time.Time         `json:"expires_at"`
	ProcessedAt       *time.Time        `json:"processed_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	RefundedAt        *time.Time        `json:"refunded_at,omitempty"`
	UserID            *string           `json:"user_id,omitempty"`
	TransactionID     string            `json:"transaction_id"`
	TerminalID        string            `json:"terminal_id"`
	Currency          string            `json:"currency"`
	Description       string            `json:"description,omitempty"`
	BankTransactionID string            `json:"bank_transaction_id,omitempty"`
	BankResponse      string            `json:"bank_response,omitempty"`
	CardMask          string            `json:"card_mask,omitempty"`
	ReceiptNumber     string            `json:"receipt_number,omitempty"`
	QRCode            string            `json:"qr_code,omitempty"`
	BiometryChallenge string            `json:"biometry_challenge,omitempty"`
	RefundReason      string            `json:"refund_reason,omitempty"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Status            TransactionStatus `json:"status"`
	BankAcquirer      BankAcquirer      `json:"bank_acquirer,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
}

// IsValid reports whether s is a known status
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}

// IsFinal reports whether no further transition is possible
func (s TransactionStatus) IsFinal() bool {
	switch s {
	case TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo encodes the one-way payment state machine:
//
//	pending -> processing -> completed -> refunded
//	                      \-> failed
//	pending -> cancelled
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusProcessing || next == TransactionStatusCancelled
	case TransactionStatusProcessing:
		return next == TransactionStatusCompleted || next == TransactionStatusFailed
	case TransactionStatusCompleted:
		return next == TransactionStatusRefunded
	case TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusRefunded:
		return false
	}
	return false
}

// IsValid reports whether m is a supported payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodNFCCard, PaymentMethodNFCPhone, PaymentMethodQRCode,
		PaymentMethodBiometryFace, PaymentMethodBiometryFingerprint:
		return true
	}
	return false
}

// IsBiometric reports whether the method authenticates the customer biometrically
func (m PaymentMethod) IsBiometric() bool {
	return m == PaymentMethodBiometryFace || m == PaymentMethodBiometryFingerprint
}

// IsCardPresent reports whether card data is read by the terminal
func (m PaymentMethod) IsCardPresent() bool {
	return m == PaymentMethodNFCCard || m == PaymentMethodNFCPhone
}

// IsValid reports whether a is a known acquirer
func (a BankAcquirer) IsValid() bool {
	switch a {
	case BankAcquirerVTB, BankAcquirerAlfabank, BankAcquirerCentrinvest, BankAcquirerSBP:
		return true
	}
	return false
}

// CanBeConfirmed returns true if the payment has not been dispatched yet
func (t *Transaction) CanBeConfirmed() bool {
	return t.Status == TransactionStatusPending
}

// IsExpired reports whether a pending payment passed its confirmation deadline
func (t *Transaction) IsExpired(now time.Time) bool {
	return t.Status == TransactionStatusPending && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// CanBeRefunded returns (true, "") when a refund is allowed at now, otherwise
// false with the reason.
func (t *Transaction) CanBeRefunded(now time.Time) (bool, string) {
	if t.Status != TransactionStatusCompleted {
		return false, "only completed transactions can be refunded"
	}
	if t.CompletedAt == nil {
		return false, "transaction has no completion time"
	}
	if now.Sub(*t.CompletedAt) > RefundWindow {
		return false, "refund window of 90 days has expired"
	}
	return true, ""
}

// GetUserID safely retrieves the user ID
func (t *Transaction) GetUserID() string {
	if t.UserID != nil {
		return *t.UserID
	}
	return ""
}

// ValidateAmount checks bounds and rounds to two decimal places.
func ValidateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, NewDomainError(ErrorCodeValidationAmountInvalid, "amount must be greater than zero")
	}
	if amount.GreaterThan(MaxPaymentAmount) {
		return decimal.Zero, NewDomainError(ErrorCodeValidationAmountInvalid, "amount exceeds the maximum of 1000000")
	}
	return amount.Round(2), nil
}

// MinorUnits converts a major-unit amount to kopecks.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
