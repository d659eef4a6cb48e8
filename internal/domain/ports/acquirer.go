package ports

import (
	"context"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/shopspring/decimal"
)

// CardData is the card read by the terminal. It only lives for the duration
// of a charge and is never persisted.
type CardData struct {
	Number      string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
}

// ChargeRequest is the bank-neutral input to an acquirer backend
type ChargeRequest struct {
	Card          *CardData
	TransactionID string
	Description   string
	QRID          string
	Phone         string
	Currency      string
	Amount        decimal.Decimal
}

// PaymentResult is the normalized outcome of an acquirer call
type PaymentResult struct {
	BankTransactionID string
	BankResponse      string
	CardMask          string
	ReceiptNumber     string
	ErrorMessage      string
	Success           bool
}

// AcquirerBackend is one bank integration. Implementations translate the
// request into the bank's wire shape and interpret its success sentinel.
// A returned error means the bank could not be reached or answered with
// something unreadable; a bank-side decline is a result with Success false.
type AcquirerBackend interface {
	ID() domain.BankAcquirer
	Charge(ctx context.Context, req ChargeRequest) (*PaymentResult, error)
}

// BiometryVerifier checks a biometric template against the user's enrolment
type BiometryVerifier interface {
	Verify(ctx context.Context, userID, template string, method domain.PaymentMethod) (bool, error)
}

// SignatureVerifier authenticates a terminal's confirmation message
type SignatureVerifier interface {
	VerifyTerminalSignature(ctx context.Context, terminalID, transactionID, signature string) error
}

// EventPublisher delivers transaction lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransactionEvent) error
}
