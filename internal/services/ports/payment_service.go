package ports

import (
	"context"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	domainports "github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// PaymentRequest opens a payment at a terminal
type PaymentRequest struct {
	TerminalID    string
	UserPhone     string // Optional: links the payment to a registered user
	Description   string
	PaymentMethod domain.PaymentMethod
	Amount        decimal.Decimal
}

// PaymentResponse is what the terminal shows the customer
type PaymentResponse struct {
	ExpiresAt         time.Time                `json:"expires_at"`
	TransactionID     string                   `json:"transaction_id"`
	Status            domain.TransactionStatus `json:"status"`
	QRCode            string                   `json:"qr_code,omitempty"`
	BiometryChallenge string                   `json:"biometry_challenge,omitempty"`
}

// PaymentData is the method-specific input read by the terminal. The keys
// follow the terminal firmware payload.
type PaymentData struct {
	CardNumber       string `json:"card_number,omitempty"`
	CVV              string `json:"cvv,omitempty"`
	QRID             string `json:"qr_id,omitempty"`
	CustomerPhone    string `json:"phone,omitempty"`
	BiometryTemplate string `json:"biometry_template,omitempty"`
	ExpiryMonth      int    `json:"exp_month,omitempty"`
	ExpiryYear       int    `json:"exp_year,omitempty"`
}

// PaymentConfirmation dispatches a pending payment
type PaymentConfirmation struct {
	TransactionID     string
	TerminalSignature string
	PaymentData       PaymentData
}

// PaymentOutcome reports how a confirmed payment ended
type PaymentOutcome struct {
	Transaction *domain.Transaction `json:"transaction"`
	Message     string              `json:"message"`
	Success     bool                `json:"success"`
}

// Receipt is the printable summary of a completed payment
type Receipt struct {
	CompletedAt       *time.Time           `json:"completed_at"`
	TransactionID     string               `json:"transaction_id"`
	ReceiptNumber     string               `json:"receipt_number"`
	TerminalID        string               `json:"terminal_id"`
	TerminalName      string               `json:"terminal_name"`
	TerminalLocation  string               `json:"terminal_location"`
	CardMask          string               `json:"card_mask,omitempty"`
	BankTransactionID string               `json:"bank_transaction_id,omitempty"`
	Description       string               `json:"description,omitempty"`
	Currency          string               `json:"currency"`
	PaymentMethod     domain.PaymentMethod `json:"payment_method"`
	BankAcquirer      domain.BankAcquirer  `json:"bank_acquirer,omitempty"`
	Amount            decimal.Decimal      `json:"amount"`
}

// PaymentService orchestrates terminal payments and reads the ledger
type PaymentService interface {
	RequestPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)

	// ConfirmPayment returns the outcome together with a domain error when
	// the payment ended FAILED.
	ConfirmPayment(ctx context.Context, req PaymentConfirmation) (*PaymentOutcome, error)

	CancelPayment(ctx context.Context, transactionID string) (*domain.Transaction, error)
	RefundPayment(ctx context.Context, transactionID, reason string) (*domain.Transaction, error)
	ExpirePending(ctx context.Context) (int, error)
	ReapStuckProcessing(ctx context.Context) (int, error)

	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domainports.TransactionFilter) ([]*domain.Transaction, error)
	GetReceipt(ctx context.Context, transactionID string) (*Receipt, error)
	Stats(ctx context.Context, filter domainports.TransactionFilter) (*domainports.TransactionStats, error)
}
