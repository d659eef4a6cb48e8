package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a transaction lifecycle event
type EventType string

const (
	EventPaymentRequested EventType = "payment.requested"
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentCancelled EventType = "payment.cancelled"
	EventPaymentRefunded  EventType = "payment.refunded"
)

// TransactionEvent is emitted after every committed state transition
type TransactionEvent struct {
	OccurredAt    time.Time         `json:"occurred_at"`
	Type          EventType         `json:"type"`
	TransactionID string            `json:"transaction_id"`
	TerminalID    string            `json:"terminal_id"`
	UserID        string            `json:"user_id,omitempty"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	BankAcquirer  BankAcquirer      `json:"bank_acquirer,omitempty"`
	Currency      string            `json:"currency"`
	Amount        decimal.Decimal   `json:"amount"`
}

// NewTransactionEvent snapshots a transaction into an event
func NewTransactionEvent(t EventType, txn *Transaction, at time.Time) TransactionEvent {
	return TransactionEvent{
		OccurredAt:    at,
		Type:          t,
		TransactionID: txn.TransactionID,
		TerminalID:    txn.TerminalID,
		UserID:        txn.GetUserID(),
		Status:        txn.Status,
		PaymentMethod: txn.PaymentMethod,
		BankAcquirer:  txn.BankAcquirer,
		Currency:      txn.Currency,
		Amount:        txn.Amount,
	}
}
