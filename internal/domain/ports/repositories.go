package ports

import (
	"context"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionFilter narrows ledger queries. Zero values mean "any".
type TransactionFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	Status     domain.TransactionStatus
	TerminalID string
	UserID     string
	Offset     int
	Limit      int
}

// Settlement carries the bank metadata written when a payment leaves PROCESSING
type Settlement struct {
	BankAcquirer      domain.BankAcquirer
	BankTransactionID string
	BankResponse      string
	CardMask          string
	ReceiptNumber     string
}

// TransactionStats aggregates ledger rows for dashboards
type TransactionStats struct {
	ByMethod         map[domain.PaymentMethod]MethodStats `json:"by_method"`
	ByHour           map[int]int64                        `json:"by_hour"`
	TotalAmount      decimal.Decimal                      `json:"total_amount"`
	TotalCount       int64                                `json:"total_transactions"`
	CompletedCount   int64                                `json:"successful_transactions"`
	FailedCount      int64                                `json:"failed_transactions"`
	RefundedCount    int64                                `json:"refunded_transactions"`
	CompletedAmount  decimal.Decimal                      `json:"completed_amount"`
	AverageCompleted decimal.Decimal                      `json:"average_amount"`
}

// MethodStats is the per-payment-method slice of TransactionStats
type MethodStats struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// TransactionRepository is the transaction ledger. State-changing methods are
// conditional updates: they fail with domain.ErrInvalidState when the stored
// status does not allow the transition and never overwrite a concurrent winner.
type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)
	Stats(ctx context.Context, filter TransactionFilter) (*TransactionStats, error)

	// MarkProcessing moves PENDING to PROCESSING and stamps processed_at.
	MarkProcessing(ctx context.Context, transactionID string, at time.Time) (*domain.Transaction, error)

	// Complete moves PROCESSING to COMPLETED and adds the amount to the
	// owning terminal's counters in the same unit of work.
	Complete(ctx context.Context, transactionID string, s Settlement, at time.Time) (*domain.Transaction, error)

	// Fail moves PROCESSING to FAILED; terminal counters are untouched.
	Fail(ctx context.Context, transactionID string, s Settlement) (*domain.Transaction, error)

	// Cancel moves PENDING to CANCELLED.
	Cancel(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// Refund moves COMPLETED to REFUNDED.
	Refund(ctx context.Context, transactionID, reason string, at time.Time) (*domain.Transaction, error)

	// ExpirePending cancels PENDING transactions whose expires_at is before now.
	ExpirePending(ctx context.Context, now time.Time) ([]*domain.Transaction, error)

	// FailStuck moves PROCESSING transactions claimed before processedBefore
	// to FAILED, recording bankResponse where no bank answer was stored.
	FailStuck(ctx context.Context, processedBefore time.Time, bankResponse string) ([]*domain.Transaction, error)
}

// TerminalFilter narrows terminal listings
type TerminalFilter struct {
	Status       domain.TerminalStatus
	TerminalType domain.TerminalType
	Offset       int
	Limit        int
}

// Heartbeat is the state a terminal reports about itself
type Heartbeat struct {
	Status          domain.TerminalStatus
	IPAddress       string
	FirmwareVersion string
	HardwareInfo    string
}

// TerminalSummary counts terminals by status
type TerminalSummary struct {
	ByStatus          map[domain.TerminalStatus]int64 `json:"by_status"`
	Total             int64                           `json:"total"`
	TotalTransactions int64                           `json:"total_transactions"`
	TotalAmount       decimal.Decimal                 `json:"total_amount"`
}

// TerminalRepository persists terminals
type TerminalRepository interface {
	Create(ctx context.Context, t *domain.Terminal) error
	GetByID(ctx context.Context, terminalID string) (*domain.Terminal, error)
	List(ctx context.Context, filter TerminalFilter) ([]*domain.Terminal, error)
	Update(ctx context.Context, t *domain.Terminal) error
	Delete(ctx context.Context, terminalID string) error
	RecordHeartbeat(ctx context.Context, terminalID string, hb Heartbeat, at time.Time) (*domain.Terminal, error)
	Summary(ctx context.Context) (*TerminalSummary, error)

	// MarkStale sets online terminals whose last heartbeat is before cutoff
	// to offline and returns how many changed.
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// CardStats aggregates a user's (or every user's) cards
type CardStats struct {
	ByPaymentSystem map[domain.PaymentSystem]int64 `json:"by_payment_system"`
	ByIssuer        map[domain.Issuer]int64        `json:"by_bank"`
	Total           int64                          `json:"total_cards"`
	Active          int64                          `json:"active_cards"`
	Verified        int64                          `json:"verified_cards"`
}

// CardRepository persists tokenized cards. Every write restores the
// primary-card invariant for the affected user before it commits.
type CardRepository interface {
	// Add stores a new card; a fingerprint already held by the user fails
	// with domain.ErrDuplicateCard.
	Add(ctx context.Context, card *domain.Card) error
	GetByID(ctx context.Context, userID, cardID string) (*domain.Card, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.Card, error)
	Update(ctx context.Context, card *domain.Card) error
	Delete(ctx context.Context, userID, cardID string) error
	SetPrimary(ctx context.Context, userID, cardID string) (*domain.Card, error)

	// GetPrimary returns the active primary card or domain.ErrNoPrimaryCard.
	GetPrimary(ctx context.Context, userID string) (*domain.Card, error)

	// Stats aggregates cards of userID, or of all users when userID is empty.
	Stats(ctx context.Context, userID string) (*CardStats, error)
}

// UserCounts feeds the admin dashboard
type UserCounts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Verified int64 `json:"verified"`
}

// UserRepository persists user accounts
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (*UserCounts, error)
}
