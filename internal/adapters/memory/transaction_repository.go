package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements ports.TransactionRepository in memory
type TransactionRepository struct {
	s *Store
}

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

func copyTxn(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}

// Create stores a new transaction
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.transactions[txn.TransactionID]; ok {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "duplicate transaction id", fmt.Errorf("transaction %s exists", txn.TransactionID))
	}
	r.s.transactions[txn.TransactionID] = copyTxn(txn)
	return nil
}

// GetByID returns a transaction or domain.ErrTxnNotFound
func (r *TransactionRepository) GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, domain.ErrTxnNotFound)
	}
	return copyTxn(t), nil
}

func matches(t *domain.Transaction, f ports.TransactionFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.TerminalID != "" && t.TerminalID != f.TerminalID {
		return false
	}
	if f.UserID != "" && t.GetUserID() != f.UserID {
		return false
	}
	if f.DateFrom != nil && t.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func (r *TransactionRepository) filtered(f ports.TransactionFilter) []*domain.Transaction {
	var out []*domain.Transaction
	for _, t := range r.s.transactions {
		if matches(t, f) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// List returns matching transactions, newest first
func (r *TransactionRepository) List(ctx context.Context, filter ports.TransactionFilter) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.filtered(filter)
	start, end := page(len(all), filter.Offset, filter.Limit)

	out := make([]*domain.Transaction, 0, end-start)
	for _, t := range all[start:end] {
		out = append(out, copyTxn(t))
	}
	return out, nil
}

// Stats aggregates every transaction matching filter; paging is ignored
func (r *TransactionRepository) Stats(ctx context.Context, filter ports.TransactionFilter) (*ports.TransactionStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &ports.TransactionStats{
		ByMethod: make(map[domain.PaymentMethod]ports.MethodStats),
		ByHour:   make(map[int]int64),
	}
	for _, t := range r.filtered(filter) {
		stats.TotalCount++
		stats.TotalAmount = stats.TotalAmount.Add(t.Amount)

		m := stats.ByMethod[t.PaymentMethod]
		m.Count++
		m.Amount = m.Amount.Add(t.Amount)
		stats.ByMethod[t.PaymentMethod] = m
		stats.ByHour[t.CreatedAt.UTC().Hour()]++

		switch t.Status {
		case domain.TransactionStatusCompleted:
			stats.CompletedCount++
			stats.CompletedAmount = stats.CompletedAmount.Add(t.Amount)
		case domain.TransactionStatusFailed:
			stats.FailedCount++
		case domain.TransactionStatusRefunded:
			stats.RefundedCount++
		}
	}
	if stats.CompletedCount > 0 {
		stats.AverageCompleted = stats.CompletedAmount.Div(decimal.NewFromInt(stats.CompletedCount)).Round(2)
	}
	return stats, nil
}

// transition applies mutate to the stored transaction when its status is from.
// Callers hold the write lock.
func (r *TransactionRepository) transition(id string, from, to domain.TransactionStatus, mutate func(*domain.Transaction)) (*domain.Transaction, error) {
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrTxnNotFound)
	}
	if t.Status != from || !from.CanTransitionTo(to) {
		return nil, domain.NewDomainError(domain.ErrorCodeTxnInvalidState,
			fmt.Sprintf("transaction %s is %s, expected %s", id, t.Status, from))
	}
	t.Status = to
	if mutate != nil {
		mutate(t)
	}
	return copyTxn(t), nil
}

func settle(t *domain.Transaction, s ports.Settlement) {
	t.BankAcquirer = s.BankAcquirer
	t.BankTransactionID = s.BankTransactionID
	t.BankResponse = s.BankResponse
	t.CardMask = s.CardMask
	t.ReceiptNumber = s.ReceiptNumber
}

// MarkProcessing moves PENDING to PROCESSING
func (r *TransactionRepository) MarkProcessing(ctx context.Context, transactionID string, at time.Time) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.transition(transactionID, domain.TransactionStatusPending, domain.TransactionStatusProcessing, func(t *domain.Transaction) {
		t.ProcessedAt = &at
	})
}

// Complete moves PROCESSING to COMPLETED and credits the terminal
func (r *TransactionRepository) Complete(ctx context.Context, transactionID string, s ports.Settlement, at time.Time) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	txn, err := r.transition(transactionID, domain.TransactionStatusProcessing, domain.TransactionStatusCompleted, func(t *domain.Transaction) {
		settle(t, s)
		t.CompletedAt = &at
	})
	if err != nil {
		return nil, err
	}

	if term, ok := r.s.terminals[txn.TerminalID]; ok {
		term.TotalTransactions++
		term.TotalAmount = term.TotalAmount.Add(txn.Amount)
		term.UpdatedAt = at
	}
	return txn, nil
}

// Fail moves PROCESSING to FAILED
func (r *TransactionRepository) Fail(ctx context.Context, transactionID string, s ports.Settlement) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.transition(transactionID, domain.TransactionStatusProcessing, domain.TransactionStatusFailed, func(t *domain.Transaction) {
		settle(t, s)
	})
}

// Cancel moves PENDING to CANCELLED
func (r *TransactionRepository) Cancel(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.transition(transactionID, domain.TransactionStatusPending, domain.TransactionStatusCancelled, nil)
}

// Refund moves COMPLETED to REFUNDED
func (r *TransactionRepository) Refund(ctx context.Context, transactionID, reason string, at time.Time) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.transition(transactionID, domain.TransactionStatusCompleted, domain.TransactionStatusRefunded, func(t *domain.Transaction) {
		t.RefundReason = reason
		t.RefundedAt = &at
	})
}

// ExpirePending cancels PENDING transactions whose expires_at is before now
func (r *TransactionRepository) ExpirePending(ctx context.Context, now time.Time) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Transaction
	for _, t := range r.s.transactions {
		if t.Status == domain.TransactionStatusPending && t.ExpiresAt.Before(now) {
			t.Status = domain.TransactionStatusCancelled
			out = append(out, copyTxn(t))
		}
	}
	return out, nil
}

// FailStuck fails PROCESSING transactions claimed before processedBefore
func (r *TransactionRepository) FailStuck(ctx context.Context, processedBefore time.Time, bankResponse string) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Transaction
	for _, t := range r.s.transactions {
		if t.Status != domain.TransactionStatusProcessing || t.ProcessedAt == nil || !t.ProcessedAt.Before(processedBefore) {
			continue
		}
		t.Status = domain.TransactionStatusFailed
		if t.BankResponse == "" {
			t.BankResponse = bankResponse
		}
		out = append(out, copyTxn(t))
	}
	return out, nil
}
