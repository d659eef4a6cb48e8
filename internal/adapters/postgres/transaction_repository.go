package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

const txnColumns = `transaction_id, terminal_id, user_id::text, amount, currency, payment_method, status,
	bank_acquirer, bank_transaction_id, bank_response, card_mask, receipt_number, description,
	qr_code, biometry_challenge, refund_reason, created_at, expires_at, processed_at, completed_at, refunded_at`

// TransactionRepository implements ports.TransactionRepository on PostgreSQL.
// Status changes are single conditional UPDATEs keyed on the expected status.
type TransactionRepository struct {
	db *DBExecutor
}

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *DBExecutor) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                                           domain.Transaction
		amount                                      pgtype.Numeric
		method, status                              string
		acquirer, bankTxnID, bankResponse, cardMask pgtype.Text
		receipt, description, qr, challenge, reason pgtype.Text
	)
	err := row.Scan(
		&t.TransactionID, &t.TerminalID, &t.UserID, &amount, &t.Currency, &method, &status,
		&acquirer, &bankTxnID, &bankResponse, &cardMask, &receipt, &description,
		&qr, &challenge, &reason, &t.CreatedAt, &t.ExpiresAt, &t.ProcessedAt, &t.CompletedAt, &t.RefundedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Amount = pgNumericToDecimal(amount)
	t.PaymentMethod = domain.PaymentMethod(method)
	t.Status = domain.TransactionStatus(status)
	t.BankAcquirer = domain.BankAcquirer(textOf(acquirer))
	t.BankTransactionID = textOf(bankTxnID)
	t.BankResponse = textOf(bankResponse)
	t.CardMask = textOf(cardMask)
	t.ReceiptNumber = textOf(receipt)
	t.Description = textOf(description)
	t.QRCode = textOf(qr)
	t.BiometryChallenge = textOf(challenge)
	t.RefundReason = textOf(reason)
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Transaction, error) {
		return scanTransaction(row)
	})
}

// Create stores a new transaction
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	_, err := r.db.GetDB().Exec(ctx, `
		INSERT INTO transactions (
			transaction_id, terminal_id, user_id, amount, currency, payment_method, status,
			description, qr_code, biometry_challenge, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		txn.TransactionID, txn.TerminalID, txn.UserID, txn.Amount.String(), txn.Currency,
		string(txn.PaymentMethod), string(txn.Status),
		nullText(txn.Description), nullText(txn.QRCode), nullText(txn.BiometryChallenge),
		txn.CreatedAt, txn.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.WrapError(domain.ErrorCodeDatabaseError, "duplicate transaction id", err)
		}
		return dbError("failed to create transaction", err)
	}
	return nil
}

// GetByID returns a transaction or domain.ErrTxnNotFound
func (r *TransactionRepository) GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return r.get(ctx, r.db.GetDB(), transactionID)
}

func (r *TransactionRepository) get(ctx context.Context, q DBTX, id string) (*domain.Transaction, error) {
	txn, err := scanTransaction(q.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE transaction_id = $1`, id))
	if err != nil {
		if isMissing(err) {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrTxnNotFound)
		}
		return nil, dbError("failed to get transaction", err)
	}
	return txn, nil
}

func transactionWhere(f ports.TransactionFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.TerminalID != "" {
		w.add("terminal_id = $%d", f.TerminalID)
	}
	if f.UserID != "" {
		w.add("user_id::text = $%d", f.UserID)
	}
	if f.DateFrom != nil {
		w.add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("created_at <= $%d", *f.DateTo)
	}
	return w
}

// List returns matching transactions, newest first
func (r *TransactionRepository) List(ctx context.Context, filter ports.TransactionFilter) ([]*domain.Transaction, error) {
	w := transactionWhere(filter)
	query := `SELECT ` + txnColumns + ` FROM transactions` + w.String() +
		` ORDER BY created_at DESC, transaction_id LIMIT ` + w.next(limitOrDefault(filter.Limit)) +
		` OFFSET ` + w.next(max(filter.Offset, 0))

	rows, err := r.db.GetDB().Query(ctx, query, w.args...)
	if err != nil {
		return nil, dbError("failed to list transactions", err)
	}
	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, dbError("failed to scan transactions", err)
	}
	return txns, nil
}

// Stats aggregates every transaction matching filter; paging is ignored
func (r *TransactionRepository) Stats(ctx context.Context, filter ports.TransactionFilter) (*ports.TransactionStats, error) {
	w := transactionWhere(filter)
	rows, err := r.db.GetDB().Query(ctx, `
		SELECT payment_method, status, EXTRACT(HOUR FROM created_at AT TIME ZONE 'UTC')::int,
		       count(*), sum(amount)
		FROM transactions`+w.String()+`
		GROUP BY 1, 2, 3`, w.args...)
	if err != nil {
		return nil, dbError("failed to aggregate transactions", err)
	}
	defer rows.Close()

	stats := &ports.TransactionStats{
		ByMethod: make(map[domain.PaymentMethod]ports.MethodStats),
		ByHour:   make(map[int]int64),
	}
	for rows.Next() {
		var (
			method, status string
			hour           int
			count          int64
			sum            pgtype.Numeric
		)
		if err := rows.Scan(&method, &status, &hour, &count, &sum); err != nil {
			return nil, dbError("failed to scan transaction stats", err)
		}
		amount := pgNumericToDecimal(sum)

		stats.TotalCount += count
		stats.TotalAmount = stats.TotalAmount.Add(amount)
		m := stats.ByMethod[domain.PaymentMethod(method)]
		m.Count += count
		m.Amount = m.Amount.Add(amount)
		stats.ByMethod[domain.PaymentMethod(method)] = m
		stats.ByHour[hour] += count

		switch domain.TransactionStatus(status) {
		case domain.TransactionStatusCompleted:
			stats.CompletedCount += count
			stats.CompletedAmount = stats.CompletedAmount.Add(amount)
		case domain.TransactionStatusFailed:
			stats.FailedCount += count
		case domain.TransactionStatusRefunded:
			stats.RefundedCount += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to read transaction stats", err)
	}
	if stats.CompletedCount > 0 {
		stats.AverageCompleted = stats.CompletedAmount.Div(decimal.NewFromInt(stats.CompletedCount)).Round(2)
	}
	return stats, nil
}

// transition moves id from one status to another in a single conditional
// UPDATE. set holds extra assignments numbered from $4.
func (r *TransactionRepository) transition(ctx context.Context, q DBTX, id string, from, to domain.TransactionStatus, set string, args ...any) (*domain.Transaction, error) {
	if !from.CanTransitionTo(to) {
		return nil, domain.ErrInvalidState
	}
	query := `UPDATE transactions SET status = $2` + set +
		` WHERE transaction_id = $1 AND status = $3 RETURNING ` + txnColumns

	params := append([]any{id, string(to), string(from)}, args...)
	txn, err := scanTransaction(q.QueryRow(ctx, query, params...))
	if err == nil {
		return txn, nil
	}
	if !isMissing(err) {
		return nil, dbError("failed to update transaction status", err)
	}

	// nothing matched: the row is gone or another writer moved it first
	cur, getErr := r.get(ctx, q, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, domain.NewDomainError(domain.ErrorCodeTxnInvalidState,
		fmt.Sprintf("transaction %s is %s, expected %s", id, cur.Status, from))
}

const settleColumns = `, bank_acquirer = $4, bank_transaction_id = $5, bank_response = $6, card_mask = $7, receipt_number = $8`

func settleArgs(s ports.Settlement) []any {
	return []any{
		nullText(string(s.BankAcquirer)), nullText(s.BankTransactionID), nullText(s.BankResponse),
		nullText(s.CardMask), nullText(s.ReceiptNumber),
	}
}

// MarkProcessing moves PENDING to PROCESSING
func (r *TransactionRepository) MarkProcessing(ctx context.Context, transactionID string, at time.Time) (*domain.Transaction, error) {
	return r.transition(ctx, r.db.GetDB(), transactionID,
		domain.TransactionStatusPending, domain.TransactionStatusProcessing,
		`, processed_at = $4`, at)
}

// Complete moves PROCESSING to COMPLETED and credits the terminal in the same
// database transaction
func (r *TransactionRepository) Complete(ctx context.Context, transactionID string, s ports.Settlement, at time.Time) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		txn, err = r.transition(ctx, tx, transactionID,
			domain.TransactionStatusProcessing, domain.TransactionStatusCompleted,
			settleColumns+`, completed_at = $9`, append(settleArgs(s), at)...)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE terminals
			SET total_transactions = total_transactions + 1,
			    total_amount = total_amount + $2,
			    updated_at = $3
			WHERE terminal_id = $1`,
			txn.TerminalID, txn.Amount.String(), at)
		if err != nil {
			return dbError("failed to credit terminal", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Fail moves PROCESSING to FAILED
func (r *TransactionRepository) Fail(ctx context.Context, transactionID string, s ports.Settlement) (*domain.Transaction, error) {
	return r.transition(ctx, r.db.GetDB(), transactionID,
		domain.TransactionStatusProcessing, domain.TransactionStatusFailed,
		settleColumns, settleArgs(s)...)
}

// Cancel moves PENDING to CANCELLED
func (r *TransactionRepository) Cancel(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return r.transition(ctx, r.db.GetDB(), transactionID,
		domain.TransactionStatusPending, domain.TransactionStatusCancelled, "")
}

// Refund moves COMPLETED to REFUNDED
func (r *TransactionRepository) Refund(ctx context.Context, transactionID, reason string, at time.Time) (*domain.Transaction, error) {
	return r.transition(ctx, r.db.GetDB(), transactionID,
		domain.TransactionStatusCompleted, domain.TransactionStatusRefunded,
		`, refund_reason = $4, refunded_at = $5`, nullText(reason), at)
}

// ExpirePending cancels PENDING transactions whose expires_at is before now
func (r *TransactionRepository) ExpirePending(ctx context.Context, now time.Time) ([]*domain.Transaction, error) {
	rows, err := r.db.GetDB().Query(ctx, `
		UPDATE transactions SET status = 'cancelled'
		WHERE status = 'pending' AND expires_at < $1
		RETURNING `+txnColumns, now)
	if err != nil {
		return nil, dbError("failed to expire pending transactions", err)
	}
	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, dbError("failed to scan expired transactions", err)
	}
	return txns, nil
}

// FailStuck fails PROCESSING transactions claimed before processedBefore
func (r *TransactionRepository) FailStuck(ctx context.Context, processedBefore time.Time, bankResponse string) ([]*domain.Transaction, error) {
	rows, err := r.db.GetDB().Query(ctx, `
		UPDATE transactions
		SET status = 'failed', bank_response = COALESCE(bank_response, $2)
		WHERE status = 'processing' AND processed_at < $1
		RETURNING `+txnColumns, processedBefore, bankResponse)
	if err != nil {
		return nil, dbError("failed to fail stuck transactions", err)
	}
	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, dbError("failed to scan stuck transactions", err)
	}
	return txns, nil
}
