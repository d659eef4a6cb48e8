// Package payment is the payment orchestrator: it opens payments at
// terminals, dispatches confirmed ones to an acquirer or the biometric path,
// and reads the transaction ledger.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	pkgerrors "github.com/kevin07696/paygo-service/pkg/errors"
	"github.com/kevin07696/paygo-service/pkg/observability"
	"github.com/kevin07696/paygo-service/pkg/resilience"
	"github.com/shopspring/decimal"
	"github.com/zoobzio/clockz"
)

const (
	maxListLimit = 1000

	qrBaseURL = "https://qr.nspk.ru/AD10006M8A01"

	biometryApproval = `{"status":"approved","method":"biometry"}`
	stuckResponse    = `{"error":"payment processing did not finish"}`

	recordAttempts = 3
)

var recordBackoff = &resilience.ExponentialBackoff{
	BaseDelay:  50 * time.Millisecond,
	MaxDelay:   500 * time.Millisecond,
	Multiplier: 2.0,
	Jitter:     0.1,
}

// AcquirerRouter picks the backend for a routed payment method
type AcquirerRouter interface {
	Route(method domain.PaymentMethod, cardNumber string) (ports.AcquirerBackend, error)
}

// Dependencies wires the orchestrator
type Dependencies struct {
	Transactions ports.TransactionRepository
	Terminals    ports.TerminalRepository
	Users        ports.UserRepository
	Cards        ports.CardRepository
	Router       AcquirerRouter
	Biometry     ports.BiometryVerifier
	Signatures   ports.SignatureVerifier
	Publisher    ports.EventPublisher
	Logger       ports.Logger
	Clock        clockz.Clock
	Timeouts     *resilience.TimeoutConfig
}

// Service implements serviceports.PaymentService
type Service struct {
	txns       ports.TransactionRepository
	terminals  ports.TerminalRepository
	users      ports.UserRepository
	cards      ports.CardRepository
	router     AcquirerRouter
	biometry   ports.BiometryVerifier
	signatures ports.SignatureVerifier
	publisher  ports.EventPublisher
	logger     ports.Logger
	clock      clockz.Clock
	timeouts   *resilience.TimeoutConfig
}

var _ serviceports.PaymentService = (*Service)(nil)

// NewService creates a new payment service
func NewService(deps Dependencies) *Service {
	s := &Service{
		txns:       deps.Transactions,
		terminals:  deps.Terminals,
		users:      deps.Users,
		cards:      deps.Cards,
		router:     deps.Router,
		biometry:   deps.Biometry,
		signatures: deps.Signatures,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		clock:      deps.Clock,
		timeouts:   deps.Timeouts,
	}
	if s.clock == nil {
		s.clock = clockz.RealClock
	}
	if s.timeouts == nil {
		s.timeouts = resilience.DefaultTimeoutConfig()
	}
	return s
}

// RequestPayment validates the terminal and amount and records a PENDING
// transaction that can be confirmed until it expires.
func (s *Service) RequestPayment(ctx context.Context, req serviceports.PaymentRequest) (*serviceports.PaymentResponse, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, domain.Validation("payment_method", fmt.Sprintf("unsupported payment method %q", req.PaymentMethod))
	}
	amount, err := domain.ValidateAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	terminalID, err := domain.CanonicalTerminalID(req.TerminalID)
	if err != nil {
		return nil, err
	}

	terminal, err := s.terminals.GetByID(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	if !terminal.AcceptsPayments() {
		return nil, domain.NewDomainError(domain.ErrorCodeTerminalUnavailable,
			fmt.Sprintf("terminal %s is %s", terminal.TerminalID, terminal.Status))
	}

	userID, err := s.lookupUser(ctx, req.UserPhone)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	txn := &domain.Transaction{
		TransactionID: fmt.Sprintf("TXN_%s_%d_%s", terminal.TerminalID, now.Unix(), shortHex()),
		TerminalID:    terminal.TerminalID,
		UserID:        userID,
		Amount:        amount,
		Currency:      domain.DefaultCurrency,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.TransactionStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(domain.PaymentRequestTTL),
	}

	switch {
	case txn.PaymentMethod == domain.PaymentMethodQRCode:
		txn.QRCode = QRCode(amount, terminal.TerminalID, txn.TransactionID)
	case txn.PaymentMethod.IsBiometric():
		txn.BiometryChallenge = fmt.Sprintf("CHALLENGE_%s_%s", txn.TransactionID, shortHex())
	}

	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.Info("Payment requested",
		ports.String("transaction_id", txn.TransactionID),
		ports.String("terminal_id", txn.TerminalID),
		ports.String("method", string(txn.PaymentMethod)),
		ports.Amount("amount", txn.Amount),
	)
	observability.RecordPaymentLifecycle("requested", 1)
	s.publish(ctx, domain.EventPaymentRequested, txn)

	return &serviceports.PaymentResponse{
		TransactionID:     txn.TransactionID,
		Status:            txn.Status,
		ExpiresAt:         txn.ExpiresAt,
		QRCode:            txn.QRCode,
		BiometryChallenge: txn.BiometryChallenge,
	}, nil
}

func (s *Service) lookupUser(ctx context.Context, phone string) (*string, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByPhone(ctx, normalized)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by phone: %w", err)
	}
	return &u.ID, nil
}

// QRCode renders the SBP payload for a payment. The amount is rounded to
// whole rubles and zero-padded to twelve digits.
func QRCode(amount decimal.Decimal, terminalID, transactionID string) string {
	return fmt.Sprintf("%s%012dS%sI%s", qrBaseURL, amount.RoundBank(0).IntPart(), terminalID, transactionID)
}

// ConfirmPayment claims a PENDING transaction and dispatches it exactly once.
// Concurrent confirmations of the same transaction lose the claim and get an
// invalid-state error without reaching an acquirer.
func (s *Service) ConfirmPayment(ctx context.Context, req serviceports.PaymentConfirmation) (*serviceports.PaymentOutcome, error) {
	if req.TransactionID == "" {
		return nil, domain.Validation("transaction_id", "transaction id is required")
	}

	txn, err := s.txns.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := s.signatures.VerifyTerminalSignature(ctx, txn.TerminalID, txn.TransactionID, req.TerminalSignature); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeAuthInvalid, "terminal signature rejected", err)
	}

	start := s.clock.Now()
	txn, err = s.txns.MarkProcessing(ctx, req.TransactionID, start.UTC())
	if err != nil {
		return nil, err
	}

	dispatchCtx, cancel := s.timeouts.ServiceContext(ctx)
	defer cancel()
	d := s.dispatch(dispatchCtx, txn, req.PaymentData)

	// The claim is already taken; finish it even if the caller went away.
	finishCtx := context.WithoutCancel(ctx)
	now := s.clock.Now().UTC()

	if d.result.Success {
		done, err := s.txns.Complete(finishCtx, txn.TransactionID, d.settlement(), now)
		if err == nil {
			return s.completed(finishCtx, done, start), nil
		}
		s.logger.Error("Failed to record completed payment",
			ports.String("transaction_id", txn.TransactionID),
			ports.String("bank_transaction_id", d.result.BankTransactionID),
			ports.Err(err),
		)
		d = d.unrecorded(err)
	}

	failed, err := s.recordFailure(finishCtx, txn.TransactionID, d.settlement())
	if err != nil {
		s.logger.Error("Failed to record failed payment",
			ports.String("transaction_id", txn.TransactionID),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to record payment outcome", err)
	}
	if failed.Status == domain.TransactionStatusCompleted {
		// the completion was stored despite the error
		return s.completed(finishCtx, failed, start), nil
	}
	s.logger.Warn("Payment failed",
		ports.String("transaction_id", failed.TransactionID),
		ports.String("acquirer", string(failed.BankAcquirer)),
		ports.String("reason", d.result.ErrorMessage),
	)
	s.record(failed, start)
	s.publish(finishCtx, domain.EventPaymentFailed, failed)

	return &serviceports.PaymentOutcome{Transaction: failed, Message: d.result.ErrorMessage}, d.err
}

func (s *Service) completed(ctx context.Context, done *domain.Transaction, start time.Time) *serviceports.PaymentOutcome {
	s.logger.Info("Payment completed",
		ports.String("transaction_id", done.TransactionID),
		ports.String("acquirer", string(done.BankAcquirer)),
		ports.String("receipt_number", done.ReceiptNumber),
	)
	s.record(done, start)
	s.publish(ctx, domain.EventPaymentCompleted, done)
	return &serviceports.PaymentOutcome{Transaction: done, Success: true, Message: "payment completed"}
}

// recordFailure stores the FAILED outcome, retrying transient write errors.
// A row another writer already finalized is returned as it stands.
func (s *Service) recordFailure(ctx context.Context, transactionID string, settlement ports.Settlement) (*domain.Transaction, error) {
	var failed *domain.Transaction
	err := resilience.Retry(ctx, recordAttempts, recordBackoff, func(ctx context.Context) error {
		var err error
		failed, err = s.txns.Fail(ctx, transactionID, settlement)
		if domain.IsDomainError(err, domain.ErrorCodeTxnInvalidState) {
			failed, err = s.txns.GetByID(ctx, transactionID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// ReapStuckProcessing fails transactions whose confirmation never reached
// a final state. Only rows claimed more than twice the service timeout ago
// are touched, so a live confirmation is never overtaken.
func (s *Service) ReapStuckProcessing(ctx context.Context) (int, error) {
	before := s.clock.Now().UTC().Add(-2 * s.timeouts.Service)
	reaped, err := s.txns.FailStuck(ctx, before, stuckResponse)
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to reap stuck transactions", err)
	}
	if len(reaped) == 0 {
		return 0, nil
	}

	for _, txn := range reaped {
		s.logger.Warn("Stuck payment failed",
			ports.String("transaction_id", txn.TransactionID),
			ports.String("terminal_id", txn.TerminalID),
		)
		s.publish(ctx, domain.EventPaymentFailed, txn)
	}
	observability.RecordPaymentLifecycle("reaped", len(reaped))
	return len(reaped), nil
}

// dispatchResult is the outcome of one payment attempt before it is stored
type dispatchResult struct {
	result   *ports.PaymentResult
	err      error
	acquirer domain.BankAcquirer
}

func (d *dispatchResult) settlement() ports.Settlement {
	resp := d.result.BankResponse
	if !d.result.Success && resp == "" {
		b, _ := json.Marshal(map[string]string{"error": d.result.ErrorMessage})
		resp = string(b)
	}
	return ports.Settlement{
		BankAcquirer:      d.acquirer,
		BankTransactionID: d.result.BankTransactionID,
		BankResponse:      resp,
		CardMask:          d.result.CardMask,
		ReceiptNumber:     d.result.ReceiptNumber,
	}
}

// unrecorded turns an approval that could not be stored into a failure. The
// bank's identifiers and answer are kept for reconciliation.
func (d *dispatchResult) unrecorded(err error) *dispatchResult {
	msg := fmt.Sprintf("payment approved by %s but could not be recorded", d.acquirer)
	if d.acquirer == "" {
		msg = "payment approved but could not be recorded"
	}
	res := *d.result
	res.Success = false
	res.ErrorMessage = msg
	return &dispatchResult{
		acquirer: d.acquirer,
		err:      domain.WrapError(domain.ErrorCodeDatabaseError, msg, err),
		result:   &res,
	}
}

func failure(acquirer domain.BankAcquirer, err *domain.DomainError, bankResponse string) *dispatchResult {
	return &dispatchResult{
		acquirer: acquirer,
		err:      err,
		result:   &ports.PaymentResult{ErrorMessage: err.Message, BankResponse: bankResponse},
	}
}

// dispatch runs the method-specific path. Panics and errors never escape:
// every way out is a dispatchResult.
func (s *Service) dispatch(ctx context.Context, txn *domain.Transaction, data serviceports.PaymentData) (d *dispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Payment dispatch panicked",
				ports.String("transaction_id", txn.TransactionID),
				ports.String("panic", fmt.Sprint(r)),
			)
			d = failure("", domain.NewDomainError(domain.ErrorCodeAcquirerError,
				fmt.Sprintf("payment processing error: %v", r)), "")
		}
	}()

	if txn.PaymentMethod.IsBiometric() {
		return s.dispatchBiometry(ctx, txn, data)
	}
	return s.dispatchAcquirer(ctx, txn, data)
}

// dispatchBiometry settles against the user's primary card without an
// acquirer call.
func (s *Service) dispatchBiometry(ctx context.Context, txn *domain.Transaction, data serviceports.PaymentData) *dispatchResult {
	ok, err := s.biometry.Verify(ctx, txn.GetUserID(), data.BiometryTemplate, txn.PaymentMethod)
	if err != nil {
		return failure("", domain.WrapError(domain.ErrorCodeBiometryRejected, "biometric verification error", err), "")
	}
	if !ok {
		return failure("", domain.ErrBiometryRejected, "")
	}

	primary, err := s.cards.GetPrimary(ctx, txn.GetUserID())
	if err != nil {
		if errors.Is(err, domain.ErrNoPrimaryCard) || errors.Is(err, domain.ErrUserNotFound) {
			return failure("", domain.ErrNoPrimaryCard, "")
		}
		return failure("", domain.WrapError(domain.ErrorCodeNoPrimaryCard, "failed to load primary card", err), "")
	}

	return &dispatchResult{result: &ports.PaymentResult{
		Success:           true,
		BankTransactionID: "BIO_" + shortHex(),
		BankResponse:      biometryApproval,
		CardMask:          primary.Mask,
		ReceiptNumber:     fmt.Sprintf("BIO%d", s.clock.Now().Unix()),
	}}
}

func (s *Service) dispatchAcquirer(ctx context.Context, txn *domain.Transaction, data serviceports.PaymentData) *dispatchResult {
	backend, err := s.router.Route(txn.PaymentMethod, data.CardNumber)
	if err != nil {
		return failure("", domain.WrapError(domain.ErrorCodeAcquirerError, err.Error(), err), "")
	}
	acquirer := backend.ID()

	req := ports.ChargeRequest{
		TransactionID: txn.TransactionID,
		Description:   txn.Description,
		QRID:          data.QRID,
		Phone:         data.CustomerPhone,
		Currency:      txn.Currency,
		Amount:        txn.Amount,
	}
	if txn.PaymentMethod.IsCardPresent() {
		req.Card = &ports.CardData{
			Number:      data.CardNumber,
			ExpiryMonth: data.ExpiryMonth,
			ExpiryYear:  data.ExpiryYear,
			CVV:         data.CVV,
		}
	}

	res, err := backend.Charge(ctx, req)
	if err != nil {
		category := pkgerrors.CategoryOf(err)
		observability.RecordAcquirerError(string(acquirer), string(category))

		code := domain.ErrorCodeAcquirerError
		if category == pkgerrors.CategoryTimeout {
			code = domain.ErrorCodeAcquirerTimeout
		}
		return failure(acquirer, domain.WrapError(code, fmt.Sprintf("%s payment failed", acquirer), err), pkgerrors.RawResponseOf(err))
	}
	if !res.Success {
		msg := res.ErrorMessage
		if msg == "" {
			msg = "payment declined"
		}
		return &dispatchResult{
			acquirer: acquirer,
			err:      domain.NewDomainError(domain.ErrorCodeAcquirerDeclined, msg),
			result:   &ports.PaymentResult{ErrorMessage: msg, BankResponse: res.BankResponse},
		}
	}
	return &dispatchResult{acquirer: acquirer, result: res}
}

// CancelPayment cancels a PENDING transaction
func (s *Service) CancelPayment(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txns.Cancel(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment cancelled", ports.String("transaction_id", txn.TransactionID))
	observability.RecordPaymentLifecycle("cancelled", 1)
	s.publish(ctx, domain.EventPaymentCancelled, txn)
	return txn, nil
}

// RefundPayment refunds a COMPLETED transaction within the refund window
func (s *Service) RefundPayment(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if ok, why := txn.CanBeRefunded(now); !ok {
		if txn.Status == domain.TransactionStatusCompleted && txn.CompletedAt != nil {
			return nil, domain.NewDomainError(domain.ErrorCodeTxnRefundWindowExpired, why)
		}
		return nil, domain.NewDomainError(domain.ErrorCodeTxnInvalidState, why)
	}

	refunded, err := s.txns.Refund(ctx, transactionID, reason, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment refunded",
		ports.String("transaction_id", refunded.TransactionID),
		ports.String("reason", reason),
	)
	observability.RecordPaymentLifecycle("refunded", 1)
	s.publish(ctx, domain.EventPaymentRefunded, refunded)
	return refunded, nil
}

// ExpirePending cancels every PENDING transaction past its deadline
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	expired, err := s.txns.ExpirePending(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire pending transactions: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	s.logger.Info("Expired pending payments", ports.Int("count", len(expired)))
	observability.RecordPaymentLifecycle("expired", len(expired))
	for _, txn := range expired {
		s.publish(ctx, domain.EventPaymentCancelled, txn)
	}
	return len(expired), nil
}

// GetTransaction returns one ledger entry
func (s *Service) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.txns.GetByID(ctx, transactionID)
}

// ListTransactions returns ledger entries newest first
func (s *Service) ListTransactions(ctx context.Context, filter ports.TransactionFilter) ([]*domain.Transaction, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}
	return s.txns.List(ctx, filter)
}

// GetReceipt renders the receipt of a COMPLETED transaction
func (s *Service) GetReceipt(ctx context.Context, transactionID string) (*serviceports.Receipt, error) {
	txn, err := s.txns.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TransactionStatusCompleted {
		return nil, domain.NewDomainError(domain.ErrorCodeTxnInvalidState,
			fmt.Sprintf("receipt is only available for completed transactions, status is %s", txn.Status))
	}

	receipt := &serviceports.Receipt{
		TransactionID:     txn.TransactionID,
		ReceiptNumber:     txn.ReceiptNumber,
		TerminalID:        txn.TerminalID,
		CardMask:          txn.CardMask,
		BankTransactionID: txn.BankTransactionID,
		Description:       txn.Description,
		Currency:          txn.Currency,
		PaymentMethod:     txn.PaymentMethod,
		BankAcquirer:      txn.BankAcquirer,
		Amount:            txn.Amount,
		CompletedAt:       txn.CompletedAt,
	}

	terminal, err := s.terminals.GetByID(ctx, txn.TerminalID)
	switch {
	case err == nil:
		receipt.TerminalName = terminal.Name
		receipt.TerminalLocation = terminal.Location
	case errors.Is(err, domain.ErrTerminalNotFound):
		s.logger.Warn("Receipt for transaction of deleted terminal", ports.String("transaction_id", txn.TransactionID))
	default:
		return nil, err
	}
	return receipt, nil
}

// Stats aggregates the ledger for dashboards
func (s *Service) Stats(ctx context.Context, filter ports.TransactionFilter) (*ports.TransactionStats, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}
	return s.txns.Stats(ctx, filter)
}

func normalizeFilter(f *ports.TransactionFilter) error {
	if f.Status != "" && !f.Status.IsValid() {
		return domain.Validation("status", fmt.Sprintf("unknown status %q", f.Status))
	}
	if f.Offset < 0 {
		return domain.Validation("skip", "skip must not be negative")
	}
	if f.Limit < 0 {
		return domain.Validation("limit", "limit must not be negative")
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return domain.Validation("date_to", "date_to is before date_from")
	}
	return nil
}

// record feeds the business metrics for a payment that left PROCESSING
func (s *Service) record(txn *domain.Transaction, start time.Time) {
	observability.RecordPaymentTransaction(
		string(txn.PaymentMethod),
		string(txn.BankAcquirer),
		string(txn.Status),
		domain.MinorUnits(txn.Amount),
		txn.Currency,
		s.clock.Now().Sub(start).Seconds(),
	)
}

// publish delivers a lifecycle event. Delivery failures are logged by the
// publisher and never undo the committed transition.
func (s *Service) publish(ctx context.Context, t domain.EventType, txn *domain.Transaction) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, domain.NewTransactionEvent(t, txn, s.clock.Now().UTC()))
	observability.RecordEventPublished(string(t), err == nil)
	if err != nil {
		s.logger.Warn("Failed to publish transaction event",
			ports.String("event_type", string(t)),
			ports.String("transaction_id", txn.TransactionID),
			ports.Err(err),
		)
	}
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
