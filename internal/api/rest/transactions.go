package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kevin07696/paygo-service/internal/domain"
	domainports "github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	"github.com/kevin07696/paygo-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type paymentRequestBody struct {
	TerminalID    string               `json:"terminal_id"`
	UserPhone     string               `json:"user_phone,omitempty"`
	Description   string               `json:"description,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Amount        decimal.Decimal      `json:"amount"`
}

type paymentConfirmBody struct {
	TransactionID     string                   `json:"transaction_id"`
	TerminalSignature string                   `json:"terminal_signature"`
	PaymentData       serviceports.PaymentData `json:"payment_data"`
}

type paymentConfirmResponse struct {
	TransactionID     string                   `json:"transaction_id"`
	Status            domain.TransactionStatus `json:"status"`
	BankTransactionID string                   `json:"bank_transaction_id,omitempty"`
	ReceiptNumber     string                   `json:"receipt_number,omitempty"`
	Message           string                   `json:"message"`
	Success           bool                     `json:"success"`
}

type refundBody struct {
	Reason string `json:"reason"`
}

// PaymentRequest handles POST /transactions/payment-request
func (h *Handler) PaymentRequest(w http.ResponseWriter, r *http.Request) {
	var body paymentRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.Payments.RequestPayment(r.Context(), serviceports.PaymentRequest{
		TerminalID:    body.TerminalID,
		UserPhone:     body.UserPhone,
		Description:   body.Description,
		PaymentMethod: body.PaymentMethod,
		Amount:        body.Amount,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, resp)
}

// PaymentConfirm handles POST /transactions/payment-confirm. A payment that
// was processed but declined is still a 200 with success=false.
func (h *Handler) PaymentConfirm(w http.ResponseWriter, r *http.Request) {
	var body paymentConfirmBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	outcome, err := h.svc.Payments.ConfirmPayment(r.Context(), serviceports.PaymentConfirmation{
		TransactionID:     body.TransactionID,
		TerminalSignature: body.TerminalSignature,
		PaymentData:       body.PaymentData,
	})
	if outcome == nil || outcome.Transaction == nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err != nil {
		h.logger.Info("Payment declined",
			zap.String("transaction_id", outcome.Transaction.TransactionID),
			zap.String("code", string(domain.GetErrorCode(err))),
		)
	}

	txn := outcome.Transaction
	respondJSON(w, h.logger, http.StatusOK, paymentConfirmResponse{
		TransactionID:     txn.TransactionID,
		Status:            txn.Status,
		BankTransactionID: txn.BankTransactionID,
		ReceiptNumber:     txn.ReceiptNumber,
		Message:           outcome.Message,
		Success:           outcome.Success,
	})
}

// transactionFilter reads the listing filters from the query string
func transactionFilter(r *http.Request) (domainports.TransactionFilter, error) {
	offset, limit, err := pagination(r, 100)
	if err != nil {
		return domainports.TransactionFilter{}, err
	}
	q := r.URL.Query()
	filter := domainports.TransactionFilter{
		Status:     domain.TransactionStatus(q.Get("status")),
		TerminalID: q.Get("terminal_id"),
		UserID:     q.Get("user_id"),
		Offset:     offset,
		Limit:      limit,
	}
	if v := q.Get("date_from"); v != "" {
		t, err := timeutil.ParseBound(v, false)
		if err != nil {
			return filter, domain.Validation("date_from", err.Error())
		}
		filter.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := timeutil.ParseBound(v, true)
		if err != nil {
			return filter, domain.Validation("date_to", err.Error())
		}
		filter.DateTo = &t
	}
	return filter, nil
}

// scoped restricts non-staff callers to their own transactions
func scoped(r *http.Request, filter *domainports.TransactionFilter) {
	if !isStaff(r) {
		filter.UserID = callerID(r)
	}
}

// ListTransactions handles GET /transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	scoped(r, &filter)
	h.listTransactions(w, r, filter)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request, filter domainports.TransactionFilter) {
	txns, err := h.svc.Payments.ListTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if txns == nil {
		txns = []*domain.Transaction{}
	}
	respondJSON(w, h.logger, http.StatusOK, txns)
}

// TransactionStats handles GET /transactions/stats/summary
func (h *Handler) TransactionStats(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	scoped(r, &filter)
	filter.Offset, filter.Limit = 0, 0

	stats, err := h.svc.Payments.Stats(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, stats)
}

// visibleTransaction loads a transaction the caller may see. Other users'
// transactions are reported as missing.
func (h *Handler) visibleTransaction(r *http.Request) (*domain.Transaction, error) {
	txn, err := h.svc.Payments.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	if isStaff(r) {
		return txn, nil
	}
	if txn.UserID == nil || *txn.UserID != callerID(r) {
		return nil, domain.ErrTxnNotFound
	}
	return txn, nil
}

// GetTransaction handles GET /transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.visibleTransaction(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, txn)
}

// GetReceipt handles GET /transactions/{id}/receipt
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	txn, err := h.visibleTransaction(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	receipt, err := h.svc.Payments.GetReceipt(r.Context(), txn.TransactionID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, receipt)
}

// CancelPayment handles POST /transactions/{id}/cancel
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	txn, err := h.svc.Payments.CancelPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, txn)
}

// RefundPayment handles POST /transactions/{id}/refund
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var body refundBody
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &body); err != nil {
			respondError(w, r, h.logger, err)
			return
		}
	}
	reason := body.Reason
	if reason == "" {
		reason = r.URL.Query().Get("reason")
	}
	txn, err := h.svc.Payments.RefundPayment(r.Context(), mux.Vars(r)["id"], reason)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, txn)
}
