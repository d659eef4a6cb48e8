package acquirer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

// SBP charges QR payments through the Faster Payments System
type SBP struct {
	cfg Config
	t   *transport
}

// NewSBP creates the SBP backend
func NewSBP(cfg Config, httpClient HTTPClient, logger ports.Logger, opts ...Option) *SBP {
	return &SBP{cfg: cfg, t: newTransport(domain.BankAcquirerSBP, httpClient, logger, opts)}
}

type sbpRequest struct {
	MerchantID    string      `json:"merchant_id"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	OrderID       string      `json:"order_id"`
	QRID          string      `json:"qr_id,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Description   string      `json:"description"`
}

type sbpResponse struct {
	Status        string     `json:"status"`
	TransactionID flexString `json:"transaction_id"`
	ReceiptNumber flexString `json:"receipt_number"`
	CardMask      string     `json:"card_mask"`
	Message       string     `json:"message"`
}

// ID returns domain.BankAcquirerSBP
func (b *SBP) ID() domain.BankAcquirer {
	return domain.BankAcquirerSBP
}

// Charge posts the payment to {base}/payment
func (b *SBP) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.PaymentResult, error) {
	payload, err := json.Marshal(sbpRequest{
		MerchantID:    b.cfg.MerchantID,
		Amount:        json.Number(req.Amount.StringFixed(2)),
		Currency:      domain.DefaultCurrency,
		OrderID:       req.TransactionID,
		QRID:          req.QRID,
		CustomerPhone: req.Phone,
		Description:   describe(req.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sbp request: %w", err)
	}

	rep, err := b.t.post(ctx, b.cfg.BaseURL+"/payment", "application/json",
		map[string]string{"Authorization": "Bearer " + b.cfg.APIKey}, payload)
	if err != nil {
		return nil, err
	}

	var resp sbpResponse
	if err := json.Unmarshal(rep.body, &resp); err != nil {
		return nil, b.t.badResponse(rep, err)
	}

	if rep.status == http.StatusOK && resp.Status == "success" {
		return &ports.PaymentResult{
			Success:           true,
			BankTransactionID: string(resp.TransactionID),
			BankResponse:      string(rep.body),
			ReceiptNumber:     string(resp.ReceiptNumber),
			CardMask:          resp.CardMask,
		}, nil
	}

	msg := resp.Message
	if msg == "" {
		msg = "SBP payment rejected"
	}
	return &ports.PaymentResult{BankResponse: string(rep.body), ErrorMessage: msg}, nil
}
