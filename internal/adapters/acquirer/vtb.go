package acquirer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kevin07696/paygo-service/internal/card"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

// VTB is the default card acquirer
type VTB struct {
	cfg Config
	t   *transport
}

// NewVTB creates the VTB backend
func NewVTB(cfg Config, httpClient HTTPClient, logger ports.Logger, opts ...Option) *VTB {
	return &VTB{cfg: cfg, t: newTransport(domain.BankAcquirerVTB, httpClient, logger, opts)}
}

type vtbCardData struct {
	PAN      string `json:"pan"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVV      string `json:"cvv"`
}

type vtbRequest struct {
	MerchantID  string      `json:"merchant_id"`
	Amount      int64       `json:"amount"` // kopecks
	Currency    string      `json:"currency"`
	OrderID     string      `json:"order_id"`
	CardData    vtbCardData `json:"card_data"`
	Description string      `json:"description"`
}

type vtbResponse struct {
	Status        string     `json:"status"`
	TransactionID flexString `json:"transaction_id"`
	ReceiptID     flexString `json:"receipt_id"`
	Message       string     `json:"message"`
}

// ID returns domain.BankAcquirerVTB
func (b *VTB) ID() domain.BankAcquirer {
	return domain.BankAcquirerVTB
}

// Charge posts the card payment to {base}/payment
func (b *VTB) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.PaymentResult, error) {
	if req.Card == nil {
		return nil, domain.Validation("card_number", "card data is required")
	}
	pan := card.Clean(req.Card.Number)

	payload, err := json.Marshal(vtbRequest{
		MerchantID: b.cfg.MerchantID,
		Amount:     domain.MinorUnits(req.Amount),
		Currency:   domain.DefaultCurrency,
		OrderID:    req.TransactionID,
		CardData: vtbCardData{
			PAN:      pan,
			ExpMonth: req.Card.ExpiryMonth,
			ExpYear:  req.Card.ExpiryYear,
			CVV:      req.Card.CVV,
		},
		Description: describe(req.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vtb request: %w", err)
	}

	rep, err := b.t.post(ctx, b.cfg.BaseURL+"/payment", "application/json",
		map[string]string{"Authorization": "Bearer " + b.cfg.APIKey}, payload)
	if err != nil {
		return nil, err
	}

	var resp vtbResponse
	if err := json.Unmarshal(rep.body, &resp); err != nil {
		return nil, b.t.badResponse(rep, err)
	}

	if rep.status == http.StatusOK && resp.Status == "approved" {
		return &ports.PaymentResult{
			Success:           true,
			BankTransactionID: string(resp.TransactionID),
			BankResponse:      string(rep.body),
			CardMask:          card.LastFourMask(pan),
			ReceiptNumber:     "VTB" + string(resp.ReceiptID),
		}, nil
	}

	msg := resp.Message
	if msg == "" {
		msg = "declined by VTB"
	}
	return &ports.PaymentResult{BankResponse: string(rep.body), ErrorMessage: msg}, nil
}
