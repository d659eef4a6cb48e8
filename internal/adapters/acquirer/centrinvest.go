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

// Centrinvest is the Centr-Invest card acquirer. It authenticates with an
// X-API-Key header instead of a bearer token.
type Centrinvest struct {
	cfg Config
	t   *transport
}

// NewCentrinvest creates the Centr-Invest backend
func NewCentrinvest(cfg Config, httpClient HTTPClient, logger ports.Logger, opts ...Option) *Centrinvest {
	return &Centrinvest{cfg: cfg, t: newTransport(domain.BankAcquirerCentrinvest, httpClient, logger, opts)}
}

type centrinvestCard struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

type centrinvestRequest struct {
	MerchantID    string          `json:"merchant_id"`
	Amount        json.Number     `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id"`
	Card          centrinvestCard `json:"card"`
}

type centrinvestResponse struct {
	Result  string     `json:"result"`
	ID      flexString `json:"id"`
	Receipt flexString `json:"receipt"`
	Error   string     `json:"error"`
}

// ID returns domain.BankAcquirerCentrinvest
func (b *Centrinvest) ID() domain.BankAcquirer {
	return domain.BankAcquirerCentrinvest
}

// Charge posts the card payment to {base}/api/payment
func (b *Centrinvest) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.PaymentResult, error) {
	if req.Card == nil {
		return nil, domain.Validation("card_number", "card data is required")
	}
	pan := card.Clean(req.Card.Number)

	payload, err := json.Marshal(centrinvestRequest{
		MerchantID:    b.cfg.MerchantID,
		Amount:        json.Number(req.Amount.StringFixed(2)),
		Currency:      domain.DefaultCurrency,
		TransactionID: req.TransactionID,
		Card: centrinvestCard{
			Number:      pan,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CVV:         req.Card.CVV,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal centrinvest request: %w", err)
	}

	rep, err := b.t.post(ctx, b.cfg.BaseURL+"/api/payment", "application/json",
		map[string]string{"X-API-Key": b.cfg.APIKey}, payload)
	if err != nil {
		return nil, err
	}

	var resp centrinvestResponse
	if err := json.Unmarshal(rep.body, &resp); err != nil {
		return nil, b.t.badResponse(rep, err)
	}

	if rep.status == http.StatusOK && resp.Result == "success" {
		return &ports.PaymentResult{
			Success:           true,
			BankTransactionID: string(resp.ID),
			BankResponse:      string(rep.body),
			CardMask:          card.LastFourMask(pan),
			ReceiptNumber:     "CI" + string(resp.Receipt),
		}, nil
	}

	msg := resp.Error
	if msg == "" {
		msg = "declined by Centr-Invest"
	}
	return &ports.PaymentResult{BankResponse: string(rep.body), ErrorMessage: msg}, nil
}
