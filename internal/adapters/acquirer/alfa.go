package acquirer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kevin07696/paygo-service/internal/card"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

// currencyCodeRUB is the ISO 4217 numeric code Alfa-Bank expects
const currencyCodeRUB = "643"

// Alfa is the Alfa-Bank card acquirer. Requests are form-encoded.
type Alfa struct {
	cfg Config
	t   *transport
}

// NewAlfa creates the Alfa-Bank backend
func NewAlfa(cfg Config, httpClient HTTPClient, logger ports.Logger, opts ...Option) *Alfa {
	return &Alfa{cfg: cfg, t: newTransport(domain.BankAcquirerAlfabank, httpClient, logger, opts)}
}

type alfaResponse struct {
	ErrorCode    flexString `json:"errorCode"`
	ErrorMessage string     `json:"errorMessage"`
	OrderID      flexString `json:"orderId"`
}

// ID returns domain.BankAcquirerAlfabank
func (b *Alfa) ID() domain.BankAcquirer {
	return domain.BankAcquirerAlfabank
}

// Charge posts the card payment to {base}/rest/payment.do
func (b *Alfa) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.PaymentResult, error) {
	if req.Card == nil {
		return nil, domain.Validation("card_number", "card data is required")
	}
	pan := card.Clean(req.Card.Number)

	form := url.Values{}
	form.Set("merchantId", b.cfg.MerchantID)
	form.Set("amount", strconv.FormatInt(domain.MinorUnits(req.Amount), 10))
	form.Set("currency", currencyCodeRUB)
	form.Set("orderNumber", req.TransactionID)
	form.Set("pan", pan)
	form.Set("expiry", fmt.Sprintf("%02d%02d", req.Card.ExpiryMonth, req.Card.ExpiryYear%100))
	form.Set("cvc", req.Card.CVV)
	form.Set("description", describe(req.Description))

	rep, err := b.t.post(ctx, b.cfg.BaseURL+"/rest/payment.do", "application/x-www-form-urlencoded",
		map[string]string{"Authorization": "Bearer " + b.cfg.APIKey}, []byte(form.Encode()))
	if err != nil {
		return nil, err
	}

	var resp alfaResponse
	if err := json.Unmarshal(rep.body, &resp); err != nil {
		return nil, b.t.badResponse(rep, err)
	}

	if rep.status == http.StatusOK && resp.ErrorCode == "0" {
		return &ports.PaymentResult{
			Success:           true,
			BankTransactionID: string(resp.OrderID),
			BankResponse:      string(rep.body),
			CardMask:          card.LastFourMask(pan),
			ReceiptNumber:     "ALFA" + string(resp.OrderID),
		}, nil
	}

	msg := resp.ErrorMessage
	if msg == "" {
		msg = "declined by Alfa-Bank"
	}
	return &ports.PaymentResult{BankResponse: string(rep.body), ErrorMessage: msg}, nil
}
