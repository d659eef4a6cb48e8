// Package acquirer routes payments to bank backends and implements the
// per-bank wire formats.
package acquirer

import (
	"errors"
	"fmt"

	"github.com/kevin07696/paygo-service/internal/card"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

// ErrBiometryRouting is returned for biometric methods. Those payments are
// settled against the user's primary card and never reach an acquirer.
var ErrBiometryRouting = errors.New("biometric payments are not routed to an acquirer")

// acquirerBINs sends cards of the acquiring banks' own issue to them.
// Everything else goes to VTB.
var acquirerBINs = map[string]domain.BankAcquirer{
	"427200": domain.BankAcquirerVTB,
	"427201": domain.BankAcquirerVTB,
	"427202": domain.BankAcquirerVTB,

	"548673": domain.BankAcquirerAlfabank,
	"548674": domain.BankAcquirerAlfabank,
	"415482": domain.BankAcquirerAlfabank,

	"533174": domain.BankAcquirerCentrinvest,
	"533175": domain.BankAcquirerCentrinvest,
}

// Router picks the acquirer for a payment and hands out its backend
type Router struct {
	backends map[domain.BankAcquirer]ports.AcquirerBackend
}

// NewRouter registers the given backends by their ID
func NewRouter(backends ...ports.AcquirerBackend) *Router {
	r := &Router{backends: make(map[domain.BankAcquirer]ports.AcquirerBackend, len(backends))}
	for _, b := range backends {
		r.backends[b.ID()] = b
	}
	return r
}

// Select decides which acquirer handles a payment
func (r *Router) Select(method domain.PaymentMethod, cardNumber string) (domain.BankAcquirer, error) {
	switch method {
	case domain.PaymentMethodQRCode:
		return domain.BankAcquirerSBP, nil
	case domain.PaymentMethodNFCCard, domain.PaymentMethodNFCPhone:
		if card.Clean(cardNumber) == "" {
			return "", domain.Validation("card_number", "card number is required for card payments")
		}
		if id, ok := acquirerBINs[card.BIN(cardNumber)]; ok {
			return id, nil
		}
		return domain.BankAcquirerVTB, nil
	case domain.PaymentMethodBiometryFace, domain.PaymentMethodBiometryFingerprint:
		return "", ErrBiometryRouting
	}
	return "", domain.Validation("payment_method", fmt.Sprintf("unsupported payment method %q", method))
}

// Backend returns the registered backend for id
func (r *Router) Backend(id domain.BankAcquirer) (ports.AcquirerBackend, error) {
	b, ok := r.backends[id]
	if !ok {
		return nil, domain.NewDomainError(domain.ErrorCodeAcquirerError, fmt.Sprintf("no backend registered for %s", id))
	}
	return b, nil
}

// Route is Select followed by Backend
func (r *Router) Route(method domain.PaymentMethod, cardNumber string) (ports.AcquirerBackend, error) {
	id, err := r.Select(method, cardNumber)
	if err != nil {
		return nil, err
	}
	return r.Backend(id)
}
