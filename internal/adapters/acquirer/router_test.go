package acquirer

import (
	"context"
	"testing"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	id domain.BankAcquirer
}

func (s stubBackend) ID() domain.BankAcquirer { return s.id }

func (s stubBackend) Charge(context.Context, ports.ChargeRequest) (*ports.PaymentResult, error) {
	return &ports.PaymentResult{Success: true}, nil
}

func TestRouter_Select(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name     string
		method   domain.PaymentMethod
		number   string
		expected domain.BankAcquirer
	}{
		{"qr_goes_to_sbp", domain.PaymentMethodQRCode, "", domain.BankAcquirerSBP},
		{"qr_ignores_card", domain.PaymentMethodQRCode, "5486730000000000", domain.BankAcquirerSBP},
		{"vtb_bin", domain.PaymentMethodNFCCard, "4272001234567890", domain.BankAcquirerVTB},
		{"alfa_bin", domain.PaymentMethodNFCCard, "5486 7312 3456 7890", domain.BankAcquirerAlfabank},
		{"alfa_visa_bin", domain.PaymentMethodNFCPhone, "4154821234567890", domain.BankAcquirerAlfabank},
		{"centrinvest_bin", domain.PaymentMethodNFCCard, "5331751234567890", domain.BankAcquirerCentrinvest},
		{"unknown_bin_defaults_to_vtb", domain.PaymentMethodNFCCard, "4532015112830366", domain.BankAcquirerVTB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Select(tt.method, tt.number)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRouter_Select_Errors(t *testing.T) {
	r := NewRouter()

	_, err := r.Select(domain.PaymentMethodBiometryFace, "")
	assert.ErrorIs(t, err, ErrBiometryRouting)

	_, err = r.Select(domain.PaymentMethodBiometryFingerprint, "4532015112830366")
	assert.ErrorIs(t, err, ErrBiometryRouting)

	_, err = r.Select(domain.PaymentMethodNFCCard, "")
	assert.True(t, domain.IsValidationError(err))

	_, err = r.Select(domain.PaymentMethod("cash"), "")
	assert.True(t, domain.IsValidationError(err))
}

func TestRouter_Backend(t *testing.T) {
	r := NewRouter(stubBackend{id: domain.BankAcquirerSBP}, stubBackend{id: domain.BankAcquirerVTB})

	b, err := r.Backend(domain.BankAcquirerSBP)
	require.NoError(t, err)
	assert.Equal(t, domain.BankAcquirerSBP, b.ID())

	_, err = r.Backend(domain.BankAcquirerCentrinvest)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeAcquirerError, domain.GetErrorCode(err))
}

func TestRouter_Route(t *testing.T) {
	r := NewRouter(stubBackend{id: domain.BankAcquirerAlfabank})

	b, err := r.Route(domain.PaymentMethodNFCCard, "5486741234567890")
	require.NoError(t, err)
	assert.Equal(t, domain.BankAcquirerAlfabank, b.ID())

	_, err = r.Route(domain.PaymentMethodQRCode, "")
	assert.Error(t, err, "sbp is not registered")
}
