// Package biometry holds the stand-in biometric and terminal signature
// verifiers used until a real matching service is connected.
package biometry

import (
	"context"
	"strings"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

// TemplateVerifier accepts any non-empty template presented for a known user.
// It does not compare against an enrolment.
type TemplateVerifier struct {
	logger ports.Logger
}

var _ ports.BiometryVerifier = (*TemplateVerifier)(nil)

// NewTemplateVerifier creates the verifier
func NewTemplateVerifier(logger ports.Logger) *TemplateVerifier {
	return &TemplateVerifier{logger: logger}
}

// Verify returns false when either the user or the template is missing
func (v *TemplateVerifier) Verify(ctx context.Context, userID, template string, method domain.PaymentMethod) (bool, error) {
	if !method.IsBiometric() {
		return false, domain.Validation("payment_method", "not a biometric payment method")
	}
	if userID == "" || strings.TrimSpace(template) == "" {
		v.logger.Warn("Biometry rejected: missing user or template",
			ports.String("method", string(method)),
			ports.Bool("has_user", userID != ""),
		)
		return false, nil
	}
	return true, nil
}

// AcceptAllSignatures is the default terminal signature check
type AcceptAllSignatures struct{}

var _ ports.SignatureVerifier = AcceptAllSignatures{}

// VerifyTerminalSignature always succeeds
func (AcceptAllSignatures) VerifyTerminalSignature(ctx context.Context, terminalID, transactionID, signature string) error {
	return nil
}
