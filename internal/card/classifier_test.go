package card

import (
	"testing"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDetectPaymentSystem(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   domain.PaymentSystem
	}{
		{name: "visa", number: "4111111111111111", want: domain.PaymentSystemVisa},
		{name: "visa_with_spaces", number: "4532 0151 1283 0366", want: domain.PaymentSystemVisa},
		{name: "mir_low", number: "2200123456789012", want: domain.PaymentSystemMir},
		{name: "mir_high", number: "2204000000000000", want: domain.PaymentSystemMir},
		{name: "mastercard_2_series", number: "2221000000000009", want: domain.PaymentSystemMastercard},
		{name: "mastercard_2205_outside_mir", number: "2205000000000000", want: domain.PaymentSystemMastercard},
		{name: "mastercard_5_series", number: "5555555555554444", want: domain.PaymentSystemMastercard},
		{name: "amex_34", number: "340000000000009", want: domain.PaymentSystemAmex},
		{name: "amex_37", number: "378282246310005", want: domain.PaymentSystemAmex},
		{name: "unionpay_sixteen_digits", number: "6011000000000000", want: domain.PaymentSystemUnionPay},
		{name: "six_prefix_too_short", number: "601100000000000", want: domain.PaymentSystemUnknown},
		{name: "twenty_eight_prefix", number: "2800000000000000", want: domain.PaymentSystemUnknown},
		{name: "empty", number: "", want: domain.PaymentSystemUnknown},
		{name: "hyphens_only", number: "--", want: domain.PaymentSystemUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPaymentSystem(tt.number))
		})
	}
}

func TestDetectIssuer(t *testing.T) {
	tests := []struct {
		number string
		want   domain.Issuer
	}{
		{"4276001234567890", domain.IssuerSberbank},
		{"4272011234567890", domain.IssuerVTB},
		{"5486731234567890", domain.IssuerAlfabank},
		{"5331301234567890", domain.IssuerGazprombank},
		{"4377721234567890", domain.IssuerTinkoff},
		{"5331741234567890", domain.IssuerCentrinvest},
		{"4111111111111111", domain.IssuerOther},
		{"42760", domain.IssuerOther},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIssuer(tt.number))
		})
	}
}

func TestClassify(t *testing.T) {
	c := Classify("4111111111111111")
	assert.Equal(t, domain.PaymentSystemVisa, c.PaymentSystem)
	assert.Equal(t, domain.IssuerOther, c.Issuer)
	assert.Equal(t, domain.CardTypeDebit, c.Type)

	assert.Equal(t, domain.PaymentSystemMir, Classify("2200123456789012").PaymentSystem)
	assert.Equal(t, domain.PaymentSystemUnionPay, Classify("6011000000000000").PaymentSystem)
	assert.Equal(t, domain.PaymentSystemUnknown, Classify("").PaymentSystem)
}

func TestBIN(t *testing.T) {
	assert.Equal(t, "427200", BIN("4272 0012 3456 7890"))
	assert.Equal(t, "", BIN("4272"))
}
