// Package card holds the pure card-number functions: cleaning, network and
// issuer classification, Luhn validation, masking and tokenization.
package card

import (
	"strings"

	"github.com/kevin07696/paygo-service/internal/domain"
)

// Classification is everything derivable from a card number alone
type Classification struct {
	PaymentSystem domain.PaymentSystem
	Issuer        domain.Issuer
	Type          domain.CardType
}

// issuerBINs maps 6-digit BINs to the issuing bank.
var issuerBINs = map[string]domain.Issuer{
	"427600": domain.IssuerSberbank,
	"427601": domain.IssuerSberbank,
	"427602": domain.IssuerSberbank,
	"546938": domain.IssuerSberbank,
	"639002": domain.IssuerSberbank,

	"427200": domain.IssuerVTB,
	"427201": domain.IssuerVTB,
	"427202": domain.IssuerVTB,
	"531301": domain.IssuerVTB,

	"548673": domain.IssuerAlfabank,
	"548674": domain.IssuerAlfabank,
	"415482": domain.IssuerAlfabank,
	"458111": domain.IssuerAlfabank,

	"427644": domain.IssuerGazprombank,
	"427645": domain.IssuerGazprombank,
	"533130": domain.IssuerGazprombank,

	"437772": domain.IssuerTinkoff,
	"521324": domain.IssuerTinkoff,
	"428906": domain.IssuerTinkoff,

	"533174": domain.IssuerCentrinvest,
	"533175": domain.IssuerCentrinvest,
}

var cleaner = strings.NewReplacer(" ", "", "-", "")

// Clean strips the spaces and hyphens terminals and users type into numbers.
func Clean(number string) string {
	return cleaner.Replace(number)
}

// BIN returns the first six digits of the cleaned number, or "" when shorter.
func BIN(number string) string {
	n := Clean(number)
	if len(n) < 6 {
		return ""
	}
	return n[:6]
}

// Classify derives network, issuer and the default card type.
func Classify(number string) Classification {
	return Classification{
		PaymentSystem: DetectPaymentSystem(number),
		Issuer:        DetectIssuer(number),
		Type:          domain.CardTypeDebit,
	}
}

// DetectPaymentSystem applies the prefix rules in priority order. Mir's
// 2200-2204 range is tested before the wider 22-27 Mastercard range.
func DetectPaymentSystem(number string) domain.PaymentSystem {
	n := Clean(number)
	if n == "" {
		return domain.PaymentSystemUnknown
	}

	switch {
	case n[0] == '4':
		return domain.PaymentSystemVisa
	case hasPrefixInRange(n, 4, 2200, 2204):
		return domain.PaymentSystemMir
	case n[0] == '5' || hasPrefixInRange(n, 2, 22, 27):
		return domain.PaymentSystemMastercard
	case strings.HasPrefix(n, "34") || strings.HasPrefix(n, "37"):
		return domain.PaymentSystemAmex
	case n[0] == '6' && len(n) >= 16:
		return domain.PaymentSystemUnionPay
	}
	return domain.PaymentSystemUnknown
}

// DetectIssuer looks the BIN up in the static issuer table.
func DetectIssuer(number string) domain.Issuer {
	if issuer, ok := issuerBINs[BIN(number)]; ok {
		return issuer
	}
	return domain.IssuerOther
}

// hasPrefixInRange reports whether the first width digits of n, read as a
// number, fall within [lo, hi].
func hasPrefixInRange(n string, width, lo, hi int) bool {
	if len(n) < width {
		return false
	}
	v := 0
	for i := 0; i < width; i++ {
		c := n[i]
		if c < '0' || c > '9' {
			return false
		}
		v = v*10 + int(c-'0')
	}
	return v >= lo && v <= hi
}
