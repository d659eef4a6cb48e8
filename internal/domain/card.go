package domain

import (
	"time"
)

// PaymentSystem is the card network
type PaymentSystem string

const (
	PaymentSystemVisa       PaymentSystem = "visa"
	PaymentSystemMastercard PaymentSystem = "mastercard"
	PaymentSystemMir        PaymentSystem = "mir"
	PaymentSystemUnionPay   PaymentSystem = "unionpay"
	PaymentSystemAmex       PaymentSystem = "amex"
	PaymentSystemUnknown    PaymentSystem = "unknown"
)

// Issuer is the bank that issued a card, resolved by BIN
type Issuer string

const (
	IssuerSberbank    Issuer = "sberbank"
	IssuerVTB         Issuer = "vtb"
	IssuerAlfabank    Issuer = "alfabank"
	IssuerGazprombank Issuer = "gazprombank"
	IssuerTinkoff     Issuer = "tinkoff"
	IssuerCentrinvest Issuer = "centrinvest"
	IssuerOther       Issuer = "other"
)

// CardType is the funding type of a card
type CardType string

const (
	CardTypeDebit   CardType = "debit"
	CardTypeCredit  CardType = "credit"
	CardTypePrepaid CardType = "prepaid"
)

// Card is a user's tokenized card. The PAN is never stored.
type Card struct {
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	LastUsedAt    *time.Time    `json:"last_used_at,omitempty"`
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Token         string        `json:"-"`
	Fingerprint   string        `json:"-"`
	Mask          string        `json:"card_mask"`
	HolderName    string        `json:"card_holder_name"`
	PaymentSystem PaymentSystem `json:"payment_system"`
	Issuer        Issuer        `json:"bank_issuer"`
	Type          CardType      `json:"card_type"`
	ExpiryMonth   int           `json:"expiry_month"`
	ExpiryYear    int           `json:"expiry_year"`
	IsActive      bool          `json:"is_active"`
	IsPrimary     bool          `json:"is_primary"`
	IsVerified    bool          `json:"is_verified"`
}

// IsValid reports whether p is a known payment system
func (p PaymentSystem) IsValid() bool {
	switch p {
	case PaymentSystemVisa, PaymentSystemMastercard, PaymentSystemMir,
		PaymentSystemUnionPay, PaymentSystemAmex, PaymentSystemUnknown:
		return true
	}
	return false
}

// IsValid reports whether t is a known card type
func (t CardType) IsValid() bool {
	switch t {
	case CardTypeDebit, CardTypeCredit, CardTypePrepaid:
		return true
	}
	return false
}

// IsExpired reports whether the card expiry month lies before now
func (c *Card) IsExpired(now time.Time) bool {
	y, m, _ := now.Date()
	if c.ExpiryYear != y {
		return c.ExpiryYear < y
	}
	return c.ExpiryMonth < int(m)
}

// CanBePrimary returns true if the card may hold the primary flag
func (c *Card) CanBePrimary() bool {
	return c.IsActive
}

// NormalizePrimary restores the primary-card invariant over one user's cards:
// inactive cards are never primary, and when any card is active exactly one
// active card is primary. preferredID wins when it is active; otherwise an
// existing primary is kept, falling back to the most recently created card.
// Cards whose flag changed are returned.
func NormalizePrimary(cards []*Card, preferredID string) []*Card {
	var chosen *Card
	for _, c := range cards {
		if !c.IsActive {
			continue
		}
		if c.ID == preferredID {
			chosen = c
			break
		}
	}
	if chosen == nil {
		for _, c := range cards {
			if c.IsActive && c.IsPrimary && (chosen == nil || c.CreatedAt.After(chosen.CreatedAt)) {
				chosen = c
			}
		}
	}
	if chosen == nil {
		for _, c := range cards {
			if c.IsActive && (chosen == nil || c.CreatedAt.After(chosen.CreatedAt)) {
				chosen = c
			}
		}
	}

	var changed []*Card
	for _, c := range cards {
		want := c == chosen
		if c.IsPrimary != want {
			c.IsPrimary = want
			changed = append(changed, c)
		}
	}
	return changed
}

// PrimaryPreference picks the preferredID to pass to NormalizePrimary after
// updated replaces its stored version in cards. A card asking for the flag
// gets it. A card giving the flag up hands it to the current primary among
// the others, or else to the newest other active card.
func PrimaryPreference(cards []*Card, updated *Card) string {
	if updated.IsPrimary {
		return updated.ID
	}
	var newest *Card
	for _, c := range cards {
		if c.ID == updated.ID || !c.IsActive {
			continue
		}
		if c.IsPrimary {
			return c.ID
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	if newest == nil {
		return ""
	}
	return newest.ID
}
