package ports

import (
	"context"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	domainports "github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// AddCardRequest carries a card number entered by the user. The number and
// CVV are only used to derive the stored token, mask and fingerprint.
type AddCardRequest struct {
	UserID      string
	CardNumber  string
	HolderName  string
	CVV         string
	CardType    domain.CardType
	ExpiryMonth int
	ExpiryYear  int
}

// UpdateCardRequest changes mutable card fields. Nil means unchanged.
type UpdateCardRequest struct {
	HolderName *string
	IsActive   *bool
	IsPrimary  *bool
	UserID     string
	CardID     string
}

// BindingRequest starts a bank-hosted card binding flow
type BindingRequest struct {
	UserID    string
	BankCode  string
	ReturnURL string
}

// BindingResponse is where the user is sent to enter the card at the bank
type BindingResponse struct {
	ExpiresAt   time.Time `json:"expires_at"`
	BindingID   string    `json:"binding_id"`
	RedirectURL string    `json:"redirect_url"`
}

// CardVerification reports the test charge used to verify a card
type CardVerification struct {
	CardID             string          `json:"card_id"`
	VerificationAmount decimal.Decimal `json:"verification_amount"`
	IsVerified         bool            `json:"is_verified"`
}

// CardService manages a user's tokenized cards
type CardService interface {
	AddCard(ctx context.Context, req AddCardRequest) (*domain.Card, error)
	ListCards(ctx context.Context, userID string, activeOnly bool) ([]*domain.Card, error)
	GetCard(ctx context.Context, userID, cardID string) (*domain.Card, error)
	UpdateCard(ctx context.Context, req UpdateCardRequest) (*domain.Card, error)
	DeleteCard(ctx context.Context, userID, cardID string) error
	SetPrimary(ctx context.Context, userID, cardID string) (*domain.Card, error)
	VerifyCard(ctx context.Context, userID, cardID string) (*CardVerification, error)
	BindingRequest(ctx context.Context, req BindingRequest) (*BindingResponse, error)
	Stats(ctx context.Context, userID string) (*domainports.CardStats, error)
}
