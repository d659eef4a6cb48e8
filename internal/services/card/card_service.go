// Package card manages users' tokenized cards. Card numbers pass through
// only long enough to be classified, tokenized, masked and fingerprinted.
package card

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	cardnum "github.com/kevin07696/paygo-service/internal/card"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	"github.com/kevin07696/paygo-service/pkg/observability"
	"github.com/shopspring/decimal"
	"github.com/zoobzio/clockz"
)

const (
	bindingIDLength = 21
	bindingTTL      = time.Hour
	maxExpiryYears  = 20
)

var (
	holderNamePattern = regexp.MustCompile(`^[\p{L} ]{2,50}$`)
	cvvPattern        = regexp.MustCompile(`^[0-9]{3,4}$`)
	bankCodePattern   = regexp.MustCompile(`^[a-z0-9-]{2,32}$`)

	verificationAmount = decimal.NewFromInt(1)
)

// Service implements serviceports.CardService
type Service struct {
	cards     ports.CardRepository
	tokenizer *cardnum.Tokenizer
	logger    ports.Logger
	clock     clockz.Clock
	bindingID func() string
}

var _ serviceports.CardService = (*Service)(nil)

// NewService creates a new card service
func NewService(cards ports.CardRepository, tokenizer *cardnum.Tokenizer, logger ports.Logger, clock clockz.Clock) (*Service, error) {
	if clock == nil {
		clock = clockz.RealClock
	}
	gen, err := nanoid.Standard(bindingIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create binding id generator: %w", err)
	}
	return &Service{
		cards:     cards,
		tokenizer: tokenizer,
		logger:    logger,
		clock:     clock,
		bindingID: gen,
	}, nil
}

// AddCard validates the number and expiry, tokenizes the card and stores it.
// The user's first active card becomes primary.
func (s *Service) AddCard(ctx context.Context, req serviceports.AddCardRequest) (*domain.Card, error) {
	now := s.clock.Now().UTC()
	if err := validateAddCard(req, now); err != nil {
		return nil, err
	}

	class := cardnum.Classify(req.CardNumber)
	cardType := class.Type
	if req.CardType != "" {
		cardType = req.CardType
	}

	c := &domain.Card{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Token:         s.tokenizer.Tokenize(req.CardNumber),
		Fingerprint:   s.tokenizer.Fingerprint(req.CardNumber),
		Mask:          cardnum.Mask(req.CardNumber),
		HolderName:    normalizeHolder(req.HolderName),
		PaymentSystem: class.PaymentSystem,
		Issuer:        class.Issuer,
		Type:          cardType,
		ExpiryMonth:   req.ExpiryMonth,
		ExpiryYear:    req.ExpiryYear,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.cards.Add(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Card added",
		ports.String("user_id", c.UserID),
		ports.String("card_id", c.ID),
		ports.String("payment_system", string(c.PaymentSystem)),
		ports.String("issuer", string(c.Issuer)),
		ports.Bool("primary", c.IsPrimary),
	)
	observability.RecordCardAdded(string(c.PaymentSystem), string(c.Issuer))
	return c, nil
}

func validateAddCard(req serviceports.AddCardRequest, now time.Time) error {
	if req.UserID == "" {
		return domain.ErrAuthMissing
	}
	if !cardnum.ValidateLuhn(req.CardNumber) {
		return domain.ErrInvalidCardNumber
	}
	if !holderNamePattern.MatchString(strings.TrimSpace(req.HolderName)) {
		return domain.Validation("card_holder_name", "holder name must be 2-50 letters or spaces")
	}
	if req.ExpiryMonth < 1 || req.ExpiryMonth > 12 {
		return domain.Validation("expiry_month", "expiry month must be between 1 and 12")
	}
	year := now.Year()
	if req.ExpiryYear < year || req.ExpiryYear > year+maxExpiryYears {
		return domain.Validation("expiry_year", fmt.Sprintf("expiry year must be between %d and %d", year, year+maxExpiryYears))
	}
	probe := domain.Card{ExpiryMonth: req.ExpiryMonth, ExpiryYear: req.ExpiryYear}
	if probe.IsExpired(now) {
		return domain.Validation("expiry_month", "card has expired")
	}
	if !cvvPattern.MatchString(req.CVV) {
		return domain.Validation("cvv", "cvv must be 3 or 4 digits")
	}
	if req.CardType != "" && !req.CardType.IsValid() {
		return domain.Validation("card_type", fmt.Sprintf("unknown card type %q", req.CardType))
	}
	return nil
}

func normalizeHolder(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// ListCards returns the user's cards, primary first
func (s *Service) ListCards(ctx context.Context, userID string, activeOnly bool) ([]*domain.Card, error) {
	return s.cards.ListByUser(ctx, userID, activeOnly)
}

// GetCard returns one of the user's cards
func (s *Service) GetCard(ctx context.Context, userID, cardID string) (*domain.Card, error) {
	return s.cards.GetByID(ctx, userID, cardID)
}

// UpdateCard applies the requested changes. Deactivating or un-flagging the
// primary card hands the flag to another active card.
func (s *Service) UpdateCard(ctx context.Context, req serviceports.UpdateCardRequest) (*domain.Card, error) {
	c, err := s.cards.GetByID(ctx, req.UserID, req.CardID)
	if err != nil {
		return nil, err
	}

	if req.HolderName != nil {
		if !holderNamePattern.MatchString(strings.TrimSpace(*req.HolderName)) {
			return nil, domain.Validation("card_holder_name", "holder name must be 2-50 letters or spaces")
		}
		c.HolderName = normalizeHolder(*req.HolderName)
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.IsPrimary != nil {
		if *req.IsPrimary && !c.IsActive {
			return nil, domain.ErrCardInactive
		}
		c.IsPrimary = *req.IsPrimary
	}
	if !c.IsActive {
		c.IsPrimary = false
	}
	c.UpdatedAt = s.clock.Now().UTC()

	if err := s.cards.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCard removes a card
func (s *Service) DeleteCard(ctx context.Context, userID, cardID string) error {
	if err := s.cards.Delete(ctx, userID, cardID); err != nil {
		return err
	}
	s.logger.Info("Card deleted", ports.String("user_id", userID), ports.String("card_id", cardID))
	return nil
}

// SetPrimary makes an active card the user's primary
func (s *Service) SetPrimary(ctx context.Context, userID, cardID string) (*domain.Card, error) {
	return s.cards.SetPrimary(ctx, userID, cardID)
}

// VerifyCard runs the 1.00 test charge and marks the card verified. The
// charge itself is not sent to a bank.
func (s *Service) VerifyCard(ctx context.Context, userID, cardID string) (*serviceports.CardVerification, error) {
	c, err := s.cards.GetByID(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if c.IsVerified {
		return nil, domain.ErrCardVerified
	}
	if !c.IsActive {
		return nil, domain.ErrCardInactive
	}

	c.IsVerified = true
	c.UpdatedAt = s.clock.Now().UTC()
	if err := s.cards.Update(ctx, c); err != nil {
		return nil, err
	}

	return &serviceports.CardVerification{
		CardID:             c.ID,
		VerificationAmount: verificationAmount,
		IsVerified:         true,
	}, nil
}

// BindingRequest returns the bank page where the user enters the card
func (s *Service) BindingRequest(ctx context.Context, req serviceports.BindingRequest) (*serviceports.BindingResponse, error) {
	code := strings.ToLower(strings.TrimSpace(req.BankCode))
	if !bankCodePattern.MatchString(code) {
		return nil, domain.Validation("bank_code", "bank code must be 2-32 lowercase letters, digits or '-'")
	}
	ret, err := url.Parse(req.ReturnURL)
	if err != nil || ret.Scheme == "" || ret.Host == "" {
		return nil, domain.Validation("return_url", "return url must be absolute")
	}

	id := s.bindingID()
	q := url.Values{}
	q.Set("id", id)
	q.Set("return", ret.String())

	s.logger.Info("Card binding requested",
		ports.String("user_id", req.UserID),
		ports.String("bank_code", code),
		ports.String("binding_id", id),
	)

	return &serviceports.BindingResponse{
		BindingID:   id,
		RedirectURL: fmt.Sprintf("https://secure-%s.ru/card-binding?%s", code, q.Encode()),
		ExpiresAt:   s.clock.Now().UTC().Add(bindingTTL),
	}, nil
}

// Stats aggregates the cards of userID, or of every user when empty
func (s *Service) Stats(ctx context.Context, userID string) (*ports.CardStats, error) {
	return s.cards.Stats(ctx, userID)
}
