package card

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/adapters/memory"
	cardnum "github.com/kevin07696/paygo-service/internal/card"
	"github.com/kevin07696/paygo-service/internal/domain"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	"github.com/kevin07696/paygo-service/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sberCard = "4276 0012 3456 7896"
	alfaCard = "5486731234567891"
	mirCard  = "2200-1234-5678-9019"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(memory.NewStore().Cards(), cardnum.NewTokenizer("test-secret", nil), mocks.NewMockLogger(), nil)
	require.NoError(t, err)
	return svc
}

func addReq(userID, number string) serviceports.AddCardRequest {
	return serviceports.AddCardRequest{
		UserID:      userID,
		CardNumber:  number,
		HolderName:  "ivan  petrov",
		CVV:         "123",
		ExpiryMonth: 12,
		ExpiryYear:  time.Now().Year() + 3,
	}
}

func TestAddCard_ClassifiesAndTokenizes(t *testing.T) {
	svc := newTestService(t)

	c, err := svc.AddCard(context.Background(), addReq("u1", sberCard))
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, domain.PaymentSystemVisa, c.PaymentSystem)
	assert.Equal(t, domain.IssuerSberbank, c.Issuer)
	assert.Equal(t, domain.CardTypeDebit, c.Type)
	assert.Equal(t, "4276 **** **** 7896", c.Mask)
	assert.Equal(t, "IVAN PETROV", c.HolderName)
	assert.True(t, strings.HasPrefix(c.Token, "TKN_"))
	assert.NotContains(t, c.Token, "42760012")
	assert.NotEmpty(t, c.Fingerprint)
	assert.True(t, c.IsActive)
	assert.True(t, c.IsPrimary, "first card becomes primary")

	mir, err := svc.AddCard(context.Background(), addReq("u1", mirCard))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSystemMir, mir.PaymentSystem)
	assert.False(t, mir.IsPrimary)
}

func TestAddCard_Duplicate(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AddCard(context.Background(), addReq("u1", sberCard))
	require.NoError(t, err)

	_, err = svc.AddCard(context.Background(), addReq("u1", strings.ReplaceAll(sberCard, " ", "")))
	assert.True(t, errors.Is(err, domain.ErrDuplicateCard))

	_, err = svc.AddCard(context.Background(), addReq("u2", sberCard))
	assert.NoError(t, err, "another user may hold the same card")
}

func TestAddCard_Validation(t *testing.T) {
	year := time.Now().Year()

	tests := []struct {
		name   string
		mutate func(r *serviceports.AddCardRequest)
		field  string
	}{
		{name: "bad_luhn", mutate: func(r *serviceports.AddCardRequest) { r.CardNumber = "4276001234567890" }},
		{name: "short_number", mutate: func(r *serviceports.AddCardRequest) { r.CardNumber = "4276" }},
		{name: "holder_with_digits", mutate: func(r *serviceports.AddCardRequest) { r.HolderName = "IVAN 2" }, field: "card_holder_name"},
		{name: "holder_too_short", mutate: func(r *serviceports.AddCardRequest) { r.HolderName = "I" }, field: "card_holder_name"},
		{name: "month_zero", mutate: func(r *serviceports.AddCardRequest) { r.ExpiryMonth = 0 }, field: "expiry_month"},
		{name: "month_13", mutate: func(r *serviceports.AddCardRequest) { r.ExpiryMonth = 13 }, field: "expiry_month"},
		{name: "year_past", mutate: func(r *serviceports.AddCardRequest) { r.ExpiryYear = year - 1 }, field: "expiry_year"},
		{name: "year_too_far", mutate: func(r *serviceports.AddCardRequest) { r.ExpiryYear = year + 21 }, field: "expiry_year"},
		{name: "cvv_letters", mutate: func(r *serviceports.AddCardRequest) { r.CVV = "12a" }, field: "cvv"},
		{name: "cvv_long", mutate: func(r *serviceports.AddCardRequest) { r.CVV = "12345" }, field: "cvv"},
		{name: "unknown_type", mutate: func(r *serviceports.AddCardRequest) { r.CardType = "virtual" }, field: "card_type"},
	}

	svc := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := addReq("u1", alfaCard)
			tt.mutate(&req)

			_, err := svc.AddCard(context.Background(), req)
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))

			var de *domain.DomainError
			if tt.field != "" && errors.As(err, &de) {
				assert.Equal(t, tt.field, de.Details["field"])
			}
		})
	}
}

func TestUpdateCard_DeactivatingPrimaryMovesFlag(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddCard(ctx, addReq("u1", sberCard))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.AddCard(ctx, addReq("u1", alfaCard))
	require.NoError(t, err)

	off := false
	updated, err := svc.UpdateCard(ctx, serviceports.UpdateCardRequest{UserID: "u1", CardID: first.ID, IsActive: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.False(t, updated.IsPrimary)

	primary, err := svc.cards.GetPrimary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.ID)

	on := true
	_, err = svc.UpdateCard(ctx, serviceports.UpdateCardRequest{UserID: "u1", CardID: first.ID, IsPrimary: &on})
	assert.True(t, errors.Is(err, domain.ErrCardInactive))

	name := "anna ivanova"
	renamed, err := svc.UpdateCard(ctx, serviceports.UpdateCardRequest{UserID: "u1", CardID: second.ID, HolderName: &name})
	require.NoError(t, err)
	assert.Equal(t, "ANNA IVANOVA", renamed.HolderName)
	assert.True(t, renamed.IsPrimary)
}

func TestSetPrimaryAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddCard(ctx, addReq("u1", sberCard))
	require.NoError(t, err)
	second, err := svc.AddCard(ctx, addReq("u1", alfaCard))
	require.NoError(t, err)

	c, err := svc.SetPrimary(ctx, "u1", second.ID)
	require.NoError(t, err)
	assert.True(t, c.IsPrimary)

	cards, err := svc.ListCards(ctx, "u1", false)
	require.NoError(t, err)
	primaries := 0
	for _, c := range cards {
		if c.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)

	require.NoError(t, svc.DeleteCard(ctx, "u1", second.ID))
	primary, err := svc.cards.GetPrimary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, primary.ID)

	_, err = svc.GetCard(ctx, "u2", first.ID)
	assert.True(t, errors.Is(err, domain.ErrCardNotFound), "cards are scoped to their owner")
}

func TestVerifyCard(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.AddCard(ctx, addReq("u1", sberCard))
	require.NoError(t, err)

	v, err := svc.VerifyCard(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, v.CardID)
	assert.Equal(t, "1", v.VerificationAmount.String())
	assert.True(t, v.IsVerified)

	_, err = svc.VerifyCard(ctx, "u1", c.ID)
	assert.True(t, errors.Is(err, domain.ErrCardVerified))

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Verified)
}

func TestBindingRequest(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.BindingRequest(context.Background(), serviceports.BindingRequest{
		UserID:    "u1",
		BankCode:  "VTB",
		ReturnURL: "https://paygo.example/cards?done=1",
	})
	require.NoError(t, err)
	assert.Len(t, resp.BindingID, bindingIDLength)
	assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, 5*time.Second)

	u, err := url.Parse(resp.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "secure-vtb.ru", u.Host)
	assert.Equal(t, "/card-binding", u.Path)
	assert.Equal(t, resp.BindingID, u.Query().Get("id"))
	assert.Equal(t, "https://paygo.example/cards?done=1", u.Query().Get("return"))

	other, err := svc.BindingRequest(context.Background(), serviceports.BindingRequest{
		UserID: "u1", BankCode: "vtb", ReturnURL: "https://paygo.example",
	})
	require.NoError(t, err)
	assert.NotEqual(t, resp.BindingID, other.BindingID)

	_, err = svc.BindingRequest(context.Background(), serviceports.BindingRequest{UserID: "u1", BankCode: "vtb", ReturnURL: "/relative"})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.BindingRequest(context.Background(), serviceports.BindingRequest{UserID: "u1", BankCode: "v t b", ReturnURL: "https://x.example"})
	assert.True(t, domain.IsValidationError(err))
}

func TestStats_ByNetworkAndIssuer(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddCard(ctx, addReq("u1", sberCard))
	require.NoError(t, err)
	_, err = svc.AddCard(ctx, addReq("u1", mirCard))
	require.NoError(t, err)
	_, err = svc.AddCard(ctx, addReq("u2", alfaCard))
	require.NoError(t, err)

	mine, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
	assert.Equal(t, int64(1), mine.ByPaymentSystem[domain.PaymentSystemMir])
	assert.Equal(t, int64(1), mine.ByIssuer[domain.IssuerSberbank])

	all, err := svc.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, int64(1), all.ByIssuer[domain.IssuerAlfabank])
}
