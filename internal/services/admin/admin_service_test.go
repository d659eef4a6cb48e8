package admin

import (
	"context"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/adapters/memory"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard_Empty(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Users(), store.Terminals(), store.Transactions(), store.Cards(), nil)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.Transactions.Total)
	assert.Equal(t, float64(0), d.Transactions.SuccessRate)
	assert.True(t, d.Financial.TotalVolume.IsZero())
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now().UTC()

	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u1", Email: "a@example.com", Phone: "79000000001", IsActive: true, IsVerified: true}))
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u2", Email: "b@example.com", Phone: "79000000002"}))

	require.NoError(t, store.Terminals().Create(ctx, &domain.Terminal{TerminalID: "POS-01", Status: domain.TerminalStatusOnline}))
	require.NoError(t, store.Terminals().Create(ctx, &domain.Terminal{TerminalID: "POS-02", Status: domain.TerminalStatusOffline}))

	require.NoError(t, store.Cards().Add(ctx, &domain.Card{ID: "c1", UserID: "u1", Fingerprint: "f1", IsActive: true}))
	require.NoError(t, store.Cards().Add(ctx, &domain.Card{ID: "c2", UserID: "u1", Fingerprint: "f2"}))

	txns := []struct {
		id       string
		amount   int64
		created  time.Time
		complete bool
	}{
		{id: "TXN_OLD", amount: 1000, created: now.AddDate(0, -2, 0), complete: true},
		{id: "TXN_TODAY", amount: 300, created: now, complete: true},
		{id: "TXN_OPEN", amount: 50, created: now},
	}
	for _, tx := range txns {
		require.NoError(t, store.Transactions().Create(ctx, &domain.Transaction{
			TransactionID: tx.id,
			TerminalID:    "POS-01",
			Amount:        decimal.NewFromInt(tx.amount),
			PaymentMethod: domain.PaymentMethodQRCode,
			Status:        domain.TransactionStatusPending,
			CreatedAt:     tx.created,
			ExpiresAt:     tx.created.Add(5 * time.Minute),
		}))
		if tx.complete {
			_, err := store.Transactions().MarkProcessing(ctx, tx.id, now)
			require.NoError(t, err)
			_, err = store.Transactions().Complete(ctx, tx.id, ports.Settlement{}, now)
			require.NoError(t, err)
		}
	}

	svc := NewService(store.Users(), store.Terminals(), store.Transactions(), store.Cards(), nil)
	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), d.Users.Total)
	assert.Equal(t, int64(1), d.Users.Active)
	assert.Equal(t, int64(1), d.Users.Verified)
	assert.Equal(t, int64(2), d.Terminals.Total)
	assert.Equal(t, int64(1), d.Terminals.Online)
	assert.Equal(t, int64(3), d.Transactions.Total)
	assert.Equal(t, int64(2), d.Transactions.Successful)
	assert.Equal(t, 66.67, d.Transactions.SuccessRate)
	assert.Equal(t, int64(2), d.Cards.Total)
	assert.Equal(t, int64(1), d.Cards.Active)

	assert.True(t, decimal.NewFromInt(1300).Equal(d.Financial.TotalVolume))
	assert.True(t, decimal.NewFromInt(300).Equal(d.Financial.MonthlyVolume))
	assert.True(t, decimal.NewFromInt(300).Equal(d.Financial.DailyVolume))
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, float64(0), successRate(0, 0))
	assert.Equal(t, float64(100), successRate(4, 4))
	assert.Equal(t, 33.33, successRate(1, 3))
}
