package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/adapters/memory"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/services/payment"
	"github.com/kevin07696/paygo-service/internal/services/terminal"
	"github.com/kevin07696/paygo-service/pkg/resilience"
	"github.com/kevin07696/paygo-service/test/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpirePending(ctx context.Context) (int, error) {
	e.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job ran without a deadline")
	}
	return 2, e.err
}

func (e *countingExpirer) ReapStuckProcessing(ctx context.Context) (int, error) {
	return 0, nil
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) SweepStale(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := NewScheduler(zap.NewNop(), resilience.TestTimeoutConfig())
	err := Register(s, Config{ExpirePendingSpec: "every minute"}, &countingExpirer{}, &countingSweeper{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expire_pending_payments")
}

func TestRegister_EmptySpecDisablesJob(t *testing.T) {
	s := NewScheduler(zap.NewNop(), resilience.TestTimeoutConfig())
	require.NoError(t, Register(s, Config{}, &countingExpirer{}, &countingSweeper{}))
	assert.Empty(t, s.cron.Entries())

	require.NoError(t, Register(s, DefaultConfig(), &countingExpirer{}, &countingSweeper{}))
	assert.Len(t, s.cron.Entries(), 3)
}

func TestRunOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewScheduler(zap.New(core), resilience.TestTimeoutConfig())

	expirer := &countingExpirer{}
	s.RunOnce("expire", func(ctx context.Context) (int64, error) {
		n, err := expirer.ExpirePending(ctx)
		return int64(n), err
	})
	assert.Equal(t, int32(1), expirer.calls.Load())
	assert.Equal(t, 1, logs.FilterMessage("Scheduled job finished").Len())

	expirer.err = errors.New("db down")
	s.RunOnce("expire", func(ctx context.Context) (int64, error) {
		n, err := expirer.ExpirePending(ctx)
		return int64(n), err
	})
	assert.Equal(t, 1, logs.FilterMessage("Scheduled job failed").Len())

	s.RunOnce("panics", func(ctx context.Context) (int64, error) { panic("bug") })
	assert.Equal(t, 2, logs.FilterMessage("Scheduled job failed").Len())
}

func TestShutdownRejectsNewRuns(t *testing.T) {
	s := NewScheduler(zap.NewNop(), resilience.TestTimeoutConfig())
	s.Start()
	require.NoError(t, s.Shutdown(context.Background()))

	ran := false
	s.RunOnce("late", func(ctx context.Context) (int64, error) {
		ran = true
		return 0, nil
	})
	assert.False(t, ran)
}

func TestScheduledRun(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron tick")
	}
	s := NewScheduler(zap.NewNop(), resilience.TestTimeoutConfig())
	sweeper := &countingSweeper{}
	require.NoError(t, Register(s, Config{SweepTerminalSpec: "@every 1s"}, &countingExpirer{}, sweeper))

	s.Start()
	defer func() { _ = s.Shutdown(context.Background()) }()
	assert.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestJobsAgainstServices(t *testing.T) {
	store := memory.NewStore()
	logger := mocks.NewMockLogger()
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, store.Transactions().Create(ctx, &domain.Transaction{
		TransactionID: "TXN_T1_1_deadbeef",
		TerminalID:    "T1",
		Amount:        decimal.NewFromInt(100),
		Currency:      domain.DefaultCurrency,
		PaymentMethod: domain.PaymentMethodQRCode,
		Status:        domain.TransactionStatusPending,
		CreatedAt:     past.Add(-domain.PaymentRequestTTL),
		ExpiresAt:     past,
	}))
	require.NoError(t, store.Terminals().Create(ctx, &domain.Terminal{
		TerminalID:    "T2",
		Name:          "Kiosk",
		Location:      "Hall",
		TerminalType:  domain.TerminalTypeKiosk,
		Status:        domain.TerminalStatusOnline,
		LastHeartbeat: &past,
		CreatedAt:     past,
		UpdatedAt:     past,
	}))

	stuckAt := time.Now().UTC().Add(-10 * time.Minute)
	require.NoError(t, store.Transactions().Create(ctx, &domain.Transaction{
		TransactionID: "TXN_T1_2_cafebabe",
		TerminalID:    "T1",
		Amount:        decimal.NewFromInt(50),
		Currency:      domain.DefaultCurrency,
		PaymentMethod: domain.PaymentMethodNFCCard,
		Status:        domain.TransactionStatusPending,
		CreatedAt:     stuckAt,
		ExpiresAt:     stuckAt.Add(domain.PaymentRequestTTL),
	}))
	_, err := store.Transactions().MarkProcessing(ctx, "TXN_T1_2_cafebabe", stuckAt)
	require.NoError(t, err)

	payments := payment.NewService(payment.Dependencies{
		Transactions: store.Transactions(),
		Logger:       logger,
		Timeouts:     resilience.TestTimeoutConfig(),
	})
	terminals := terminal.NewService(store.Terminals(), logger, nil, 5*time.Minute)

	s := NewScheduler(zap.NewNop(), resilience.TestTimeoutConfig())
	s.RunOnce("expire_pending_payments", func(ctx context.Context) (int64, error) {
		n, err := payments.ExpirePending(ctx)
		return int64(n), err
	})
	s.RunOnce("reap_stuck_payments", counted(payments.ReapStuckProcessing))
	s.RunOnce("sweep_stale_terminals", terminals.SweepStale)

	stuck, err := store.Transactions().GetByID(ctx, "TXN_T1_2_cafebabe")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stuck.Status)

	txn, err := store.Transactions().GetByID(ctx, "TXN_T1_1_deadbeef")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCancelled, txn.Status)

	term, err := store.Terminals().GetByID(ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, domain.TerminalStatusOffline, term.Status)
}
