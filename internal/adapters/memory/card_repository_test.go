package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCard(id, userID, fingerprint string, createdAt time.Time) *domain.Card {
	return &domain.Card{
		ID:            id,
		UserID:        userID,
		Token:         "TKN_" + id,
		Fingerprint:   fingerprint,
		PaymentSystem: domain.PaymentSystemVisa,
		Issuer:        domain.IssuerOther,
		Type:          domain.CardTypeDebit,
		IsActive:      true,
		CreatedAt:     createdAt,
	}
}

// assertSinglePrimary checks that an active card set has exactly one
// active primary and inactive cards hold none.
func assertSinglePrimary(t *testing.T, repo *CardRepository, userID string) {
	t.Helper()
	cards, err := repo.ListByUser(context.Background(), userID, false)
	require.NoError(t, err)

	active, primary := 0, 0
	for _, c := range cards {
		if c.IsActive {
			active++
		}
		if c.IsPrimary {
			primary++
			assert.True(t, c.IsActive, "inactive card %s is primary", c.ID)
		}
	}
	if active > 0 {
		assert.Equal(t, 1, primary)
	} else {
		assert.Equal(t, 0, primary)
	}
}

func TestCardRepository_PrimaryInvariant(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cards()
	now := time.Now()

	first := newCard("c1", "u1", "fp1", now.Add(-2*time.Hour))
	require.NoError(t, repo.Add(ctx, first))
	assert.True(t, first.IsPrimary, "first card becomes primary")
	assertSinglePrimary(t, repo, "u1")

	second := newCard("c2", "u1", "fp2", now.Add(-time.Hour))
	require.NoError(t, repo.Add(ctx, second))
	assert.False(t, second.IsPrimary)
	assertSinglePrimary(t, repo, "u1")

	third := newCard("c3", "u1", "fp3", now)
	third.IsPrimary = true
	require.NoError(t, repo.Add(ctx, third))
	assert.True(t, third.IsPrimary)
	assertSinglePrimary(t, repo, "u1")

	_, err := repo.SetPrimary(ctx, "u1", "c1")
	require.NoError(t, err)
	primary, err := repo.GetPrimary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c1", primary.ID)
	assertSinglePrimary(t, repo, "u1")

	// deactivating the primary hands the flag to the newest active card
	c1, err := repo.GetByID(ctx, "u1", "c1")
	require.NoError(t, err)
	c1.IsActive = false
	require.NoError(t, repo.Update(ctx, c1))
	primary, err = repo.GetPrimary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c3", primary.ID)
	assertSinglePrimary(t, repo, "u1")

	_, err = repo.SetPrimary(ctx, "u1", "c1")
	assert.ErrorIs(t, err, domain.ErrCardInactive)

	require.NoError(t, repo.Delete(ctx, "u1", "c3"))
	primary, err = repo.GetPrimary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c2", primary.ID)
	assertSinglePrimary(t, repo, "u1")

	require.NoError(t, repo.Delete(ctx, "u1", "c2"))
	_, err = repo.GetPrimary(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNoPrimaryCard)
	assertSinglePrimary(t, repo, "u1")
}

func TestCardRepository_UnsetPrimaryMovesFlag(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cards()
	now := time.Now()

	require.NoError(t, repo.Add(ctx, newCard("c1", "u1", "fp1", now.Add(-time.Hour))))
	require.NoError(t, repo.Add(ctx, newCard("c2", "u1", "fp2", now)))

	c1, err := repo.GetByID(ctx, "u1", "c1")
	require.NoError(t, err)
	require.True(t, c1.IsPrimary)

	c1.IsPrimary = false
	require.NoError(t, repo.Update(ctx, c1))
	assert.False(t, c1.IsPrimary)

	primary, err := repo.GetPrimary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c2", primary.ID)
}

func TestCardRepository_DuplicateFingerprint(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cards()

	require.NoError(t, repo.Add(ctx, newCard("c1", "u1", "same", time.Now())))
	err := repo.Add(ctx, newCard("c2", "u1", "same", time.Now()))
	assert.ErrorIs(t, err, domain.ErrDuplicateCard)

	// another user may hold the same card
	require.NoError(t, repo.Add(ctx, newCard("c3", "u2", "same", time.Now())))
}

func TestCardRepository_Ownership(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cards()
	require.NoError(t, repo.Add(ctx, newCard("c1", "u1", "fp1", time.Now())))

	_, err := repo.GetByID(ctx, "u2", "c1")
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u2", "c1"), domain.ErrCardNotFound)
}

func TestCardRepository_Stats(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cards()

	a := newCard("c1", "u1", "fp1", time.Now())
	a.IsVerified = true
	b := newCard("c2", "u1", "fp2", time.Now())
	b.PaymentSystem = domain.PaymentSystemMir
	b.Issuer = domain.IssuerSberbank
	c := newCard("c3", "u2", "fp3", time.Now())
	for _, card := range []*domain.Card{a, b, c} {
		require.NoError(t, repo.Add(ctx, card))
	}

	stats, err := repo.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Verified)
	assert.Equal(t, int64(1), stats.ByPaymentSystem[domain.PaymentSystemMir])
	assert.Equal(t, int64(1), stats.ByIssuer[domain.IssuerSberbank])

	all, err := repo.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, int64(3), all.Active)
}
