package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, email, phone string) *domain.User {
	return &domain.User{
		ID:        id,
		Email:     email,
		Phone:     phone,
		FullName:  "Ivan Petrov",
		Role:      domain.UserRoleUser,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func TestUserRepository_UniqueEmailAndPhone(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Users()

	require.NoError(t, repo.Create(ctx, newUser("u1", "ivan@example.com", "79001234567")))

	err := repo.Create(ctx, newUser("u2", "IVAN@example.com", "79007654321"))
	assert.ErrorIs(t, err, domain.ErrUserExists)

	err = repo.Create(ctx, newUser("u3", "other@example.com", "79001234567"))
	assert.ErrorIs(t, err, domain.ErrUserExists)

	u, err := repo.GetByEmail(ctx, "Ivan@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = repo.GetByPhone(ctx, "79001234567")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	users := s.Users()

	require.NoError(t, users.Create(ctx, newUser("u1", "a@example.com", "79000000001")))
	require.NoError(t, s.Cards().Add(ctx, newCard("c1", "u1", "fp1", time.Now())))
	seedTxn(t, s, "TXN_1", "T1", 10, time.Now())
	uid := "u1"
	s.transactions["TXN_1"].UserID = &uid

	require.NoError(t, users.Delete(ctx, "u1"))

	cards, err := s.Cards().ListByUser(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, cards)

	got, err := s.Transactions().GetByID(ctx, "TXN_1")
	require.NoError(t, err)
	assert.Nil(t, got.UserID)

	assert.ErrorIs(t, users.Delete(ctx, "u1"), domain.ErrUserNotFound)
}

func TestUserRepository_Counts(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Users()

	a := newUser("u1", "a@example.com", "79000000001")
	a.IsVerified = true
	b := newUser("u2", "b@example.com", "79000000002")
	b.IsActive = false
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	c, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Total)
	assert.Equal(t, int64(1), c.Active)
	assert.Equal(t, int64(1), c.Verified)
}
