package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/adapters/postgres"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Conflicts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := postgres.NewUserRepository(db)
	u := seedUser(t, db, "ivan@example.com", "79001112233")

	dup := *u
	dup.ID = "00000000-0000-0000-0000-000000000001"
	dup.Email = "IVAN@example.com"
	dup.Phone = "79009998877"
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrUserExists)

	got, err := repo.GetByEmail(ctx, "Ivan@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = repo.GetByPhone(ctx, "79001112233")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_DeleteKeepsTransactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := postgres.NewUserRepository(db)
	u := seedUser(t, db, "ivan@example.com", "79001112233")

	require.NoError(t, postgres.NewCardRepository(db).Add(ctx, newCard(u.ID, "fp-a", false, time.Now().UTC())))

	txn := seedTxn(t, db, "TXN_U", "T1", 10, time.Now().UTC())
	_, err := db.GetDB().Exec(ctx, `UPDATE transactions SET user_id = $1 WHERE transaction_id = $2`, u.ID, txn.TransactionID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, u.ID))

	cards, err := postgres.NewCardRepository(db).ListByUser(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Empty(t, cards)

	kept, err := postgres.NewTransactionRepository(db).GetByID(ctx, "TXN_U")
	require.NoError(t, err)
	assert.Nil(t, kept.UserID)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Total)
}
