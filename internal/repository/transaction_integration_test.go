package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/testutil"
)

// fixedReferences replaces the random generator with a scripted sequence so a
// collision with an existing row can be forced deterministically.
func fixedReferences(refs ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		ref := refs[i%len(refs)]
		i++
		return ref, nil
	}
}

func newDeposit(userID uuid.UUID, amount int64) *domain.Transaction {
	return &domain.Transaction{
		UserID: userID,
		Amount: decimal.NewFromInt(amount),
		Type:   domain.TransactionTypeDeposit,
		Status: domain.TransactionStatusApproved,
	}
}

func createInTx(t *testing.T, db *sql.DB, repo *TransactionRepository, txn *domain.Transaction) error {
	t.Helper()
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := repo.Create(ctx, tx, txn); err != nil {
		return err
	}
	require.NoError(t, tx.Commit())
	return nil
}

func TestTransactionCreate_RetriesOnReferenceCollision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.SeedTestUser(t, db, "dana", "dana@test.com", decimal.NewFromInt(1000))
	repo := NewTransactionRepository(db)

	repo.newReference = fixedReferences("TXNAAAA1111")
	first := newDeposit(user.ID, 100)
	require.NoError(t, createInTx(t, db, repo, first))
	require.Equal(t, "TXNAAAA1111", first.Reference)

	// Same code again, then a fresh one: the insert must survive the
	// collision and commit in the same transaction.
	repo.newReference = fixedReferences("TXNAAAA1111", "TXNBBBB2222")
	second := newDeposit(user.ID, 200)
	require.NoError(t, createInTx(t, db, repo, second))
	assert.Equal(t, "TXNBBBB2222", second.Reference)

	assert.Equal(t, 2, testutil.CountTransactions(t, db, user.ID))
}

func TestTransactionCreate_CollisionKeepsTransactionUsable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.SeedTestUser(t, db, "ella", "ella@test.com", decimal.NewFromInt(1000))
	ctx := context.Background()
	repo := NewTransactionRepository(db)

	repo.newReference = fixedReferences("TXNCCCC3333")
	require.NoError(t, createInTx(t, db, repo, newDeposit(user.ID, 100)))

	// A balance write before the colliding insert must survive the
	// savepoint rollback and commit with the retried row.
	repo.newReference = fixedReferences("TXNCCCC3333", "TXNDDDD4444")
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE balances SET amount = amount + 100 WHERE user_id = $1`, user.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, newDeposit(user.ID, 100)))
	require.NoError(t, tx.Commit())

	assert.True(t, testutil.GetBalance(t, db, user.ID).Equal(decimal.NewFromInt(1100)))
	assert.Equal(t, 2, testutil.CountTransactions(t, db, user.ID))
}

func TestTransactionCreate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.SeedTestUser(t, db, "finn", "finn@test.com", decimal.NewFromInt(1000))
	repo := NewTransactionRepository(db)

	repo.newReference = fixedReferences("TXNEEEE5555")
	require.NoError(t, createInTx(t, db, repo, newDeposit(user.ID, 100)))

	err := createInTx(t, db, repo, newDeposit(user.ID, 200))
	require.Error(t, err)
	assert.ErrorContains(t, err, "reference collision")

	assert.Equal(t, 1, testutil.CountTransactions(t, db, user.ID))
}
