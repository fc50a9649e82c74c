package wallet_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/repository"
	"github.com/credpal/wallet-api/internal/service/wallet"
	"github.com/credpal/wallet-api/internal/testutil"
)

func setupWalletService(t *testing.T, db *sql.DB) *wallet.Service {
	t.Helper()
	return wallet.NewService(
		repository.NewBalanceRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewUserRepository(db),
		db,
	)
}

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestFund_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "alice", "alice@test.com", d(0))

	rcpt, err := svc.Fund(ctx, user.ID, d(5000))
	require.NoError(t, err)

	assert.True(t, rcpt.Balance.Equal(d(5000)), "balance = %s", rcpt.Balance)
	assert.Equal(t, domain.TransactionTypeDeposit, rcpt.Transaction.Type)
	assert.Equal(t, domain.TransactionStatusApproved, rcpt.Transaction.Status)
	assert.True(t, rcpt.Transaction.Amount.Equal(d(5000)))
	require.NotNil(t, rcpt.Transaction.Description)
	assert.Equal(t, "Wallet funding", *rcpt.Transaction.Description)
	assert.Regexp(t, `^TXN[A-Z0-9]{8}$`, rcpt.Transaction.Reference)

	assert.True(t, testutil.GetBalance(t, db, user.ID).Equal(d(5000)))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, user.ID))
}

func TestFund_InvalidAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "bob", "bob@test.com", d(100))

	_, err := svc.Fund(ctx, user.ID, d(0))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Fund(ctx, user.ID, d(-50))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.True(t, testutil.GetBalance(t, db, user.ID).Equal(d(100)))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, user.ID))
}

func TestFund_WalletNotProvisioned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedUserWithoutBalance(t, db, "ghost", "ghost@test.com")

	_, err := svc.Fund(ctx, user.ID, d(100))
	require.ErrorIs(t, err, domain.ErrWalletNotProvisioned)
}

func TestWithdraw_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "carol", "carol@test.com", d(5000))

	rcpt, err := svc.Withdraw(ctx, user.ID, d(2000), "0123456789", "GTBank")
	require.NoError(t, err)

	assert.True(t, rcpt.Balance.Equal(d(3000)))
	assert.Equal(t, domain.TransactionTypeWithdrawal, rcpt.Transaction.Type)
	require.NotNil(t, rcpt.Transaction.Description)
	assert.Equal(t, "Withdrawal to GTBank account 0123456789", *rcpt.Transaction.Description)

	assert.True(t, testutil.GetBalance(t, db, user.ID).Equal(d(3000)))
}

func TestWithdraw_InsufficientBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "dave", "dave@test.com", d(5000))

	_, err := svc.Withdraw(ctx, user.ID, d(6000), "0123456789", "GTBank")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// All-or-nothing: balance and log untouched.
	assert.True(t, testutil.GetBalance(t, db, user.ID).Equal(d(5000)))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, user.ID))
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	sender := testutil.SeedTestUser(t, db, "eve", "eve@test.com", d(5000))
	recipient := testutil.SeedTestUser(t, db, "frank", "frank@test.com", d(1000))

	rcpt, err := svc.Transfer(ctx, sender.ID, "frank@test.com", d(2000), "")
	require.NoError(t, err)

	assert.True(t, rcpt.Balance.Equal(d(3000)))
	assert.Equal(t, domain.TransactionTypeTransfer, rcpt.Transaction.Type)
	assert.Equal(t, sender.ID, rcpt.Transaction.UserID)
	require.NotNil(t, rcpt.Transaction.RecipientID)
	assert.Equal(t, recipient.ID, *rcpt.Transaction.RecipientID)
	require.NotNil(t, rcpt.Transaction.Description)
	assert.Equal(t, "Transfer to frank@test.com", *rcpt.Transaction.Description)

	assert.True(t, testutil.GetBalance(t, db, sender.ID).Equal(d(3000)))
	assert.True(t, testutil.GetBalance(t, db, recipient.ID).Equal(d(3000)))

	// One row, owned by the sender, visible to both sides.
	assert.Equal(t, 1, testutil.CountTransactions(t, db, sender.ID))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, recipient.ID))
}

func TestTransfer_Conservation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	sender := testutil.SeedTestUser(t, db, "grace", "grace@test.com", d(7500))
	recipient := testutil.SeedTestUser(t, db, "heidi", "heidi@test.com", d(2500))

	_, err := svc.Transfer(ctx, sender.ID, "heidi@test.com", d(1234), "rent")
	require.NoError(t, err)

	total := testutil.GetBalance(t, db, sender.ID).Add(testutil.GetBalance(t, db, recipient.ID))
	assert.True(t, total.Equal(d(10000)), "total = %s", total)
}

func TestTransfer_RecipientNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	sender := testutil.SeedTestUser(t, db, "ivan", "ivan@test.com", d(5000))

	_, err := svc.Transfer(ctx, sender.ID, "nobody@test.com", d(100), "")
	require.ErrorIs(t, err, domain.ErrRecipientNotFound)

	assert.True(t, testutil.GetBalance(t, db, sender.ID).Equal(d(5000)))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, sender.ID))
}

func TestTransfer_SelfTransferRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "judy", "judy@test.com", d(5000))

	_, err := svc.Transfer(ctx, user.ID, "judy@test.com", d(100), "")
	require.ErrorIs(t, err, domain.ErrSelfTransfer)

	assert.True(t, testutil.GetBalance(t, db, user.ID).Equal(d(5000)))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, user.ID))
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	sender := testutil.SeedTestUser(t, db, "kim", "kim@test.com", d(100))
	recipient := testutil.SeedTestUser(t, db, "leo", "leo@test.com", d(0))

	_, err := svc.Transfer(ctx, sender.ID, "leo@test.com", d(500), "")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.True(t, testutil.GetBalance(t, db, sender.ID).Equal(d(100)))
	assert.True(t, testutil.GetBalance(t, db, recipient.ID).Equal(d(0)))
}

func TestConcurrentFunds_NoLostUpdates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "mallory", "mallory@test.com", d(0))

	const n = 20
	amount := d(250)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Fund(ctx, user.ID, amount)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, testutil.GetBalance(t, db, user.ID).Equal(d(n*250)))
	assert.Equal(t, n, testutil.CountTransactions(t, db, user.ID))
}

func TestConcurrentOpposingTransfers_NoDeadlock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	a := testutil.SeedTestUser(t, db, "nina", "nina@test.com", d(10000))
	b := testutil.SeedTestUser(t, db, "oscar", "oscar@test.com", d(10000))

	const rounds = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for range rounds {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, a.ID, "oscar@test.com", d(100), "")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, b.ID, "nina@test.com", d(100), "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Equal traffic both ways leaves both balances where they started.
	assert.True(t, testutil.GetBalance(t, db, a.ID).Equal(d(10000)))
	assert.True(t, testutil.GetBalance(t, db, b.ID).Equal(d(10000)))
}

func TestLedgerReconciliation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	a := testutil.SeedTestUser(t, db, "peggy", "peggy@test.com", d(0))
	b := testutil.SeedTestUser(t, db, "quinn", "quinn@test.com", d(0))

	_, err := svc.Fund(ctx, a.ID, d(5000))
	require.NoError(t, err)
	_, err = svc.Fund(ctx, b.ID, d(1000))
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, a.ID, "quinn@test.com", d(2000), "")
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, a.ID, d(500), "0011223344", "Zenith")
	require.NoError(t, err)

	for _, u := range []uuid.UUID{a.ID, b.ID} {
		balance := testutil.GetBalance(t, db, u)
		fromLog := testutil.SumLedger(t, db, u)
		assert.True(t, balance.Equal(fromLog),
			"user %s: balance %s diverged from ledger sum %s", u, balance, fromLog)
	}
}

func TestTransactionLookup_ScopedToParticipants(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	sender := testutil.SeedTestUser(t, db, "tara", "tara@test.com", d(5000))
	recipient := testutil.SeedTestUser(t, db, "ugo", "ugo@test.com", d(0))
	stranger := testutil.SeedTestUser(t, db, "vera", "vera@test.com", d(0))

	rcpt, err := svc.Transfer(ctx, sender.ID, "ugo@test.com", d(500), "")
	require.NoError(t, err)

	// Both sides of the transfer can read the row.
	got, err := svc.Transaction(ctx, sender.ID, rcpt.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, rcpt.Transaction.Reference, got.Reference)

	got, err = svc.Transaction(ctx, recipient.ID, rcpt.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, rcpt.Transaction.ID, got.ID)

	// Anyone else sees not-found, same as a nonexistent id.
	_, err = svc.Transaction(ctx, stranger.ID, rcpt.Transaction.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Transaction(ctx, sender.ID, rcpt.Transaction.ID+1000)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistory_PaginationAndOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "rita", "rita@test.com", d(0))
	peer := testutil.SeedTestUser(t, db, "sam", "sam@test.com", d(0))

	// 25 qualifying rows: 20 deposits, then 5 transfers received.
	for i := range 20 {
		_, err := svc.Fund(ctx, user.ID, d(int64(100+i)))
		require.NoError(t, err)
	}
	_, err := svc.Fund(ctx, peer.ID, d(10000))
	require.NoError(t, err)
	for range 5 {
		_, err := svc.Transfer(ctx, peer.ID, "rita@test.com", d(50), "")
		require.NoError(t, err)
	}

	page1, err := svc.History(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, page1.Total)
	assert.Equal(t, 3, page1.TotalPages)
	require.Len(t, page1.Transactions, 10)

	// Received transfers qualify and sort newest first.
	assert.Equal(t, domain.TransactionTypeTransfer, page1.Transactions[0].Type)
	require.NotNil(t, page1.Transactions[0].RecipientID)
	assert.Equal(t, user.ID, *page1.Transactions[0].RecipientID)

	page2, err := svc.History(ctx, user.ID, 2, 10)
	require.NoError(t, err)
	require.Len(t, page2.Transactions, 10)

	page3, err := svc.History(ctx, user.ID, 3, 10)
	require.NoError(t, err)
	require.Len(t, page3.Transactions, 5)

	// Two pages of 10 equal one page of 20, in order.
	wide, err := svc.History(ctx, user.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, wide.Transactions, 20)

	var paged []int64
	for _, txn := range append(page1.Transactions, page2.Transactions...) {
		paged = append(paged, txn.ID)
	}
	var wideIDs []int64
	for _, txn := range wide.Transactions {
		wideIDs = append(wideIDs, txn.ID)
	}
	assert.Equal(t, wideIDs, paged)

	// Strictly descending ids: stable ordering even on equal timestamps.
	all := append(append(page1.Transactions, page2.Transactions...), page3.Transactions...)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].ID, all[i].ID,
			fmt.Sprintf("position %d not in descending order", i))
	}
}
