package identity_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/repository"
	"github.com/credpal/wallet-api/internal/service/identity"
	"github.com/credpal/wallet-api/internal/testutil"
)

func TestRegister_ProvisionsBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := identity.NewService(
		repository.NewUserRepository(db),
		repository.NewBalanceRepository(db),
		db,
	)
	ctx := context.Background()

	user, err := svc.Register(ctx, identity.RegisterRequest{
		Username: "alice",
		Email:    "alice@test.com",
		FullName: "Alice Doe",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// Stored hash verifies against the plaintext.
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123"))
	assert.NoError(t, err)

	// The balance row is born with the user, seeded to zero.
	balance := testutil.GetBalance(t, db, user.ID)
	assert.True(t, balance.Equal(decimal.Zero), "balance = %s", balance)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := identity.NewService(
		repository.NewUserRepository(db),
		repository.NewBalanceRepository(db),
		db,
	)
	ctx := context.Background()

	_, err := svc.Register(ctx, identity.RegisterRequest{
		Username: "bob",
		Email:    "bob@test.com",
		FullName: "Bob One",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, identity.RegisterRequest{
		Username: "bob2",
		Email:    "bob@test.com",
		FullName: "Bob Two",
		Password: "password123",
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := identity.NewService(
		repository.NewUserRepository(db),
		repository.NewBalanceRepository(db),
		db,
	)
	ctx := context.Background()

	_, err := svc.Register(ctx, identity.RegisterRequest{
		Username: "carol",
		Email:    "carol@test.com",
		FullName: "Carol One",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, identity.RegisterRequest{
		Username: "carol",
		Email:    "carol2@test.com",
		FullName: "Carol Two",
		Password: "password123",
	})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)
}
