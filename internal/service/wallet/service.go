// Package wallet is the ledger core: it owns every balance mutation and
// guarantees that each one commits together with exactly one transaction row.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credpal/wallet-api/internal/domain"
)

type balanceRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Balance, error)
	UpdateAmount(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount decimal.Decimal) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error)
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
}

type userRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Service struct {
	balances     balanceRepo
	transactions transactionRepo
	users        userRepo
	db           *sql.DB
}

func NewService(balances balanceRepo, transactions transactionRepo, users userRepo, db *sql.DB) *Service {
	return &Service{
		balances:     balances,
		transactions: transactions,
		users:        users,
		db:           db,
	}
}

// Receipt is what every money-movement operation returns: the created ledger
// row and the caller's balance after the mutation.
type Receipt struct {
	Transaction *domain.Transaction
	Balance     decimal.Decimal
}

// Balance returns the user's current balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	b, err := s.balances.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Balance: %w", domain.ErrWalletNotProvisioned)
		}
		return nil, fmt.Errorf("Balance: %w", err)
	}
	return b, nil
}

// lockBalance acquires the per-user row lock and maps a missing row to the
// provisioning-defect error.
func (s *Service) lockBalance(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Balance, error) {
	b, err := s.balances.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lockBalance: %w", domain.ErrWalletNotProvisioned)
		}
		return nil, fmt.Errorf("lockBalance: %w", err)
	}
	return b, nil
}
