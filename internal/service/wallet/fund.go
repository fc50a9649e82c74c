package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/logging"
)

const fundingDescription = "Wallet funding"

// Fund credits the user's balance and appends the matching deposit row in one
// transaction. Funding is approved instantly; it can only fail on validation
// or storage errors.
func (s *Service) Fund(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Receipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Fund: %w", domain.ErrInvalidAmount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Fund: begin tx: %w", err)
	}
	defer tx.Rollback()

	balance, err := s.lockBalance(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("Fund: %w", err)
	}

	newAmount := balance.Amount.Add(amount)
	if err := s.balances.UpdateAmount(ctx, tx, userID, newAmount); err != nil {
		return nil, fmt.Errorf("Fund: update balance: %w", err)
	}

	desc := fundingDescription
	txn := &domain.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionTypeDeposit,
		Status:      domain.TransactionStatusApproved,
		Description: &desc,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("Fund: append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Fund: commit: %w", err)
	}

	logging.FromContext(ctx).Info("wallet funded",
		"user_id", userID,
		"amount", amount,
		"reference", txn.Reference,
	)

	return &Receipt{Transaction: txn, Balance: newAmount}, nil
}

// Withdraw debits the user's balance after checking sufficiency under the
// same row lock as the write, so there is no stale-read window.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, bankAccount, bankName string) (*Receipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInvalidAmount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: begin tx: %w", err)
	}
	defer tx.Rollback()

	balance, err := s.lockBalance(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	if balance.Amount.LessThan(amount) {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInsufficientBalance)
	}

	newAmount := balance.Amount.Sub(amount)
	if err := s.balances.UpdateAmount(ctx, tx, userID, newAmount); err != nil {
		return nil, fmt.Errorf("Withdraw: update balance: %w", err)
	}

	desc := fmt.Sprintf("Withdrawal to %s account %s", bankName, bankAccount)
	txn := &domain.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionTypeWithdrawal,
		Status:      domain.TransactionStatusApproved,
		Description: &desc,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("Withdraw: append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Withdraw: commit: %w", err)
	}

	logging.FromContext(ctx).Info("withdrawal completed",
		"user_id", userID,
		"amount", amount,
		"bank_name", bankName,
		"reference", txn.Reference,
	)

	return &Receipt{Transaction: txn, Balance: newAmount}, nil
}
