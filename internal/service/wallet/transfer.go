package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/logging"
)

// Transfer moves funds from the sender to the user registered under
// recipientEmail. Both balance rows and the single ledger row commit as one
// transaction; a failure at any point leaves both balances untouched.
func (s *Service) Transfer(ctx context.Context, senderID uuid.UUID, recipientEmail string, amount decimal.Decimal, description string) (*Receipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}

	recipient, err := s.users.GetByEmail(ctx, recipientEmail)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Transfer: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	if recipient.ID == senderID {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Transfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockBalancesInOrder(ctx, tx, senderID, recipient.ID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	senderBal, recipientBal := locked[senderID], locked[recipient.ID]

	if senderBal.Amount.LessThan(amount) {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInsufficientBalance)
	}

	newSenderAmount := senderBal.Amount.Sub(amount)
	if err := s.balances.UpdateAmount(ctx, tx, senderID, newSenderAmount); err != nil {
		return nil, fmt.Errorf("Transfer: update sender: %w", err)
	}
	if err := s.balances.UpdateAmount(ctx, tx, recipient.ID, recipientBal.Amount.Add(amount)); err != nil {
		return nil, fmt.Errorf("Transfer: update recipient: %w", err)
	}

	if description == "" {
		description = fmt.Sprintf("Transfer to %s", recipient.Email)
	}
	recipientID := recipient.ID
	txn := &domain.Transaction{
		UserID:      senderID,
		Amount:      amount,
		Type:        domain.TransactionTypeTransfer,
		Status:      domain.TransactionStatusApproved,
		Description: &description,
		RecipientID: &recipientID,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("Transfer: append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Transfer: commit: %w", err)
	}

	logging.FromContext(ctx).Info("transfer completed",
		"sender_id", senderID,
		"recipient_id", recipient.ID,
		"amount", amount,
		"reference", txn.Reference,
	)

	return &Receipt{Transaction: txn, Balance: newSenderAmount}, nil
}

// lockBalancesInOrder acquires both row locks in ascending user-id order.
// Two opposing transfers between the same pair then contend on the same
// first lock instead of deadlocking.
func (s *Service) lockBalancesInOrder(ctx context.Context, tx *sql.Tx, a, b uuid.UUID) (map[uuid.UUID]*domain.Balance, error) {
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}

	locked := make(map[uuid.UUID]*domain.Balance, 2)
	for _, id := range []uuid.UUID{first, second} {
		bal, err := s.lockBalance(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockBalancesInOrder: %w", err)
		}
		locked[id] = bal
	}
	return locked, nil
}
