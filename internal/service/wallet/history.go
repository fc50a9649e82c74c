package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/credpal/wallet-api/internal/domain"
)

type HistoryPage struct {
	Transactions []domain.Transaction
	Total        int
	TotalPages   int
}

// History returns the user's transactions, newest first, including transfers
// received from other users. page and pageSize must already be sanitized to
// positive values by the caller boundary.
func (s *Service) History(ctx context.Context, userID uuid.UUID, page, pageSize int) (*HistoryPage, error) {
	offset := (page - 1) * pageSize

	txns, total, err := s.transactions.ListByUser(ctx, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}

	return &HistoryPage{
		Transactions: txns,
		Total:        total,
		TotalPages:   (total + pageSize - 1) / pageSize,
	}, nil
}

// Transaction returns a single ledger row. Only the owner and the transfer
// recipient may see it; everyone else gets not-found rather than a hint that
// the id exists.
func (s *Service) Transaction(ctx context.Context, userID uuid.UUID, id int64) (*domain.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Transaction: %w", err)
	}

	if txn.UserID != userID && (txn.RecipientID == nil || *txn.RecipientID != userID) {
		return nil, fmt.Errorf("Transaction: %w", domain.ErrNotFound)
	}
	return txn, nil
}
