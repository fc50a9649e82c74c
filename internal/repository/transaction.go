package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/credpal/wallet-api/internal/domain"
)

const transactionColumns = `id, user_id, amount, type, status, description,
	recipient_id, reference, created_at`

const (
	referencePrefix   = "TXN"
	referenceLength   = 8
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// 36^8 codes make collisions rare; retries handle the unlucky case.
	maxReferenceAttempts = 3
)

type TransactionRepository struct {
	db *sql.DB

	// swapped out in tests to force reference collisions
	newReference func() (string, error)
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db, newReference: generateReference}
}

// Create appends a ledger row inside tx, assigning the sequence id,
// reference code and creation time. The log is append-only: this is the only
// write this repository exposes.
//
// A unique violation aborts the whole enclosing Postgres transaction, so each
// insert runs under a savepoint the collision retry can roll back to without
// losing the caller's balance updates.
func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref, err := r.newReference()
		if err != nil {
			return fmt.Errorf("Create: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `SAVEPOINT insert_transaction`); err != nil {
			return fmt.Errorf("Create: savepoint: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO transactions (user_id, amount, type, status, description, recipient_id, reference)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, reference, created_at`,
			txn.UserID, txn.Amount, txn.Type, txn.Status,
			txn.Description, txn.RecipientID, ref,
		).Scan(&txn.ID, &txn.Reference, &txn.CreatedAt)
		if err == nil {
			if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT insert_transaction`); err != nil {
				return fmt.Errorf("Create: release savepoint: %w", err)
			}
			return nil
		}
		if isUniqueViolation(err, "transactions_reference_key") {
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT insert_transaction`); err != nil {
				return fmt.Errorf("Create: rollback to savepoint: %w", err)
			}
			continue
		}
		return fmt.Errorf("Create: %w", err)
	}
	return fmt.Errorf("Create: reference collision after %d attempts", maxReferenceAttempts)
}

// ListByUser returns the page of transactions where the user is either the
// owner or the transfer recipient, newest first. The sequence id breaks
// created_at ties so pagination stays stable across calls.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1 OR recipient_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByUser: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByUser: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return txns, total, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.Scan(
		&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status,
		&t.Description, &t.RecipientID, &t.Reference, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func generateReference() (string, error) {
	code := make([]byte, referenceLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generateReference: %w", err)
		}
		code[i] = referenceAlphabet[n.Int64()]
	}
	return referencePrefix + string(code), nil
}
