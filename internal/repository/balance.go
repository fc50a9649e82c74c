package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credpal/wallet-api/internal/domain"
)

const balanceColumns = `id, user_id, amount, updated_at`

type BalanceRepository struct {
	db *sql.DB
}

func NewBalanceRepository(db *sql.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

func (r *BalanceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE user_id = $1`, userID,
	)
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUserID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUserID: %w", err)
	}
	return b, nil
}

// Create provisions the balance row. Called once, inside the same transaction
// that creates the user.
func (r *BalanceRepository) Create(ctx context.Context, tx *sql.Tx, balance *domain.Balance) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balances (id, user_id, amount, updated_at) VALUES ($1, $2, $3, $4)`,
		balance.ID, balance.UserID, balance.Amount, balance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetForUpdate locks the user's balance row for the lifetime of tx. Every
// read-check-write sequence on a balance goes through this lock, which is
// what serializes concurrent mutations for the same user.
func (r *BalanceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Balance, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE user_id = $1 FOR UPDATE`, userID,
	)
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return b, nil
}

func (r *BalanceRepository) UpdateAmount(ctx context.Context, tx *sql.Tx, userID uuid.UUID, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE balances SET amount = $1, updated_at = $2 WHERE user_id = $3`,
		amount, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("UpdateAmount: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateAmount: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateAmount: %w", domain.ErrNotFound)
	}
	return nil
}

func scanBalance(s scanner) (*domain.Balance, error) {
	var b domain.Balance
	err := s.Scan(&b.ID, &b.UserID, &b.Amount, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
