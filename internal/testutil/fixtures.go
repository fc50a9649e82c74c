package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/credpal/wallet-api/internal/domain"
)

// SeedTestUser inserts a user with a provisioned balance, mirroring what
// registration does in production.
func SeedTestUser(t *testing.T, db *sql.DB, username, email string, balance decimal.Decimal) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     "Test " + username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, username, email, full_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}

	_, err = db.Exec(
		`INSERT INTO balances (id, user_id, amount, updated_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), u.ID, balance, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed balance for %s: %v", email, err)
	}

	return u
}

// SeedUserWithoutBalance inserts a user with no balance row, for exercising
// the broken-provisioning path.
func SeedUserWithoutBalance(t *testing.T, db *sql.DB, username, email string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     "Test " + username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, username, email, full_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}

	return u
}

func GetBalance(t *testing.T, db *sql.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	var amount decimal.Decimal
	err := db.QueryRow(`SELECT amount FROM balances WHERE user_id = $1`, userID).Scan(&amount)
	if err != nil {
		t.Fatalf("get balance for %s: %v", userID, err)
	}
	return amount
}

func CountTransactions(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1 OR recipient_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", userID, err)
	}
	return count
}

// SumLedger recomputes a user's balance purely from the transaction log:
// deposits and received transfers minus withdrawals and sent transfers.
func SumLedger(t *testing.T, db *sql.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := db.QueryRow(
		`SELECT COALESCE(SUM(
			CASE
				WHEN type = 'deposit' AND user_id = $1 THEN amount
				WHEN type = 'withdrawal' AND user_id = $1 THEN -amount
				WHEN type = 'transfer' AND user_id = $1 THEN -amount
				WHEN type = 'transfer' AND recipient_id = $1 THEN amount
				ELSE 0
			END), 0)
		FROM transactions
		WHERE status = 'approved' AND (user_id = $1 OR recipient_id = $1)`,
		userID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum ledger for %s: %v", userID, err)
	}
	return sum
}
