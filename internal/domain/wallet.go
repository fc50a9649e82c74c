package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

type TransactionStatus string

// Every operation in this core settles synchronously, so only approved is
// ever written. Pending and rejected stay in the taxonomy for a future
// asynchronous settlement flow.
const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusRejected TransactionStatus = "rejected"
)

// Balance is the single current balance row for a user. It is mutated only
// inside a ledger transaction that also appends the matching Transaction.
type Balance struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	UpdatedAt time.Time
}

// Transaction is an immutable ledger entry. For transfers the single row is
// owned by the sender and RecipientID points at the credited user; a history
// query matches either side.
type Transaction struct {
	ID          int64
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        TransactionType
	Status      TransactionStatus
	Description *string
	RecipientID *uuid.UUID
	Reference   string
	CreatedAt   time.Time
}
