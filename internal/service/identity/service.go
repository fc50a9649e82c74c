// Package identity handles account provisioning. A user and their zero
// balance are created in one transaction; nothing else in the system ever
// creates either.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/logging"
)

type userRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, tx *sql.Tx, user *domain.User) error
}

type balanceRepo interface {
	Create(ctx context.Context, tx *sql.Tx, balance *domain.Balance) error
}

type Service struct {
	users    userRepo
	balances balanceRepo
	db       *sql.DB
}

func NewService(users userRepo, balances balanceRepo, db *sql.DB) *Service {
	return &Service{users: users, balances: balances, db: db}
}

type RegisterRequest struct {
	Username    string
	Email       string
	FullName    string
	Password    string
	BankAccount *string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("Register: %w", domain.ErrEmailTaken)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("Register: check email: %w", err)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("Register: %w", domain.ErrUsernameTaken)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("Register: check username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		BankAccount:  req.BankAccount,
		CreatedAt:    now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Register: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.users.Create(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	balance := &domain.Balance{
		ID:        uuid.New(),
		UserID:    user.ID,
		Amount:    decimal.Zero,
		UpdatedAt: now,
	}
	if err := s.balances.Create(ctx, tx, balance); err != nil {
		return nil, fmt.Errorf("Register: provision balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Register: commit: %w", err)
	}

	logging.FromContext(ctx).Info("user registered",
		"user_id", user.ID,
		"username", user.Username,
	)

	return user, nil
}
