package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrSelfTransfer        = errors.New("cannot transfer to yourself")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already taken")

	// ErrWalletNotProvisioned means a user exists without a balance row.
	// Registration creates both in one transaction, so this is a broken
	// invariant, not a normal user error.
	ErrWalletNotProvisioned = errors.New("wallet not provisioned")
)
