package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credpal/wallet-api/internal/auth"
	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/logging"
	"github.com/credpal/wallet-api/internal/service/wallet"
)

type walletService interface {
	Balance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	Fund(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*wallet.Receipt, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, bankAccount, bankName string) (*wallet.Receipt, error)
	Transfer(ctx context.Context, senderID uuid.UUID, recipientEmail string, amount decimal.Decimal, description string) (*wallet.Receipt, error)
}

type WalletHandler struct {
	wallet walletService
}

func NewWalletHandler(walletSvc walletService) *WalletHandler {
	return &WalletHandler{wallet: walletSvc}
}

type transactionDTO struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"`
	UserID      uuid.UUID  `json:"user_id"`
	Amount      string     `json:"amount"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Description *string    `json:"description"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		Reference:   t.Reference,
		UserID:      t.UserID,
		Amount:      t.Amount.StringFixed(2),
		Type:        string(t.Type),
		Status:      string(t.Status),
		Description: t.Description,
		RecipientID: t.RecipientID,
		CreatedAt:   t.CreatedAt,
	}
}

type receiptDTO struct {
	Balance     string         `json:"balance"`
	Transaction transactionDTO `json:"transaction"`
}

func toReceiptDTO(rcpt *wallet.Receipt) receiptDTO {
	return receiptDTO{
		Balance:     rcpt.Balance.StringFixed(2),
		Transaction: toTransactionDTO(rcpt.Transaction),
	}
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	balance, err := h.wallet.Balance(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("balance lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{
		"balance": balance.Amount.StringFixed(2),
	})
}

type fundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r fundRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	return errs
}

func (h *WalletHandler) Fund(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rcpt, err := h.wallet.Fund(r.Context(), userID, req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Warn("funding failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReceiptDTO(rcpt))
}

type withdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	BankAccount string          `json:"bank_account"`
	BankName    string          `json:"bank_name"`
}

func (r withdrawRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	if r.BankAccount == "" {
		errs = append(errs, FieldError{Field: "bank_account", Message: "required"})
	}
	if r.BankName == "" {
		errs = append(errs, FieldError{Field: "bank_name", Message: "required"})
	}
	return errs
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rcpt, err := h.wallet.Withdraw(r.Context(), userID, req.Amount, req.BankAccount, req.BankName)
	if err != nil {
		logging.FromContext(r.Context()).Warn("withdrawal failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReceiptDTO(rcpt))
}

type transferRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	RecipientEmail string          `json:"recipient_email"`
	Description    string          `json:"description"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	if r.RecipientEmail == "" {
		errs = append(errs, FieldError{Field: "recipient_email", Message: "required"})
	}
	return errs
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rcpt, err := h.wallet.Transfer(r.Context(), userID, req.RecipientEmail, req.Amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReceiptDTO(rcpt))
}
