package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/credpal/wallet-api/internal/auth"
	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/logging"
)

type userProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type balanceReader interface {
	Balance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
}

type UserHandler struct {
	users  userProfileReader
	wallet balanceReader
}

func NewUserHandler(users userProfileReader, wallet balanceReader) *UserHandler {
	return &UserHandler{users: users, wallet: wallet}
}

type profileResponse struct {
	User    userDTO `json:"user"`
	Balance string  `json:"balance"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("profile lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	balance, err := h.wallet.Balance(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("balance lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, profileResponse{
		User:    toUserDTO(user),
		Balance: balance.Amount.StringFixed(2),
	})
}
