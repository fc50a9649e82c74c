package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/credpal/wallet-api/internal/auth"
	"github.com/credpal/wallet-api/internal/domain"
	"github.com/credpal/wallet-api/internal/logging"
	"github.com/credpal/wallet-api/internal/service/wallet"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

type historyService interface {
	History(ctx context.Context, userID uuid.UUID, page, pageSize int) (*wallet.HistoryPage, error)
	Transaction(ctx context.Context, userID uuid.UUID, id int64) (*domain.Transaction, error)
}

type TransactionHandler struct {
	history historyService
}

func NewTransactionHandler(history historyService) *TransactionHandler {
	return &TransactionHandler{history: history}
}

type historyDTO struct {
	Transactions []transactionDTO `json:"transactions"`
	Pagination   paginationDTO    `json:"pagination"`
}

type paginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	page := parsePageParam(r.URL.Query().Get("page"), defaultPage)
	limit := parsePageParam(r.URL.Query().Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	result, err := h.history.History(r.Context(), userID, page, limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("history lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, len(result.Transactions))
	for i := range result.Transactions {
		dtos[i] = toTransactionDTO(&result.Transactions[i])
	}

	RespondSuccess(w, http.StatusOK, historyDTO{
		Transactions: dtos,
		Pagination: paginationDTO{
			Page:       page,
			Limit:      limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	txn, err := h.history.Transaction(r.Context(), userID, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.FromContext(r.Context()).Error("transaction lookup failed", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(txn))
}

// parsePageParam sanitizes a pagination query parameter to a positive
// integer; the ledger engine assumes its inputs are already valid.
func parsePageParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
