package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/ledger"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/service"
)

type ledgerService interface {
	GetAccountBalance(ctx context.Context, accountID uuid.UUID) (ledger.Result, error)
	RefreshAccountBalance(ctx context.Context, accountID uuid.UUID) (ledger.Result, error)
	RecordTransaction(ctx context.Context, req service.RecordTransactionRequest) (*service.RecordedTransaction, error)
	CancelTransaction(ctx context.Context, transactionID uuid.UUID) (*service.RecordedTransaction, error)
	ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*service.RecordedTransaction, error)
}

type LedgerHandler struct {
	ledger ledgerService
}

func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

type recordTransactionRequest struct {
	Type            string           `json:"type"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate"`
	Description     string           `json:"description"`
	TransactionDate *time.Time       `json:"transaction_date"`
}

func (r recordTransactionRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	} else if !domain.TransactionType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown transaction type"})
	}

	if r.Amount.IsZero() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be non-zero"})
	}

	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be a 3-letter ISO code"})
	}

	if r.ExchangeRate != nil && !r.ExchangeRate.IsPositive() {
		errs = append(errs, FieldError{Field: "exchange_rate", Message: "must be greater than 0"})
	}

	return errs
}

type reverseTransactionRequest struct {
	Reason string `json:"reason"`
}

func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.ledger.GetAccountBalance(r.Context(), accountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance reconstruction failed", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toBalanceDTO(res))
}

func (h *LedgerHandler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.ledger.RefreshAccountBalance(r.Context(), accountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance refresh failed", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toBalanceDTO(res))
}

func (h *LedgerHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	accountID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req recordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	in := service.RecordTransactionRequest{
		BankAccountID: accountID,
		Type:          domain.TransactionType(req.Type),
		Amount:        req.Amount,
		Currency:      domain.Currency(req.Currency),
		ExchangeRate:  req.ExchangeRate,
		Description:   req.Description,
	}
	if req.TransactionDate != nil {
		in.TransactionDate = req.TransactionDate.UTC()
	}

	out, err := h.ledger.RecordTransaction(r.Context(), in)
	if err != nil {
		log.Warn("transaction recording failed", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/transactions/%s", out.Transaction.ID))
	RespondSuccess(w, http.StatusCreated, recordedTransactionDTO{
		Transaction: toTransactionDTO(&out.Transaction),
		Balance:     toBalanceDTO(out.Balance),
	})
}

func (h *LedgerHandler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	out, err := h.ledger.CancelTransaction(r.Context(), transactionID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction cancel failed", "transaction_id", transactionID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, recordedTransactionDTO{
		Transaction: toTransactionDTO(&out.Transaction),
		Balance:     toBalanceDTO(out.Balance),
	})
}

func (h *LedgerHandler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req reverseTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		RespondValidationError(w, []FieldError{{Field: "reason", Message: "required"}})
		return
	}

	out, err := h.ledger.ReverseTransaction(r.Context(), transactionID, strings.TrimSpace(req.Reason))
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction reversal failed", "transaction_id", transactionID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, recordedTransactionDTO{
		Transaction: toTransactionDTO(&out.Transaction),
		Balance:     toBalanceDTO(out.Balance),
	})
}
