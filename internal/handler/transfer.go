package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/service"
)

type transferService interface {
	IsInvoiceTransferEligible(ctx context.Context, invoiceID uuid.UUID) (*service.TransferEligibility, error)
	RecordTransfer(ctx context.Context, req service.RecordTransferRequest) (*service.RecordedTransfer, error)
}

type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type recordTransferRequest struct {
	SourceAccountID uuid.UUID        `json:"source_account_id"`
	DestAccountID   uuid.UUID        `json:"dest_account_id"`
	Amount          decimal.Decimal  `json:"amount"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate"`
	Description     string           `json:"description"`
}

func (r recordTransferRequest) Validate() []FieldError {
	var errs []FieldError

	if r.SourceAccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "source_account_id", Message: "required"})
	}
	if r.DestAccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "dest_account_id", Message: "required"})
	} else if r.DestAccountID == r.SourceAccountID {
		errs = append(errs, FieldError{Field: "dest_account_id", Message: "must differ from source_account_id"})
	}

	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if r.ExchangeRate != nil && !r.ExchangeRate.IsPositive() {
		errs = append(errs, FieldError{Field: "exchange_rate", Message: "must be greater than 0"})
	}

	return errs
}

func (h *TransferHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	invoiceID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	e, err := h.transfers.IsInvoiceTransferEligible(r.Context(), invoiceID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer eligibility failed", "invoice_id", invoiceID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toEligibilityDTO(e))
}

func (h *TransferHandler) Record(w http.ResponseWriter, r *http.Request) {
	invoiceID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req recordTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	out, err := h.transfers.RecordTransfer(r.Context(), service.RecordTransferRequest{
		InvoiceID:       invoiceID,
		SourceAccountID: req.SourceAccountID,
		DestAccountID:   req.DestAccountID,
		Amount:          req.Amount,
		ExchangeRate:    req.ExchangeRate,
		Description:     req.Description,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer recording failed", "invoice_id", invoiceID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toRecordedTransferDTO(out))
}
