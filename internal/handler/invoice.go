package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/service"
)

type invoiceService interface {
	ReconcileInvoice(ctx context.Context, invoiceID uuid.UUID) (*service.InvoiceReconciliation, error)
	RefreshInvoice(ctx context.Context, invoiceID uuid.UUID) (*service.InvoiceReconciliation, error)
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.RecordedPayment, error)
}

type InvoiceHandler struct {
	invoices invoiceService
}

func NewInvoiceHandler(invoices invoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type recordPaymentRequest struct {
	Type          string           `json:"type"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	BankAccountID *uuid.UUID       `json:"bank_account_id"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate"`
	Reference     string           `json:"reference"`
	PaidAt        *time.Time       `json:"paid_at"`
}

func (r recordPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	switch domain.PaymentType(r.Type) {
	case domain.PaymentTypeAdvance, domain.PaymentTypeInvoice:
	case "":
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	default:
		errs = append(errs, FieldError{Field: "type", Message: "must be advance or invoice_payment"})
	}

	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
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

func (h *InvoiceHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	invoiceID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.invoices.ReconcileInvoice(r.Context(), invoiceID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("invoice reconciliation failed", "invoice_id", invoiceID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvoiceReconciliationDTO(res))
}

func (h *InvoiceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	invoiceID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.invoices.RefreshInvoice(r.Context(), invoiceID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("invoice refresh failed", "invoice_id", invoiceID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvoiceReconciliationDTO(res))
}

func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	invoiceID, appErr := idFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	in := service.RecordPaymentRequest{
		InvoiceID:     invoiceID,
		Type:          domain.PaymentType(req.Type),
		Amount:        req.Amount,
		Currency:      domain.Currency(req.Currency),
		BankAccountID: req.BankAccountID,
		ExchangeRate:  req.ExchangeRate,
		Reference:     req.Reference,
	}
	if req.PaidAt != nil {
		in.PaidAt = req.PaidAt.UTC()
	}

	out, err := h.invoices.RecordPayment(r.Context(), in)
	if err != nil {
		log.Warn("payment recording failed", "invoice_id", invoiceID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/invoices/%s/reconciliation", invoiceID))
	RespondSuccess(w, http.StatusCreated, toRecordedPaymentDTO(out))
}
