package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/ledger"
	"github.com/josh-kwaku/tradebooks/internal/reconcile"
	"github.com/josh-kwaku/tradebooks/internal/service"
	"github.com/josh-kwaku/tradebooks/internal/summary"
)

type moneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func toMoneyDTO(m domain.Money) moneyDTO {
	return moneyDTO{Amount: m.Amount.StringFixed(2), Currency: string(m.Currency)}
}

type conversionDTO struct {
	Original     moneyDTO        `json:"original"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

// pricingDTO flattens Pricing: Conversion is nil for Direct.
type pricingDTO struct {
	Amount     moneyDTO       `json:"amount"`
	Conversion *conversionDTO `json:"conversion,omitempty"`
}

func toPricingDTO(p domain.Pricing) pricingDTO {
	dto := pricingDTO{Amount: toMoneyDTO(p.Booked())}
	if c, ok := p.(domain.Converted); ok {
		dto.Conversion = &conversionDTO{Original: toMoneyDTO(c.Original), ExchangeRate: c.ExchangeRate}
	}
	return dto
}

func toTotalsDTO(t domain.Totals) map[string]string {
	out := make(map[string]string, len(t))
	for _, c := range t.Currencies() {
		out[string(c)] = t.Get(c).StringFixed(2)
	}
	return out
}

type anomalyDTO struct {
	Kind          string    `json:"kind"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Contributed   moneyDTO  `json:"contributed"`
}

type balanceDTO struct {
	Balance   moneyDTO     `json:"balance"`
	Folded    int          `json:"transactions_counted"`
	Excluded  int          `json:"transactions_excluded"`
	Anomalies []anomalyDTO `json:"anomalies"`
}

func toBalanceDTO(r ledger.Result) balanceDTO {
	dto := balanceDTO{
		Balance:   toMoneyDTO(r.Balance),
		Folded:    r.Folded,
		Excluded:  r.Excluded,
		Anomalies: make([]anomalyDTO, len(r.Anomalies)),
	}
	for i, a := range r.Anomalies {
		dto.Anomalies[i] = anomalyDTO{
			Kind:          string(a.Kind),
			TransactionID: a.TransactionID,
			Contributed:   toMoneyDTO(a.Contributed),
		}
	}
	return dto
}

type transactionDTO struct {
	ID              uuid.UUID  `json:"id"`
	BankAccountID   uuid.UUID  `json:"bank_account_id"`
	Type            string     `json:"type"`
	Pricing         pricingDTO `json:"pricing"`
	Status          string     `json:"status"`
	IsReversed      bool       `json:"is_reversed"`
	ReversedAt      *time.Time `json:"reversed_at,omitempty"`
	ReversalReason  *string    `json:"reversal_reason,omitempty"`
	PaymentID       *uuid.UUID `json:"payment_id,omitempty"`
	TransferID      *uuid.UUID `json:"transfer_id,omitempty"`
	Description     string     `json:"description"`
	TransactionDate time.Time  `json:"transaction_date"`
}

func toTransactionDTO(t *domain.BankTransaction) transactionDTO {
	return transactionDTO{
		ID:              t.ID,
		BankAccountID:   t.BankAccountID,
		Type:            string(t.Type),
		Pricing:         toPricingDTO(t.Pricing),
		Status:          string(t.Status),
		IsReversed:      t.IsReversed,
		ReversedAt:      t.ReversedAt,
		ReversalReason:  t.ReversalReason,
		PaymentID:       t.PaymentID,
		TransferID:      t.TransferID,
		Description:     t.Description,
		TransactionDate: t.TransactionDate,
	}
}

type recordedTransactionDTO struct {
	Transaction transactionDTO `json:"transaction"`
	Balance     balanceDTO     `json:"balance"`
}

type reconciliationDTO struct {
	InvoiceID          uuid.UUID `json:"invoice_id"`
	Currency           string    `json:"currency"`
	TotalPaid          string    `json:"total_paid"`
	AdvancePaid        string    `json:"advance_paid"`
	InvoicePaid        string    `json:"invoice_paid"`
	OutstandingBalance string    `json:"outstanding_balance"`
	Recognition        string    `json:"recognition"`
	OrderStatus        string    `json:"order_status,omitempty"`
	PaymentsCounted    int       `json:"payments_counted"`
	PolicyWarning      string    `json:"policy_warning,omitempty"`
	DueDate            *string   `json:"due_date,omitempty"`
	Overdue            *bool     `json:"overdue,omitempty"`
}

func toReconciliationDTO(r reconcile.Result) reconciliationDTO {
	return reconciliationDTO{
		InvoiceID:          r.InvoiceID,
		Currency:           string(r.Currency),
		TotalPaid:          r.TotalPaid.StringFixed(2),
		AdvancePaid:        r.AdvancePaid.StringFixed(2),
		InvoicePaid:        r.InvoicePaid.StringFixed(2),
		OutstandingBalance: r.OutstandingBalance.StringFixed(2),
		Recognition:        string(r.Recognition),
		OrderStatus:        string(r.OrderStatus),
		PaymentsCounted:    r.PaymentsCounted,
		PolicyWarning:      r.PolicyWarning(),
	}
}

func toInvoiceReconciliationDTO(r *service.InvoiceReconciliation) reconciliationDTO {
	dto := toReconciliationDTO(r.Result)
	due := r.DueDate.Format(time.DateOnly)
	dto.DueDate = &due
	dto.Overdue = &r.Overdue
	return dto
}

type paymentDTO struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	Type          string     `json:"type"`
	Pricing       pricingDTO `json:"pricing"`
	Status        string     `json:"status"`
	BankAccountID *uuid.UUID `json:"bank_account_id,omitempty"`
	Reference     string     `json:"reference"`
	PaidAt        time.Time  `json:"paid_at"`
}

type recordedPaymentDTO struct {
	Payment        paymentDTO        `json:"payment"`
	Reconciliation reconciliationDTO `json:"reconciliation"`
	Transaction    *transactionDTO   `json:"transaction,omitempty"`
	AccountBalance *balanceDTO       `json:"account_balance,omitempty"`
}

func toRecordedPaymentDTO(r *service.RecordedPayment) recordedPaymentDTO {
	p := &r.Payment
	dto := recordedPaymentDTO{
		Payment: paymentDTO{
			ID:            p.ID,
			InvoiceID:     p.InvoiceID,
			Type:          string(p.Type),
			Pricing:       toPricingDTO(p.Pricing),
			Status:        string(p.Status),
			BankAccountID: p.BankAccountID,
			Reference:     p.Reference,
			PaidAt:        p.PaidAt,
		},
		Reconciliation: toReconciliationDTO(r.Reconciliation),
	}
	if r.Transaction != nil {
		t := toTransactionDTO(r.Transaction)
		dto.Transaction = &t
	}
	if r.AccountBalance != nil {
		b := toBalanceDTO(*r.AccountBalance)
		dto.AccountBalance = &b
	}
	return dto
}

type policyWarningDTO struct {
	InvoiceID   uuid.UUID `json:"invoice_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderStatus string    `json:"order_status"`
	Message     string    `json:"message"`
}

type summaryDTO struct {
	FiscalYear    int                `json:"fiscal_year"`
	Revenue       map[string]string  `json:"revenue_by_currency"`
	Paid          map[string]string  `json:"paid_by_currency"`
	InvoicePaid   map[string]string  `json:"invoice_paid_by_currency"`
	Advance       map[string]string  `json:"advance_by_currency"`
	Outstanding   map[string]string  `json:"outstanding_by_currency"`
	Pipeline      map[string]string  `json:"pipeline_by_currency"`
	OrderCount    int                `json:"order_count"`
	InvoiceCount  int                `json:"invoice_count"`
	PaymentCount  int                `json:"payment_count"`
	PipelineCount int                `json:"pipeline_count"`
	Warnings      []policyWarningDTO `json:"warnings"`
}

func toSummaryDTO(s *summary.FinancialSummary) summaryDTO {
	dto := summaryDTO{
		FiscalYear:    s.FiscalYear,
		Revenue:       toTotalsDTO(s.Revenue),
		Paid:          toTotalsDTO(s.Paid),
		InvoicePaid:   toTotalsDTO(s.InvoicePaid),
		Advance:       toTotalsDTO(s.Advance),
		Outstanding:   toTotalsDTO(s.Outstanding),
		Pipeline:      toTotalsDTO(s.Pipeline),
		OrderCount:    s.OrderCount,
		InvoiceCount:  s.InvoiceCount,
		PaymentCount:  s.PaymentCount,
		PipelineCount: s.PipelineCount,
		Warnings:      make([]policyWarningDTO, len(s.Warnings)),
	}
	for i, w := range s.Warnings {
		dto.Warnings[i] = policyWarningDTO{
			InvoiceID:   w.InvoiceID,
			OrderID:     w.OrderID,
			OrderStatus: string(w.Status),
			Message:     w.Message,
		}
	}
	return dto
}

type eligibilityDTO struct {
	InvoiceID          uuid.UUID `json:"invoice_id"`
	ClientType         string    `json:"client_type,omitempty"`
	Eligible           bool      `json:"eligible"`
	BelowThreshold     bool      `json:"below_threshold"`
	Transferred        moneyDTO  `json:"transferred"`
	PercentTransferred string    `json:"percent_transferred"`
	ThresholdPct       string    `json:"threshold_pct"`
	TransfersCounted   int       `json:"transfers_counted"`
}

func toEligibilityDTO(e *service.TransferEligibility) eligibilityDTO {
	return eligibilityDTO{
		InvoiceID:          e.InvoiceID,
		ClientType:         string(e.ClientType),
		Eligible:           e.Open,
		BelowThreshold:     e.Eligibility.Eligible,
		Transferred:        toMoneyDTO(e.Transferred),
		PercentTransferred: e.PercentTransferred.StringFixed(2),
		ThresholdPct:       e.ThresholdPct.StringFixed(2),
		TransfersCounted:   e.Counted,
	}
}

type transferDTO struct {
	ID              uuid.UUID  `json:"id"`
	InvoiceID       uuid.UUID  `json:"invoice_id"`
	SourceAccountID uuid.UUID  `json:"source_account_id"`
	DestAccountID   uuid.UUID  `json:"dest_account_id"`
	Debited         moneyDTO   `json:"debited"`
	Pricing         pricingDTO `json:"pricing"`
	Status          string     `json:"status"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type recordedTransferDTO struct {
	Transfer      transferDTO    `json:"transfer"`
	Eligibility   eligibilityDTO `json:"eligibility"`
	SourceBalance balanceDTO     `json:"source_balance"`
	DestBalance   balanceDTO     `json:"dest_balance"`
}

func toRecordedTransferDTO(r *service.RecordedTransfer) recordedTransferDTO {
	t := &r.Transfer
	return recordedTransferDTO{
		Transfer: transferDTO{
			ID:              t.ID,
			InvoiceID:       t.InvoiceID,
			SourceAccountID: t.SourceAccountID,
			DestAccountID:   t.DestAccountID,
			Debited:         toMoneyDTO(t.Pricing.Origin()),
			Pricing:         toPricingDTO(t.Pricing),
			Status:          string(t.Status),
			CompletedAt:     t.CompletedAt,
		},
		Eligibility:   toEligibilityDTO(&r.Eligibility),
		SourceBalance: toBalanceDTO(r.SourceBalance),
		DestBalance:   toBalanceDTO(r.DestBalance),
	}
}
