// Package reconcile derives an invoice's payment figures from its payments
// and the state of its order.
package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/shopspring/decimal"
)

type Result struct {
	InvoiceID          uuid.UUID
	Currency           domain.Currency
	TotalPaid          decimal.Decimal
	AdvancePaid        decimal.Decimal
	InvoicePaid        decimal.Decimal
	OutstandingBalance decimal.Decimal
	Recognition        Recognition
	// OrderStatus is empty for standalone invoices.
	OrderStatus     domain.OrderStatus
	PaymentsCounted int
}

// PolicyWarning is non-empty when the outstanding figure rests on a judgment
// call rather than a known order state.
func (r Result) PolicyWarning() string {
	if r.Recognition == RecognitionUnknownStatus {
		return "order status not recognized; outstanding reported as zero"
	}
	return ""
}

// Reconcile computes an invoice's paid and outstanding figures. order may be
// nil for standalone invoices. Non-active payments are ignored.
func Reconcile(inv *domain.Invoice, order *domain.Order, payments []domain.Payment) (Result, error) {
	if inv == nil {
		return Result{}, fmt.Errorf("Reconcile: nil invoice: %w", domain.ErrInvalidLedgerState)
	}

	recognition, err := RecognizeReceivable(inv, order)
	if err != nil {
		return Result{}, fmt.Errorf("Reconcile: %w", err)
	}

	res := Result{
		InvoiceID:          inv.ID,
		Currency:           inv.Currency,
		TotalPaid:          decimal.Zero,
		AdvancePaid:        decimal.Zero,
		InvoicePaid:        decimal.Zero,
		OutstandingBalance: decimal.Zero,
		Recognition:        recognition,
	}
	if order != nil && !inv.IsStandalone {
		res.OrderStatus = order.Status
	}

	for i := range payments {
		p := &payments[i]
		if p.InvoiceID != inv.ID {
			return Result{}, fmt.Errorf("Reconcile: payment %s belongs to invoice %s, not %s: %w",
				p.ID, p.InvoiceID, inv.ID, domain.ErrInvalidLedgerState)
		}
		if err := domain.ValidatePricing(p.Pricing); err != nil {
			return Result{}, fmt.Errorf("Reconcile: payment %s: %w", p.ID, err)
		}
		if !p.IsActive() {
			continue
		}

		amount, err := amountInInvoiceCurrency(p, inv.Currency)
		if err != nil {
			return Result{}, fmt.Errorf("Reconcile: %w", err)
		}

		if p.Type.IsAdvance() {
			res.AdvancePaid = res.AdvancePaid.Add(amount)
		} else {
			res.InvoicePaid = res.InvoicePaid.Add(amount)
		}
		res.PaymentsCounted++
	}

	res.TotalPaid = res.AdvancePaid.Add(res.InvoicePaid)
	res.OutstandingBalance = outstanding(inv.Amount, res.TotalPaid, recognition)
	return res, nil
}

func outstanding(amount, paid decimal.Decimal, r Recognition) decimal.Decimal {
	if !r.Recognized() {
		return decimal.Zero
	}
	remaining := amount.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// amountInInvoiceCurrency takes the payment's own amount, or the converted
// figure when that is the one denominated like the invoice.
func amountInInvoiceCurrency(p *domain.Payment, c domain.Currency) (decimal.Decimal, error) {
	if origin := p.Pricing.Origin(); origin.Currency == c {
		return origin.Amount, nil
	}
	if booked := p.Pricing.Booked(); booked.Currency == c {
		return booked.Amount, nil
	}
	return decimal.Zero, fmt.Errorf("payment %s in %s cannot settle a %s invoice: %w",
		p.ID, p.Pricing.Origin().Currency, c, domain.ErrInvalidLedgerState)
}

// IsOverdue reports whether a recognized receivable is still open past its
// due date.
func IsOverdue(inv *domain.Invoice, res Result, now time.Time) bool {
	return IsOverdueAfter(inv, res, now, domain.DefaultInvoiceDueDays)
}

// IsOverdueAfter uses dueDays as the payment term for invoices without an
// explicit due date.
func IsOverdueAfter(inv *domain.Invoice, res Result, now time.Time, dueDays int) bool {
	if !res.OutstandingBalance.IsPositive() {
		return false
	}
	return now.After(inv.DueDateAfter(dueDays))
}

// Apply writes the derived figures back onto the invoice's cached fields.
func Apply(inv *domain.Invoice, res Result) {
	inv.TotalPaid = res.TotalPaid
	inv.OutstandingBalance = res.OutstandingBalance
}
