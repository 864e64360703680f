// Package summary rolls reconciled orders, invoices and payments up into
// per-currency dashboard figures. Currencies are never blended.
package summary

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/fiscal"
	"github.com/josh-kwaku/tradebooks/internal/reconcile"
)

// Input is a consistent snapshot. Orders must be the full order set, not just
// the fiscal year's: pipeline value is rolling.
type Input struct {
	FiscalYear   int
	Orders       []domain.Order
	Invoices     []domain.Invoice
	Payments     []domain.Payment
	BankAccounts []domain.BankAccount
	// FiscalYearOf scopes standalone invoices by issue date. Defaults to fiscal.YearOf.
	FiscalYearOf func(time.Time) int
	// Currencies are seeded at zero in every bucket. Defaults to domain.SupportedCurrencies.
	Currencies []domain.Currency
}

type PolicyWarning struct {
	InvoiceID uuid.UUID
	OrderID   uuid.UUID
	Status    domain.OrderStatus
	Message   string
}

type FinancialSummary struct {
	FiscalYear    int
	Revenue       domain.Totals
	Paid          domain.Totals
	InvoicePaid   domain.Totals
	Advance       domain.Totals
	Outstanding   domain.Totals
	Pipeline      domain.Totals
	OrderCount    int
	InvoiceCount  int
	PaymentCount  int
	PipelineCount int
	Warnings      []PolicyWarning
}

type snapshot struct {
	orders   map[uuid.UUID]*domain.Order
	invoices map[uuid.UUID]*domain.Invoice
	accounts map[uuid.UUID]*domain.BankAccount
	payments map[uuid.UUID][]domain.Payment
	yearOf   func(time.Time) int
}

func index(in Input) snapshot {
	s := snapshot{
		orders:   make(map[uuid.UUID]*domain.Order, len(in.Orders)),
		invoices: make(map[uuid.UUID]*domain.Invoice, len(in.Invoices)),
		accounts: make(map[uuid.UUID]*domain.BankAccount, len(in.BankAccounts)),
		payments: make(map[uuid.UUID][]domain.Payment),
		yearOf:   in.FiscalYearOf,
	}
	if s.yearOf == nil {
		s.yearOf = fiscal.YearOf
	}
	for i := range in.Orders {
		s.orders[in.Orders[i].ID] = &in.Orders[i]
	}
	for i := range in.Invoices {
		s.invoices[in.Invoices[i].ID] = &in.Invoices[i]
	}
	for i := range in.BankAccounts {
		s.accounts[in.BankAccounts[i].ID] = &in.BankAccounts[i]
	}
	for _, p := range in.Payments {
		s.payments[p.InvoiceID] = append(s.payments[p.InvoiceID], p)
	}
	return s
}

// Aggregate computes the financial summary for one fiscal year. Every bucket
// map carries the seeded currencies, so a currency with no activity reads as
// zero rather than missing.
func Aggregate(in Input) (FinancialSummary, error) {
	seed := in.Currencies
	if len(seed) == 0 {
		seed = domain.SupportedCurrencies
	}

	out := FinancialSummary{
		FiscalYear:  in.FiscalYear,
		Revenue:     domain.NewTotals(seed...),
		Paid:        domain.NewTotals(seed...),
		InvoicePaid: domain.NewTotals(seed...),
		Advance:     domain.NewTotals(seed...),
		Outstanding: domain.NewTotals(seed...),
		Pipeline:    domain.NewTotals(seed...),
	}

	s := index(in)

	for i := range in.Orders {
		o := &in.Orders[i]
		if o.Status.InPipeline() {
			out.Pipeline.Add(o.Total())
			out.PipelineCount++
		}
		if o.FiscalYear == in.FiscalYear && o.Status != domain.OrderStatusCancelled {
			out.Revenue.Add(o.Total())
			out.OrderCount++
		}
	}

	for i := range in.Payments {
		p := &in.Payments[i]
		if !p.IsActive() {
			continue
		}
		inv, ok := s.invoices[p.InvoiceID]
		if !ok {
			return FinancialSummary{}, fmt.Errorf("Aggregate: payment %s references missing invoice %s: %w",
				p.ID, p.InvoiceID, domain.ErrInvalidLedgerState)
		}
		year, err := s.fiscalYearOfInvoice(inv)
		if err != nil {
			return FinancialSummary{}, fmt.Errorf("Aggregate: payment %s: %w", p.ID, err)
		}
		if year != in.FiscalYear {
			continue
		}

		bucket, err := s.paymentBucket(p)
		if err != nil {
			return FinancialSummary{}, fmt.Errorf("Aggregate: %w", err)
		}
		out.Paid.Add(bucket)
		if p.Type.IsAdvance() {
			out.Advance.Add(bucket)
		} else {
			out.InvoicePaid.Add(bucket)
		}
		out.PaymentCount++
	}

	for i := range in.Invoices {
		inv := &in.Invoices[i]
		year, err := s.fiscalYearOfInvoice(inv)
		if err != nil {
			return FinancialSummary{}, fmt.Errorf("Aggregate: %w", err)
		}
		if year != in.FiscalYear {
			continue
		}
		out.InvoiceCount++

		order := s.orderFor(inv)
		res, err := reconcile.Reconcile(inv, order, s.payments[inv.ID])
		if err != nil {
			return FinancialSummary{}, fmt.Errorf("Aggregate: %w", err)
		}
		if msg := res.PolicyWarning(); msg != "" {
			out.Warnings = append(out.Warnings, PolicyWarning{
				InvoiceID: inv.ID,
				OrderID:   order.ID,
				Status:    order.Status,
				Message:   msg,
			})
		}
		if res.OutstandingBalance.IsPositive() {
			out.Outstanding.Add(domain.NewMoney(res.OutstandingBalance, inv.Currency))
		}
	}

	return out, nil
}

func (s snapshot) orderFor(inv *domain.Invoice) *domain.Order {
	if inv.IsStandalone || inv.OrderID == nil {
		return nil
	}
	return s.orders[*inv.OrderID]
}

func (s snapshot) fiscalYearOfInvoice(inv *domain.Invoice) (int, error) {
	if inv.IsStandalone {
		return s.yearOf(inv.IssuedAt), nil
	}
	if inv.OrderID == nil {
		return 0, fmt.Errorf("invoice %s is neither standalone nor linked to an order: %w", inv.ID, domain.ErrInvalidLedgerState)
	}
	order, ok := s.orders[*inv.OrderID]
	if !ok {
		return 0, fmt.Errorf("invoice %s references missing order %s: %w", inv.ID, *inv.OrderID, domain.ErrInvalidLedgerState)
	}
	return order.FiscalYear, nil
}

// paymentBucket picks the bank account's currency and converted amount when a
// conversion into that account was recorded, else the payment's own amount.
func (s snapshot) paymentBucket(p *domain.Payment) (domain.Money, error) {
	conv, ok := p.Pricing.(domain.Converted)
	if !ok || p.BankAccountID == nil {
		return p.Amount(), nil
	}

	acct, found := s.accounts[*p.BankAccountID]
	if !found {
		return domain.Money{}, fmt.Errorf("payment %s references missing bank account %s: %w",
			p.ID, *p.BankAccountID, domain.ErrInvalidLedgerState)
	}
	if acct.Currency == conv.Original.Currency {
		return conv.Original, nil
	}
	if acct.Currency != conv.Amount.Currency {
		return domain.Money{}, fmt.Errorf("payment %s converted into %s but bank account %s holds %s: %w",
			p.ID, conv.Amount.Currency, acct.ID, acct.Currency, domain.ErrInvalidLedgerState)
	}
	return conv.Amount, nil
}
