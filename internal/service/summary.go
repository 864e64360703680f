package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/tradebooks/internal/audit"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/fiscal"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/metrics"
	"github.com/josh-kwaku/tradebooks/internal/summary"
)

const (
	minFiscalYear = 2000
	maxFiscalYear = 2999
)

type SummaryService struct {
	db         txRunner
	orders     orderRepository
	invoices   invoiceRepository
	payments   paymentRepository
	accounts   bankAccountRepository
	audit      auditRecorder
	metrics    ledgerMetrics
	currencies []domain.Currency
	loc        *time.Location
}

type SummaryServiceDeps struct {
	DB         txRunner
	Orders     orderRepository
	Invoices   invoiceRepository
	Payments   paymentRepository
	Accounts   bankAccountRepository
	Audit      auditRecorder
	Metrics    ledgerMetrics
	Currencies []domain.Currency
}

func NewSummaryService(d SummaryServiceDeps) *SummaryService {
	currencies := d.Currencies
	if len(currencies) == 0 {
		currencies = domain.SupportedCurrencies
	}
	return &SummaryService{
		db:         d.DB,
		orders:     d.Orders,
		invoices:   d.Invoices,
		payments:   d.Payments,
		accounts:   d.Accounts,
		audit:      d.Audit,
		metrics:    d.Metrics,
		currencies: currencies,
		loc:        time.UTC,
	}
}

// GetFinancialSummary aggregates one fiscal year from a single read-only
// snapshot. Pipeline value always spans every order.
func (s *SummaryService) GetFinancialSummary(ctx context.Context, fiscalYear int) (*summary.FinancialSummary, error) {
	if fiscalYear < minFiscalYear || fiscalYear > maxFiscalYear {
		return nil, fmt.Errorf("GetFinancialSummary: fiscal year %d: %w", fiscalYear, domain.ErrInvalidRequest)
	}

	var in summary.Input
	err := s.db.ReadSnapshot(ctx, func(tx *sql.Tx) error {
		var err error
		if in.Orders, err = s.orders.List(ctx, tx); err != nil {
			return err
		}

		start, end := fiscal.Bounds(fiscalYear, s.loc)
		if in.Invoices, err = s.invoices.ListForFiscalYear(ctx, tx, fiscalYear, start, end); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(in.Invoices))
		for i := range in.Invoices {
			ids[i] = in.Invoices[i].ID
		}
		if in.Payments, err = s.payments.ListByInvoices(ctx, tx, ids); err != nil {
			return err
		}

		in.BankAccounts, err = s.accounts.List(ctx, tx)
		return err
	})
	if err != nil {
		s.metrics.Reconciliation(metrics.OperationFinancialSummary, err)
		return nil, fmt.Errorf("GetFinancialSummary: %w", err)
	}

	in.FiscalYear = fiscalYear
	in.Currencies = s.currencies
	in.FiscalYearOf = func(t time.Time) int { return fiscal.YearOf(t.In(s.loc)) }

	out, err := summary.Aggregate(in)
	s.metrics.Reconciliation(metrics.OperationFinancialSummary, err)
	if err != nil {
		return nil, fmt.Errorf("GetFinancialSummary: %w", err)
	}

	log := logging.FromContext(ctx)
	for _, w := range out.Warnings {
		log.Warn("receivable policy warning",
			"fiscal_year", fiscalYear,
			"invoice_id", w.InvoiceID,
			"order_id", w.OrderID,
			"order_status", w.Status,
		)
		s.metrics.PolicyWarning(w.Status)
		s.audit.Record(ctx, tableInvoices, w.InvoiceID, audit.ActionPolicyWarning, w.Message)
	}
	log.Debug("financial summary computed",
		"fiscal_year", fiscalYear,
		"orders", out.OrderCount,
		"invoices", out.InvoiceCount,
		"payments", out.PaymentCount,
	)
	return &out, nil
}
