package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/audit"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/fx"
	"github.com/josh-kwaku/tradebooks/internal/ledger"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/metrics"
	"github.com/josh-kwaku/tradebooks/internal/reconcile"
)

type InvoiceService struct {
	db       txRunner
	invoices invoiceRepository
	orders   orderRepository
	payments paymentRepository
	accounts bankAccountRepository
	txns     bankTransactionRepository
	audit    auditRecorder
	metrics  ledgerMetrics
	dueDays  int
	now      func() time.Time
}

type InvoiceServiceDeps struct {
	DB       txRunner
	Invoices invoiceRepository
	Orders   orderRepository
	Payments paymentRepository
	Accounts bankAccountRepository
	Txns     bankTransactionRepository
	Audit    auditRecorder
	Metrics  ledgerMetrics
	// DueDays is the payment term for invoices without a due date.
	DueDays int
}

func NewInvoiceService(d InvoiceServiceDeps) *InvoiceService {
	dueDays := d.DueDays
	if dueDays <= 0 {
		dueDays = domain.DefaultInvoiceDueDays
	}
	return &InvoiceService{
		db:       d.DB,
		invoices: d.Invoices,
		orders:   d.Orders,
		payments: d.Payments,
		accounts: d.Accounts,
		txns:     d.Txns,
		audit:    d.Audit,
		metrics:  d.Metrics,
		dueDays:  dueDays,
		now:      time.Now,
	}
}

type InvoiceReconciliation struct {
	reconcile.Result
	DueDate time.Time
	Overdue bool
}

// ReconcileInvoice recomputes the invoice's payment figures from its payments
// and the linked order status. The cached totals are not consulted.
func (s *InvoiceService) ReconcileInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceReconciliation, error) {
	var (
		inv *domain.Invoice
		res reconcile.Result
	)
	err := s.db.ReadSnapshot(ctx, func(tx *sql.Tx) error {
		var err error
		inv, err = s.invoices.GetByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		res, err = s.reconcileLocked(ctx, tx, inv)
		return err
	})
	s.metrics.Reconciliation(metrics.OperationInvoice, err)
	if err != nil {
		s.recordFailure(ctx, invoiceID, err)
		return nil, fmt.Errorf("ReconcileInvoice: %w", err)
	}

	s.reportPolicyWarning(ctx, inv, res)
	return &InvoiceReconciliation{
		Result:  res,
		DueDate: inv.DueDateAfter(s.dueDays),
		Overdue: reconcile.IsOverdueAfter(inv, res, s.now(), s.dueDays),
	}, nil
}

// RefreshInvoice reconciles under the invoice row lock and writes the
// result back to the cached total_paid and outstanding_balance columns.
func (s *InvoiceService) RefreshInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceReconciliation, error) {
	var (
		inv *domain.Invoice
		res reconcile.Result
	)
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		inv, err = s.invoices.GetForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		res, err = s.reconcileLocked(ctx, tx, inv)
		if err != nil {
			return err
		}
		return s.invoices.UpdateTotals(ctx, tx, inv.ID, res.TotalPaid, res.OutstandingBalance)
	})
	s.metrics.Reconciliation(metrics.OperationInvoice, err)
	if err != nil {
		s.recordFailure(ctx, invoiceID, err)
		return nil, fmt.Errorf("RefreshInvoice: %w", err)
	}

	logging.FromContext(ctx).Info("invoice totals refreshed",
		"invoice_id", inv.ID,
		"total_paid", res.TotalPaid.String(),
		"outstanding", res.OutstandingBalance.String(),
	)
	s.audit.Record(ctx, tableInvoices, inv.ID, audit.ActionReconciled,
		fmt.Sprintf("outstanding %s %s", res.OutstandingBalance.StringFixed(2), res.Currency))
	s.reportPolicyWarning(ctx, inv, res)
	return &InvoiceReconciliation{
		Result:  res,
		DueDate: inv.DueDateAfter(s.dueDays),
		Overdue: reconcile.IsOverdueAfter(inv, res, s.now(), s.dueDays),
	}, nil
}

// reconcileLocked loads the order and payments through q and reconciles.
func (s *InvoiceService) reconcileLocked(ctx context.Context, tx *sql.Tx, inv *domain.Invoice, extra ...domain.Payment) (reconcile.Result, error) {
	order, err := linkedOrder(ctx, tx, s.orders, inv)
	if err != nil {
		return reconcile.Result{}, err
	}
	payments, err := s.payments.ListByInvoice(ctx, tx, inv.ID)
	if err != nil {
		return reconcile.Result{}, err
	}
	return reconcile.Reconcile(inv, order, append(payments, extra...))
}

type RecordPaymentRequest struct {
	InvoiceID uuid.UUID
	Type      domain.PaymentType
	Amount    decimal.Decimal
	Currency  domain.Currency
	// BankAccountID, when set, books the payment into that account as a
	// payment_received transaction.
	BankAccountID *uuid.UUID
	// ExchangeRate converts Currency into the bank account's currency.
	ExchangeRate *decimal.Decimal
	Reference    string
	PaidAt       time.Time
}

func (r RecordPaymentRequest) validate() error {
	switch r.Type {
	case domain.PaymentTypeAdvance, domain.PaymentTypeInvoice:
	default:
		return fmt.Errorf("unknown payment type %q: %w", r.Type, domain.ErrInvalidRequest)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("payment amount %s: %w", r.Amount, domain.ErrInvalidAmount)
	}
	if !r.Currency.IsValid() {
		return fmt.Errorf("%q: %w", r.Currency, domain.ErrInvalidCurrency)
	}
	return nil
}

type RecordedPayment struct {
	Payment        domain.Payment
	Reconciliation reconcile.Result
	Transaction    *domain.BankTransaction
	AccountBalance *ledger.Result
}

// RecordPayment appends a payment, books it into the bank account when one is
// given, and refreshes both the invoice totals and the account balance in a
// single serializable transaction. The invoice row lock serializes concurrent
// payments against the same invoice.
func (s *InvoiceService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordedPayment, error) {
	log := logging.FromContext(ctx)

	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	var out RecordedPayment
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.invoices.GetForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}

		origin := domain.NewMoney(req.Amount, req.Currency)
		var pricing domain.Pricing = domain.Direct{Amount: origin}
		var acct *domain.BankAccount
		if req.BankAccountID != nil {
			acct, err = s.accounts.GetForUpdate(ctx, tx, *req.BankAccountID)
			if err != nil {
				return err
			}
			if acct.Status != domain.AccountStatusActive {
				return domain.ErrAccountInactive
			}
			pricing, err = fx.CaptureInto(origin, acct.Currency, req.ExchangeRate)
			if err != nil {
				return err
			}
		}

		now := s.now().UTC()
		paidAt := req.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}
		p := domain.Payment{
			ID:            uuid.New(),
			InvoiceID:     inv.ID,
			Type:          req.Type,
			Pricing:       pricing,
			Status:        domain.PaymentStatusActive,
			BankAccountID: req.BankAccountID,
			Reference:     req.Reference,
			PaidAt:        paidAt,
			CreatedAt:     now,
		}

		// Reconcile with the new payment before writing so a payment that
		// cannot settle this invoice never lands.
		res, err := s.reconcileLocked(ctx, tx, inv, p)
		if err != nil {
			return err
		}

		if err := s.payments.Create(ctx, tx, &p); err != nil {
			return err
		}
		if err := s.invoices.UpdateTotals(ctx, tx, inv.ID, res.TotalPaid, res.OutstandingBalance); err != nil {
			return err
		}
		out.Payment = p
		out.Reconciliation = res

		if acct == nil {
			return nil
		}
		t := domain.BankTransaction{
			ID:              uuid.New(),
			BankAccountID:   acct.ID,
			Type:            domain.TransactionTypePaymentReceived,
			Pricing:         pricing,
			Status:          domain.TransactionStatusActive,
			PaymentID:       &p.ID,
			Description:     paymentDescription(inv, req),
			TransactionDate: paidAt,
			CreatedAt:       now,
		}
		if err := s.txns.Create(ctx, tx, &t); err != nil {
			return err
		}
		bal, err := refreshBalance(ctx, tx, s.accounts, s.txns, acct.ID)
		if err != nil {
			return err
		}
		out.Transaction = &t
		out.AccountBalance = &bal
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, req.InvoiceID, err)
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	log.Info("payment recorded",
		"payment_id", out.Payment.ID,
		"invoice_id", req.InvoiceID,
		"type", req.Type,
		"amount", out.Payment.Amount().String(),
		"total_paid", out.Reconciliation.TotalPaid.String(),
		"outstanding", out.Reconciliation.OutstandingBalance.String(),
	)
	s.audit.Record(ctx, "payments", out.Payment.ID, audit.ActionPaymentRecorded, out.Payment.Amount().String())
	if out.AccountBalance != nil {
		reportAnomalies(ctx, s.audit, s.metrics, *req.BankAccountID, *out.AccountBalance)
	}
	return &out, nil
}

func paymentDescription(inv *domain.Invoice, req RecordPaymentRequest) string {
	if req.Reference != "" {
		return fmt.Sprintf("%s for invoice %s (%s)", req.Type, inv.ID, req.Reference)
	}
	return fmt.Sprintf("%s for invoice %s", req.Type, inv.ID)
}

func (s *InvoiceService) reportPolicyWarning(ctx context.Context, inv *domain.Invoice, res reconcile.Result) {
	msg := res.PolicyWarning()
	if msg == "" {
		return
	}
	status := res.OrderStatus
	logging.FromContext(ctx).Warn("receivable policy warning",
		"invoice_id", inv.ID,
		"order_status", status,
		"message", msg,
	)
	s.metrics.PolicyWarning(status)
	s.audit.Record(ctx, tableInvoices, inv.ID, audit.ActionPolicyWarning, msg)
}

func (s *InvoiceService) recordFailure(ctx context.Context, invoiceID uuid.UUID, err error) {
	if errors.Is(err, domain.ErrInvalidLedgerState) {
		s.audit.Record(ctx, tableInvoices, invoiceID, audit.ActionReconcileFailed, err.Error())
	}
}

// linkedOrder returns nil for standalone invoices. A dangling order reference
// is an invariant violation, not a not-found.
func linkedOrder(ctx context.Context, tx *sql.Tx, orders orderRepository, inv *domain.Invoice) (*domain.Order, error) {
	if inv.IsStandalone || inv.OrderID == nil {
		return nil, nil
	}
	order, err := orders.GetByID(ctx, tx, *inv.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invoice %s references missing order %s: %w", inv.ID, *inv.OrderID, domain.ErrInvalidLedgerState)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}
