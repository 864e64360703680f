package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/audit"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/fx"
	"github.com/josh-kwaku/tradebooks/internal/ledger"
	"github.com/josh-kwaku/tradebooks/internal/logging"
	"github.com/josh-kwaku/tradebooks/internal/metrics"
)

const (
	tableBankAccounts     = "bank_accounts"
	tableBankTransactions = "bank_transactions"
	tableInvoices         = "invoices"
	tableTransfers        = "transfers"
)

type LedgerService struct {
	db       txRunner
	accounts bankAccountRepository
	txns     bankTransactionRepository
	audit    auditRecorder
	metrics  ledgerMetrics
	now      func() time.Time
}

func NewLedgerService(db txRunner, accounts bankAccountRepository, txns bankTransactionRepository, rec auditRecorder, m ledgerMetrics) *LedgerService {
	return &LedgerService{
		db:       db,
		accounts: accounts,
		txns:     txns,
		audit:    rec,
		metrics:  m,
		now:      time.Now,
	}
}

// GetAccountBalance reconstructs the balance from the full transaction log.
// It never reads or writes the cached current_balance.
func (s *LedgerService) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (ledger.Result, error) {
	var res ledger.Result
	err := s.db.ReadSnapshot(ctx, func(tx *sql.Tx) error {
		acct, err := s.accounts.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		txns, err := s.txns.ListByAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		res, err = ledger.ReconstructAccount(acct, txns)
		return err
	})
	s.metrics.Reconciliation(metrics.OperationAccountBalance, err)
	if err != nil {
		s.recordFailure(ctx, accountID, err)
		return ledger.Result{}, fmt.Errorf("GetAccountBalance: %w", err)
	}

	s.reportAnomalies(ctx, accountID, res)
	return res, nil
}

// RefreshAccountBalance recomputes the balance and writes it to the cache.
func (s *LedgerService) RefreshAccountBalance(ctx context.Context, accountID uuid.UUID) (ledger.Result, error) {
	var res ledger.Result
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = refreshBalance(ctx, tx, s.accounts, s.txns, accountID)
		return err
	})
	s.metrics.Reconciliation(metrics.OperationAccountBalance, err)
	if err != nil {
		s.recordFailure(ctx, accountID, err)
		return ledger.Result{}, fmt.Errorf("RefreshAccountBalance: %w", err)
	}

	s.reportAnomalies(ctx, accountID, res)
	s.audit.Record(ctx, tableBankAccounts, accountID, audit.ActionBalanceRefreshed, res.Balance.String())
	return res, nil
}

type RecordTransactionRequest struct {
	BankAccountID uuid.UUID
	Type          domain.TransactionType
	Amount        decimal.Decimal
	Currency      domain.Currency
	// ExchangeRate converts Currency into the account currency. Required when
	// they differ, ignored otherwise.
	ExchangeRate    *decimal.Decimal
	Description     string
	TransactionDate time.Time
}

func (r RecordTransactionRequest) validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("unknown transaction type %q: %w", r.Type, domain.ErrInvalidRequest)
	}
	if r.Amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	if sign := r.Type.Sign(); sign != 0 && r.Amount.Sign() != sign {
		return fmt.Errorf("%s amount %s has the wrong sign: %w", r.Type, r.Amount, domain.ErrInvalidAmount)
	}
	if !r.Currency.IsValid() {
		return fmt.Errorf("%q: %w", r.Currency, domain.ErrInvalidCurrency)
	}
	return nil
}

type RecordedTransaction struct {
	Transaction domain.BankTransaction
	Balance     ledger.Result
}

func (s *LedgerService) RecordTransaction(ctx context.Context, req RecordTransactionRequest) (*RecordedTransaction, error) {
	log := logging.FromContext(ctx)

	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("RecordTransaction: %w", err)
	}

	var out RecordedTransaction
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		acct, err := s.accounts.GetForUpdate(ctx, tx, req.BankAccountID)
		if err != nil {
			return err
		}
		if acct.Status != domain.AccountStatusActive {
			return domain.ErrAccountInactive
		}

		pricing, err := fx.CaptureInto(domain.NewMoney(req.Amount, req.Currency), acct.Currency, req.ExchangeRate)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		date := req.TransactionDate
		if date.IsZero() {
			date = now
		}
		t := domain.BankTransaction{
			ID:              uuid.New(),
			BankAccountID:   acct.ID,
			Type:            req.Type,
			Pricing:         pricing,
			Status:          domain.TransactionStatusActive,
			Description:     req.Description,
			TransactionDate: date,
			CreatedAt:       now,
		}
		if err := s.txns.Create(ctx, tx, &t); err != nil {
			return err
		}

		out.Transaction = t
		out.Balance, err = refreshBalance(ctx, tx, s.accounts, s.txns, acct.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("RecordTransaction: %w", err)
	}

	log.Info("bank transaction recorded",
		"transaction_id", out.Transaction.ID,
		"account_id", req.BankAccountID,
		"type", req.Type,
		"amount", out.Transaction.Pricing.Booked().String(),
		"balance", out.Balance.Balance.String(),
	)
	s.reportAnomalies(ctx, req.BankAccountID, out.Balance)
	s.audit.Record(ctx, tableBankTransactions, out.Transaction.ID, audit.ActionTxnRecorded, out.Transaction.Pricing.Booked().String())
	return &out, nil
}

// CancelTransaction excludes an active transaction from the balance. The row
// is kept.
func (s *LedgerService) CancelTransaction(ctx context.Context, transactionID uuid.UUID) (*RecordedTransaction, error) {
	out, err := s.finalize(ctx, transactionID, func(tx *sql.Tx, t *domain.BankTransaction) error {
		if err := s.txns.MarkCancelled(ctx, tx, t.ID); err != nil {
			return err
		}
		t.Status = domain.TransactionStatusCancelled
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CancelTransaction: %w", err)
	}
	s.audit.Record(ctx, tableBankTransactions, transactionID, audit.ActionTxnCancelled, "")
	return out, nil
}

// ReverseTransaction flags an active transaction as reversed, recording when
// and why.
func (s *LedgerService) ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*RecordedTransaction, error) {
	if reason == "" {
		return nil, fmt.Errorf("ReverseTransaction: reason required: %w", domain.ErrInvalidRequest)
	}

	out, err := s.finalize(ctx, transactionID, func(tx *sql.Tx, t *domain.BankTransaction) error {
		at := s.now().UTC()
		if err := s.txns.MarkReversed(ctx, tx, t.ID, at, reason); err != nil {
			return err
		}
		t.IsReversed = true
		t.ReversedAt = &at
		t.ReversalReason = &reason
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ReverseTransaction: %w", err)
	}
	s.audit.Record(ctx, tableBankTransactions, transactionID, audit.ActionTxnReversed, reason)
	return out, nil
}

func (s *LedgerService) finalize(ctx context.Context, transactionID uuid.UUID, mark func(tx *sql.Tx, t *domain.BankTransaction) error) (*RecordedTransaction, error) {
	var out RecordedTransaction
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		t, err := s.txns.GetForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if t.Excluded() {
			return domain.ErrTransactionFinalized
		}
		if err := mark(tx, t); err != nil {
			return err
		}
		out.Transaction = *t
		out.Balance, err = refreshBalance(ctx, tx, s.accounts, s.txns, t.BankAccountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("bank transaction finalized",
		"transaction_id", transactionID,
		"account_id", out.Transaction.BankAccountID,
		"status", out.Transaction.Status,
		"reversed", out.Transaction.IsReversed,
		"balance", out.Balance.Balance.String(),
	)
	s.reportAnomalies(ctx, out.Transaction.BankAccountID, out.Balance)
	return &out, nil
}

func (s *LedgerService) reportAnomalies(ctx context.Context, accountID uuid.UUID, res ledger.Result) {
	reportAnomalies(ctx, s.audit, s.metrics, accountID, res)
}

func (s *LedgerService) recordFailure(ctx context.Context, accountID uuid.UUID, err error) {
	if errors.Is(err, domain.ErrInvalidLedgerState) {
		s.audit.Record(ctx, tableBankAccounts, accountID, audit.ActionReconcileFailed, err.Error())
	}
}

// refreshBalance locks the account, folds its full history and writes the
// result to the cached balance. Shared by every mutation that touches the
// ledger.
func refreshBalance(ctx context.Context, tx *sql.Tx, accounts bankAccountRepository, txns bankTransactionRepository, accountID uuid.UUID) (ledger.Result, error) {
	acct, err := accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("refreshBalance: %w", err)
	}
	history, err := txns.ListByAccount(ctx, tx, accountID)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("refreshBalance: %w", err)
	}
	res, err := ledger.ReconstructAccount(acct, history)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("refreshBalance: %w", err)
	}
	if err := accounts.UpdateCurrentBalance(ctx, tx, accountID, res.Balance.Amount); err != nil {
		return ledger.Result{}, fmt.Errorf("refreshBalance: %w", err)
	}
	return res, nil
}

func reportAnomalies(ctx context.Context, rec auditRecorder, m ledgerMetrics, accountID uuid.UUID, res ledger.Result) {
	if !res.HasAnomalies() {
		return
	}
	log := logging.FromContext(ctx)
	for _, a := range res.Anomalies {
		log.Warn("balance anomaly",
			"account_id", accountID,
			"transaction_id", a.TransactionID,
			"kind", a.Kind,
			"contributed", a.Contributed.String(),
		)
		m.BalanceAnomaly(string(a.Kind))
		rec.Record(ctx, tableBankAccounts, accountID, audit.ActionBalanceAnomaly, a.String())
	}
}

// lockAccountsInOrder takes row locks in a stable order so two transfers
// between the same pair of accounts cannot deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts bankAccountRepository, ids ...uuid.UUID) (map[uuid.UUID]*domain.BankAccount, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.BankAccount, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}
