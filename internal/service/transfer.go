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
	"github.com/josh-kwaku/tradebooks/internal/transfer"
)

type TransferService struct {
	db        txRunner
	invoices  invoiceRepository
	clients   clientRepository
	transfers transferRepository
	accounts  bankAccountRepository
	txns      bankTransactionRepository
	audit     auditRecorder
	metrics   ledgerMetrics
	policy    transfer.Policy
	now       func() time.Time
}

type TransferServiceDeps struct {
	DB        txRunner
	Invoices  invoiceRepository
	Clients   clientRepository
	Transfers transferRepository
	Accounts  bankAccountRepository
	Txns      bankTransactionRepository
	Audit     auditRecorder
	Metrics   ledgerMetrics
	Policy    transfer.Policy
}

func NewTransferService(d TransferServiceDeps) *TransferService {
	return &TransferService{
		db:        d.DB,
		invoices:  d.Invoices,
		clients:   d.Clients,
		transfers: d.Transfers,
		accounts:  d.Accounts,
		txns:      d.Txns,
		audit:     d.Audit,
		metrics:   d.Metrics,
		policy:    d.Policy,
		now:       time.Now,
	}
}

type TransferEligibility struct {
	transfer.Eligibility
	InvoiceID  uuid.UUID
	ClientType domain.ClientType
	// Open is the final answer: the client is international and the
	// threshold has not been reached.
	Open bool
}

func (s *TransferService) IsInvoiceTransferEligible(ctx context.Context, invoiceID uuid.UUID) (*TransferEligibility, error) {
	var out *TransferEligibility
	err := s.db.ReadSnapshot(ctx, func(tx *sql.Tx) error {
		inv, err := s.invoices.GetByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		out, err = s.evaluate(ctx, tx, inv)
		return err
	})
	s.metrics.Reconciliation(metrics.OperationTransferGate, err)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLedgerState) {
			s.audit.Record(ctx, tableInvoices, invoiceID, audit.ActionReconcileFailed, err.Error())
		}
		return nil, fmt.Errorf("IsInvoiceTransferEligible: %w", err)
	}
	return out, nil
}

func (s *TransferService) evaluate(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) (*TransferEligibility, error) {
	client, err := s.clients.GetByID(ctx, tx, inv.ClientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invoice %s references missing client %s: %w", inv.ID, inv.ClientID, domain.ErrInvalidLedgerState)
	}
	if err != nil {
		return nil, err
	}

	transfers, err := s.transfers.ListByInvoice(ctx, tx, inv.ID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.destinationAccounts(ctx, tx, transfers)
	if err != nil {
		return nil, err
	}

	e, err := transfer.Evaluate(inv, transfers, accounts, s.policy)
	if err != nil {
		return nil, err
	}
	return &TransferEligibility{
		Eligibility: e,
		InvoiceID:   inv.ID,
		ClientType:  client.Type,
		Open:        client.Type == domain.ClientTypeInternational && e.Eligible,
	}, nil
}

func (s *TransferService) destinationAccounts(ctx context.Context, tx *sql.Tx, transfers []domain.Transfer) (map[uuid.UUID]domain.BankAccount, error) {
	seen := make(map[uuid.UUID]bool, len(transfers))
	var ids []uuid.UUID
	for i := range transfers {
		if id := transfers[i].DestAccountID; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	list, err := s.accounts.ListByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]domain.BankAccount, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out, nil
}

type RecordTransferRequest struct {
	InvoiceID       uuid.UUID
	SourceAccountID uuid.UUID
	DestAccountID   uuid.UUID
	// Amount is debited from the source account, in its currency.
	Amount decimal.Decimal
	// ExchangeRate converts the source currency into the destination
	// account's currency.
	ExchangeRate *decimal.Decimal
	Description  string
}

type RecordedTransfer struct {
	Transfer      domain.Transfer
	Eligibility   TransferEligibility
	SourceBalance ledger.Result
	DestBalance   ledger.Result
}

// RecordTransfer moves invoice proceeds between two bank accounts. The gate
// is evaluated under the invoice lock against the transfers already made.
func (s *TransferService) RecordTransfer(ctx context.Context, req RecordTransferRequest) (*RecordedTransfer, error) {
	log := logging.FromContext(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("RecordTransfer: amount %s: %w", req.Amount, domain.ErrInvalidAmount)
	}
	if req.SourceAccountID == req.DestAccountID {
		return nil, fmt.Errorf("RecordTransfer: source and destination are the same account: %w", domain.ErrInvalidRequest)
	}

	var out RecordedTransfer
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.invoices.GetForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}

		gate, err := s.evaluate(ctx, tx, inv)
		if err != nil {
			return err
		}
		if !gate.Open {
			return domain.ErrTransferThresholdReached
		}

		locked, err := lockAccountsInOrder(ctx, tx, s.accounts, req.SourceAccountID, req.DestAccountID)
		if err != nil {
			return err
		}
		src, dst := locked[req.SourceAccountID], locked[req.DestAccountID]
		for _, a := range []*domain.BankAccount{src, dst} {
			if a.Status != domain.AccountStatusActive {
				return fmt.Errorf("account %s: %w", a.ID, domain.ErrAccountInactive)
			}
		}
		if src.Currency != inv.Currency {
			return fmt.Errorf("source account in %s, invoice in %s: %w: %w",
				src.Currency, inv.Currency, domain.ErrCurrencyMismatch, domain.ErrInvalidRequest)
		}

		debit := domain.NewMoney(req.Amount, src.Currency)
		pricing, err := fx.CaptureInto(debit, dst.Currency, req.ExchangeRate)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		t := domain.Transfer{
			ID:              uuid.New(),
			InvoiceID:       inv.ID,
			SourceAccountID: src.ID,
			DestAccountID:   dst.ID,
			Pricing:         pricing,
			Status:          domain.TransferStatusCompleted,
			CompletedAt:     &now,
			CreatedAt:       now,
		}
		if err := s.transfers.Create(ctx, tx, &t); err != nil {
			return err
		}

		legs := []domain.BankTransaction{
			{
				ID:            uuid.New(),
				BankAccountID: src.ID,
				Type:          domain.TransactionTypeTransferOut,
				Pricing:       domain.Direct{Amount: domain.NewMoney(req.Amount.Neg(), src.Currency)},
			},
			{
				ID:            uuid.New(),
				BankAccountID: dst.ID,
				Type:          domain.TransactionTypeTransferIn,
				Pricing:       pricing,
			},
		}
		for i := range legs {
			legs[i].Status = domain.TransactionStatusActive
			legs[i].TransferID = &t.ID
			legs[i].Description = req.Description
			legs[i].TransactionDate = now
			legs[i].CreatedAt = now
			if err := s.txns.Create(ctx, tx, &legs[i]); err != nil {
				return err
			}
		}

		if out.SourceBalance, err = refreshBalance(ctx, tx, s.accounts, s.txns, src.ID); err != nil {
			return err
		}
		if out.DestBalance, err = refreshBalance(ctx, tx, s.accounts, s.txns, dst.ID); err != nil {
			return err
		}

		after, err := s.evaluate(ctx, tx, inv)
		if err != nil {
			return err
		}
		out.Transfer = t
		out.Eligibility = *after
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("RecordTransfer: %w", err)
	}

	log.Info("transfer recorded",
		"transfer_id", out.Transfer.ID,
		"invoice_id", req.InvoiceID,
		"source_account", req.SourceAccountID,
		"dest_account", req.DestAccountID,
		"debited", out.Transfer.Pricing.Origin().String(),
		"credited", out.Transfer.Pricing.Booked().String(),
		"percent_transferred", out.Eligibility.PercentTransferred.StringFixed(2),
	)
	s.audit.Record(ctx, tableTransfers, out.Transfer.ID, audit.ActionTransferRecorded, out.Transfer.Pricing.Origin().String())
	reportAnomalies(ctx, s.audit, s.metrics, req.SourceAccountID, out.SourceBalance)
	reportAnomalies(ctx, s.audit, s.metrics, req.DestAccountID, out.DestBalance)
	return &out, nil
}
