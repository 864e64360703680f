package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/repository"
)

type txRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	ReadSnapshot(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type bankAccountRepository interface {
	GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.BankAccount, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.BankAccount, error)
	List(ctx context.Context, q repository.Querier) ([]domain.BankAccount, error)
	ListByIDs(ctx context.Context, q repository.Querier, ids []uuid.UUID) ([]domain.BankAccount, error)
	UpdateCurrentBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal) error
}

type bankTransactionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.BankTransaction) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.BankTransaction, error)
	ListByAccount(ctx context.Context, q repository.Querier, accountID uuid.UUID) ([]domain.BankTransaction, error)
	MarkCancelled(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time, reason string) error
}

type invoiceRepository interface {
	GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Invoice, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Invoice, error)
	ListForFiscalYear(ctx context.Context, q repository.Querier, year int, start, end time.Time) ([]domain.Invoice, error)
	UpdateTotals(ctx context.Context, tx *sql.Tx, id uuid.UUID, totalPaid, outstanding decimal.Decimal) error
}

type paymentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error
	ListByInvoice(ctx context.Context, q repository.Querier, invoiceID uuid.UUID) ([]domain.Payment, error)
	ListByInvoices(ctx context.Context, q repository.Querier, invoiceIDs []uuid.UUID) ([]domain.Payment, error)
}

type orderRepository interface {
	GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, q repository.Querier) ([]domain.Order, error)
}

type clientRepository interface {
	GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Client, error)
}

type transferRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transfer) error
	ListByInvoice(ctx context.Context, q repository.Querier, invoiceID uuid.UUID) ([]domain.Transfer, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entityTable string, entityID uuid.UUID, action, message string)
}

type ledgerMetrics interface {
	BalanceAnomaly(kind string)
	PolicyWarning(status domain.OrderStatus)
	Reconciliation(operation string, err error)
}
