package app

import (
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/josh-kwaku/tradebooks/internal/audit"
	"github.com/josh-kwaku/tradebooks/internal/config"
	"github.com/josh-kwaku/tradebooks/internal/metrics"
	"github.com/josh-kwaku/tradebooks/internal/repository"
	"github.com/josh-kwaku/tradebooks/internal/service"
)

// App holds the wired services shared by the API server and ledgerctl.
type App struct {
	DB          *sql.DB
	Ledger      *service.LedgerService
	Invoices    *service.InvoiceService
	Summary     *service.SummaryService
	Transfers   *service.TransferService
	Idempotency *repository.IdempotencyRepository
	Metrics     *metrics.Ledger
}

// New wires repositories and services over pool. A nil reg leaves the ledger
// collectors unregistered.
func New(pool *sql.DB, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	if pool == nil {
		return nil, errors.New("app.New: database handle is required")
	}

	currencies, err := cfg.Currencies()
	if err != nil {
		return nil, err
	}

	db := repository.NewDB(pool)
	accounts := repository.NewBankAccountRepository()
	txns := repository.NewBankTransactionRepository()
	invoices := repository.NewInvoiceRepository()
	payments := repository.NewPaymentRepository()
	orders := repository.NewOrderRepository()
	rec := audit.NewRecorder(repository.NewAuditEventRepository(), pool)
	m := metrics.New(reg)

	return &App{
		DB:     pool,
		Ledger: service.NewLedgerService(db, accounts, txns, rec, m),
		Invoices: service.NewInvoiceService(service.InvoiceServiceDeps{
			DB:       db,
			Invoices: invoices,
			Orders:   orders,
			Payments: payments,
			Accounts: accounts,
			Txns:     txns,
			Audit:    rec,
			Metrics:  m,
			DueDays:  cfg.InvoiceDueDays,
		}),
		Summary: service.NewSummaryService(service.SummaryServiceDeps{
			DB:         db,
			Orders:     orders,
			Invoices:   invoices,
			Payments:   payments,
			Accounts:   accounts,
			Audit:      rec,
			Metrics:    m,
			Currencies: currencies,
		}),
		Transfers: service.NewTransferService(service.TransferServiceDeps{
			DB:        db,
			Invoices:  invoices,
			Clients:   repository.NewClientRepository(),
			Transfers: repository.NewTransferRepository(),
			Accounts:  accounts,
			Txns:      txns,
			Audit:     rec,
			Metrics:   m,
			Policy:    cfg.TransferPolicy(),
		}),
		Idempotency: repository.NewIdempotencyRepository(pool),
		Metrics:     m,
	}, nil
}

func PoolConfig(cfg *config.Config) repository.PoolConfig {
	return repository.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnMaxLife:  cfg.ConnMaxLifetime(),
		ConnMaxIdle:  cfg.ConnMaxIdleTime(),

		ConnectAttempts: cfg.DBConnectAttempts,
		RetryInterval:   time.Second,
	}
}
