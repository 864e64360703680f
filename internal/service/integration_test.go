package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/tradebooks/internal/audit"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/metrics"
	"github.com/josh-kwaku/tradebooks/internal/repository"
	"github.com/josh-kwaku/tradebooks/internal/service"
	"github.com/josh-kwaku/tradebooks/internal/testutil"
	"github.com/josh-kwaku/tradebooks/internal/transfer"
)

type services struct {
	ledger    *service.LedgerService
	invoices  *service.InvoiceService
	summary   *service.SummaryService
	transfers *service.TransferService
}

func setupServices(t *testing.T, db *sql.DB) services {
	t.Helper()

	txdb := repository.NewDB(db)
	accounts := repository.NewBankAccountRepository()
	txns := repository.NewBankTransactionRepository()
	invoices := repository.NewInvoiceRepository()
	payments := repository.NewPaymentRepository()
	orders := repository.NewOrderRepository()
	rec := audit.NewRecorder(repository.NewAuditEventRepository(), db)
	m := metrics.New(nil)

	return services{
		ledger: service.NewLedgerService(txdb, accounts, txns, rec, m),
		invoices: service.NewInvoiceService(service.InvoiceServiceDeps{
			DB:       txdb,
			Invoices: invoices,
			Orders:   orders,
			Payments: payments,
			Accounts: accounts,
			Txns:     txns,
			Audit:    rec,
			Metrics:  m,
		}),
		summary: service.NewSummaryService(service.SummaryServiceDeps{
			DB:       txdb,
			Orders:   orders,
			Invoices: invoices,
			Payments: payments,
			Accounts: accounts,
			Audit:    rec,
			Metrics:  m,
		}),
		transfers: service.NewTransferService(service.TransferServiceDeps{
			DB:        txdb,
			Invoices:  invoices,
			Clients:   repository.NewClientRepository(),
			Transfers: repository.NewTransferRepository(),
			Accounts:  accounts,
			Txns:      txns,
			Audit:     rec,
			Metrics:   m,
			Policy:    transfer.DefaultPolicy("PK"),
		}),
	}
}

func TestLedger_EndToEndBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupServices(t, db)
	ctx := context.Background()

	acct := testutil.SeedBankAccount(t, db, domain.CurrencyUSD, "US", "1000.00")

	_, err := svc.ledger.RecordTransaction(ctx, service.RecordTransactionRequest{
		BankAccountID: acct.ID,
		Type:          domain.TransactionTypeDeposit,
		Amount:        decimal.RequireFromString("500.00"),
		Currency:      domain.CurrencyUSD,
	})
	require.NoError(t, err)

	withdrawal, err := svc.ledger.RecordTransaction(ctx, service.RecordTransactionRequest{
		BankAccountID: acct.ID,
		Type:          domain.TransactionTypeWithdrawal,
		Amount:        decimal.RequireFromString("-200.00"),
		Currency:      domain.CurrencyUSD,
	})
	require.NoError(t, err)
	_, err = svc.ledger.CancelTransaction(ctx, withdrawal.Transaction.ID)
	require.NoError(t, err)

	rate := decimal.RequireFromString("1.1")
	_, err = svc.ledger.RecordTransaction(ctx, service.RecordTransactionRequest{
		BankAccountID: acct.ID,
		Type:          domain.TransactionTypeDeposit,
		Amount:        decimal.RequireFromString("300.00"),
		Currency:      domain.CurrencyEUR,
		ExchangeRate:  &rate,
	})
	require.NoError(t, err)

	res, err := svc.ledger.GetAccountBalance(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1830").Equal(res.Balance.Amount), "got %s", res.Balance)
	assert.Equal(t, domain.CurrencyUSD, res.Balance.Currency)
	assert.Equal(t, 1, res.Excluded)
	assert.Empty(t, res.Anomalies)
	assert.True(t, decimal.RequireFromString("1830").Equal(testutil.GetCachedBalance(t, db, acct.ID)))

	_, err = svc.ledger.ReverseTransaction(ctx, withdrawal.Transaction.ID, "too late")
	require.ErrorIs(t, err, domain.ErrTransactionFinalized)
	assert.Equal(t, 1, testutil.CountAuditEvents(t, db, withdrawal.Transaction.ID, audit.ActionTxnCancelled))
}

func TestInvoice_ReceivableFollowsOrderStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupServices(t, db)
	ctx := context.Background()

	client := testutil.SeedClient(t, db, domain.ClientTypeInternational, "US")
	order := testutil.SeedOrder(t, db, client.ID, domain.OrderStatusPending, 2025, "1000.00", domain.CurrencyUSD)
	inv := testutil.SeedInvoice(t, db, client.ID, order, "1000.00", domain.CurrencyUSD, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	paid, err := svc.invoices.RecordPayment(ctx, service.RecordPaymentRequest{
		InvoiceID: inv.ID,
		Type:      domain.PaymentTypeAdvance,
		Amount:    decimal.RequireFromString("400.00"),
		Currency:  domain.CurrencyUSD,
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("400").Equal(paid.Reconciliation.TotalPaid))
	assert.True(t, decimal.RequireFromString("400").Equal(paid.Reconciliation.AdvancePaid))
	assert.True(t, paid.Reconciliation.InvoicePaid.IsZero())
	assert.True(t, paid.Reconciliation.OutstandingBalance.IsZero())

	require.NoError(t, repository.NewOrderRepository().UpdateStatus(ctx, db, order.ID, domain.OrderStatusShipped))

	res, err := svc.invoices.ReconcileInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("600").Equal(res.OutstandingBalance))
	assert.True(t, decimal.RequireFromString("400").Equal(res.TotalPaid))
}

func TestInvoice_ConcurrentPaymentsStayConsistent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupServices(t, db)
	ctx := context.Background()

	client := testutil.SeedClient(t, db, domain.ClientTypeLocal, "PK")
	inv := testutil.SeedInvoice(t, db, client.ID, nil, "1000.00", domain.CurrencyPKR, time.Now())
	acct := testutil.SeedBankAccount(t, db, domain.CurrencyPKR, "PK", "0")

	const workers = 4
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.invoices.RecordPayment(ctx, service.RecordPaymentRequest{
				InvoiceID:     inv.ID,
				Type:          domain.PaymentTypeInvoice,
				Amount:        decimal.RequireFromString("100.00"),
				Currency:      domain.CurrencyPKR,
				BankAccountID: &acct.ID,
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
	}
	require.Positive(t, successes)

	assert.Equal(t, successes, testutil.CountPayments(t, db, inv.ID))

	res, err := svc.invoices.ReconcileInvoice(ctx, inv.ID)
	require.NoError(t, err)
	want := decimal.NewFromInt(int64(100 * successes))
	assert.True(t, want.Equal(res.TotalPaid), "total paid %s, want %s", res.TotalPaid, want)

	stored, err := repository.NewInvoiceRepository().GetByID(ctx, db, inv.ID)
	require.NoError(t, err)
	assert.True(t, want.Equal(stored.TotalPaid), "cached total %s drifted from %s", stored.TotalPaid, want)

	bal, err := svc.ledger.GetAccountBalance(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, want.Equal(bal.Balance.Amount))
	assert.True(t, want.Equal(testutil.GetCachedBalance(t, db, acct.ID)))
}

func TestTransfer_GateAgainstPostgres(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupServices(t, db)
	ctx := context.Background()

	client := testutil.SeedClient(t, db, domain.ClientTypeInternational, "AE")
	order := testutil.SeedOrder(t, db, client.ID, domain.OrderStatusDelivered, 2025, "1000.00", domain.CurrencyUSD)
	inv := testutil.SeedInvoice(t, db, client.ID, order, "1000.00", domain.CurrencyUSD, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	src := testutil.SeedBankAccount(t, db, domain.CurrencyUSD, "AE", "2000.00")
	dst := testutil.SeedBankAccount(t, db, domain.CurrencyPKR, "PK", "0")

	rate := decimal.RequireFromString("280.25")
	out, err := svc.transfers.RecordTransfer(ctx, service.RecordTransferRequest{
		InvoiceID:       inv.ID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          decimal.RequireFromString("700.00"),
		ExchangeRate:    &rate,
	})
	require.NoError(t, err)
	assert.False(t, out.Eligibility.Open)
	assert.True(t, decimal.RequireFromString("196175").Equal(out.DestBalance.Balance.Amount))
	assert.True(t, decimal.RequireFromString("1300").Equal(testutil.GetCachedBalance(t, db, src.ID)))

	e, err := svc.transfers.IsInvoiceTransferEligible(ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, e.Open)
	assert.True(t, decimal.RequireFromString("70").Equal(e.PercentTransferred))

	_, err = svc.transfers.RecordTransfer(ctx, service.RecordTransferRequest{
		InvoiceID:       inv.ID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          decimal.RequireFromString("10.00"),
		ExchangeRate:    &rate,
	})
	require.ErrorIs(t, err, domain.ErrTransferThresholdReached)
	assert.Equal(t, 1, testutil.CountAuditEvents(t, db, out.Transfer.ID, audit.ActionTransferRecorded))
}

func TestSummary_AgainstPostgres(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupServices(t, db)
	ctx := context.Background()

	client := testutil.SeedClient(t, db, domain.ClientTypeInternational, "US")
	shipped := testutil.SeedOrder(t, db, client.ID, domain.OrderStatusShipped, 2025, "1000.00", domain.CurrencyUSD)
	testutil.SeedOrder(t, db, client.ID, domain.OrderStatusInProduction, 2024, "300.00", domain.CurrencyEUR)
	inv := testutil.SeedInvoice(t, db, client.ID, shipped, "1000.00", domain.CurrencyUSD, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	testutil.SeedInvoice(t, db, client.ID, nil, "50.00", domain.CurrencyAED, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	testutil.SeedInvoice(t, db, client.ID, nil, "80.00", domain.CurrencyAED, time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC))

	_, err := svc.invoices.RecordPayment(ctx, service.RecordPaymentRequest{
		InvoiceID: inv.ID,
		Type:      domain.PaymentTypeInvoice,
		Amount:    decimal.RequireFromString("250.00"),
		Currency:  domain.CurrencyUSD,
	})
	require.NoError(t, err)

	out, err := svc.summary.GetFinancialSummary(ctx, 2025)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("1000").Equal(out.Revenue.Get(domain.CurrencyUSD)))
	assert.True(t, decimal.RequireFromString("250").Equal(out.Paid.Get(domain.CurrencyUSD)))
	assert.True(t, decimal.RequireFromString("750").Equal(out.Outstanding.Get(domain.CurrencyUSD)))
	assert.True(t, decimal.RequireFromString("50").Equal(out.Outstanding.Get(domain.CurrencyAED)))
	assert.True(t, decimal.RequireFromString("300").Equal(out.Pipeline.Get(domain.CurrencyEUR)))
	assert.Equal(t, 2, out.InvoiceCount)
}
