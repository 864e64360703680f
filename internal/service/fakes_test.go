package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/repository"
	"github.com/josh-kwaku/tradebooks/internal/transfer"
)

// fakeTxRunner runs fn without a real transaction. A transaction that fails
// restores the store snapshot, so tests can assert nothing landed.
type fakeTxRunner struct {
	store     *memStore
	inTx      int
	snapshots int
}

func (f *fakeTxRunner) InTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	f.inTx++
	saved := f.store.clone()
	if err := fn(nil); err != nil {
		f.store.restore(saved)
		return err
	}
	return nil
}

func (f *fakeTxRunner) ReadSnapshot(_ context.Context, fn func(tx *sql.Tx) error) error {
	f.snapshots++
	return fn(nil)
}

type memStore struct {
	accounts  map[uuid.UUID]domain.BankAccount
	txns      []domain.BankTransaction
	invoices  map[uuid.UUID]domain.Invoice
	payments  []domain.Payment
	orders    map[uuid.UUID]domain.Order
	clients   map[uuid.UUID]domain.Client
	transfers []domain.Transfer

	// listErr, when set, is returned by every list call.
	listErr error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uuid.UUID]domain.BankAccount{},
		invoices: map[uuid.UUID]domain.Invoice{},
		orders:   map[uuid.UUID]domain.Order{},
		clients:  map[uuid.UUID]domain.Client{},
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	c.txns = append(c.txns, s.txns...)
	c.payments = append(c.payments, s.payments...)
	c.transfers = append(c.transfers, s.transfers...)
	return c
}

func (s *memStore) restore(c *memStore) {
	s.accounts, s.invoices, s.orders, s.clients = c.accounts, c.invoices, c.orders, c.clients
	s.txns, s.payments, s.transfers = c.txns, c.payments, c.transfers
}

type fakeAccounts struct{ s *memStore }

func (f fakeAccounts) GetByID(_ context.Context, _ repository.Querier, id uuid.UUID) (*domain.BankAccount, error) {
	a, ok := f.s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w: %w", domain.ErrAccountNotFound, domain.ErrNotFound)
	}
	return &a, nil
}

func (f fakeAccounts) GetForUpdate(ctx context.Context, _ *sql.Tx, id uuid.UUID) (*domain.BankAccount, error) {
	return f.GetByID(ctx, nil, id)
}

func (f fakeAccounts) List(_ context.Context, _ repository.Querier) ([]domain.BankAccount, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}
	out := make([]domain.BankAccount, 0, len(f.s.accounts))
	for _, a := range f.s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f fakeAccounts) ListByIDs(_ context.Context, _ repository.Querier, ids []uuid.UUID) ([]domain.BankAccount, error) {
	var out []domain.BankAccount
	for _, id := range ids {
		if a, ok := f.s.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAccounts) UpdateCurrentBalance(_ context.Context, _ *sql.Tx, id uuid.UUID, balance decimal.Decimal) error {
	a, ok := f.s.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.CurrentBalance = balance
	f.s.accounts[id] = a
	return nil
}

type fakeTxns struct{ s *memStore }

func (f fakeTxns) Create(_ context.Context, _ *sql.Tx, t *domain.BankTransaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	f.s.txns = append(f.s.txns, *t)
	return nil
}

func (f fakeTxns) GetForUpdate(_ context.Context, _ *sql.Tx, id uuid.UUID) (*domain.BankTransaction, error) {
	for i := range f.s.txns {
		if f.s.txns[i].ID == id {
			t := f.s.txns[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("GetForUpdate: %w: %w", domain.ErrTransactionNotFound, domain.ErrNotFound)
}

func (f fakeTxns) ListByAccount(_ context.Context, _ repository.Querier, accountID uuid.UUID) ([]domain.BankTransaction, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}
	var out []domain.BankTransaction
	for _, t := range f.s.txns {
		if t.BankAccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fakeTxns) update(id uuid.UUID, fn func(t *domain.BankTransaction)) error {
	for i := range f.s.txns {
		t := &f.s.txns[i]
		if t.ID != id {
			continue
		}
		if t.Excluded() {
			return domain.ErrTransactionFinalized
		}
		fn(t)
		return nil
	}
	return domain.ErrTransactionFinalized
}

func (f fakeTxns) MarkCancelled(_ context.Context, _ *sql.Tx, id uuid.UUID) error {
	return f.update(id, func(t *domain.BankTransaction) { t.Status = domain.TransactionStatusCancelled })
}

func (f fakeTxns) MarkReversed(_ context.Context, _ *sql.Tx, id uuid.UUID, at time.Time, reason string) error {
	return f.update(id, func(t *domain.BankTransaction) {
		t.IsReversed = true
		t.ReversedAt = &at
		t.ReversalReason = &reason
	})
}

type fakeInvoices struct{ s *memStore }

func (f fakeInvoices) GetByID(_ context.Context, _ repository.Querier, id uuid.UUID) (*domain.Invoice, error) {
	inv, ok := f.s.invoices[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w: %w", domain.ErrInvoiceNotFound, domain.ErrNotFound)
	}
	return &inv, nil
}

func (f fakeInvoices) GetForUpdate(ctx context.Context, _ *sql.Tx, id uuid.UUID) (*domain.Invoice, error) {
	return f.GetByID(ctx, nil, id)
}

func (f fakeInvoices) ListForFiscalYear(_ context.Context, _ repository.Querier, year int, start, end time.Time) ([]domain.Invoice, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}
	var out []domain.Invoice
	for _, inv := range f.s.invoices {
		if inv.IsStandalone {
			if !inv.IssuedAt.Before(start) && inv.IssuedAt.Before(end) {
				out = append(out, inv)
			}
			continue
		}
		if inv.OrderID == nil {
			continue
		}
		if o, ok := f.s.orders[*inv.OrderID]; ok && o.FiscalYear == year {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (f fakeInvoices) UpdateTotals(_ context.Context, _ *sql.Tx, id uuid.UUID, totalPaid, outstanding decimal.Decimal) error {
	inv, ok := f.s.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.TotalPaid = totalPaid
	inv.OutstandingBalance = outstanding
	f.s.invoices[id] = inv
	return nil
}

type fakePayments struct{ s *memStore }

func (f fakePayments) Create(_ context.Context, _ *sql.Tx, p *domain.Payment) error {
	if err := domain.ValidatePricing(p.Pricing); err != nil {
		return err
	}
	f.s.payments = append(f.s.payments, *p)
	return nil
}

func (f fakePayments) ListByInvoice(_ context.Context, _ repository.Querier, invoiceID uuid.UUID) ([]domain.Payment, error) {
	return f.ListByInvoices(context.Background(), nil, []uuid.UUID{invoiceID})
}

func (f fakePayments) ListByInvoices(_ context.Context, _ repository.Querier, invoiceIDs []uuid.UUID) ([]domain.Payment, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}
	want := make(map[uuid.UUID]bool, len(invoiceIDs))
	for _, id := range invoiceIDs {
		want[id] = true
	}
	var out []domain.Payment
	for _, p := range f.s.payments {
		if want[p.InvoiceID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeOrders struct{ s *memStore }

func (f fakeOrders) GetByID(_ context.Context, _ repository.Querier, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: order %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (f fakeOrders) List(_ context.Context, _ repository.Querier) ([]domain.Order, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}
	out := make([]domain.Order, 0, len(f.s.orders))
	for _, o := range f.s.orders {
		out = append(out, o)
	}
	return out, nil
}

type fakeClients struct{ s *memStore }

func (f fakeClients) GetByID(_ context.Context, _ repository.Querier, id uuid.UUID) (*domain.Client, error) {
	c, ok := f.s.clients[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: client %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

type fakeTransfers struct{ s *memStore }

func (f fakeTransfers) Create(_ context.Context, _ *sql.Tx, t *domain.Transfer) error {
	if err := domain.ValidatePricing(t.Pricing); err != nil {
		return err
	}
	f.s.transfers = append(f.s.transfers, *t)
	return nil
}

func (f fakeTransfers) ListByInvoice(_ context.Context, _ repository.Querier, invoiceID uuid.UUID) ([]domain.Transfer, error) {
	var out []domain.Transfer
	for _, t := range f.s.transfers {
		if t.InvoiceID == invoiceID {
			out = append(out, t)
		}
	}
	return out, nil
}

type auditEntry struct {
	table    string
	entityID uuid.UUID
	action   string
	message  string
}

type fakeAudit struct {
	entries []auditEntry
}

func (f *fakeAudit) Record(_ context.Context, table string, id uuid.UUID, action, message string) {
	f.entries = append(f.entries, auditEntry{table: table, entityID: id, action: action, message: message})
}

func (f *fakeAudit) actions() []string {
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.action
	}
	return out
}

type fakeMetrics struct {
	anomalies       map[string]int
	warnings        map[domain.OrderStatus]int
	reconciliations map[string][]error
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		anomalies:       map[string]int{},
		warnings:        map[domain.OrderStatus]int{},
		reconciliations: map[string][]error{},
	}
}

func (f *fakeMetrics) BalanceAnomaly(kind string)              { f.anomalies[kind]++ }
func (f *fakeMetrics) PolicyWarning(status domain.OrderStatus) { f.warnings[status]++ }
func (f *fakeMetrics) Reconciliation(operation string, err error) {
	f.reconciliations[operation] = append(f.reconciliations[operation], err)
}

// fixture bundles a store with every fake wired to it.
type fixture struct {
	store   *memStore
	db      *fakeTxRunner
	audit   *fakeAudit
	metrics *fakeMetrics
	now     time.Time
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:   s,
		db:      &fakeTxRunner{store: s},
		audit:   &fakeAudit{},
		metrics: newFakeMetrics(),
		now:     time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) ledgerService() *LedgerService {
	svc := NewLedgerService(f.db, fakeAccounts{f.store}, fakeTxns{f.store}, f.audit, f.metrics)
	svc.now = f.clock
	return svc
}

func (f *fixture) invoiceService() *InvoiceService {
	svc := NewInvoiceService(InvoiceServiceDeps{
		DB:       f.db,
		Invoices: fakeInvoices{f.store},
		Orders:   fakeOrders{f.store},
		Payments: fakePayments{f.store},
		Accounts: fakeAccounts{f.store},
		Txns:     fakeTxns{f.store},
		Audit:    f.audit,
		Metrics:  f.metrics,
	})
	svc.now = f.clock
	return svc
}

func (f *fixture) summaryService() *SummaryService {
	return NewSummaryService(SummaryServiceDeps{
		DB:       f.db,
		Orders:   fakeOrders{f.store},
		Invoices: fakeInvoices{f.store},
		Payments: fakePayments{f.store},
		Accounts: fakeAccounts{f.store},
		Audit:    f.audit,
		Metrics:  f.metrics,
	})
}

func (f *fixture) transferService(threshold int64) *TransferService {
	svc := NewTransferService(TransferServiceDeps{
		DB:        f.db,
		Invoices:  fakeInvoices{f.store},
		Clients:   fakeClients{f.store},
		Transfers: fakeTransfers{f.store},
		Accounts:  fakeAccounts{f.store},
		Txns:      fakeTxns{f.store},
		Audit:     f.audit,
		Metrics:   f.metrics,
		Policy: transfer.Policy{
			SettlementCountry: "PK",
			ThresholdPct:      decimal.NewFromInt(threshold),
		},
	})
	svc.now = f.clock
	return svc
}

func (f *fixture) addAccount(currency domain.Currency, country string, opening string) domain.BankAccount {
	a := domain.BankAccount{
		ID:             uuid.New(),
		Name:           string(currency) + " operating",
		BankName:       "Test Bank",
		Country:        country,
		Currency:       currency,
		OpeningBalance: decimal.RequireFromString(opening),
		CurrentBalance: decimal.RequireFromString(opening),
		Status:         domain.AccountStatusActive,
	}
	f.store.accounts[a.ID] = a
	return a
}

func (f *fixture) addClient(typ domain.ClientType) domain.Client {
	c := domain.Client{ID: uuid.New(), Name: "Client " + string(typ), Type: typ, Country: "US"}
	f.store.clients[c.ID] = c
	return c
}

func (f *fixture) addOrder(clientID uuid.UUID, status domain.OrderStatus, year int, total string, currency domain.Currency) domain.Order {
	o := domain.Order{
		ID:          uuid.New(),
		ClientID:    clientID,
		Status:      status,
		FiscalYear:  year,
		Currency:    currency,
		TotalAmount: decimal.RequireFromString(total),
	}
	f.store.orders[o.ID] = o
	return o
}

func (f *fixture) addInvoice(clientID uuid.UUID, order *domain.Order, amount string, currency domain.Currency, issued time.Time) domain.Invoice {
	inv := domain.Invoice{
		ID:                 uuid.New(),
		ClientID:           clientID,
		Amount:             decimal.RequireFromString(amount),
		Currency:           currency,
		TotalPaid:          decimal.Zero,
		OutstandingBalance: decimal.RequireFromString(amount),
		IsStandalone:       order == nil,
		IssuedAt:           issued,
	}
	if order != nil {
		inv.OrderID = &order.ID
	}
	f.store.invoices[inv.ID] = inv
	return inv
}

func (f *fixture) addPayment(invoiceID uuid.UUID, typ domain.PaymentType, amount string, currency domain.Currency) domain.Payment {
	p := domain.Payment{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Type:      typ,
		Pricing:   domain.Direct{Amount: domain.NewMoney(decimal.RequireFromString(amount), currency)},
		Status:    domain.PaymentStatusActive,
		PaidAt:    f.now,
	}
	f.store.payments = append(f.store.payments, p)
	return p
}

func (f *fixture) addTxn(accountID uuid.UUID, typ domain.TransactionType, pricing domain.Pricing) domain.BankTransaction {
	t := domain.BankTransaction{
		ID:              uuid.New(),
		BankAccountID:   accountID,
		Type:            typ,
		Pricing:         pricing,
		Status:          domain.TransactionStatusActive,
		TransactionDate: f.now,
	}
	f.store.txns = append(f.store.txns, t)
	return t
}

func usd(s string) domain.Money { return domain.NewMoney(decimal.RequireFromString(s), domain.CurrencyUSD) }
func pkr(s string) domain.Money { return domain.NewMoney(decimal.RequireFromString(s), domain.CurrencyPKR) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
