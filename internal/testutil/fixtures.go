package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/josh-kwaku/tradebooks/internal/repository"
)

func SeedClient(t *testing.T, db *sql.DB, clientType domain.ClientType, country string) *domain.Client {
	t.Helper()

	c := &domain.Client{
		ID:        uuid.New(),
		Name:      "Client " + country,
		Type:      clientType,
		Country:   country,
		CreatedAt: time.Now().UTC(),
	}
	if err := repository.NewClientRepository().Create(context.Background(), db, c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func SeedOrder(t *testing.T, db *sql.DB, clientID uuid.UUID, status domain.OrderStatus, fiscalYear int, total string, currency domain.Currency) *domain.Order {
	t.Helper()

	o := &domain.Order{
		ID:          uuid.New(),
		ClientID:    clientID,
		Status:      status,
		FiscalYear:  fiscalYear,
		Currency:    currency,
		TotalAmount: decimal.RequireFromString(total),
		CreatedAt:   time.Now().UTC(),
	}
	if err := repository.NewOrderRepository().Create(context.Background(), db, o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

// SeedInvoice links the invoice to order, or makes it standalone when order
// is nil.
func SeedInvoice(t *testing.T, db *sql.DB, clientID uuid.UUID, order *domain.Order, amount string, currency domain.Currency, issuedAt time.Time) *domain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	inv := &domain.Invoice{
		ID:                 uuid.New(),
		ClientID:           clientID,
		Amount:             decimal.RequireFromString(amount),
		Currency:           currency,
		TotalPaid:          decimal.Zero,
		OutstandingBalance: decimal.RequireFromString(amount),
		IsStandalone:       order == nil,
		IssuedAt:           issuedAt.UTC(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if order != nil {
		inv.OrderID = &order.ID
	}
	if err := repository.NewInvoiceRepository().Create(context.Background(), db, inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return inv
}

func SeedBankAccount(t *testing.T, db *sql.DB, currency domain.Currency, country, opening string) *domain.BankAccount {
	t.Helper()

	now := time.Now().UTC()
	a := &domain.BankAccount{
		ID:             uuid.New(),
		Name:           string(currency) + " operating",
		BankName:       "Test Bank",
		Country:        country,
		Currency:       currency,
		OpeningBalance: decimal.RequireFromString(opening),
		CurrentBalance: decimal.RequireFromString(opening),
		Status:         domain.AccountStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repository.NewBankAccountRepository().Create(context.Background(), db, a); err != nil {
		t.Fatalf("seed bank account %s: %v", currency, err)
	}
	return a
}

func GetCachedBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT current_balance FROM bank_accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get cached balance %s: %v", accountID, err)
	}
	return balance
}

func CountPayments(t *testing.T, db *sql.DB, invoiceID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&count)
	if err != nil {
		t.Fatalf("count payments for invoice %s: %v", invoiceID, err)
	}
	return count
}

func CountAuditEvents(t *testing.T, db *sql.DB, entityID uuid.UUID, action string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM audit_events WHERE entity_id = $1 AND action = $2`,
		entityID, action,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count audit events for %s: %v", entityID, err)
	}
	return count
}
