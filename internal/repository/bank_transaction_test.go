package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

var bankTransactionColumnNames = []string{
	"id", "bank_account_id", "transaction_type",
	"amount", "currency", "original_amount", "original_currency", "exchange_rate",
	"status", "is_reversed", "reversed_at", "reversal_reason", "payment_id", "transfer_id",
	"description", "transaction_date", "created_at",
}

func bankTransactionRow(id, accountID uuid.UUID, amount, currency string, conversion []driver.Value, status string, reversedAt *time.Time, reason *string) []driver.Value {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	if conversion == nil {
		conversion = []driver.Value{nil, nil, nil}
	}
	var ra, rr driver.Value
	if reversedAt != nil {
		ra, rr = *reversedAt, *reason
	}
	row := []driver.Value{id.String(), accountID.String(), "deposit", amount, currency}
	row = append(row, conversion...)
	row = append(row, status, reversedAt != nil, ra, rr, nil, nil, "", now, now)
	return row
}

func TestBankTransactionRepository_ListByAccount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankTransactionRepository()

	accountID := uuid.New()
	direct, converted, reversed := uuid.New(), uuid.New(), uuid.New()
	reversedAt := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)
	reason := "duplicate entry"

	rows := sqlmock.NewRows(bankTransactionColumnNames).
		AddRow(bankTransactionRow(direct, accountID, "500.00", "USD", nil, "active", nil, nil)...).
		AddRow(bankTransactionRow(converted, accountID, "330.00", "USD", []driver.Value{"300.00", "EUR", "1.10000000"}, "active", nil, nil)...).
		AddRow(bankTransactionRow(reversed, accountID, "-200.00", "USD", nil, "active", &reversedAt, &reason)...)

	mock.ExpectQuery(`SELECT .+ FROM bank_transactions WHERE bank_account_id = \$1 ORDER BY transaction_date, created_at, id`).
		WithArgs(accountID).
		WillReturnRows(rows)

	txns, err := repo.ListByAccount(context.Background(), db, accountID)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	_, isDirect := txns[0].Pricing.(domain.Direct)
	assert.True(t, isDirect)
	assert.True(t, txns[0].Pricing.Booked().Equal(domain.NewMoney(decimal.NewFromInt(500), domain.CurrencyUSD)))

	conv, ok := txns[1].Pricing.(domain.Converted)
	require.True(t, ok)
	assert.Equal(t, domain.CurrencyEUR, conv.Original.Currency)
	assert.True(t, conv.Original.Amount.Equal(decimal.RequireFromString("300")))
	assert.True(t, conv.Amount.Amount.Equal(decimal.RequireFromString("330")))
	assert.True(t, conv.ExchangeRate.Equal(decimal.RequireFromString("1.1")))

	assert.True(t, txns[2].IsReversed)
	require.NotNil(t, txns[2].ReversalReason)
	assert.Equal(t, reason, *txns[2].ReversalReason)
	assert.True(t, txns[2].Excluded())
}

func TestBankTransactionRepository_ListByAccount_PartialConversion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankTransactionRepository()
	accountID := uuid.New()

	rows := sqlmock.NewRows(bankTransactionColumnNames).
		AddRow(bankTransactionRow(uuid.New(), accountID, "330.00", "USD", []driver.Value{"300.00", nil, nil}, "active", nil, nil)...)

	mock.ExpectQuery(`SELECT .+ FROM bank_transactions`).WillReturnRows(rows)

	_, err := repo.ListByAccount(context.Background(), db, accountID)
	require.ErrorIs(t, err, domain.ErrInvalidLedgerState)
}

func TestBankTransactionRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankTransactionRepository()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM bank_transactions WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bankTransactionColumnNames))

	_, err := repo.GetByID(context.Background(), db, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestBankTransactionRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankTransactionRepository()
	tx := beginTx(t, db, mock)

	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	txn := &domain.BankTransaction{
		ID:            uuid.New(),
		BankAccountID: uuid.New(),
		Type:          domain.TransactionTypePaymentReceived,
		Pricing: domain.Converted{
			Original:     domain.NewMoney(decimal.RequireFromString("300"), domain.CurrencyEUR),
			Amount:       domain.NewMoney(decimal.RequireFromString("330"), domain.CurrencyUSD),
			ExchangeRate: decimal.RequireFromString("1.1"),
		},
		Status:          domain.TransactionStatusActive,
		TransactionDate: now,
		CreatedAt:       now,
	}

	mock.ExpectExec(`INSERT INTO bank_transactions`).
		WithArgs(
			txn.ID, txn.BankAccountID, txn.Type,
			sqlmock.AnyArg(), "USD", sqlmock.AnyArg(), "EUR", sqlmock.AnyArg(),
			txn.Status, false, nil, nil, nil, nil,
			"", now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), tx, txn))
	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
}

func TestBankTransactionRepository_Create_RejectsInvalidState(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankTransactionRepository()
	tx := beginTx(t, db, mock)

	now := time.Now()
	reason := "bounced"
	txn := &domain.BankTransaction{
		ID:             uuid.New(),
		BankAccountID:  uuid.New(),
		Type:           domain.TransactionTypeDeposit,
		Pricing:        domain.Direct{Amount: domain.NewMoney(decimal.NewFromInt(10), domain.CurrencyUSD)},
		Status:         domain.TransactionStatusCancelled,
		IsReversed:     true,
		ReversedAt:     &now,
		ReversalReason: &reason,
	}

	err := repo.Create(context.Background(), tx, txn)
	require.ErrorIs(t, err, domain.ErrInvalidLedgerState)

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
}

func TestBankTransactionRepository_MarkCancelled(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"active transaction", 1, nil},
		{"already finalized", 0, domain.ErrTransactionFinalized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewBankTransactionRepository()
			tx := beginTx(t, db, mock)
			id := uuid.New()

			mock.ExpectExec(`UPDATE bank_transactions SET status = \$1 WHERE id = \$2 AND status = \$3 AND NOT is_reversed`).
				WithArgs(domain.TransactionStatusCancelled, id, domain.TransactionStatusActive).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err := repo.MarkCancelled(context.Background(), tx, id)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			mock.ExpectRollback()
			require.NoError(t, tx.Rollback())
		})
	}
}

func TestBankTransactionRepository_MarkReversed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankTransactionRepository()
	tx := beginTx(t, db, mock)
	id := uuid.New()
	at := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE bank_transactions SET is_reversed = true`).
		WithArgs(at, "chargeback", id, domain.TransactionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkReversed(context.Background(), tx, id, at, "chargeback"))

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
}
