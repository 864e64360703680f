package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

var bankAccountColumnNames = []string{
	"id", "name", "bank_name", "country", "currency", "opening_balance",
	"current_balance", "status", "created_at", "updated_at",
}

func TestBankAccountRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankAccountRepository()
	id := uuid.New()
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM bank_accounts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bankAccountColumnNames).AddRow(
			id.String(), "Operating", "HBL", "PK", "PKR", "1000.00", "1830.00", "active", now, now,
		))

	a, err := repo.GetByID(context.Background(), db, id)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyPKR, a.Currency)
	assert.Equal(t, domain.AccountStatusActive, a.Status)
	assert.True(t, a.OpeningBalance.Equal(decimal.NewFromInt(1000)))
}

func TestBankAccountRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankAccountRepository()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM bank_accounts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bankAccountColumnNames))

	_, err := repo.GetByID(context.Background(), db, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestBankAccountRepository_UpdateCurrentBalance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankAccountRepository()
	tx := beginTx(t, db, mock)
	id := uuid.New()

	mock.ExpectExec(`UPDATE bank_accounts SET current_balance = \$1`).
		WithArgs(decimal.NewFromInt(1830), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateCurrentBalance(context.Background(), tx, id, decimal.NewFromInt(1830)))

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
}
