package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

const bankAccountColumns = `id, name, bank_name, country, currency, opening_balance,
	current_balance, status, created_at, updated_at`

type BankAccountRepository struct{}

func NewBankAccountRepository() *BankAccountRepository {
	return &BankAccountRepository{}
}

func (r *BankAccountRepository) Create(ctx context.Context, q Querier, a *domain.BankAccount) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO bank_accounts (`+bankAccountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Name, a.BankName, a.Country, a.Currency, a.OpeningBalance,
		a.CurrentBalance, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", MapError(err))
	}
	return nil
}

func (r *BankAccountRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.BankAccount, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1`, id,
	)
	a, err := scanBankAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %s: %w: %w", id, domain.ErrAccountNotFound, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *BankAccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.BankAccount, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanBankAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %s: %w: %w", id, domain.ErrAccountNotFound, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

func (r *BankAccountRepository) List(ctx context.Context, q Querier) ([]domain.BankAccount, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return collectBankAccounts(rows, "List")
}

func (r *BankAccountRepository) ListByIDs(ctx context.Context, q Querier, ids []uuid.UUID) ([]domain.BankAccount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = ANY($1::uuid[]) ORDER BY id`,
		pq.Array(uuidStrings(ids)),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByIDs: %w", err)
	}
	return collectBankAccounts(rows, "ListByIDs")
}

func (r *BankAccountRepository) UpdateCurrentBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bank_accounts SET current_balance = $1, updated_at = now() WHERE id = $2`,
		balance, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateCurrentBalance: %w", MapError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateCurrentBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateCurrentBalance: %w: %w", domain.ErrAccountNotFound, domain.ErrNotFound)
	}
	return nil
}

func collectBankAccounts(rows *sql.Rows, op string) ([]domain.BankAccount, error) {
	defer rows.Close()

	var accounts []domain.BankAccount
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return accounts, nil
}

func scanBankAccount(s scanner) (*domain.BankAccount, error) {
	var a domain.BankAccount
	err := s.Scan(
		&a.ID, &a.Name, &a.BankName, &a.Country, &a.Currency, &a.OpeningBalance,
		&a.CurrentBalance, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
