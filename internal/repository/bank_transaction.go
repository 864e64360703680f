package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

const bankTransactionColumns = `id, bank_account_id, transaction_type, ` + pricingColumns + `,
	status, is_reversed, reversed_at, reversal_reason, payment_id, transfer_id,
	description, transaction_date, created_at`

type BankTransactionRepository struct{}

func NewBankTransactionRepository() *BankTransactionRepository {
	return &BankTransactionRepository{}
}

func (r *BankTransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.BankTransaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	args := []any{t.ID, t.BankAccountID, t.Type}
	args = append(args, pricingArgs(t.Pricing)...)
	args = append(args,
		t.Status, t.IsReversed, t.ReversedAt, t.ReversalReason, t.PaymentID, t.TransferID,
		t.Description, t.TransactionDate, t.CreatedAt,
	)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO bank_transactions (`+bankTransactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", MapError(err))
	}
	return nil
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.BankTransaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE id = $1`, id,
	)
	t, err := scanBankTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %s: %w: %w", id, domain.ErrTransactionNotFound, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *BankTransactionRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.BankTransaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE id = $1 FOR UPDATE`, id,
	)
	t, err := scanBankTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %s: %w: %w", id, domain.ErrTransactionNotFound, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return t, nil
}

// ListByAccount returns every transaction of the account, cancelled and
// reversed ones included, in timestamp then insertion order.
func (r *BankTransactionRepository) ListByAccount(ctx context.Context, q Querier, accountID uuid.UUID) ([]domain.BankTransaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+bankTransactionColumns+` FROM bank_transactions
		WHERE bank_account_id = $1 ORDER BY transaction_date, created_at, id`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var txns []domain.BankTransaction
	for rows.Next() {
		t, err := scanBankTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return txns, nil
}

func (r *BankTransactionRepository) MarkCancelled(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bank_transactions SET status = $1
		WHERE id = $2 AND status = $3 AND NOT is_reversed`,
		domain.TransactionStatusCancelled, id, domain.TransactionStatusActive,
	)
	if err != nil {
		return fmt.Errorf("MarkCancelled: %w", MapError(err))
	}
	return requireOneRow(res, "MarkCancelled")
}

func (r *BankTransactionRepository) MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time, reason string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bank_transactions SET is_reversed = true, reversed_at = $1, reversal_reason = $2
		WHERE id = $3 AND status = $4 AND NOT is_reversed`,
		at, reason, id, domain.TransactionStatusActive,
	)
	if err != nil {
		return fmt.Errorf("MarkReversed: %w", MapError(err))
	}
	return requireOneRow(res, "MarkReversed")
}

func requireOneRow(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrTransactionFinalized)
	}
	return nil
}

func scanBankTransaction(s scanner) (*domain.BankTransaction, error) {
	var t domain.BankTransaction
	var p pricingRow
	var paymentID, transferID uuid.NullUUID

	dest := []any{&t.ID, &t.BankAccountID, &t.Type}
	dest = append(dest, p.dest()...)
	dest = append(dest,
		&t.Status, &t.IsReversed, &t.ReversedAt, &t.ReversalReason, &paymentID, &transferID,
		&t.Description, &t.TransactionDate, &t.CreatedAt,
	)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	pricing, err := p.pricing()
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Pricing = pricing

	if paymentID.Valid {
		t.PaymentID = &paymentID.UUID
	}
	if transferID.Valid {
		t.TransferID = &transferID.UUID
	}
	return &t, nil
}
