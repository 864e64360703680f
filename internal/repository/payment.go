package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

const paymentColumns = `id, invoice_id, payment_type, status, bank_account_id, ` + pricingColumns + `,
	reference, paid_at, created_at`

type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error {
	if err := domain.ValidatePricing(p.Pricing); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	args := []any{p.ID, p.InvoiceID, p.Type, p.Status, p.BankAccountID}
	args = append(args, pricingArgs(p.Pricing)...)
	args = append(args, p.Reference, p.PaidAt, p.CreatedAt)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", MapError(err))
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.Payment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

// ListByInvoice includes cancelled and reversed payments; the reconciler
// decides what counts.
func (r *PaymentRepository) ListByInvoice(ctx context.Context, q Querier, invoiceID uuid.UUID) ([]domain.Payment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_id = $1 ORDER BY paid_at, created_at, id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByInvoice: %w", err)
	}
	return collectPayments(rows, "ListByInvoice")
}

func (r *PaymentRepository) ListByInvoices(ctx context.Context, q Querier, invoiceIDs []uuid.UUID) ([]domain.Payment, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_id = ANY($1::uuid[])
		ORDER BY invoice_id, paid_at, created_at, id`,
		pq.Array(uuidStrings(invoiceIDs)),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByInvoices: %w", err)
	}
	return collectPayments(rows, "ListByInvoices")
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PaymentStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = $1 WHERE id = $2 AND status = $3`,
		status, id, domain.PaymentStatusActive,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", MapError(err))
	}
	return requireOneRow(res, "UpdateStatus")
}

func collectPayments(rows *sql.Rows, op string) ([]domain.Payment, error) {
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return payments, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	var pr pricingRow
	var bankAccountID uuid.NullUUID

	dest := []any{&p.ID, &p.InvoiceID, &p.Type, &p.Status, &bankAccountID}
	dest = append(dest, pr.dest()...)
	dest = append(dest, &p.Reference, &p.PaidAt, &p.CreatedAt)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	pricing, err := pr.pricing()
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", p.ID, err)
	}
	p.Pricing = pricing

	if bankAccountID.Valid {
		p.BankAccountID = &bankAccountID.UUID
	}
	return &p, nil
}
