package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

const transferColumns = `id, invoice_id, source_account_id, dest_account_id, ` + pricingColumns + `,
	status, completed_at, created_at`

type TransferRepository struct{}

func NewTransferRepository() *TransferRepository {
	return &TransferRepository{}
}

func (r *TransferRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transfer) error {
	if err := domain.ValidatePricing(t.Pricing); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	args := []any{t.ID, t.InvoiceID, t.SourceAccountID, t.DestAccountID}
	args = append(args, pricingArgs(t.Pricing)...)
	args = append(args, t.Status, t.CompletedAt, t.CreatedAt)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", MapError(err))
	}
	return nil
}

func (r *TransferRepository) ListByInvoice(ctx context.Context, q Querier, invoiceID uuid.UUID) ([]domain.Transfer, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE invoice_id = $1 ORDER BY created_at, id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByInvoice: %w", err)
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByInvoice: scan: %w", err)
		}
		transfers = append(transfers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByInvoice: rows: %w", err)
	}
	return transfers, nil
}

func scanTransfer(s scanner) (*domain.Transfer, error) {
	var t domain.Transfer
	var pr pricingRow

	dest := []any{&t.ID, &t.InvoiceID, &t.SourceAccountID, &t.DestAccountID}
	dest = append(dest, pr.dest()...)
	dest = append(dest, &t.Status, &t.CompletedAt, &t.CreatedAt)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	pricing, err := pr.pricing()
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", t.ID, err)
	}
	t.Pricing = pricing
	return &t, nil
}
