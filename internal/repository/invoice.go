package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

const invoiceColumns = `id, order_id, client_id, amount, currency, total_paid,
	outstanding_balance, is_standalone, issued_at, due_date, created_at, updated_at`

type InvoiceRepository struct{}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{}
}

func (r *InvoiceRepository) Create(ctx context.Context, q Querier, inv *domain.Invoice) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inv.ID, inv.OrderID, inv.ClientID, inv.Amount, inv.Currency, inv.TotalPaid,
		inv.OutstandingBalance, inv.IsStandalone, inv.IssuedAt, inv.DueDate, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", MapError(err))
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.Invoice, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %s: %w: %w", id, domain.ErrInvoiceNotFound, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

// GetForUpdate row-locks the invoice so concurrent payment recording on the
// same invoice is serialized.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Invoice, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %s: %w: %w", id, domain.ErrInvoiceNotFound, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return inv, nil
}

// ListForFiscalYear returns order-linked invoices whose order belongs to the
// fiscal year, plus standalone invoices issued within [start, end). A
// standalone invoice is scoped by issue date even when it carries an order_id.
func (r *InvoiceRepository) ListForFiscalYear(ctx context.Context, q Querier, year int, start, end time.Time) ([]domain.Invoice, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+prefixed("i", invoiceColumns)+`
		FROM invoices i
		LEFT JOIN orders o ON o.id = i.order_id
		WHERE (NOT i.is_standalone AND o.fiscal_year = $1)
		   OR (i.is_standalone AND i.issued_at >= $2 AND i.issued_at < $3)
		ORDER BY i.issued_at, i.id`,
		year, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("ListForFiscalYear: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForFiscalYear: scan: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListForFiscalYear: rows: %w", err)
	}
	return invoices, nil
}

func (r *InvoiceRepository) UpdateTotals(ctx context.Context, tx *sql.Tx, id uuid.UUID, totalPaid, outstanding decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices SET total_paid = $1, outstanding_balance = $2, updated_at = now()
		WHERE id = $3`,
		totalPaid, outstanding, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateTotals: %w", MapError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateTotals: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateTotals: %w: %w", domain.ErrInvoiceNotFound, domain.ErrNotFound)
	}
	return nil
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	var orderID uuid.NullUUID

	err := s.Scan(
		&inv.ID, &orderID, &inv.ClientID, &inv.Amount, &inv.Currency, &inv.TotalPaid,
		&inv.OutstandingBalance, &inv.IsStandalone, &inv.IssuedAt, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		inv.OrderID = &orderID.UUID
	}
	return &inv, nil
}
