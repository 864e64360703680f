package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultInvoiceDueDays applies when an invoice carries no explicit due date.
const DefaultInvoiceDueDays = 30

// Invoice.TotalPaid and Invoice.OutstandingBalance are write-back caches; the
// reconciler recomputes them from payments on every read.
type Invoice struct {
	ID                 uuid.UUID
	OrderID            *uuid.UUID
	ClientID           uuid.UUID
	Amount             decimal.Decimal
	Currency           Currency
	TotalPaid          decimal.Decimal
	OutstandingBalance decimal.Decimal
	IsStandalone       bool
	IssuedAt           time.Time
	DueDate            *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (i *Invoice) Total() Money {
	return NewMoney(i.Amount, i.Currency)
}

// EffectiveDueDate falls back to IssuedAt plus DefaultInvoiceDueDays.
func (i *Invoice) EffectiveDueDate() time.Time {
	return i.DueDateAfter(DefaultInvoiceDueDays)
}

// DueDateAfter is EffectiveDueDate with a configurable default term.
func (i *Invoice) DueDateAfter(days int) time.Time {
	if i.DueDate != nil {
		return *i.DueDate
	}
	return i.IssuedAt.AddDate(0, 0, days)
}
