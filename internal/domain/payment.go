package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentTypeAdvance PaymentType = "advance"
	PaymentTypeInvoice PaymentType = "invoice_payment"
)

// IsAdvance is the only distinction the reconciler makes: anything that is
// not an advance counts as an invoice payment.
func (t PaymentType) IsAdvance() bool {
	return t == PaymentTypeAdvance
}

type PaymentStatus string

const (
	PaymentStatusActive    PaymentStatus = "active"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusReversed  PaymentStatus = "reversed"
)

// Payment.Pricing.Origin() is the payment in its own currency. When the
// payment landed in a bank account of another currency, Pricing is Converted
// and Booked() is the figure in the bank account's currency.
type Payment struct {
	ID            uuid.UUID
	InvoiceID     uuid.UUID
	Type          PaymentType
	Pricing       Pricing
	Status        PaymentStatus
	BankAccountID *uuid.UUID
	Reference     string
	PaidAt        time.Time
	CreatedAt     time.Time
}

func (p *Payment) Amount() Money {
	return p.Pricing.Origin()
}

func (p *Payment) IsActive() bool {
	return p.Status == PaymentStatusActive
}
