package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

// Transfer moves invoice proceeds between two bank accounts. Pricing.Origin()
// is the amount debited from the source account.
type Transfer struct {
	ID              uuid.UUID
	InvoiceID       uuid.UUID
	SourceAccountID uuid.UUID
	DestAccountID   uuid.UUID
	Pricing         Pricing
	Status          TransferStatus
	CompletedAt     *time.Time
	CreatedAt       time.Time
}
