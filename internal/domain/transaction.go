package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeDeposit         TransactionType = "deposit"
	TransactionTypeWithdrawal      TransactionType = "withdrawal"
	TransactionTypeTransferIn      TransactionType = "transfer_in"
	TransactionTypeTransferOut     TransactionType = "transfer_out"
	TransactionTypePaymentReceived TransactionType = "payment_received"
	TransactionTypeFee             TransactionType = "fee"
	TransactionTypeInterest        TransactionType = "interest"
	TransactionTypeAdjustment      TransactionType = "adjustment"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransferIn,
		TransactionTypeTransferOut, TransactionTypePaymentReceived, TransactionTypeFee,
		TransactionTypeInterest, TransactionTypeAdjustment:
		return true
	}
	return false
}

// Sign is the direction the amount must carry for the type: +1 credits, -1
// debits, 0 when either direction is allowed.
func (t TransactionType) Sign() int {
	switch t {
	case TransactionTypeDeposit, TransactionTypeTransferIn, TransactionTypePaymentReceived, TransactionTypeInterest:
		return 1
	case TransactionTypeWithdrawal, TransactionTypeTransferOut, TransactionTypeFee:
		return -1
	}
	return 0
}

type TransactionStatus string

const (
	TransactionStatusActive    TransactionStatus = "active"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// BankTransaction is an append-only ledger entry. Pricing.Booked() is the
// signed amount in the stored currency; a Converted pricing keeps the figure
// at the point of origin.
type BankTransaction struct {
	ID              uuid.UUID
	BankAccountID   uuid.UUID
	Type            TransactionType
	Pricing         Pricing
	Status          TransactionStatus
	IsReversed      bool
	ReversedAt      *time.Time
	ReversalReason  *string
	PaymentID       *uuid.UUID
	TransferID      *uuid.UUID
	Description     string
	TransactionDate time.Time
	CreatedAt       time.Time
}

// Excluded reports whether the transaction is permanently out of balance folding.
func (t *BankTransaction) Excluded() bool {
	return t.Status == TransactionStatusCancelled || t.IsReversed
}

func (t *BankTransaction) Validate() error {
	switch t.Status {
	case TransactionStatusActive, TransactionStatusCancelled:
	default:
		return fmt.Errorf("transaction %s: unknown status %q: %w", t.ID, t.Status, ErrInvalidLedgerState)
	}
	if t.Status == TransactionStatusCancelled && t.IsReversed {
		return fmt.Errorf("transaction %s: cancelled and reversed: %w", t.ID, ErrInvalidLedgerState)
	}
	if (t.ReversedAt == nil) != (t.ReversalReason == nil) {
		return fmt.Errorf("transaction %s: reversal fields must be set together: %w", t.ID, ErrInvalidLedgerState)
	}
	if t.IsReversed != (t.ReversedAt != nil) {
		return fmt.Errorf("transaction %s: reversal flag disagrees with reversal fields: %w", t.ID, ErrInvalidLedgerState)
	}
	if err := ValidatePricing(t.Pricing); err != nil {
		return fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	return nil
}
