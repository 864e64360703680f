package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

// BankAccount.CurrentBalance is a cache of the reconstructed balance. It is
// never read as the source of truth.
type BankAccount struct {
	ID             uuid.UUID
	Name           string
	BankName       string
	Country        string
	Currency       Currency
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Status         AccountStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
