package domain

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrAccountNotFound          = errors.New("bank account not found")
	ErrInvoiceNotFound          = errors.New("invoice not found")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrInvalidLedgerState       = errors.New("invalid ledger state")
	ErrCurrencyMismatch         = errors.New("currency mismatch")
	ErrInvalidCurrency          = errors.New("invalid currency")
	ErrInvalidAmount            = errors.New("amount must be non-zero")
	ErrInvalidRequest           = errors.New("invalid request")
	ErrTransactionFinalized     = errors.New("transaction already cancelled or reversed")
	ErrAccountInactive          = errors.New("bank account inactive")
	ErrVersionConflict          = errors.New("concurrent modification, retry")
	ErrTransferThresholdReached = errors.New("invoice no longer eligible for transfer")
	ErrDuplicateIdempotencyKey  = errors.New("duplicate idempotency key")
)
