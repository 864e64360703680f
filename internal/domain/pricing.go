package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Pricing is either Direct or Converted. Switch on the concrete type; there
// are no other implementations.
type Pricing interface {
	// Origin is the amount at the point of origin, before any conversion.
	Origin() Money
	// Booked is the amount as it landed in the receiving account.
	Booked() Money
	isPricing()
}

type Direct struct {
	Amount Money
}

func (d Direct) Origin() Money { return d.Amount }
func (d Direct) Booked() Money { return d.Amount }
func (Direct) isPricing()      {}

// Converted records a conversion frozen at creation time.
type Converted struct {
	Original     Money
	Amount       Money
	ExchangeRate decimal.Decimal
}

func (c Converted) Origin() Money { return c.Original }
func (c Converted) Booked() Money { return c.Amount }
func (Converted) isPricing()      {}

func ValidatePricing(p Pricing) error {
	switch v := p.(type) {
	case Direct:
		if !v.Amount.Currency.IsValid() {
			return fmt.Errorf("ValidatePricing: %q: %w", v.Amount.Currency, ErrInvalidCurrency)
		}
	case Converted:
		if !v.Original.Currency.IsValid() || !v.Amount.Currency.IsValid() {
			return fmt.Errorf("ValidatePricing: %q/%q: %w", v.Original.Currency, v.Amount.Currency, ErrInvalidCurrency)
		}
		if v.Original.Currency == v.Amount.Currency {
			return fmt.Errorf("ValidatePricing: conversion within %s: %w", v.Amount.Currency, ErrInvalidLedgerState)
		}
		if !v.ExchangeRate.IsPositive() {
			return fmt.Errorf("ValidatePricing: exchange rate %s: %w", v.ExchangeRate, ErrInvalidLedgerState)
		}
	case nil:
		return fmt.Errorf("ValidatePricing: missing pricing: %w", ErrInvalidLedgerState)
	default:
		return fmt.Errorf("ValidatePricing: unknown pricing %T: %w", p, ErrInvalidLedgerState)
	}
	return nil
}

// PricingFromColumns rebuilds a Pricing from flat storage columns. The
// conversion triple is all-or-nothing.
func PricingFromColumns(amount decimal.Decimal, currency Currency, originalAmount decimal.NullDecimal, originalCurrency *Currency, rate decimal.NullDecimal) (Pricing, error) {
	present := 0
	if originalAmount.Valid {
		present++
	}
	if originalCurrency != nil {
		present++
	}
	if rate.Valid {
		present++
	}

	switch present {
	case 0:
		return Direct{Amount: NewMoney(amount, currency)}, nil
	case 3:
		return Converted{
			Original:     NewMoney(originalAmount.Decimal, *originalCurrency),
			Amount:       NewMoney(amount, currency),
			ExchangeRate: rate.Decimal,
		}, nil
	default:
		return nil, fmt.Errorf("PricingFromColumns: partial conversion data: %w", ErrInvalidLedgerState)
	}
}

// PricingColumns flattens a Pricing into the storage columns read by
// PricingFromColumns.
func PricingColumns(p Pricing) (amount decimal.Decimal, currency Currency, originalAmount decimal.NullDecimal, originalCurrency *Currency, rate decimal.NullDecimal) {
	switch v := p.(type) {
	case Converted:
		oc := v.Original.Currency
		return v.Amount.Amount, v.Amount.Currency,
			decimal.NewNullDecimal(v.Original.Amount), &oc,
			decimal.NewNullDecimal(v.ExchangeRate)
	case Direct:
		return v.Amount.Amount, v.Amount.Currency, decimal.NullDecimal{}, nil, decimal.NullDecimal{}
	}
	return decimal.Zero, "", decimal.NullDecimal{}, nil, decimal.NullDecimal{}
}
