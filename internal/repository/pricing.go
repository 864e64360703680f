package repository

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/tradebooks/internal/domain"
)

// pricingColumns is the flat layout shared by bank_transactions, payments and
// transfers.
const pricingColumns = `amount, currency, original_amount, original_currency, exchange_rate`

type pricingRow struct {
	amount           decimal.Decimal
	currency         string
	originalAmount   decimal.NullDecimal
	originalCurrency *string
	rate             decimal.NullDecimal
}

func (r *pricingRow) dest() []any {
	return []any{&r.amount, &r.currency, &r.originalAmount, &r.originalCurrency, &r.rate}
}

func (r *pricingRow) pricing() (domain.Pricing, error) {
	var oc *domain.Currency
	if r.originalCurrency != nil {
		c := domain.Currency(*r.originalCurrency)
		oc = &c
	}
	return domain.PricingFromColumns(r.amount, domain.Currency(r.currency), r.originalAmount, oc, r.rate)
}

func pricingArgs(p domain.Pricing) []any {
	amount, currency, originalAmount, originalCurrency, rate := domain.PricingColumns(p)
	var oc *string
	if originalCurrency != nil {
		s := string(*originalCurrency)
		oc = &s
	}
	return []any{amount, string(currency), originalAmount, oc, rate}
}
