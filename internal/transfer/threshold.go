// Package transfer gates inter-bank transfers on how much of an invoice has
// already reached the settlement country.
package transfer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultThresholdPct: once this share of an invoice has been transferred
// into the settlement country, the invoice is closed for further transfers.
const DefaultThresholdPct = 70

var hundred = decimal.NewFromInt(100)

type Policy struct {
	SettlementCountry string
	ThresholdPct      decimal.Decimal
}

func DefaultPolicy(settlementCountry string) Policy {
	return Policy{
		SettlementCountry: settlementCountry,
		ThresholdPct:      decimal.NewFromInt(DefaultThresholdPct),
	}
}

func (p Policy) Validate() error {
	if strings.TrimSpace(p.SettlementCountry) == "" {
		return fmt.Errorf("Policy.Validate: settlement country required: %w", domain.ErrInvalidRequest)
	}
	if !p.ThresholdPct.IsPositive() || p.ThresholdPct.GreaterThan(hundred) {
		return fmt.Errorf("Policy.Validate: threshold %s outside (0, 100]: %w", p.ThresholdPct, domain.ErrInvalidRequest)
	}
	return nil
}

type Eligibility struct {
	Eligible           bool
	Transferred        domain.Money
	PercentTransferred decimal.Decimal
	ThresholdPct       decimal.Decimal
	Counted            int
}

// Evaluate sums completed transfers into the settlement country, each at its
// pre-conversion amount, and compares the share of the invoice against the
// policy threshold. The invoice stays eligible while strictly below it.
func Evaluate(inv *domain.Invoice, transfers []domain.Transfer, accounts map[uuid.UUID]domain.BankAccount, policy Policy) (Eligibility, error) {
	if err := policy.Validate(); err != nil {
		return Eligibility{}, fmt.Errorf("Evaluate: %w", err)
	}

	out := Eligibility{
		Transferred:        domain.Zero(inv.Currency),
		PercentTransferred: decimal.Zero,
		ThresholdPct:       policy.ThresholdPct,
	}

	for i := range transfers {
		tr := &transfers[i]
		if tr.InvoiceID != inv.ID {
			return Eligibility{}, fmt.Errorf("Evaluate: transfer %s belongs to invoice %s, not %s: %w",
				tr.ID, tr.InvoiceID, inv.ID, domain.ErrInvalidLedgerState)
		}
		if tr.Status != domain.TransferStatusCompleted {
			continue
		}
		dest, ok := accounts[tr.DestAccountID]
		if !ok {
			return Eligibility{}, fmt.Errorf("Evaluate: transfer %s references missing bank account %s: %w",
				tr.ID, tr.DestAccountID, domain.ErrInvalidLedgerState)
		}
		if !strings.EqualFold(dest.Country, policy.SettlementCountry) {
			continue
		}

		sum, err := out.Transferred.Add(tr.Pricing.Origin())
		if err != nil {
			return Eligibility{}, fmt.Errorf("Evaluate: transfer %s: %w: %w", tr.ID, err, domain.ErrInvalidLedgerState)
		}
		out.Transferred = sum
		out.Counted++
	}

	if !inv.Amount.IsPositive() {
		return out, nil
	}

	out.PercentTransferred = out.Transferred.Amount.Mul(hundred).Div(inv.Amount)
	out.Eligible = out.Transferred.Amount.Mul(hundred).LessThan(policy.ThresholdPct.Mul(inv.Amount))
	return out, nil
}

func IsEligibleForTransfer(inv *domain.Invoice, transfers []domain.Transfer, accounts map[uuid.UUID]domain.BankAccount, policy Policy) (bool, error) {
	e, err := Evaluate(inv, transfers, accounts, policy)
	if err != nil {
		return false, err
	}
	return e.Eligible, nil
}
