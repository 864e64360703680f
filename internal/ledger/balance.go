// Package ledger folds an account's transaction history into a balance.
package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/shopspring/decimal"
)

type AnomalyKind string

// AnomalyCurrencyMismatch: the transaction is in neither the account currency
// nor carries a conversion from it. Its booked amount is used as-is.
const AnomalyCurrencyMismatch AnomalyKind = "currency_mismatch"

type Anomaly struct {
	Kind            AnomalyKind
	TransactionID   uuid.UUID
	AccountCurrency domain.Currency
	Contributed     domain.Money
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: transaction %s contributed %s to a %s account",
		a.Kind, a.TransactionID, a.Contributed, a.AccountCurrency)
}

type Result struct {
	Balance   domain.Money
	Folded    int
	Excluded  int
	Anomalies []Anomaly
}

func (r Result) HasAnomalies() bool {
	return len(r.Anomalies) > 0
}

// Reconstruct adds every active, non-reversed transaction to the opening
// balance. It is pure and order-independent. An invalid transaction aborts
// the whole fold.
func Reconstruct(opening decimal.Decimal, currency domain.Currency, txns []domain.BankTransaction) (Result, error) {
	if !currency.IsValid() {
		return Result{}, fmt.Errorf("Reconstruct: account currency %q: %w", currency, domain.ErrInvalidCurrency)
	}

	res := Result{Balance: domain.NewMoney(opening, currency)}
	sum := decimal.Zero

	for i := range txns {
		t := &txns[i]
		if err := t.Validate(); err != nil {
			return Result{}, fmt.Errorf("Reconstruct: %w", err)
		}
		if t.Excluded() {
			res.Excluded++
			continue
		}

		amount, anomaly := contribution(t, currency)
		if anomaly != nil {
			res.Anomalies = append(res.Anomalies, *anomaly)
		}
		sum = sum.Add(amount)
		res.Folded++
	}

	res.Balance = domain.NewMoney(opening.Add(sum), currency)
	return res, nil
}

func contribution(t *domain.BankTransaction, accountCurrency domain.Currency) (decimal.Decimal, *Anomaly) {
	booked := t.Pricing.Booked()
	if booked.Currency == accountCurrency {
		return booked.Amount, nil
	}

	if conv, ok := t.Pricing.(domain.Converted); ok && conv.Original.Currency == accountCurrency {
		return conv.Original.Amount, nil
	}

	return booked.Amount, &Anomaly{
		Kind:            AnomalyCurrencyMismatch,
		TransactionID:   t.ID,
		AccountCurrency: accountCurrency,
		Contributed:     booked,
	}
}

// ReconstructAccount runs Reconstruct for an account and rejects transactions
// that belong to a different account.
func ReconstructAccount(acct *domain.BankAccount, txns []domain.BankTransaction) (Result, error) {
	for i := range txns {
		if txns[i].BankAccountID != acct.ID {
			return Result{}, fmt.Errorf("ReconstructAccount: transaction %s belongs to account %s, not %s: %w",
				txns[i].ID, txns[i].BankAccountID, acct.ID, domain.ErrInvalidLedgerState)
		}
	}
	res, err := Reconstruct(acct.OpeningBalance, acct.Currency, txns)
	if err != nil {
		return Result{}, fmt.Errorf("ReconstructAccount: %w", err)
	}
	return res, nil
}
