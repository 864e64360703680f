package fx

import (
	"fmt"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/shopspring/decimal"
)

// AmountPlaces is the precision converted amounts are rounded to.
const AmountPlaces = 2

// Quote is a rate supplied by the caller at creation time: one unit of From
// buys Rate units of To.
type Quote struct {
	From domain.Currency
	To   domain.Currency
	Rate decimal.Decimal
}

func (q Quote) Validate() error {
	if !q.From.IsValid() || !q.To.IsValid() {
		return fmt.Errorf("Quote.Validate: %s/%s: %w", q.From, q.To, domain.ErrInvalidCurrency)
	}
	if !q.Rate.IsPositive() {
		return fmt.Errorf("Quote.Validate: rate %s: %w", q.Rate, domain.ErrInvalidRequest)
	}
	return nil
}

// Capture freezes a conversion of origin into the quote's target currency.
// Same-currency captures yield Direct pricing and ignore the rate.
func Capture(origin domain.Money, q *Quote) (domain.Pricing, error) {
	if origin.Amount.IsZero() {
		return nil, fmt.Errorf("Capture: %w", domain.ErrInvalidAmount)
	}
	if !origin.Currency.IsValid() {
		return nil, fmt.Errorf("Capture: %q: %w", origin.Currency, domain.ErrInvalidCurrency)
	}

	if q == nil || q.To == origin.Currency {
		return domain.Direct{Amount: origin}, nil
	}

	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("Capture: %w", err)
	}
	if q.From != origin.Currency {
		return nil, fmt.Errorf("Capture: quote is for %s, amount is in %s: %w", q.From, origin.Currency, domain.ErrCurrencyMismatch)
	}

	converted := origin.Amount.Mul(q.Rate).Round(AmountPlaces)
	if converted.IsZero() {
		return nil, fmt.Errorf("Capture: %s rounds to zero in %s: %w", origin, q.To, domain.ErrInvalidAmount)
	}

	return domain.Converted{
		Original:     origin,
		Amount:       domain.NewMoney(converted, q.To),
		ExchangeRate: q.Rate,
	}, nil
}

// CaptureInto converts origin into the currency of a receiving account. A nil
// rate is only accepted when no conversion is needed.
func CaptureInto(origin domain.Money, target domain.Currency, rate *decimal.Decimal) (domain.Pricing, error) {
	if target == origin.Currency {
		return Capture(origin, nil)
	}
	if rate == nil {
		return nil, fmt.Errorf("CaptureInto: %s into %s needs an exchange rate: %w", origin.Currency, target, domain.ErrInvalidRequest)
	}
	return Capture(origin, &Quote{From: origin.Currency, To: target, Rate: *rate})
}
