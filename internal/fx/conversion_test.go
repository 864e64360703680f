package fx

import (
	"testing"

	"github.com/josh-kwaku/tradebooks/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(s string) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(s), domain.CurrencyUSD)
}

func TestCapture(t *testing.T) {
	tests := []struct {
		name         string
		origin       domain.Money
		quote        *Quote
		wantBooked   string
		wantCurrency domain.Currency
		wantDirect   bool
		wantErr      error
	}{
		{
			name:         "EUR to USD at 1.1",
			origin:       domain.NewMoney(decimal.RequireFromString("300"), domain.CurrencyEUR),
			quote:        &Quote{From: domain.CurrencyEUR, To: domain.CurrencyUSD, Rate: decimal.RequireFromString("1.1")},
			wantBooked:   "330",
			wantCurrency: domain.CurrencyUSD,
		},
		{
			name:         "USD to PKR rounds to cents",
			origin:       usd("10.005"),
			quote:        &Quote{From: domain.CurrencyUSD, To: domain.CurrencyPKR, Rate: decimal.RequireFromString("278.5")},
			wantBooked:   "2786.39",
			wantCurrency: domain.CurrencyPKR,
		},
		{
			name:         "negative amounts convert with sign",
			origin:       usd("-100"),
			quote:        &Quote{From: domain.CurrencyUSD, To: domain.CurrencyAED, Rate: decimal.RequireFromString("3.6725")},
			wantBooked:   "-367.25",
			wantCurrency: domain.CurrencyAED,
		},
		{
			name:         "nil quote is direct",
			origin:       usd("50"),
			wantBooked:   "50",
			wantCurrency: domain.CurrencyUSD,
			wantDirect:   true,
		},
		{
			name:         "same currency quote is direct",
			origin:       usd("50"),
			quote:        &Quote{From: domain.CurrencyUSD, To: domain.CurrencyUSD, Rate: decimal.RequireFromString("2")},
			wantBooked:   "50",
			wantCurrency: domain.CurrencyUSD,
			wantDirect:   true,
		},
		{
			name:    "zero amount",
			origin:  usd("0"),
			quote:   &Quote{From: domain.CurrencyUSD, To: domain.CurrencyEUR, Rate: decimal.RequireFromString("0.9")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "zero rate",
			origin:  usd("10"),
			quote:   &Quote{From: domain.CurrencyUSD, To: domain.CurrencyEUR, Rate: decimal.Zero},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "quote for another currency",
			origin:  usd("10"),
			quote:   &Quote{From: domain.CurrencyPKR, To: domain.CurrencyEUR, Rate: decimal.RequireFromString("0.003")},
			wantErr: domain.ErrCurrencyMismatch,
		},
		{
			name:    "invalid target",
			origin:  usd("10"),
			quote:   &Quote{From: domain.CurrencyUSD, To: domain.Currency("usd1"), Rate: decimal.RequireFromString("1")},
			wantErr: domain.ErrInvalidCurrency,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Capture(tc.origin, tc.quote)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.NoError(t, domain.ValidatePricing(p))
			assert.True(t, p.Booked().Amount.Equal(decimal.RequireFromString(tc.wantBooked)),
				"booked: got %s, want %s", p.Booked().Amount, tc.wantBooked)
			assert.Equal(t, tc.wantCurrency, p.Booked().Currency)
			assert.True(t, p.Origin().Equal(tc.origin))

			_, isDirect := p.(domain.Direct)
			assert.Equal(t, tc.wantDirect, isDirect)
		})
	}
}

func TestCaptureInto(t *testing.T) {
	rate := decimal.RequireFromString("0.92")

	p, err := CaptureInto(usd("100"), domain.CurrencyEUR, &rate)
	require.NoError(t, err)
	conv, ok := p.(domain.Converted)
	require.True(t, ok)
	assert.True(t, conv.Amount.Amount.Equal(decimal.RequireFromString("92")))
	assert.True(t, conv.ExchangeRate.Equal(rate))

	p, err = CaptureInto(usd("100"), domain.CurrencyUSD, nil)
	require.NoError(t, err)
	assert.IsType(t, domain.Direct{}, p)

	_, err = CaptureInto(usd("100"), domain.CurrencyEUR, nil)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
