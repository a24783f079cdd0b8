package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func buy(amount, price string) Entry {
	return Entry{Type: Buy, Amount: d(amount), PriceUSD: d(price), Date: NewDate(2025, time.March, 1)}
}

func sell(amount, price string) Entry {
	return Entry{Type: Sell, Amount: d(amount), PriceUSD: d(price), Date: NewDate(2025, time.March, 2)}
}

// prices is a PriceSource backed by a map; absent symbols are unpriced.
type prices map[string]string

func (p prices) Price(symbol string) (decimal.Decimal, bool) {
	s, ok := p[symbol]
	if !ok {
		return decimal.Zero, false
	}
	return d(s), true
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}
