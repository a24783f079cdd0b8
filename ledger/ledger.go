// Package ledger aggregates the buy and sell entries of token holdings and values them against market prices.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrUnknownEntryType = errors.New("unknown entry type")
)

// EntryType is the direction of a transaction.
type EntryType string

const (
	Buy  EntryType = "buy"
	Sell EntryType = "sell"
)

// Valid reports whether t is buy or sell.
func (t EntryType) Valid() bool { return t == Buy || t == Sell }

// Entry is one recorded transaction. Entries are append-only.
type Entry struct {
	Type     EntryType       `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	PriceUSD decimal.Decimal `json:"price_usd"`
	Date     Date            `json:"date"`
}

// Validate checks the entry invariants: a known type, amount > 0, price >= 0 and a date.
func (e Entry) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownEntryType, e.Type)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidEntry)
	}
	if e.PriceUSD.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidEntry)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEntry)
	}
	return nil
}

// Cost is amount x unit price.
func (e Entry) Cost() decimal.Decimal { return e.Amount.Mul(e.PriceUSD) }

// Holding is the ordered entry list of one token in one wallet.
type Holding struct {
	Symbol  string  `json:"symbol"`
	Name    string  `json:"name"`
	Logo    string  `json:"logo"`
	Entries []Entry `json:"entries"`
}

// Totals is the aggregation of a holding.
type Totals struct {
	Bought   decimal.Decimal `json:"total_bought"`
	Sold     decimal.Decimal `json:"total_sold"`
	Net      decimal.Decimal `json:"net_amount"`
	Invested decimal.Decimal `json:"invested_cost"`
}

// Aggregate sums entries. Cost basis is gross: sells reduce the net amount but never the invested cost.
// Entries of an unknown type contribute nothing.
func Aggregate(entries []Entry) Totals {
	t := Totals{Bought: decimal.Zero, Sold: decimal.Zero, Invested: decimal.Zero}
	for _, e := range entries {
		switch e.Type {
		case Buy:
			t.Bought = t.Bought.Add(e.Amount)
			t.Invested = t.Invested.Add(e.Cost())
		case Sell:
			t.Sold = t.Sold.Add(e.Amount)
		}
	}
	t.Net = t.Bought.Sub(t.Sold)
	return t
}

// Totals aggregates h.
func (h Holding) Totals() Totals { return Aggregate(h.Entries) }

// Point is one sample of a holding's transaction series.
type Point struct {
	Date  Date            `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// Series returns the signed USD value of each entry in entry order: buys positive, sells negative.
func Series(entries []Entry) []Point {
	points := make([]Point, 0, len(entries))
	for _, e := range entries {
		v := e.Cost()
		if e.Type == Sell {
			v = v.Neg()
		} else if e.Type != Buy {
			continue
		}
		points = append(points, Point{Date: e.Date, Value: v})
	}
	return points
}
