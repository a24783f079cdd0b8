package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	hundred       = decimal.NewFromInt(100)
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
)

// PriceSource resolves the current USD price of a symbol. ok is false when the symbol is unpriced.
type PriceSource interface {
	Price(symbol string) (price decimal.Decimal, ok bool)
}

// TokenValue is the valuation of one holding.
type TokenValue struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Totals

	PriceUSD          decimal.Decimal `json:"price_usd"`
	Priced            bool            `json:"priced"`
	CurrentValueUSD   decimal.Decimal `json:"current_value_usd"`
	InvestedLocal     decimal.Decimal `json:"invested_local"`
	CurrentValueLocal decimal.Decimal `json:"current_value_local"`
	ProfitLocal       decimal.Decimal `json:"profit_local"`
	ProfitPercent     decimal.Decimal `json:"profit_percent"`

	CurrentDisplay string `json:"current_display"`
	ProfitDisplay  string `json:"profit_display"`
}

// Portfolio is the valuation of a whole wallet.
type Portfolio struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
	Tokens   []TokenValue    `json:"tokens"`

	InvestedLocal     decimal.Decimal `json:"invested_local"`
	CurrentValueLocal decimal.Decimal `json:"current_value_local"`
	ProfitLocal       decimal.Decimal `json:"profit_local"`
	ProfitPercent     decimal.Decimal `json:"profit_percent"`

	InvestedDisplay string `json:"invested_display"`
	CurrentDisplay  string `json:"current_display"`
	ProfitDisplay   string `json:"profit_display"`
}

// Valuator converts USD valuations to a local currency at a fixed rate.
type Valuator struct {
	rate     decimal.Decimal
	currency *money.Currency
}

// NewValuator returns a valuator for USD->currency at rate. rate must be positive and currency an ISO 4217 code.
func NewValuator(rate decimal.Decimal, currency string) (*Valuator, error) {
	if !rate.IsPositive() {
		return nil, errors.New("conversion rate must be positive")
	}
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return nil, fmt.Errorf("unknown currency %q", currency)
	}
	return &Valuator{rate: rate, currency: cur}, nil
}

// Currency returns the local currency code.
func (v *Valuator) Currency() string { return v.currency.Code }

// Rate returns the USD->local conversion rate.
func (v *Valuator) Rate() decimal.Decimal { return v.rate }

// Format renders an amount of local currency, e.g. £156.00.
func (v *Valuator) Format(amount decimal.Decimal) string {
	places := int32(v.currency.Fraction)
	minor := amount.Round(places).Shift(places)
	if minor.Abs().GreaterThan(maxMinorUnits) {
		// Beyond int64 minor units: plain fixed-point without grouping.
		sign := ""
		if amount.IsNegative() {
			sign = "-"
		}
		return sign + v.currency.Grapheme + amount.Abs().StringFixed(places)
	}
	return v.currency.Formatter().Format(minor.IntPart())
}

// Token values a single holding.
func (v *Valuator) Token(h Holding, prices PriceSource) TokenValue {
	tv := TokenValue{
		Symbol:   h.Symbol,
		Name:     h.Name,
		Logo:     h.Logo,
		Totals:   h.Totals(),
		PriceUSD: decimal.Zero,
	}
	if prices != nil {
		if p, ok := prices.Price(h.Symbol); ok {
			tv.PriceUSD, tv.Priced = p, true
		}
	}
	tv.CurrentValueUSD = tv.Net.Mul(tv.PriceUSD)
	tv.InvestedLocal = tv.Invested.Mul(v.rate)
	tv.CurrentValueLocal = tv.CurrentValueUSD.Mul(v.rate)
	tv.ProfitLocal = tv.CurrentValueLocal.Sub(tv.InvestedLocal)
	tv.ProfitPercent = percent(tv.ProfitLocal, tv.InvestedLocal)
	tv.CurrentDisplay = v.Format(tv.CurrentValueLocal)
	tv.ProfitDisplay = v.Format(tv.ProfitLocal)
	return tv
}

// Value values every holding in order and sums the portfolio. The portfolio percentage is computed from the
// summed totals, not averaged from token percentages.
func (v *Valuator) Value(holdings []Holding, prices PriceSource) Portfolio {
	p := Portfolio{
		Currency:          v.currency.Code,
		Rate:              v.rate,
		Tokens:            make([]TokenValue, 0, len(holdings)),
		InvestedLocal:     decimal.Zero,
		CurrentValueLocal: decimal.Zero,
	}
	for _, h := range holdings {
		tv := v.Token(h, prices)
		p.Tokens = append(p.Tokens, tv)
		p.InvestedLocal = p.InvestedLocal.Add(tv.InvestedLocal)
		p.CurrentValueLocal = p.CurrentValueLocal.Add(tv.CurrentValueLocal)
	}
	p.ProfitLocal = p.CurrentValueLocal.Sub(p.InvestedLocal)
	p.ProfitPercent = percent(p.ProfitLocal, p.InvestedLocal)
	p.InvestedDisplay = v.Format(p.InvestedLocal)
	p.CurrentDisplay = v.Format(p.CurrentValueLocal)
	p.ProfitDisplay = v.Format(p.ProfitLocal)
	return p
}

// percent is profit/invested*100, or 0 when nothing was invested.
func percent(profit, invested decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(invested).Mul(hundred)
}
