package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grooby/catalog"
	"grooby/docstore"
	"grooby/ledger"
	"grooby/market"
	"grooby/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// amountPlaces is the precision of amounts derived from a total spent.
const amountPlaces = 6

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrHoldingNotFound     = errors.New("no transactions for this token")
)

// PriceLookup resolves current prices. It never fails; unpriced symbols are absent.
type PriceLookup interface {
	Prices(ctx context.Context, symbols []string) market.Prices
}

// Proposal is a new transaction entry as submitted by a user. A buy may give TotalUSD instead of Amount.
type Proposal struct {
	Symbol   string              `json:"symbol"`
	Type     ledger.EntryType    `json:"type"`
	Amount   decimal.NullDecimal `json:"amount"`
	TotalUSD decimal.NullDecimal `json:"total_usd"`
	PriceUSD decimal.NullDecimal `json:"price_usd"`
	Date     string              `json:"date"`
}

// Entry validates the proposal fields and builds the entry to append.
func (p Proposal) Entry() (ledger.Entry, error) {
	e := ledger.Entry{Type: ledger.EntryType(strings.ToLower(string(p.Type)))}
	if !e.Type.Valid() {
		return ledger.Entry{}, fmt.Errorf("%w: type must be buy or sell", ledger.ErrInvalidEntry)
	}
	if !p.PriceUSD.Valid {
		return ledger.Entry{}, fmt.Errorf("%w: price_usd is required", ledger.ErrInvalidEntry)
	}
	e.PriceUSD = p.PriceUSD.Decimal

	switch {
	case p.Amount.Valid:
		e.Amount = p.Amount.Decimal
	case e.Type == ledger.Buy && p.TotalUSD.Valid:
		if !e.PriceUSD.IsPositive() {
			return ledger.Entry{}, fmt.Errorf("%w: price_usd must be positive to derive the amount", ledger.ErrInvalidEntry)
		}
		e.Amount = p.TotalUSD.Decimal.Div(e.PriceUSD).Round(amountPlaces)
	default:
		return ledger.Entry{}, fmt.Errorf("%w: amount is required", ledger.ErrInvalidEntry)
	}

	if strings.TrimSpace(p.Date) == "" {
		return ledger.Entry{}, fmt.Errorf("%w: date is required", ledger.ErrInvalidEntry)
	}
	date, err := ledger.ParseDate(p.Date)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("%w: %v", ledger.ErrInvalidEntry, err)
	}
	e.Date = date

	if err := e.Validate(); err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

// TokenDetail is one holding with its history.
type TokenDetail struct {
	catalog.Token
	Entries   []ledger.Entry    `json:"entries"`
	Series    []ledger.Point    `json:"series"`
	Valuation ledger.TokenValue `json:"valuation"`
}

// Service owns wallet reads and writes.
type Service struct {
	docs     docstore.Store
	catalog  *catalog.Catalog
	prices   PriceLookup
	valuator *ledger.Valuator
	logger   *zap.Logger
}

func NewService(docs docstore.Store, cat *catalog.Catalog, prices PriceLookup, valuator *ledger.Valuator, logger *zap.Logger) *Service {
	return &Service{
		docs:     docs,
		catalog:  cat,
		prices:   prices,
		valuator: valuator,
		logger:   logger.Named("Wallet"),
	}
}

// Submit validates p and appends it to uid's wallet with a single conditional write. A concurrent write to
// the same wallet makes it fail with docstore.ErrConflict; it is not retried.
func (s *Service) Submit(ctx context.Context, uid string, p Proposal) (ledger.Entry, error) {
	entry, err := s.submit(ctx, uid, p)
	outcome, typ := "ok", string(entry.Type)
	if err != nil {
		outcome = outcomeOf(err)
	}
	if typ == "" {
		typ = "unknown"
	}
	metrics.Submissions.WithLabelValues(typ, outcome).Inc()
	return entry, err
}

func (s *Service) submit(ctx context.Context, uid string, p Proposal) (ledger.Entry, error) {
	entry, err := p.Entry()
	if err != nil {
		return ledger.Entry{}, err
	}
	token, err := s.catalog.MustLookup(p.Symbol)
	if err != nil {
		return entry, err
	}

	w, rev, err := load(ctx, s.docs, uid)
	if err != nil {
		return entry, err
	}

	h := w.Holding(token.Symbol)
	if entry.Type == ledger.Sell {
		available := decimal.Zero
		if h != nil {
			available = h.Totals().Net
		}
		if entry.Amount.GreaterThan(available) {
			return entry, fmt.Errorf("%w: at most %s %s can be sold", ErrInsufficientBalance, available, token.Symbol)
		}
	}

	if h != nil {
		h.Entries = append(h.Entries, entry)
	} else {
		w.Tokens = append(w.Tokens, ledger.Holding{
			Symbol:  token.Symbol,
			Name:    token.Name,
			Logo:    token.Logo,
			Entries: []ledger.Entry{entry},
		})
	}

	if _, err := save(ctx, s.docs, w, rev); err != nil {
		return entry, err
	}
	s.logger.Info("Transaction recorded",
		zap.String("uid", uid),
		zap.String("symbol", token.Symbol),
		zap.String("type", string(entry.Type)),
		zap.String("amount", entry.Amount.String()))
	return entry, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInvalidEntry), errors.Is(err, ledger.ErrUnknownEntryType):
		return "invalid"
	case errors.Is(err, catalog.ErrUnsupportedToken):
		return "unsupported"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient"
	case errors.Is(err, docstore.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// Holdings returns the valid holdings of uid. Holdings for symbols missing from the catalog and entries of an
// unknown type are skipped with a warning; the stored document is left untouched.
func (s *Service) Holdings(ctx context.Context, uid string) ([]ledger.Holding, error) {
	w, _, err := load(ctx, s.docs, uid)
	if err != nil {
		return nil, err
	}
	holdings := make([]ledger.Holding, 0, len(w.Tokens))
	for _, h := range w.Tokens {
		token, ok := s.catalog.Lookup(h.Symbol)
		if !ok {
			s.logger.Warn("Skipping holding for unsupported token", zap.String("uid", uid), zap.String("symbol", h.Symbol))
			continue
		}
		clean := ledger.Holding{Symbol: token.Symbol, Name: token.Name, Logo: token.Logo}
		for i, e := range h.Entries {
			if !e.Type.Valid() {
				s.logger.Warn("Skipping entry with unknown type",
					zap.String("uid", uid), zap.String("symbol", h.Symbol), zap.Int("index", i), zap.String("type", string(e.Type)))
				continue
			}
			clean.Entries = append(clean.Entries, e)
		}
		holdings = append(holdings, clean)
	}
	return holdings, nil
}

// Portfolio values every holding of uid at current prices.
func (s *Service) Portfolio(ctx context.Context, uid string) (ledger.Portfolio, error) {
	holdings, err := s.Holdings(ctx, uid)
	if err != nil {
		return s.valuator.Value(nil, nil), err
	}
	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	var prices market.Prices
	if len(symbols) > 0 {
		prices = s.prices.Prices(ctx, symbols)
	}
	return s.valuator.Value(holdings, prices), nil
}

// Available returns the amount of symbol uid can currently sell.
func (s *Service) Available(ctx context.Context, uid, symbol string) (decimal.Decimal, error) {
	token, err := s.catalog.MustLookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	holdings, err := s.Holdings(ctx, uid)
	if err != nil {
		return decimal.Zero, err
	}
	for _, h := range holdings {
		if h.Symbol == token.Symbol {
			return h.Totals().Net, nil
		}
	}
	return decimal.Zero, nil
}

// Token returns the history and valuation of one holding.
func (s *Service) Token(ctx context.Context, uid, symbol string) (TokenDetail, error) {
	token, err := s.catalog.MustLookup(symbol)
	if err != nil {
		return TokenDetail{}, err
	}
	holdings, err := s.Holdings(ctx, uid)
	if err != nil {
		return TokenDetail{}, err
	}
	for _, h := range holdings {
		if h.Symbol != token.Symbol {
			continue
		}
		prices := s.prices.Prices(ctx, []string{token.Symbol})
		return TokenDetail{
			Token:     token,
			Entries:   h.Entries,
			Series:    ledger.Series(h.Entries),
			Valuation: s.valuator.Token(h, prices),
		}, nil
	}
	return TokenDetail{}, fmt.Errorf("%w: %s", ErrHoldingNotFound, token.Symbol)
}
