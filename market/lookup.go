// Package market looks up current USD spot prices for catalog symbols.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grooby/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultQuote    = "USDT"
	DefaultCacheTTL = 5 * time.Minute
	// DefaultFetchTimeout bounds one shared upstream fetch.
	DefaultFetchTimeout = 10 * time.Second
)

// Prices maps canonical symbols to USD prices. A symbol absent from the map is unpriced.
type Prices map[string]decimal.Decimal

// Price returns the price of symbol; ok is false when it is unpriced.
func (p Prices) Price(symbol string) (decimal.Decimal, bool) {
	v, ok := p[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, false
	}
	return v, true
}

// Snapshot is a price observed upstream.
type Snapshot struct {
	Symbol string
	Price  decimal.Decimal
	At     time.Time
}

// SnapshotRecorder persists observed prices.
type SnapshotRecorder interface {
	Record(ctx context.Context, snapshots []Snapshot) error
}

// Options tunes a Lookup. Zero values take the package defaults.
type Options struct {
	Quote        string
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Recorder     SnapshotRecorder
}

// Lookup resolves prices through a cache and the upstream feed. It never fails: upstream errors leave the
// affected symbols unpriced.
type Lookup struct {
	feed     Feed
	cache    Cache
	recorder SnapshotRecorder
	quote    string
	ttl      time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	group    singleflight.Group
	now      func() time.Time
}

func NewLookup(feed Feed, cache Cache, logger *zap.Logger, opts Options) *Lookup {
	l := &Lookup{
		feed:     feed,
		cache:    cache,
		recorder: opts.Recorder,
		quote:    strings.ToUpper(opts.Quote),
		ttl:      opts.CacheTTL,
		timeout:  opts.FetchTimeout,
		logger:   logger.Named("PriceLookup"),
		now:      time.Now,
	}
	if l.quote == "" {
		l.quote = DefaultQuote
	}
	if l.ttl <= 0 {
		l.ttl = DefaultCacheTTL
	}
	if l.timeout <= 0 {
		l.timeout = DefaultFetchTimeout
	}
	return l
}

// Prices returns the latest known USD price of each symbol.
func (l *Lookup) Prices(ctx context.Context, symbols []string) Prices {
	out := make(Prices, len(symbols))
	var missing []string
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}

		if sym == l.quote {
			out[sym] = decimal.NewFromInt(1)
			continue
		}
		if l.cache != nil {
			if p, ok := l.cache.Get(ctx, sym); ok {
				metrics.PriceCacheLookups.WithLabelValues("hit").Inc()
				out[sym] = p
				continue
			}
			metrics.PriceCacheLookups.WithLabelValues("miss").Inc()
		}
		missing = append(missing, sym)
	}
	if len(missing) == 0 {
		return out
	}

	table, err := l.table(ctx)
	if err != nil {
		l.logger.Warn("Price feed unavailable, symbols left unpriced", zap.Strings("symbols", missing), zap.Error(err))
		return out
	}

	now := l.now()
	snapshots := make([]Snapshot, 0, len(missing))
	for _, sym := range missing {
		p, ok := table[sym+l.quote]
		if !ok {
			l.logger.Debug("No price for symbol", zap.String("symbol", sym), zap.String("pair", sym+l.quote))
			continue
		}
		out[sym] = p
		if l.cache != nil {
			l.cache.Set(ctx, sym, p, l.ttl)
		}
		snapshots = append(snapshots, Snapshot{Symbol: sym, Price: p, At: now})
	}

	if l.recorder != nil && len(snapshots) > 0 {
		if err := l.recorder.Record(ctx, snapshots); err != nil {
			l.logger.Warn("Failed to record price snapshots", zap.Int("count", len(snapshots)), zap.Error(err))
		}
	}
	return out
}

// table fetches the full pair -> price list. Concurrent callers share one upstream request, which is not
// bound to any single caller's context; each caller stops waiting when its own ctx is done.
func (l *Lookup) table(ctx context.Context) (map[string]decimal.Decimal, error) {
	ch := l.group.DoChan("tickers", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		tickers, err := l.feed.Tickers(fetchCtx)
		if err != nil {
			metrics.PriceFeedRequests.WithLabelValues("error").Inc()
			return nil, err
		}
		table := make(map[string]decimal.Decimal, len(tickers))
		for _, t := range tickers {
			p, err := decimal.NewFromString(t.Price)
			if err != nil {
				l.logger.Debug("Skipping unparsable ticker", zap.String("pair", t.Symbol), zap.String("price", t.Price))
				continue
			}
			table[strings.ToUpper(t.Symbol)] = p
		}
		if len(tickers) > 0 && len(table) == 0 {
			metrics.PriceFeedRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("none of %d tickers could be parsed", len(tickers))
		}
		metrics.PriceFeedRequests.WithLabelValues("ok").Inc()
		return table, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]decimal.Decimal), nil
	}
}
