package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeFeed struct {
	mu      sync.Mutex
	tickers []Ticker
	err     error
	calls   int
}

func (f *fakeFeed) Tickers(context.Context) ([]Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tickers, f.err
}

type fakeRecorder struct {
	got []Snapshot
}

func (r *fakeRecorder) Record(_ context.Context, s []Snapshot) error {
	r.got = append(r.got, s...)
	return nil
}

// gatedFeed blocks its first call until release is closed, then fails if its ctx was cancelled meanwhile.
type gatedFeed struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	tickers []Ticker
}

func (f *gatedFeed) Tickers(ctx context.Context) ([]Ticker, error) {
	first := false
	f.once.Do(func() { first = true })
	if first {
		close(f.started)
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.tickers, nil
}

func standardFeed() *fakeFeed {
	return &fakeFeed{tickers: []Ticker{
		{Symbol: "SOLUSDT", Price: "20.50"},
		{Symbol: "WETHUSDT", Price: "3000"},
		{Symbol: "USDCUSDT", Price: "0.9999"},
		{Symbol: "SOLBTC", Price: "0.0003"},
		{Symbol: "BADUSDT", Price: "n/a"},
	}}
}

func assertPrice(t *testing.T, p Prices, symbol, want string) {
	t.Helper()
	got, ok := p.Price(symbol)
	if !ok {
		t.Fatalf("Price(%s) unpriced, want %s", symbol, want)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("Price(%s) = %s, want %s", symbol, got, want)
	}
}

func TestLookup_Prices(t *testing.T) {
	rec := &fakeRecorder{}
	l := NewLookup(standardFeed(), nil, zap.NewNop(), Options{Recorder: rec})

	p := l.Prices(context.Background(), []string{"SOL", "weth", "USDT", "XYZ", "BAD", "SOL"})

	assertPrice(t, p, "SOL", "20.50")
	assertPrice(t, p, "WETH", "3000")
	assertPrice(t, p, "USDT", "1")
	for _, sym := range []string{"XYZ", "BAD"} {
		if v, ok := p.Price(sym); ok || !v.IsZero() {
			t.Errorf("Price(%s) = %s, %v, want unpriced zero", sym, v, ok)
		}
	}
	if len(rec.got) != 2 {
		t.Errorf("recorded %d snapshots, want 2", len(rec.got))
	}
}

func TestLookup_FeedFailureDegrades(t *testing.T) {
	feed := &fakeFeed{err: errors.New("connection refused")}
	l := NewLookup(feed, nil, zap.NewNop(), Options{})

	p := l.Prices(context.Background(), []string{"SOL", "WETH"})

	if len(p) != 0 {
		t.Errorf("Prices() = %v, want empty", p)
	}
}

func TestLookup_UsesCache(t *testing.T) {
	feed := standardFeed()
	l := NewLookup(feed, NewMemoryCache(time.Minute), zap.NewNop(), Options{})
	ctx := context.Background()

	l.Prices(ctx, []string{"SOL", "WETH"})
	p := l.Prices(ctx, []string{"SOL", "WETH"})

	if feed.calls != 1 {
		t.Errorf("feed called %d times, want 1", feed.calls)
	}
	assertPrice(t, p, "SOL", "20.50")

	// Cached symbols survive a feed outage.
	feed.err = errors.New("down")
	p = l.Prices(ctx, []string{"SOL", "USDC"})
	assertPrice(t, p, "SOL", "20.50")
	if _, ok := p.Price("USDC"); ok {
		t.Error("USDC priced during outage, want unpriced")
	}
}

func TestLookup_QuoteOnlyNeedsNoFeed(t *testing.T) {
	feed := &fakeFeed{err: errors.New("unused")}
	l := NewLookup(feed, nil, zap.NewNop(), Options{Quote: "usdt"})

	p := l.Prices(context.Background(), []string{"USDT"})

	assertPrice(t, p, "USDT", "1")
	if feed.calls != 0 {
		t.Errorf("feed called %d times, want 0", feed.calls)
	}
}

func TestLookup_Empty(t *testing.T) {
	l := NewLookup(standardFeed(), nil, zap.NewNop(), Options{})
	if p := l.Prices(context.Background(), nil); len(p) != 0 {
		t.Errorf("Prices(nil) = %v, want empty", p)
	}
}

func TestLookup_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	feed := &gatedFeed{
		started: make(chan struct{}),
		release: make(chan struct{}),
		tickers: []Ticker{{Symbol: "SOLUSDT", Price: "20"}},
	}
	l := NewLookup(feed, nil, zap.NewNop(), Options{})

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan Prices, 1)
	go func() { first <- l.Prices(ctx1, []string{"SOL"}) }()
	<-feed.started

	second := make(chan Prices, 1)
	go func() { second <- l.Prices(context.Background(), []string{"SOL"}) }()
	// Let the second caller join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)

	cancel1()
	select {
	case p := <-first:
		if _, ok := p.Price("SOL"); ok {
			t.Error("cancelled caller got a price, want unpriced")
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting on the shared fetch")
	}

	close(feed.release)
	select {
	case p := <-second:
		assertPrice(t, p, "SOL", "20")
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
}
