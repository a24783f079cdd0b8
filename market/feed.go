package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ticker is one traded pair and its last price as reported by the feed.
type Ticker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Feed returns the full current price list of every traded pair.
type Feed interface {
	Tickers(ctx context.Context) ([]Ticker, error)
}

// BinanceFeed reads the public Binance ticker endpoint.
type BinanceFeed struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewBinanceFeed creates a feed against baseURL (e.g. https://api.binance.com). timeout applies when the
// request context carries no deadline.
func NewBinanceFeed(baseURL string, timeout time.Duration, logger *zap.Logger) *BinanceFeed {
	return &BinanceFeed{
		client:  &fasthttp.Client{Name: "grooby"},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named("BinanceFeed"),
	}
}

// Tickers implements Feed.
func (f *BinanceFeed) Tickers(ctx context.Context) ([]Ticker, error) {
	requestURL := f.baseURL + "/api/v3/ticker/price"

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	f.logger.Debug("Requesting ticker prices", zap.String("url", requestURL))

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = f.client.DoDeadline(req, resp, deadline)
	} else {
		err = f.client.DoTimeout(req, resp, f.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("price feed request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	var tickers []Ticker
	if err := json.Unmarshal(resp.Body(), &tickers); err != nil {
		return nil, fmt.Errorf("failed to decode price feed response from %s: %w", requestURL, err)
	}
	f.logger.Debug("Received ticker prices", zap.Int("count", len(tickers)))
	return tickers, nil
}
