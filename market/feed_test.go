package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBinanceFeed_Tickers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"SOLUSDT","price":"150.25000000"},{"symbol":"ETHBTC","price":"0.05"}]`))
	}))
	defer srv.Close()

	feed := NewBinanceFeed(srv.URL+"/", 2*time.Second, zap.NewNop())
	tickers, err := feed.Tickers(context.Background())
	if err != nil {
		t.Fatalf("Tickers() error = %v", err)
	}
	if len(tickers) != 2 || tickers[0].Symbol != "SOLUSDT" || tickers[0].Price != "150.25000000" {
		t.Errorf("Tickers() = %+v", tickers)
	}
}

func TestBinanceFeed_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `{"msg":"boom"}`},
		{"malformed body", http.StatusOK, `{"symbol":`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.payload))
			}))
			defer srv.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, err := NewBinanceFeed(srv.URL, time.Second, zap.NewNop()).Tickers(ctx); err == nil {
				t.Fatal("Tickers() succeeded, want error")
			}
		})
	}
}
