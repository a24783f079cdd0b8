package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	want := []string{"SOL", "USDC", "USDT", "WETH"}
	got := c.Symbols()
	if len(got) != len(want) {
		t.Fatalf("Symbols() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Symbols()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLookup(t *testing.T) {
	c := Default()
	testCases := []struct {
		symbol string
		want   string
		ok     bool
	}{
		{"SOL", "Solana", true},
		{"sol", "Solana", true},
		{" weth ", "Wrapped Ether", true},
		{"XYZ", "", false},
		{"", "", false},
	}
	for _, tc := range testCases {
		got, ok := c.Lookup(tc.symbol)
		if ok != tc.ok || got.Name != tc.want {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tc.symbol, got.Name, ok, tc.want, tc.ok)
		}
	}
}

func TestMustLookupUnsupported(t *testing.T) {
	_, err := Default().MustLookup("XYZ")
	if !errors.Is(err, ErrUnsupportedToken) {
		t.Fatalf("MustLookup(XYZ) error = %v, want ErrUnsupportedToken", err)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("tokens:\n  - symbol: sol\n  - symbol: SOL\n"))
	if err == nil {
		t.Fatal("Parse() with duplicate symbols succeeded, want error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	if err := os.WriteFile(path, []byte("tokens:\n  - symbol: btc\n    name: Bitcoin\n    logo: /tokens/btc.png\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tok, ok := c.Lookup("BTC")
	if !ok || tok.Symbol != "BTC" || tok.Logo != "/tokens/btc.png" {
		t.Errorf("Lookup(BTC) = %+v, %v", tok, ok)
	}
}
