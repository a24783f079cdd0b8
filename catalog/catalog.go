// Package catalog holds the static list of tokens users can transact.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tokens.yaml
var defaultTokens []byte

var ErrUnsupportedToken = errors.New("unsupported token")

// Token is one supported token.
type Token struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Name   string `yaml:"name" json:"name"`
	Logo   string `yaml:"logo" json:"logo"`
}

type file struct {
	Tokens []Token `yaml:"tokens"`
}

// Catalog is an immutable symbol index. Safe for concurrent reads.
type Catalog struct {
	tokens   []Token
	bySymbol map[string]Token
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultTokens)
	if err != nil {
		panic("catalog: invalid built-in tokens.yaml: " + err.Error())
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from YAML. Symbols are canonicalised to upper case and must be unique.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return New(f.Tokens...)
}

// New builds a catalog from tokens.
func New(tokens ...Token) (*Catalog, error) {
	c := &Catalog{bySymbol: make(map[string]Token, len(tokens))}
	for _, t := range tokens {
		t.Symbol = Canonical(t.Symbol)
		if t.Symbol == "" {
			return nil, errors.New("token with empty symbol")
		}
		if _, dup := c.bySymbol[t.Symbol]; dup {
			return nil, fmt.Errorf("duplicate token symbol %q", t.Symbol)
		}
		c.bySymbol[t.Symbol] = t
		c.tokens = append(c.tokens, t)
	}
	return c, nil
}

// Canonical returns the canonical form of a symbol.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Lookup finds a token by symbol, case-insensitively.
func (c *Catalog) Lookup(symbol string) (Token, bool) {
	t, ok := c.bySymbol[Canonical(symbol)]
	return t, ok
}

// MustLookup is Lookup returning ErrUnsupportedToken for unknown symbols.
func (c *Catalog) MustLookup(symbol string) (Token, error) {
	t, ok := c.Lookup(symbol)
	if !ok {
		return Token{}, fmt.Errorf("%w: %q", ErrUnsupportedToken, symbol)
	}
	return t, nil
}

// Tokens returns the tokens in declaration order.
func (c *Catalog) Tokens() []Token {
	out := make([]Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// Symbols returns every symbol in declaration order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.tokens))
	for i, t := range c.tokens {
		out[i] = t.Symbol
	}
	return out
}
