package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"grooby/catalog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// GetPrices returns current USD prices for ?symbols=SOL,WETH, or for the whole catalog when omitted.
func (h *Handler) GetPrices(c *gin.Context) {
	symbols := h.catalog.Symbols()
	if raw := c.Query("symbols"); raw != "" {
		symbols = nil
		for _, s := range strings.Split(raw, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			token, ok := h.catalog.Lookup(s)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": catalog.ErrUnsupportedToken.Error(), "symbol": strings.TrimSpace(s)})
				return
			}
			symbols = append(symbols, token.Symbol)
		}
	}

	prices := h.prices.Prices(c.Request.Context(), symbols)
	found := make(map[string]decimal.Decimal, len(symbols))
	unpriced := []string{}
	for _, s := range symbols {
		if p, ok := prices.Price(s); ok {
			found[s] = p
		} else {
			unpriced = append(unpriced, s)
		}
	}
	sort.Strings(unpriced)
	c.JSON(http.StatusOK, gin.H{"prices": found, "unpriced": unpriced})
}

// GetHistoricalData returns recorded price snapshots for one token, newest first.
func (h *Handler) GetHistoricalData(c *gin.Context) {
	token, ok := h.catalog.Lookup(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": catalog.ErrUnsupportedToken.Error()})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"symbol": token.Symbol, "history": []any{}})
		return
	}
	history, err := h.history.History(c.Request.Context(), token.Symbol, limit)
	if err != nil {
		h.respondError(c, err, http.StatusServiceUnavailable, "failed to load price history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": token.Symbol, "history": history})
}
