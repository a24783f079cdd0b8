package handlers

import (
	"net/http"

	"grooby/wallet"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Tokens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tokens": h.catalog.Tokens()})
}

func (h *Handler) Token(c *gin.Context) {
	td, err := h.wallets.Token(c.Request.Context(), userID(c), c.Param("symbol"))
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError, "failed to load token")
		return
	}
	c.JSON(http.StatusOK, td)
}

func (h *Handler) Available(c *gin.Context) {
	symbol := c.Param("symbol")
	available, err := h.wallets.Available(c.Request.Context(), userID(c), symbol)
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError, "failed to load balance")
		return
	}
	token, _ := h.catalog.Lookup(symbol)
	c.JSON(http.StatusOK, gin.H{"symbol": token.Symbol, "available": available})
}

// AddTransaction submits a buy or sell entry. Write failures answer 503 so the client can retry.
func (h *Handler) AddTransaction(c *gin.Context) {
	var input wallet.Proposal
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.wallets.Submit(c.Request.Context(), userID(c), input)
	if err != nil {
		h.respondError(c, err, http.StatusServiceUnavailable, "could not save transaction, please retry")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Transaction added successfully", "entry": entry})
}
