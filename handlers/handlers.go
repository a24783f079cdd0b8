package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"grooby/catalog"
	"grooby/docstore"
	"grooby/identity"
	"grooby/ledger"
	"grooby/middleware"
	"grooby/models"
	"grooby/wallet"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PriceHistory reads recorded price snapshots, newest first.
type PriceHistory interface {
	History(ctx context.Context, symbol string, limit int) ([]models.PriceSnapshot, error)
}

// Handler serves the HTTP API.
type Handler struct {
	identity *identity.Service
	wallets  *wallet.Service
	prices   wallet.PriceLookup
	catalog  *catalog.Catalog
	history  PriceHistory
	logger   *zap.Logger
}

// New builds a Handler. history may be nil when no snapshot store is configured.
func New(ids *identity.Service, wallets *wallet.Service, prices wallet.PriceLookup, cat *catalog.Catalog, history PriceHistory, logger *zap.Logger) *Handler {
	return &Handler{
		identity: ids,
		wallets:  wallets,
		prices:   prices,
		catalog:  cat,
		history:  history,
		logger:   logger.Named("API"),
	}
}

// Routes mounts every endpoint on router. limiter guards the credential endpoints.
func (h *Handler) Routes(router gin.IRouter, limiter *middleware.RateLimiter) {
	router.GET("/", h.Landing)
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit(limiter), h.Register)
		auth.POST("/login", middleware.RateLimit(limiter), h.Login)
		auth.POST("/logout", middleware.Auth(h.identity), h.Logout)
	}

	protected := router.Group("/")
	protected.Use(middleware.Auth(h.identity))
	{
		protected.GET("/me", h.Me)
		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/tokens", h.Tokens)
		protected.GET("/tokens/:symbol", h.Token)
		protected.GET("/tokens/:symbol/available", h.Available)
		protected.POST("/transactions", h.AddTransaction)
		protected.GET("/prices", h.GetPrices)
		protected.GET("/prices/:symbol/history", h.GetHistoricalData)
		protected.GET("/settings", h.Settings)
	}
}

func (h *Handler) Landing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Grooby",
		"description": "Track your crypto portfolio: record buys and sells and see what it is worth today.",
		"links":       gin.H{"register": "/auth/register", "login": "/auth/login"},
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Settings are under maintenance. Please check back later."})
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// detail strips the sentinel prefix from a wrapped validation error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// respondError maps service errors to status codes. Unrecognised errors are logged and answered with fallback.
func (h *Handler) respondError(c *gin.Context, err error, fallback int, msg string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidEntry):
		c.JSON(http.StatusBadRequest, gin.H{"error": detail(err, ledger.ErrInvalidEntry)})
	case errors.Is(err, ledger.ErrUnknownEntryType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": detail(err, identity.ErrInvalidInput)})
	case errors.Is(err, catalog.ErrUnsupportedToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": catalog.ErrUnsupportedToken.Error()})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrHoldingNotFound), errors.Is(err, docstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, docstore.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "wallet was changed by another request, please retry"})
	case errors.Is(err, identity.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": identity.ErrAccountExists.Error()})
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": identity.ErrInvalidCredentials.Error()})
	case errors.Is(err, identity.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
	default:
		_ = c.Error(err)
		h.logger.Error(msg, zap.String("path", c.FullPath()), zap.String("uid", userID(c)), zap.Error(err))
		c.JSON(fallback, gin.H{"error": msg})
	}
}
