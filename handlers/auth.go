package handlers

import (
	"errors"
	"net/http"

	"grooby/identity"
	"grooby/metrics"
	"grooby/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

func (h *Handler) Register(c *gin.Context) {
	var input identity.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.identity.Register(c.Request.Context(), input)
	switch {
	case err == nil:
		metrics.AuthAttempts.WithLabelValues("register", "ok").Inc()
		c.JSON(http.StatusCreated, gin.H{"message": "Account created successfully", "profile": profile})
	case errors.Is(err, identity.ErrInvalidInput):
		metrics.AuthAttempts.WithLabelValues("register", "invalid").Inc()
		h.respondError(c, err, http.StatusBadRequest, "registration failed")
	case errors.Is(err, identity.ErrAccountExists):
		metrics.AuthAttempts.WithLabelValues("register", "exists").Inc()
		h.respondError(c, err, http.StatusConflict, "registration failed")
	default:
		metrics.AuthAttempts.WithLabelValues("register", "error").Inc()
		h.respondError(c, err, http.StatusInternalServerError, "registration failed")
	}
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, err := h.identity.SignIn(c.Request.Context(), input.Email, input.Password, input.Remember)
	if err != nil {
		outcome := "error"
		if errors.Is(err, identity.ErrInvalidCredentials) {
			outcome = "rejected"
		}
		metrics.AuthAttempts.WithLabelValues("login", outcome).Inc()
		h.respondError(c, err, http.StatusInternalServerError, "login failed")
		return
	}

	metrics.AuthAttempts.WithLabelValues("login", "ok").Inc()
	c.JSON(http.StatusOK, token)
}

func (h *Handler) Logout(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		h.respondError(c, identity.ErrUnauthenticated, http.StatusUnauthorized, "not signed in")
		return
	}
	if err := h.identity.SignOut(c.Request.Context(), id); err != nil {
		h.respondError(c, err, http.StatusInternalServerError, "logout failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (h *Handler) Me(c *gin.Context) {
	profile, err := h.identity.Profile(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err, http.StatusInternalServerError, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Dashboard returns the profile and valued portfolio. Store read failures degrade to an empty portfolio.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	degraded := false

	var profile *identity.Profile
	if p, err := h.identity.Profile(ctx, uid); err == nil {
		profile = &p
	} else {
		degraded = true
		h.logger.Warn("Dashboard profile unavailable", zap.String("uid", uid), zap.Error(err))
	}

	portfolio, err := h.wallets.Portfolio(ctx, uid)
	if err != nil {
		degraded = true
		h.logger.Warn("Dashboard wallet unavailable, serving an empty portfolio", zap.String("uid", uid), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":   profile,
		"portfolio": portfolio,
		"degraded":  degraded,
	})
}
