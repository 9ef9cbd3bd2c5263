package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/gin-gonic/gin"
)

const SessionCookie = "session"

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	RequestSignIn(ctx context.Context, email string) error
	Verify(ctx context.Context, secret string) (*domain.Session, error)
	CurrentUser(ctx context.Context, sessionID string) (*domain.Session, error)
	Logout(ctx context.Context, sessionID string)
}

type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	authUsecase authUsecaser
	cookie      CookieConfig
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		cookie:      cookie,
		logger:      logger.With("component", "auth_handler"),
	}
}

type userResponse struct {
	Email string `json:"email"`
}

type signInRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

// POST /api/auth/request
// Returns {"ok":true} for malformed, unknown and valid addresses alike.
func (h *AuthHandler) RequestSignIn(c *gin.Context) {
	var req signInRequest
	_ = c.ShouldBindJSON(&req)

	err := h.authUsecase.RequestSignIn(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "message": errNotRegistered})
		return
	case err != nil:
		h.logger.ErrorContext(c.Request.Context(), "request sign-in", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /api/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	_ = c.ShouldBindJSON(&req)

	session, err := h.authUsecase.Verify(c.Request.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrTokenInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		case errors.Is(err, domain.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"ok": false})
		default:
			h.logger.ErrorContext(c.Request.Context(), "verify magic link", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": errInternalServer})
		}
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, session.ID, int(h.cookie.TTL/time.Second), "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": userResponse{Email: session.Email}})
}

// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	sessionID, _ := c.Cookie(SessionCookie)
	session, err := h.authUsecase.CurrentUser(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse{Email: session.Email}})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID, err := c.Cookie(SessionCookie); err == nil {
		h.authUsecase.Logout(c.Request.Context(), sessionID)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
