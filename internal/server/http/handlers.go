package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// AccountService is the subset of services.AccountService the handlers use.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	GetProfile(ctx context.Context, id auth.Identity) (*services.Profile, error)
	Logout(ctx context.Context, id auth.Identity) error
}

// Handler serves the /api/auth endpoints.
type Handler struct {
	accounts AccountService
	logger   logging.Logger
}

func NewHandler(accounts AccountService, logger logging.Logger) *Handler {
	return &Handler{accounts: accounts, logger: logger}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, AuthResponse{Message: msgInvalidModel})
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse("Registration successful", res))
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, AuthResponse{Message: msgInvalidModel})
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse("Login successful", res))
}

// Profile requires the bearer middleware.
func (h *Handler) Profile(c *gin.Context) {
	id, ok := IdentityFrom(c)
	if !ok {
		unauthorized(c, "")
		return
	}

	p, err := h.accounts.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserDto(*p))
}

// Logout requires the bearer middleware.
func (h *Handler) Logout(c *gin.Context) {
	id, ok := IdentityFrom(c)
	if !ok {
		unauthorized(c, "")
		return
	}

	if err := h.accounts.Logout(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// Pinger reports store health.
type Pinger func(ctx context.Context) error

// Health answers 200 when ping succeeds (or is nil) and 503 otherwise.
func Health(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				c.Header("Retry-After", retryAfterSeconds)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
