package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/policy"
)

// Client-facing messages.
const (
	msgInvalidModel       = "Invalid model state"
	msgEmailTaken         = "User with this email already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgUnauthorized       = "Unauthorized"
	msgNotFound           = "User not found"
	msgUnavailable        = "Service temporarily unavailable"
	msgInternal           = "Internal server error"
)

// retryAfterSeconds is sent with 503 responses.
const retryAfterSeconds = "5"

// respondError maps err onto a status code and the failure envelope.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, body := errorResponse(err)

	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, AuthResponse) {
	fail := func(msg string, details ...string) AuthResponse {
		return AuthResponse{IsSuccess: false, Message: msg, Errors: details}
	}

	var (
		validationErr *common.ValidationError
		policyErr     *policy.ViolationError
	)

	switch {
	case errors.Is(err, common.ErrorTransient):
		return http.StatusServiceUnavailable, fail(msgUnavailable)
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, fail(msgInvalidModel, validationErr.Messages()...)
	case errors.As(err, &policyErr):
		d := policyErr.Descriptions()
		return http.StatusBadRequest, fail(strings.Join(d, ", "), d...)
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, fail(msgEmailTaken)
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, fail(msgUnauthorized)
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, fail(msgInvalidCredentials)
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, fail(msgNotFound)
	default:
		return http.StatusInternalServerError, fail(msgInternal)
	}
}
