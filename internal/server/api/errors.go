package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/gin-gonic/gin"
)

// statusFor maps a service error to its HTTP status and client message.
// Unclassified errors become a generic 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrRenderFailure):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrExpired):
		return http.StatusGone, "link expired"
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, "already processed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (r *Router) fail(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		r.logger.Error(c.Request.Context(), "request failed", "request_id", c.GetString(requestIDKey), "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
