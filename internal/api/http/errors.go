package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/domain/documents"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps a service error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch documents.KindOf(err) {
	case documents.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case documents.ErrInvalidRequest:
		return http.StatusBadRequest, "invalid_request"
	case documents.ErrExists:
		return http.StatusConflict, "exists"
	case documents.ErrTooLarge:
		return http.StatusRequestEntityTooLarge, "too_large"
	case documents.ErrOperationFailed:
		return http.StatusInternalServerError, "operation_failed"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "canceled"
	}
	return http.StatusInternalServerError, "internal"
}

// respondError records err on the context and writes the JSON error body.
func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "invalid_request"})
}
