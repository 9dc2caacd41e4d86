package common

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the JSON envelope every endpoint answers with.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError describes a failed call. RequestID echoes the X-Request-ID response
// header so a trigger source can report it.
type APIError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Success sends data in the envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
	})
}

// Error sends an error envelope.
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      statusCode,
			Message:   message,
			RequestID: c.Writer.Header().Get("X-Request-ID"),
		},
	})
}

// HandleError maps a typed error to its HTTP status. Vendor details and internal
// messages never reach the caller.
func HandleError(c *gin.Context, err error) {
	var notFound *NotFoundError
	var validation *ValidationError
	var unauthorized *UnauthorizedError
	var provider *ProviderError

	switch {
	case errors.As(err, &notFound):
		Error(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		Error(c, http.StatusBadRequest, validation.Error())
	case errors.As(err, &unauthorized):
		Error(c, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &provider):
		Error(c, http.StatusBadGateway, "upstream provider unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		Error(c, http.StatusGatewayTimeout, "request timed out")
	default:
		Error(c, http.StatusInternalServerError, "internal server error")
	}
}
