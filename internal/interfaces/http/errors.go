package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/personal-ledger/internal/application/port"
)

// statusFor maps application errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, port.ErrNotOwner), errors.Is(err, port.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, port.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, port.ErrStorageConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Server faults are logged and
// reported without detail.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	message := err.Error()

	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("Request failed", "op", op, "error", err)
		message = "internal error"
	case http.StatusServiceUnavailable:
		h.logger.Error("Storage conflict", "op", op, "error", err)
		message = "storage busy, retry the request"
		c.Header("Retry-After", "1")
	}

	c.JSON(status, Response{
		Success: false,
		Error:   message,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   message,
	})
}
