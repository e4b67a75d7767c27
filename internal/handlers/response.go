package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	sentrygin "github.com/getsentry/sentry-go/gin"

	"github.com/sjperalta/advance-portal/internal/services"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

// statusFor maps a service error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the envelope for err. Server-side faults are logged
// with their cause and reported to Sentry; the client only sees the message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		cause := services.Cause(err)
		logger.FromContext(c.Request.Context()).Error("[API] Request failed",
			"action", c.Query("action"),
			"error", cause,
		)
		_ = c.Error(cause)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(cause)
		}
	}
	respondFail(c, status, services.Message(err))
}
