package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// respondControllerError maps a transport controller failure to a response
func respondControllerError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, transport.ErrStopped), errors.Is(err, transport.ErrNotStarted):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "player_unavailable",
			Message: "Player is not running",
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{
			Error:   "player_timeout",
			Message: "Player did not respond in time",
		})
	case errors.Is(err, context.Canceled):
		// Client went away
		c.Status(499)
	default:
		logger.Log.Error().
			Err(err).
			Str("op", op).
			Msg("Player operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "player_failed",
			Message: "Player operation failed",
		})
	}
}
