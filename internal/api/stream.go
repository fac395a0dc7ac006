package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/gravmusic/internal/browser"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

const defaultHeartbeatInterval = 15 * time.Second

// EventAcceptedResponse acknowledges a resource event
type EventAcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

// StreamHandler connects the browser's audio element to the resource
type StreamHandler struct {
	resource  *browser.Resource
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler instance
func NewStreamHandler(resource *browser.Resource, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &StreamHandler{resource: resource, heartbeat: heartbeat}
}

// Commands handles GET /api/player/commands
// Streams resource commands as server-sent events until the client leaves.
func (h *StreamHandler) Commands(c *gin.Context) {
	listener := h.resource.Attach()
	defer h.resource.Detach(listener.ID)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.SSEvent("listener", gin.H{"id": listener.ID.String()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case cmd, ok := <-listener.Commands:
			if !ok {
				// Dropped as a slow consumer or shutting down
				return false
			}
			c.SSEvent("command", cmd)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})

	logger.Log.Debug().
		Str("listener_id", listener.ID.String()).
		Msg("Command stream closed")
}

// PostEvent handles POST /api/player/events
func (h *StreamHandler) PostEvent(c *gin.Context) {
	var ev transport.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	if err := h.resource.Emit(ev); err != nil {
		if transport.IsInvalidEvent(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_event",
				Message: err.Error(),
			})
			return
		}
		logger.Log.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to deliver resource event")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "event_failed",
			Message: "Failed to deliver event",
		})
		return
	}

	c.JSON(http.StatusAccepted, EventAcceptedResponse{Accepted: true})
}

// SetupStreamRoutes registers the audio element routes
func SetupStreamRoutes(apiGroup *gin.RouterGroup, resource *browser.Resource, heartbeat time.Duration) {
	handler := NewStreamHandler(resource, heartbeat)

	player := apiGroup.Group("/player")
	{
		player.GET("/commands", handler.Commands)
		player.POST("/events", handler.PostEvent)
	}
}
