package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

// VolumeRequest represents a request to change the volume
type VolumeRequest struct {
	Volume *float64 `json:"volume"`
}

// SeekRequest represents a seek, either as a fraction of the track or as a
// pointer offset along a control of the given width
type SeekRequest struct {
	Fraction *float64 `json:"fraction,omitempty"`
	Offset   *float64 `json:"offset,omitempty"`
	Width    *float64 `json:"width,omitempty"`
}

// SongRequest optionally names the album a song index refers to
type SongRequest struct {
	AlbumID string `json:"album_id"`
}

// PlayerHandler handles playback requests
type PlayerHandler struct {
	controller *transport.Controller
}

// NewPlayerHandler creates a new player handler instance
func NewPlayerHandler(controller *transport.Controller) *PlayerHandler {
	return &PlayerHandler{controller: controller}
}

type intent func(ctx context.Context) (transport.View, error)

// respond runs fn and writes the resulting view
func (h *PlayerHandler) respond(c *gin.Context, op string, fn intent) {
	view, err := fn(c.Request.Context())
	if err != nil {
		respondControllerError(c, err, op)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetState handles GET /api/player
func (h *PlayerHandler) GetState(c *gin.Context) {
	h.respond(c, "snapshot", h.controller.Snapshot)
}

// Play handles POST /api/player/play
func (h *PlayerHandler) Play(c *gin.Context) {
	h.respond(c, "play", h.controller.Play)
}

// Pause handles POST /api/player/pause
func (h *PlayerHandler) Pause(c *gin.Context) {
	h.respond(c, "pause", h.controller.Pause)
}

// Next handles POST /api/player/next
func (h *PlayerHandler) Next(c *gin.Context) {
	h.respond(c, "next", h.controller.Next)
}

// Prev handles POST /api/player/prev
func (h *PlayerHandler) Prev(c *gin.Context) {
	h.respond(c, "prev", h.controller.Prev)
}

// ToggleShuffle handles POST /api/player/shuffle
func (h *PlayerHandler) ToggleShuffle(c *gin.Context) {
	h.respond(c, "shuffle", h.controller.ToggleShuffle)
}

// ToggleLoop handles POST /api/player/loop
func (h *PlayerHandler) ToggleLoop(c *gin.Context) {
	h.respond(c, "loop", h.controller.ToggleLoop)
}

// ToggleMute handles POST /api/player/mute
func (h *PlayerHandler) ToggleMute(c *gin.Context) {
	h.respond(c, "mute", h.controller.ToggleMute)
}

// SetVolume handles POST /api/player/volume
func (h *PlayerHandler) SetVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "volume is required",
		})
		return
	}

	h.respond(c, "volume", func(ctx context.Context) (transport.View, error) {
		return h.controller.SetVolume(ctx, *req.Volume)
	})
}

// Seek handles POST /api/player/seek
func (h *PlayerHandler) Seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	switch {
	case req.Fraction != nil:
		h.respond(c, "seek", func(ctx context.Context) (transport.View, error) {
			return h.controller.Seek(ctx, *req.Fraction)
		})
	case req.Offset != nil && req.Width != nil:
		h.respond(c, "seek", func(ctx context.Context) (transport.View, error) {
			return h.controller.SeekAt(ctx, *req.Offset, *req.Width)
		})
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "fraction or offset and width are required",
		})
	}
}

// PlaySong handles POST /api/player/songs/:index/play
func (h *PlayerHandler) PlaySong(c *gin.Context) {
	h.song(c, "play_song", h.controller.PlaySong)
}

// SelectSong handles POST /api/player/songs/:index/select
func (h *PlayerHandler) SelectSong(c *gin.Context) {
	h.song(c, "select_song", h.controller.SelectSong)
}

func (h *PlayerHandler) song(c *gin.Context, op string, fn func(context.Context, int, string) (transport.View, error)) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_index",
			Message: "Song index must be an integer",
		})
		return
	}

	// The body is optional; an empty one selects within the current album
	var req SongRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	h.respond(c, op, func(ctx context.Context) (transport.View, error) {
		return fn(ctx, index, req.AlbumID)
	})
}

// SetupPlayerRoutes registers playback routes
func SetupPlayerRoutes(apiGroup *gin.RouterGroup, controller *transport.Controller) {
	handler := NewPlayerHandler(controller)

	player := apiGroup.Group("/player")
	{
		player.GET("", handler.GetState)
		player.POST("/play", handler.Play)
		player.POST("/pause", handler.Pause)
		player.POST("/next", handler.Next)
		player.POST("/prev", handler.Prev)
		player.POST("/shuffle", handler.ToggleShuffle)
		player.POST("/loop", handler.ToggleLoop)
		player.POST("/mute", handler.ToggleMute)
		player.POST("/volume", handler.SetVolume)
		player.POST("/seek", handler.Seek)
		player.POST("/songs/:index/play", handler.PlaySong)
		player.POST("/songs/:index/select", handler.SelectSong)
	}
}
