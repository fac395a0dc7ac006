package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/stwalsh4118/gravmusic/internal/models"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

// AlbumResponse is an album with its song count and play time
type AlbumResponse struct {
	models.Album
	SongCount     int    `json:"song_count"`
	TotalDuration int64  `json:"total_duration_seconds"`
	PlayTime      string `json:"play_time"`
}

// AlbumListResponse represents the catalog
type AlbumListResponse struct {
	Albums []AlbumResponse `json:"albums"`
	Total  int             `json:"total"`
}

func toAlbumResponse(album models.Album) AlbumResponse {
	total := album.TotalSeconds()
	return AlbumResponse{
		Album:         album,
		SongCount:     len(album.Songs),
		TotalDuration: total,
		PlayTime:      models.FormatPlayTime(total),
	}
}

// CatalogHandler handles album catalog requests
type CatalogHandler struct {
	controller *transport.Controller
}

// NewCatalogHandler creates a new catalog handler instance
func NewCatalogHandler(controller *transport.Controller) *CatalogHandler {
	return &CatalogHandler{controller: controller}
}

// ListAlbums handles GET /api/albums
func (h *CatalogHandler) ListAlbums(c *gin.Context) {
	albums, err := h.controller.Albums(c.Request.Context())
	if err != nil {
		respondControllerError(c, err, "list_albums")
		return
	}

	c.JSON(http.StatusOK, AlbumListResponse{
		Albums: lo.Map(albums, func(a models.Album, _ int) AlbumResponse { return toAlbumResponse(a) }),
		Total:  len(albums),
	})
}

// GetAlbum handles GET /api/albums/:albumId
func (h *CatalogHandler) GetAlbum(c *gin.Context) {
	albumID := c.Param("albumId")

	albums, err := h.controller.Albums(c.Request.Context())
	if err != nil {
		respondControllerError(c, err, "get_album")
		return
	}

	album, ok := lo.Find(albums, func(a models.Album) bool { return a.ID == albumID })
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "album_not_found",
			Message: "Album not found",
		})
		return
	}

	c.JSON(http.StatusOK, toAlbumResponse(album))
}

// LoadAlbum handles POST /api/albums/:albumId/load
// Marks the album as viewed and starts resolving missing durations in the
// background. Unknown albums are accepted and ignored.
func (h *CatalogHandler) LoadAlbum(c *gin.Context) {
	view, err := h.controller.LoadAlbum(c.Request.Context(), c.Param("albumId"))
	if err != nil {
		respondControllerError(c, err, "load_album")
		return
	}

	c.JSON(http.StatusAccepted, view)
}

// SetupCatalogRoutes registers album catalog routes
func SetupCatalogRoutes(apiGroup *gin.RouterGroup, controller *transport.Controller) {
	handler := NewCatalogHandler(controller)

	albums := apiGroup.Group("/albums")
	{
		albums.GET("", handler.ListAlbums)
		albums.GET("/:albumId", handler.GetAlbum)
		albums.POST("/:albumId/load", handler.LoadAlbum)
	}
}
