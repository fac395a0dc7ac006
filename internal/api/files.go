package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const indexFile = "index.html"

// FileHandler serves the media library (audio files, covers, the manifest
// and the web page) from a directory
type FileHandler struct {
	root string
}

// NewFileHandler creates a handler serving files under root
func NewFileHandler(root string) *FileHandler {
	return &FileHandler{root: root}
}

// Serve handles any GET that did not match an API route.
// Range requests are honoured so the audio element can seek.
func (h *FileHandler) Serve(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Route not found",
		})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{
			Error:   "method_not_allowed",
			Message: "Only GET and HEAD are supported",
		})
		return
	}

	// Cleaning against "/" keeps the result inside root
	rel := path.Clean("/" + c.Request.URL.Path)
	target := filepath.Join(h.root, filepath.FromSlash(rel))

	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		target = filepath.Join(target, indexFile)
		info, err = os.Stat(target)
	}
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "File not found",
		})
		return
	}

	c.File(target)
}
