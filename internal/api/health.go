package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status    string                 `json:"status"`
	Database  string                 `json:"database"`
	Listeners int                    `json:"listeners"`
	Durations int64                  `json:"cached_durations"`
	Time      string                 `json:"time"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// DatabaseChecker reports database connectivity
type DatabaseChecker interface {
	Health(ctx context.Context) error
}

// ListenerCounter reports how many audio elements are connected
type ListenerCounter interface {
	ListenerCount() int
}

// DurationCounter reports how many song durations are cached
type DurationCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db        DatabaseChecker
	listeners ListenerCounter
	durations DurationCounter
}

// NewHealthHandler creates a new health check handler. listeners and
// durations are optional.
func NewHealthHandler(database DatabaseChecker, listeners ListenerCounter, durations DurationCounter) *HealthHandler {
	return &HealthHandler{db: database, listeners: listeners, durations: durations}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]interface{}),
	}
	if h.listeners != nil {
		response.Listeners = h.listeners.ListenerCount()
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "healthy"
	if h.durations != nil {
		count, err := h.durations.Count(ctx)
		if err != nil {
			response.Details["cache_error"] = err.Error()
		}
		response.Durations = count
	}
	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database DatabaseChecker, listeners ListenerCounter, durations DurationCounter) {
	handler := NewHealthHandler(database, listeners, durations)
	apiGroup.GET("/health", handler.Check)
}
