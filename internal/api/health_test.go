package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/gravmusic/internal/browser"
	"github.com/stwalsh4118/gravmusic/internal/db"
	"github.com/stwalsh4118/gravmusic/internal/models"
)

// setupTestDB creates a test database in memory
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err)

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(sqlDB, "file://../../migrations"))

	t.Cleanup(func() { _ = database.Close() })
	return database
}

type brokenDB struct{}

func (brokenDB) Health(context.Context) error { return errors.New("database is locked") }

func TestHealthCheck(t *testing.T) {
	resource := browser.NewResource()
	listener := resource.Attach()
	defer resource.Detach(listener.ID)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	database := setupTestDB(t)
	durations := db.NewDurationRepository(database)
	require.NoError(t, durations.ReplaceAlbum(context.Background(), "a1", []models.Song{
		models.Song{Title: "s1", URL: "/a1/s1.mp3"}.WithDuration("3:45"),
		{Title: "s2", URL: "/a1/s2.mp3"},
	}))
	SetupHealthRoutes(router.Group("/api"), database, resource, durations)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "healthy", resp.Database)
	assert.Equal(t, 1, resp.Listeners)
	assert.Equal(t, int64(1), resp.Durations)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthCheck_Degraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupHealthRoutes(router.Group("/api"), brokenDB{}, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "database is locked", resp.Details["database_error"])
}
