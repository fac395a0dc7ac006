//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/gravmusic/internal/browser"
	"github.com/stwalsh4118/gravmusic/internal/catalog"
	"github.com/stwalsh4118/gravmusic/internal/config"
	"github.com/stwalsh4118/gravmusic/internal/db"
	"github.com/stwalsh4118/gravmusic/internal/media"
	"github.com/stwalsh4118/gravmusic/internal/player"
	"github.com/stwalsh4118/gravmusic/internal/server"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

// setupTestDB creates an in-memory test database with migrations applied
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories) {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err, "Failed to create in-memory database")
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")

	// Resolve migrations relative to this file so tests work from any directory
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)
	rootDir := filepath.Dir(filepath.Dir(testDir))
	migrationsPath := "file://" + filepath.Join(rootDir, "migrations")

	require.NoError(t, db.RunMigrations(sqlDB, migrationsPath), "Failed to run migrations")

	return database, db.NewRepositories(database)
}

// buildLibrary lays out a two album library and writes its manifest with
// the catalog builder. Returns the library root and manifest path.
func buildLibrary(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	for _, f := range []string{
		"Night Drive/01 Overture.mp3",
		"Night Drive/02 Tunnel.mp3",
		"Night Drive/03 Dawn.mp3",
		"Single/01 Only.mp3",
	} {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o644))
	}

	albums, err := media.BuildCatalog(context.Background(), root, []media.LibraryEntry{
		{Dir: "Night Drive", ID: "night-drive", Title: "Night Drive", Artist: "Various"},
		{Dir: "Single", ID: "single", Title: "Single", Artist: "Solo"},
	}, media.DefaultAudioExtension)
	require.NoError(t, err, "Failed to build catalog")

	manifest := filepath.Join(root, "albums.json")
	require.NoError(t, media.WriteCatalog(manifest, albums), "Failed to write manifest")

	return root, manifest
}

// stubProber answers duration probes from a fixed table and counts calls
type stubProber struct {
	mu        sync.Mutex
	durations map[string]float64
	calls     int
}

func (p *stubProber) ProbeDuration(_ context.Context, url string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	d, ok := p.durations[url]
	if !ok {
		return 0, media.ErrInvalidFile
	}
	return d, nil
}

func (p *stubProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stack is a fully wired player backed by a real database and manifest
type stack struct {
	root       string
	store      *catalog.Store
	repos      *db.Repositories
	resource   *browser.Resource
	controller *transport.Controller
	handler    http.Handler
}

func setupStack(t *testing.T, root, manifest string, repos *db.Repositories, database *db.DB, prober catalog.DurationProber) *stack {
	t.Helper()

	store := catalog.NewStore(manifest, catalog.WithDurationCache(repos.Durations))
	albums, err := store.Load(context.Background())
	require.NoError(t, err, "Failed to load catalog")

	state := player.NewState()
	state.SetAlbums(albums)

	resource := browser.NewResource()
	controller := transport.NewController(state, resource,
		transport.WithEnricher(catalog.NewEnricher(prober, store, 2)),
	)
	require.NoError(t, controller.Start())

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second},
		Logging: config.LoggingConfig{Level: "info"},
		Media:   config.MediaConfig{LibraryPath: root},
	}
	srv := server.New(cfg, database, controller, resource)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &stack{
		root:       root,
		store:      store,
		repos:      repos,
		resource:   resource,
		controller: controller,
		handler:    srv.Handler(),
	}
}

// do sends a JSON request through the router
func (s *stack) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// view decodes the player state from a response
func (s *stack) view(t *testing.T, w *httptest.ResponseRecorder) transport.View {
	t.Helper()

	var v struct {
		transport.View
		Resume string `json:"resume"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v.View
}

// state fetches the current player state over HTTP
func (s *stack) state(t *testing.T) transport.View {
	t.Helper()
	w := s.do(t, http.MethodGet, "/api/player", nil)
	require.Equal(t, http.StatusOK, w.Code)
	return s.view(t, w)
}

// emit posts a resource event as the browser would
func (s *stack) emit(t *testing.T, ev transport.Event) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/player/events", ev)
	require.Equal(t, http.StatusAccepted, w.Code, "body: %s", w.Body.String())
}

// nextCommand waits for the next command with the given op
func nextCommand(t *testing.T, commands <-chan browser.Command, op browser.Op) browser.Command {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case cmd, ok := <-commands:
			require.True(t, ok, "listener closed before %q command", op)
			if cmd.Op == op {
				return cmd
			}
		case <-timeout:
			t.Fatalf("no %q command received", op)
		}
	}
}
