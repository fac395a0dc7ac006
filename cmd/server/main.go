package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/stwalsh4118/gravmusic/internal/browser"
	"github.com/stwalsh4118/gravmusic/internal/catalog"
	"github.com/stwalsh4118/gravmusic/internal/config"
	"github.com/stwalsh4118/gravmusic/internal/db"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/media"
	"github.com/stwalsh4118/gravmusic/internal/models"
	"github.com/stwalsh4118/gravmusic/internal/player"
	"github.com/stwalsh4118/gravmusic/internal/server"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet
		logger.Init("info", true)
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	if err := run(cfg); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return err
	}

	database, err := db.Open(cfg.Database.Path, db.Options{
		EnableWAL:      cfg.Database.EnableWAL,
		ConnectTimeout: cfg.Database.ConnectionTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		return err
	}
	if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	repos := db.NewRepositories(database)

	// A catalog that cannot be loaded is fatal; there is nothing to play
	store := catalog.NewStore(cfg.Catalog.Manifest,
		catalog.WithDurationCache(repos.Durations),
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.FetchTimeout}),
	)
	albums, err := store.Load(ctx)
	if err != nil {
		return err
	}

	if err := media.CheckFFprobeInstalled(); err != nil {
		logger.Log.Warn().Err(err).Msg("ffprobe not available, song durations will stay unresolved")
	}
	prober := media.NewProber(cfg.Media.LibraryPath, cfg.Media.ProbeBaseURL, cfg.Media.ProbeTimeout)
	enricher := catalog.NewEnricher(prober, store, cfg.Media.ProbeConcurrency)

	state := player.NewState(player.WithVolume(cfg.Player.InitialVolume))
	state.SetAlbums(albums)

	resource := browser.NewResource(browser.WithClientBuffer(cfg.Player.ClientBuffer))
	controller := transport.NewController(state, resource,
		transport.WithEnricher(enricher),
		transport.WithInboxSize(cfg.Player.InboxSize),
	)

	srv := server.New(cfg, database, controller, resource)

	if cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(store, func(ctx context.Context, albums []models.Album) error {
			_, err := controller.SetAlbums(ctx, albums)
			return err
		}, cfg.Catalog.WatchDebounce)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		_ = srv.Shutdown(context.Background())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
