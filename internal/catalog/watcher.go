package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/models"
)

const defaultDebounce = 500 * time.Millisecond

// ReloadFunc receives the catalog after a successful reload
type ReloadFunc func(ctx context.Context, albums []models.Album) error

// Watcher reloads a file manifest when it changes on disk
type Watcher struct {
	store    *Store
	onReload ReloadFunc
	debounce time.Duration
	log      zerolog.Logger

	fsWatcher *fsnotify.Watcher
	stopChan  chan struct{}
	done      chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewWatcher creates a watcher for the store's manifest file
func NewWatcher(store *Store, onReload ReloadFunc, debounce time.Duration) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if store.IsRemote() {
		return nil, fmt.Errorf("cannot watch remote manifest %s", store.Source())
	}
	if onReload == nil {
		return nil, fmt.Errorf("reload callback cannot be nil")
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		store:    store,
		onReload: onReload,
		debounce: debounce,
		log:      logger.With("catalog_watcher"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the manifest's directory. Editors commonly replace
// files instead of writing them in place, so the file itself is not watched.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher has been stopped")
	}
	if w.started {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.store.Source())
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.fsWatcher = fsWatcher
	w.started = true
	go w.run()

	w.log.Info().Str("manifest", w.store.Source()).Msg("Catalog watcher started")
	return nil
}

// Stop stops watching and waits for an in-progress reload to finish
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	close(w.stopChan)
	if !started {
		return nil
	}

	err := w.fsWatcher.Close()
	<-w.done

	w.log.Debug().Msg("Catalog watcher stopped")
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	target := filepath.Clean(w.store.Source())

	// Fires once the manifest has been quiet for the debounce window
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("fsnotify error, continuing")
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
	defer cancel()

	albums, err := w.store.Load(ctx)
	if err != nil {
		// Keep serving the previous catalog
		w.log.Error().Err(err).Msg("Catalog reload failed")
		return
	}

	if err := w.onReload(ctx, albums); err != nil {
		w.log.Error().Err(err).Msg("Failed to apply reloaded catalog")
		return
	}

	w.log.Info().Int("album_count", len(albums)).Msg("Catalog reloaded")
}
