// Package catalog loads the album manifest, keeps it in memory and resolves
// missing song durations in the background.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/models"
)

const defaultFetchTimeout = 15 * time.Second

var (
	// ErrCatalogLoad is returned when the manifest cannot be fetched or decoded
	ErrCatalogLoad = errors.New("failed to load catalog")
	// ErrAlbumNotFound is returned when an album id is not in the catalog
	ErrAlbumNotFound = errors.New("album not found")
)

// DurationCache persists resolved durations between runs
type DurationCache interface {
	GetByURLs(ctx context.Context, urls []string) (map[string]string, error)
	ReplaceAlbum(ctx context.Context, albumID string, songs []models.Song) error
}

// Store holds the catalog in memory
type Store struct {
	source string
	cache  DurationCache
	client *http.Client
	log    zerolog.Logger

	mu     sync.RWMutex
	albums []models.Album
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithDurationCache merges and persists durations through cache
func WithDurationCache(cache DurationCache) StoreOption {
	return func(s *Store) {
		s.cache = cache
	}
}

// WithHTTPClient overrides the client used for remote manifests
func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *Store) {
		s.client = client
	}
}

// NewStore creates a store for the manifest at source, which is either a
// file path or an http(s) url
func NewStore(source string, opts ...StoreOption) *Store {
	s := &Store{
		source: source,
		client: &http.Client{Timeout: defaultFetchTimeout},
		log:    logger.With("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source returns the manifest location
func (s *Store) Source() string {
	return s.source
}

// IsRemote reports whether the manifest is fetched over http
func (s *Store) IsRemote() bool {
	return IsRemoteSource(s.source)
}

// Load fetches and decodes the manifest and replaces the in-memory catalog.
// On failure the previous catalog is kept.
func (s *Store) Load(ctx context.Context) ([]models.Album, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: %w", ErrCatalogLoad, s.source, err)
	}

	var albums []models.Album
	if err := json.Unmarshal(data, &albums); err != nil {
		return nil, fmt.Errorf("%w from %s: invalid manifest: %w", ErrCatalogLoad, s.source, err)
	}
	for i := range albums {
		if albums[i].Songs == nil {
			albums[i].Songs = []models.Song{}
		}
	}

	s.mergeCached(ctx, albums)

	s.mu.Lock()
	s.albums = albums
	s.mu.Unlock()

	s.log.Info().
		Str("source", s.source).
		Int("album_count", len(albums)).
		Msg("Catalog loaded")

	return cloneAlbums(albums), nil
}

// Albums returns a copy of the catalog
func (s *Store) Albums() []models.Album {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAlbums(s.albums)
}

// Album returns a copy of one album
func (s *Store) Album(id string) (models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	album, ok := lo.Find(s.albums, func(a models.Album) bool { return a.ID == id })
	if !ok {
		return models.Album{}, fmt.Errorf("%w: %s", ErrAlbumNotFound, id)
	}
	return *album.Clone(), nil
}

// MergeDurations applies resolved durations to an album's current songs by
// url and persists the album's durations. Songs the catalog no longer has
// are ignored. The in-memory update happens even when persisting fails.
func (s *Store) MergeDurations(ctx context.Context, albumID string, resolved []models.Song) error {
	s.mu.Lock()
	_, idx, ok := lo.FindIndexOf(s.albums, func(a models.Album) bool { return a.ID == albumID })
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlbumNotFound, albumID)
	}
	merged, _ := models.MergeDurations(s.albums[idx].Songs, resolved)
	s.albums[idx].Songs = merged
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	if err := s.cache.ReplaceAlbum(ctx, albumID, merged); err != nil {
		return fmt.Errorf("failed to persist durations for album %s: %w", albumID, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context) ([]byte, error) {
	if !IsRemoteSource(s.source) {
		return os.ReadFile(s.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// mergeCached fills unresolved durations from the cache. A cache failure
// only costs a re-probe.
func (s *Store) mergeCached(ctx context.Context, albums []models.Album) {
	if s.cache == nil {
		return
	}

	var missing []string
	for _, album := range albums {
		for _, song := range album.Songs {
			if !song.HasDuration() {
				missing = append(missing, song.URL)
			}
		}
	}
	if len(missing) == 0 {
		return
	}

	cached, err := s.cache.GetByURLs(ctx, lo.Uniq(missing))
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read cached durations")
		return
	}

	merged := 0
	for i := range albums {
		for j, song := range albums[i].Songs {
			if song.HasDuration() {
				continue
			}
			if d, ok := cached[song.URL]; ok {
				albums[i].Songs[j] = song.WithDuration(d)
				merged++
			}
		}
	}

	if merged > 0 {
		s.log.Debug().Int("merged", merged).Msg("Merged cached durations")
	}
}

// IsRemoteSource reports whether source is an http or https url
func IsRemoteSource(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func cloneAlbums(albums []models.Album) []models.Album {
	return lo.Map(albums, func(a models.Album, _ int) models.Album {
		return *a.Clone()
	})
}
