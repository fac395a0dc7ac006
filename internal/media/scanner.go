package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/models"
)

// DefaultAudioExtension is the file extension collected when none is configured
const DefaultAudioExtension = ".mp3"

// Common scanner errors
var (
	ErrInvalidDirectory = errors.New("invalid directory path")
	ErrInvalidEntry     = errors.New("invalid library entry")
)

// LibraryEntry describes one album directory in the media library
type LibraryEntry struct {
	Dir    string `json:"dir" mapstructure:"dir"`
	ID     string `json:"id" mapstructure:"id"`
	Title  string `json:"title" mapstructure:"title"`
	Artist string `json:"artist" mapstructure:"artist"`
	Cover  string `json:"cover" mapstructure:"cover"`
}

// ValidateEntries checks every entry names a directory and that ids are unique
func ValidateEntries(entries []LibraryEntry) error {
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		if entry.Dir == "" {
			return fmt.Errorf("%w: entry %d has no dir", ErrInvalidEntry, i)
		}
		if entry.ID == "" {
			return fmt.Errorf("%w: entry %q has no id", ErrInvalidEntry, entry.Dir)
		}
		if seen[entry.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidEntry, entry.ID)
		}
		seen[entry.ID] = true
	}
	return nil
}

// BuildCatalog scans each entry's directory under root (not recursively)
// and returns one album per entry with one song per audio file, in
// directory listing order
func BuildCatalog(ctx context.Context, root string, entries []LibraryEntry, ext string) ([]models.Album, error) {
	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}
	if ext == "" {
		ext = DefaultAudioExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	albums := make([]models.Album, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		files, err := findAudioFiles(filepath.Join(root, entry.Dir), ext)
		if err != nil {
			return nil, fmt.Errorf("album %q: %w", entry.ID, err)
		}

		songs := make([]models.Song, 0, len(files))
		for _, file := range files {
			songs = append(songs, models.Song{
				Title: strings.TrimSuffix(file, filepath.Ext(file)),
				URL:   "/" + entry.Dir + "/" + file,
			})
		}

		logger.Log.Debug().
			Str("album_id", entry.ID).
			Str("dir", entry.Dir).
			Int("song_count", len(songs)).
			Msg("Scanned album directory")

		albums = append(albums, models.Album{
			ID:     entry.ID,
			Title:  entry.Title,
			Artist: entry.Artist,
			Cover:  entry.Cover,
			Songs:  songs,
		})
	}

	return albums, nil
}

// findAudioFiles lists regular files in dir whose extension matches ext
func findAudioFiles(dir, ext string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidDirectory, dir)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, dir)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}

	var files []string
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		if isAudioFile(dirEntry.Name(), ext) {
			files = append(files, dirEntry.Name())
		}
	}
	return files, nil
}

// isAudioFile checks the file extension case-insensitively
func isAudioFile(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

// WriteCatalog writes albums as an indented JSON manifest
func WriteCatalog(path string, albums []models.Album) error {
	if albums == nil {
		albums = []models.Album{}
	}
	data, err := json.MarshalIndent(albums, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}
