package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const (
	breakerThreshold = 5
	breakerCooldown  = time.Minute
)

// ErrOutsideLibrary indicates a song url that resolves outside the library root
var ErrOutsideLibrary = errors.New("song url resolves outside the media library")

// Prober resolves song urls to probe targets and reports their durations.
// With a BaseURL, targets are escaped http URLs; otherwise they are files
// under LibraryPath.
type Prober struct {
	LibraryPath string
	BaseURL     string
	Timeout     time.Duration

	breaker *Breaker

	// probe is swapped in tests
	probe func(ctx context.Context, target string, timeout time.Duration) (*AudioMetadata, error)
}

// NewProber creates a prober for a local library and optional base url
func NewProber(libraryPath, baseURL string, timeout time.Duration) *Prober {
	return &Prober{
		LibraryPath: libraryPath,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Timeout:     timeout,
		breaker:     NewBreaker(breakerThreshold, breakerCooldown),
		probe:       ProbeFile,
	}
}

// ProbeDuration returns the duration in seconds of the song at songURL
func (p *Prober) ProbeDuration(ctx context.Context, songURL string) (float64, error) {
	target, err := p.Target(songURL)
	if err != nil {
		return 0, err
	}
	if err := p.breaker.Allow(); err != nil {
		return 0, err
	}

	metadata, err := p.probe(ctx, target, p.Timeout)
	if ctx.Err() == nil {
		p.breaker.Record(err)
	}
	if err != nil {
		return 0, err
	}
	return metadata.Duration, nil
}

// Target maps a catalog song url such as "/My Album/01 Track.mp3" to the
// string handed to ffprobe
func (p *Prober) Target(songURL string) (string, error) {
	if p.BaseURL != "" {
		return p.BaseURL + EscapePath(songURL), nil
	}

	rel := filepath.FromSlash(strings.TrimPrefix(songURL, "/"))
	full := filepath.Join(p.LibraryPath, rel)
	root := filepath.Clean(p.LibraryPath)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideLibrary, songURL)
	}
	return full, nil
}

// EscapePath percent-escapes each segment of a slash separated path,
// keeping the separators. Spaces and non-ASCII names are common in
// library directories.
func EscapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
