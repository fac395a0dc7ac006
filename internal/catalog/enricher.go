package catalog

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/models"
	"golang.org/x/sync/errgroup"
)

const defaultProbeConcurrency = 4

// DurationProber measures the length of a song in seconds
type DurationProber interface {
	ProbeDuration(ctx context.Context, songURL string) (float64, error)
}

// Enricher resolves missing song durations by probing the audio files
type Enricher struct {
	prober DurationProber
	store  *Store
	limit  int
	log    zerolog.Logger
}

// NewEnricher creates an enricher. store may be nil, in which case results
// are only returned to the caller.
func NewEnricher(prober DurationProber, store *Store, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = defaultProbeConcurrency
	}
	return &Enricher{
		prober: prober,
		store:  store,
		limit:  concurrency,
		log:    logger.With("enricher"),
	}
}

// Enrich probes every song of album that has no duration and returns the
// full song list. Songs whose probe fails stay unresolved; a failed probe
// never fails the album.
func (e *Enricher) Enrich(ctx context.Context, album models.Album) ([]models.Song, error) {
	songs := append([]models.Song(nil), album.Songs...)

	var g errgroup.Group
	g.SetLimit(e.limit)

	var resolved, failed atomic.Int32
	for i, song := range songs {
		if song.HasDuration() {
			continue
		}
		g.Go(func() error {
			seconds, err := e.prober.ProbeDuration(ctx, song.URL)
			if err != nil {
				failed.Add(1)
				e.log.Debug().
					Err(err).
					Str("album_id", album.ID).
					Str("url", song.URL).
					Msg("Duration probe failed")
				return nil
			}
			songs[i] = song.WithDuration(models.FormatDuration(seconds))
			resolved.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("album_id", album.ID).
		Int32("resolved", resolved.Load()).
		Int32("failed", failed.Load()).
		Msg("Album durations enriched")

	if e.store != nil && resolved.Load() > 0 {
		if err := e.store.MergeDurations(ctx, album.ID, songs); err != nil {
			e.log.Warn().Err(err).Str("album_id", album.ID).Msg("Failed to store enriched durations")
		}
	}

	return songs, nil
}
