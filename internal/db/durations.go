package db

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/gravmusic/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DurationRepository caches probed song durations so enrichment does not
// have to re-probe after a restart
type DurationRepository struct {
	db *DB
}

// NewDurationRepository creates a new duration repository
func NewDurationRepository(db *DB) *DurationRepository {
	return &DurationRepository{db: db}
}

// GetByURLs returns the cached durations for the given song urls, keyed by url
func (r *DurationRepository) GetByURLs(ctx context.Context, urls []string) (map[string]string, error) {
	found := make(map[string]string, len(urls))
	if len(urls) == 0 {
		return found, nil
	}

	var rows []models.SongDuration
	result := r.db.WithContext(ctx).Where("url IN ?", urls).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get durations: %w", MapGormError(result.Error))
	}
	for _, row := range rows {
		found[row.URL] = row.Duration
	}
	return found, nil
}

// ReplaceAlbum swaps all cached durations of an album in one transaction
func (r *DurationRepository) ReplaceAlbum(ctx context.Context, albumID string, songs []models.Song) error {
	now := time.Now().UTC()
	rows := make([]models.SongDuration, 0, len(songs))
	for _, song := range songs {
		if !song.HasDuration() {
			continue
		}
		rows = append(rows, models.SongDuration{
			URL:      song.URL,
			AlbumID:  albumID,
			Duration: *song.Duration,
			ProbedAt: now,
		})
	}

	return r.db.WithTransaction(ctx, "failed to replace album durations", func(tx *gorm.DB) error {
		if err := tx.Where("album_id = ?", albumID).Delete(&models.SongDuration{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		// A url may have moved between albums; last writer wins
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	})
}

// Count returns the number of cached durations
func (r *DurationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.SongDuration{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count durations: %w", MapGormError(result.Error))
	}
	return count, nil
}
