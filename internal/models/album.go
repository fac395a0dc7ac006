package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Song is a single playable track within an album
type Song struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration *string `json:"duration,omitempty"` // "M:SS", nil until resolved
}

// HasDuration reports whether the song's duration has been resolved
func (s Song) HasDuration() bool {
	return s.Duration != nil && *s.Duration != ""
}

// WithDuration returns a copy of the song with its duration set
func (s Song) WithDuration(duration string) Song {
	s.Duration = &duration
	return s
}

// Album is an ordered collection of songs. Song order is playback order.
type Album struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Cover  string `json:"cover"`
	Songs  []Song `json:"songs"`
}

// NeedsDurations reports whether any song in the album lacks a duration
func (a *Album) NeedsDurations() bool {
	for _, song := range a.Songs {
		if !song.HasDuration() {
			return true
		}
	}
	return false
}

// TotalSeconds sums the resolved song durations. Unresolved or malformed
// durations count as zero.
func (a *Album) TotalSeconds() int64 {
	var total int64
	for _, song := range a.Songs {
		if !song.HasDuration() {
			continue
		}
		if seconds, ok := ParseDuration(*song.Duration); ok {
			total += seconds
		}
	}
	return total
}

// PlayTime renders the album's total play time as "H hr M min" or "M min"
func (a *Album) PlayTime() string {
	return FormatPlayTime(a.TotalSeconds())
}

// MergeDurations copies durations from resolved into songs by url. Songs
// that already have a duration keep it and urls missing from songs are
// ignored. Returns a new slice and the number of songs that gained one.
func MergeDurations(songs, resolved []Song) ([]Song, int) {
	byURL := make(map[string]string, len(resolved))
	for _, song := range resolved {
		if song.HasDuration() {
			byURL[song.URL] = *song.Duration
		}
	}

	merged := make([]Song, len(songs))
	applied := 0
	for i, song := range songs {
		merged[i] = song
		if song.HasDuration() {
			continue
		}
		if d, ok := byURL[song.URL]; ok {
			merged[i] = song.WithDuration(d)
			applied++
		}
	}
	return merged, applied
}

// Clone returns a copy of the album that does not share its song slice
func (a *Album) Clone() *Album {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Songs = append([]Song(nil), a.Songs...)
	return &clone
}

// SongDuration caches a probed song duration keyed by the song url
type SongDuration struct {
	URL      string    `json:"url" gorm:"type:text;primaryKey;column:url"`
	AlbumID  string    `json:"album_id" gorm:"type:text;not null;index;column:album_id"`
	Duration string    `json:"duration" gorm:"type:text;not null;column:duration"`
	ProbedAt time.Time `json:"probed_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:probed_at"`
}

// TableName pins the table created by the migrations
func (SongDuration) TableName() string {
	return "song_durations"
}

// FormatDuration renders seconds as M:SS with zero-padded seconds.
// Unknown values (NaN, Inf, negative) render as 0:00.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	minutes := int64(seconds / 60)
	rest := int64(math.Mod(seconds, 60))
	return fmt.Sprintf("%d:%02d", minutes, rest)
}

// ParseDuration reads an "M:SS" duration as produced by FormatDuration
func ParseDuration(s string) (int64, bool) {
	minutes, seconds, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	m, err := strconv.ParseInt(minutes, 10, 64)
	if err != nil || m < 0 {
		return 0, false
	}
	sec, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil || sec < 0 || sec > 59 {
		return 0, false
	}
	return m*60 + sec, true
}

// FormatPlayTime renders a total in seconds as "H hr M min", or "M min"
// under an hour. Leftover seconds are dropped.
func FormatPlayTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}
