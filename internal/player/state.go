// Package player holds the playback state machine: what is loaded, what is
// selected, and the transport flags that govern what plays next.
//
// State is a plain value owned by a single goroutine (the transport
// controller loop). It performs no I/O and has no locking of its own.
package player

import (
	"math/rand/v2"

	"github.com/samber/lo"
	"github.com/stwalsh4118/gravmusic/internal/models"
)

const (
	// NoSelection is the song index used when nothing is selected
	NoSelection = -1

	defaultVolume = 1.0
)

// State is the process-wide playback state container
type State struct {
	albums        []models.Album
	current       *models.Album
	index         int
	loadedAlbumID string
	playing       bool
	shuffled      bool
	loop          models.LoopMode
	volume        float64
	muted         bool
	randIntN      func(n int) int
}

// Option configures a State
type Option func(*State)

// WithRand overrides the source used for shuffle picks.
// fn must return a value in [0, n).
func WithRand(fn func(n int) int) Option {
	return func(s *State) {
		s.randIntN = fn
	}
}

// WithVolume sets the initial volume
func WithVolume(volume float64) Option {
	return func(s *State) {
		s.volume = clampVolume(volume)
	}
}

// NewState creates an empty state with no catalog and no selection
func NewState(opts ...Option) *State {
	s := &State{
		index:    NoSelection,
		volume:   defaultVolume,
		loop:     models.LoopNone,
		randIntN: rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAlbums replaces the catalog wholesale. The current album is left as is.
func (s *State) SetAlbums(albums []models.Album) {
	s.albums = lo.Map(albums, func(a models.Album, _ int) models.Album {
		return *a.Clone()
	})
}

// Albums returns a copy of the catalog
func (s *State) Albums() []models.Album {
	return lo.Map(s.albums, func(a models.Album, _ int) models.Album {
		return *a.Clone()
	})
}

// Album looks up an album in the catalog by id
func (s *State) Album(albumID string) (*models.Album, bool) {
	album, ok := lo.Find(s.albums, func(a models.Album) bool {
		return a.ID == albumID
	})
	if !ok {
		return nil, false
	}
	return album.Clone(), true
}

// PlaySong selects a song and sets the playing intent
func (s *State) PlaySong(index int, albumID string) {
	s.selectSong(index, albumID, true)
}

// SelectSong selects a song without starting playback
func (s *State) SelectSong(index int, albumID string) {
	s.selectSong(index, albumID, false)
}

// selectSong switches album when albumID names a different catalog album.
// On a switch the index is taken as given; callers are trusted to pass an
// index valid for the new album. Without a switch, out-of-range indexes are
// ignored.
func (s *State) selectSong(index int, albumID string, playing bool) {
	if albumID != "" && (s.current == nil || s.current.ID != albumID) {
		if album, ok := s.Album(albumID); ok {
			s.current = album
			s.index = index
			s.playing = playing
			return
		}
	}

	if s.current == nil {
		return
	}
	if index >= 0 && index < len(s.current.Songs) {
		s.index = index
		s.playing = playing
	}
}

// LoadAlbum marks albumID as the album whose metadata is being viewed. It
// returns a copy of the album and whether any of its songs still need a
// duration. The current selection is not touched.
func (s *State) LoadAlbum(albumID string) (*models.Album, bool) {
	album, ok := s.Album(albumID)
	if !ok {
		return nil, false
	}
	s.loadedAlbumID = albumID
	return album, album.NeedsDurations()
}

// MergeAlbumDurations applies resolved durations to the album's songs as
// they are now, matching by url. Songs added or removed since the durations
// were requested are left alone. Reports whether the current album changed.
func (s *State) MergeAlbumDurations(albumID string, resolved []models.Song) bool {
	for i := range s.albums {
		if s.albums[i].ID == albumID {
			s.albums[i].Songs, _ = models.MergeDurations(s.albums[i].Songs, resolved)
		}
	}

	if s.current == nil || s.current.ID != albumID {
		return false
	}
	var applied int
	s.current.Songs, applied = models.MergeDurations(s.current.Songs, resolved)
	return applied > 0
}

// Play sets the playing intent
func (s *State) Play() {
	s.playing = true
}

// Pause clears the playing intent
func (s *State) Pause() {
	s.playing = false
}

// Next advances the selection, wrapping at the end of the album. When
// shuffled, any index may be picked, including the current one.
func (s *State) Next() {
	n := s.songCount()
	if n == 0 {
		return
	}
	if s.shuffled {
		s.index = s.randIntN(n)
		return
	}
	s.index = wrap(s.index+1, n)
}

// Prev retreats the selection, wrapping at the start of the album
func (s *State) Prev() {
	n := s.songCount()
	if n == 0 {
		return
	}
	if s.shuffled {
		s.index = s.randIntN(n)
		return
	}
	s.index = wrap(s.index-1, n)
}

// ToggleShuffle flips shuffle mode without touching the selection
func (s *State) ToggleShuffle() {
	s.shuffled = !s.shuffled
}

// ToggleLoop cycles the loop mode none -> album -> song -> none
func (s *State) ToggleLoop() {
	s.loop = s.loop.Next()
}

// HandleSongEnd applies the end-of-track policy after a natural end
func (s *State) HandleSongEnd() {
	if s.current == nil {
		return
	}

	switch s.loop {
	case models.LoopSong:
		s.PlaySong(s.index, "")
	case models.LoopAlbum:
		s.Next()
	default:
		if s.shuffled {
			s.Next()
			return
		}
		if s.index >= len(s.current.Songs)-1 {
			s.playing = false
			return
		}
		s.Next()
	}
}

// SetVolume sets the volume. Zero volume mutes, anything else unmutes.
func (s *State) SetVolume(volume float64) {
	s.volume = clampVolume(volume)
	s.muted = s.volume == 0
}

// ToggleMute flips the mute flag and keeps the volume for restoring
func (s *State) ToggleMute() {
	s.muted = !s.muted
}

// CurrentAlbum returns a copy of the current album, or nil
func (s *State) CurrentAlbum() *models.Album {
	return s.current.Clone()
}

// CurrentSongIndex returns the selected index or NoSelection
func (s *State) CurrentSongIndex() int {
	return s.index
}

// CurrentSong resolves the selected song. It returns nil when nothing is
// selected or the index is outside the current album.
func (s *State) CurrentSong() *models.Song {
	if s.current == nil || s.index < 0 || s.index >= len(s.current.Songs) {
		return nil
	}
	song := s.current.Songs[s.index]
	return &song
}

// IsPlaying reports the playing intent, not the resource status
func (s *State) IsPlaying() bool { return s.playing }

// IsShuffled reports whether shuffle is on
func (s *State) IsShuffled() bool { return s.shuffled }

// LoopMode returns the current loop mode
func (s *State) LoopMode() models.LoopMode { return s.loop }

// Volume returns the volume in [0, 1]
func (s *State) Volume() float64 { return s.volume }

// IsMuted reports whether output is muted
func (s *State) IsMuted() bool { return s.muted }

// EffectiveVolume is the volume the resource should be set to
func (s *State) EffectiveVolume() float64 {
	if s.muted {
		return 0
	}
	return s.volume
}

// LoadedAlbumID returns the album last passed to LoadAlbum
func (s *State) LoadedAlbumID() string { return s.loadedAlbumID }

func (s *State) songCount() int {
	if s.current == nil {
		return 0
	}
	return len(s.current.Songs)
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

func clampVolume(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
