package player

import "github.com/stwalsh4118/gravmusic/internal/models"

// Snapshot is an immutable copy of the state for presentation
type Snapshot struct {
	CurrentAlbum     *models.Album   `json:"current_album"`
	CurrentSongIndex int             `json:"current_song_index"`
	CurrentSong      *models.Song    `json:"current_song"`
	LoadedAlbumID    string          `json:"loaded_album_id,omitempty"`
	IsPlaying        bool            `json:"is_playing"`
	IsShuffled       bool            `json:"is_shuffled"`
	LoopMode         models.LoopMode `json:"loop_mode"`
	Volume           float64         `json:"volume"`
	IsMuted          bool            `json:"is_muted"`
}

// Snapshot copies the presentation-relevant fields of the state
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		CurrentAlbum:     s.CurrentAlbum(),
		CurrentSongIndex: s.index,
		CurrentSong:      s.CurrentSong(),
		LoadedAlbumID:    s.loadedAlbumID,
		IsPlaying:        s.playing,
		IsShuffled:       s.shuffled,
		LoopMode:         s.loop,
		Volume:           s.volume,
		IsMuted:          s.muted,
	}
}
