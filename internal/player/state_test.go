package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/gravmusic/internal/models"
)

// testAlbums builds a small catalog: a1 with two songs, a2 with three
func testAlbums() []models.Album {
	return []models.Album{
		{ID: "a1", Title: "First", Songs: []models.Song{
			{Title: "s1", URL: "s1.mp3"},
			{Title: "s2", URL: "s2.mp3"},
		}},
		{ID: "a2", Title: "Second", Songs: []models.Song{
			{Title: "t1", URL: "t1.mp3"},
			{Title: "t2", URL: "t2.mp3"},
			{Title: "t3", URL: "t3.mp3"},
		}},
	}
}

// newTestState creates a state loaded with testAlbums
func newTestState(t *testing.T, opts ...Option) *State {
	t.Helper()
	s := NewState(opts...)
	s.SetAlbums(testAlbums())
	return s
}

func TestNewState_Defaults(t *testing.T) {
	s := NewState()

	assert.Empty(t, s.Albums())
	assert.Nil(t, s.CurrentAlbum())
	assert.Equal(t, NoSelection, s.CurrentSongIndex())
	assert.Nil(t, s.CurrentSong())
	assert.False(t, s.IsPlaying())
	assert.False(t, s.IsShuffled())
	assert.Equal(t, models.LoopNone, s.LoopMode())
	assert.Equal(t, 1.0, s.Volume())
	assert.False(t, s.IsMuted())
}

func TestPlaySong_SwitchesAlbumWhenNoneLoaded(t *testing.T) {
	for _, album := range testAlbums() {
		for i := range album.Songs {
			s := newTestState(t)

			s.PlaySong(i, album.ID)

			require.NotNil(t, s.CurrentAlbum())
			assert.Equal(t, album.ID, s.CurrentAlbum().ID)
			assert.Equal(t, i, s.CurrentSongIndex())
			assert.True(t, s.IsPlaying())
		}
	}
}

func TestPlaySong_SameAlbum(t *testing.T) {
	s := newTestState(t)
	s.SelectSong(0, "a2")

	t.Run("in range", func(t *testing.T) {
		s.PlaySong(2, "a2")
		assert.Equal(t, 2, s.CurrentSongIndex())
		assert.True(t, s.IsPlaying())
	})

	t.Run("out of range is ignored", func(t *testing.T) {
		s.Pause()
		s.PlaySong(7, "")
		assert.Equal(t, 2, s.CurrentSongIndex())
		assert.False(t, s.IsPlaying())

		s.PlaySong(-1, "a2")
		assert.Equal(t, 2, s.CurrentSongIndex())
		assert.False(t, s.IsPlaying())
	})
}

func TestPlaySong_NoAlbumIsNoop(t *testing.T) {
	s := newTestState(t)

	s.PlaySong(0, "")

	assert.Nil(t, s.CurrentAlbum())
	assert.Equal(t, NoSelection, s.CurrentSongIndex())
	assert.False(t, s.IsPlaying())
}

func TestPlaySong_UnknownAlbumFallsBackToCurrent(t *testing.T) {
	s := newTestState(t)
	s.SelectSong(0, "a1")

	s.PlaySong(1, "missing")

	assert.Equal(t, "a1", s.CurrentAlbum().ID)
	assert.Equal(t, 1, s.CurrentSongIndex())
	assert.True(t, s.IsPlaying())
}

// The index is not validated against the new album on a switch. This
// documents the current behavior; callers always pass valid indexes.
func TestPlaySong_SwitchDoesNotValidateIndex(t *testing.T) {
	s := newTestState(t)

	s.PlaySong(9, "a1")

	assert.Equal(t, "a1", s.CurrentAlbum().ID)
	assert.Equal(t, 9, s.CurrentSongIndex())
	assert.True(t, s.IsPlaying())
	assert.Nil(t, s.CurrentSong())
}

func TestSelectSong_DoesNotPlay(t *testing.T) {
	s := newTestState(t)
	s.PlaySong(0, "a1")

	s.SelectSong(1, "a2")

	assert.Equal(t, "a2", s.CurrentAlbum().ID)
	assert.Equal(t, 1, s.CurrentSongIndex())
	assert.False(t, s.IsPlaying())

	s.Play()
	s.SelectSong(2, "")
	assert.Equal(t, 2, s.CurrentSongIndex())
	assert.False(t, s.IsPlaying())
}

func TestNext_Wraps(t *testing.T) {
	s := newTestState(t)
	s.SelectSong(0, "a2")

	s.Next()
	assert.Equal(t, 1, s.CurrentSongIndex())
	s.Next()
	assert.Equal(t, 2, s.CurrentSongIndex())
	s.Next()
	assert.Equal(t, 0, s.CurrentSongIndex())
	assert.False(t, s.IsPlaying(), "next must not change the playing intent")
}

func TestPrev_Wraps(t *testing.T) {
	s := newTestState(t)
	s.PlaySong(0, "a2")

	s.Prev()
	assert.Equal(t, 2, s.CurrentSongIndex())
	s.Prev()
	assert.Equal(t, 1, s.CurrentSongIndex())
	assert.True(t, s.IsPlaying())
}

func TestNextPrev_NoAlbumIsNoop(t *testing.T) {
	s := newTestState(t)

	s.Next()
	s.Prev()

	assert.Equal(t, NoSelection, s.CurrentSongIndex())
}

func TestNextPrev_EmptyAlbumIsNoop(t *testing.T) {
	s := NewState()
	s.SetAlbums([]models.Album{{ID: "empty"}})
	s.SelectSong(0, "empty")

	s.Next()
	s.Prev()

	assert.Equal(t, 0, s.CurrentSongIndex())
}

func TestNext_Shuffled(t *testing.T) {
	picks := []int{2, 2, 0}
	var seen []int
	s := newTestState(t, WithRand(func(n int) int {
		seen = append(seen, n)
		p := picks[0]
		picks = picks[1:]
		return p
	}))
	s.SelectSong(2, "a2")
	s.ToggleShuffle()

	s.Next()
	assert.Equal(t, 2, s.CurrentSongIndex(), "shuffle may repeat the current song")
	s.Prev()
	assert.Equal(t, 2, s.CurrentSongIndex())
	s.Next()
	assert.Equal(t, 0, s.CurrentSongIndex())
	assert.Equal(t, []int{3, 3, 3}, seen)
}

func TestToggleShuffle_KeepsSelection(t *testing.T) {
	s := newTestState(t)
	s.SelectSong(1, "a2")

	s.ToggleShuffle()
	assert.True(t, s.IsShuffled())
	assert.Equal(t, 1, s.CurrentSongIndex())

	s.ToggleShuffle()
	assert.False(t, s.IsShuffled())
}

func TestToggleLoop_CycleOfThree(t *testing.T) {
	s := newTestState(t)

	expected := []models.LoopMode{models.LoopAlbum, models.LoopSong, models.LoopNone}
	for _, want := range expected {
		s.ToggleLoop()
		assert.Equal(t, want, s.LoopMode())
	}
}

func TestHandleSongEnd(t *testing.T) {
	tests := []struct {
		name        string
		loop        int // number of ToggleLoop calls
		shuffled    bool
		startIndex  int
		randPick    int
		wantIndex   int
		wantPlaying bool
	}{
		{name: "none, middle advances", loop: 0, startIndex: 0, wantIndex: 1, wantPlaying: true},
		{name: "none, last stops", loop: 0, startIndex: 2, wantIndex: 2, wantPlaying: false},
		{name: "none, shuffled picks", loop: 0, shuffled: true, startIndex: 2, randPick: 1, wantIndex: 1, wantPlaying: true},
		{name: "album, last wraps", loop: 1, startIndex: 2, wantIndex: 0, wantPlaying: true},
		{name: "album, middle advances", loop: 1, startIndex: 1, wantIndex: 2, wantPlaying: true},
		{name: "album, shuffled picks", loop: 1, shuffled: true, startIndex: 0, randPick: 2, wantIndex: 2, wantPlaying: true},
		{name: "song repeats", loop: 2, startIndex: 1, wantIndex: 1, wantPlaying: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(t, WithRand(func(int) int { return tt.randPick }))
			s.PlaySong(tt.startIndex, "a2")
			for i := 0; i < tt.loop; i++ {
				s.ToggleLoop()
			}
			if tt.shuffled {
				s.ToggleShuffle()
			}

			s.HandleSongEnd()

			assert.Equal(t, tt.wantIndex, s.CurrentSongIndex())
			assert.Equal(t, tt.wantPlaying, s.IsPlaying())
		})
	}
}

func TestHandleSongEnd_AlbumLoopMatchesNext(t *testing.T) {
	ended := newTestState(t)
	ended.PlaySong(2, "a2")
	ended.ToggleLoop()
	ended.Pause()

	skipped := newTestState(t)
	skipped.PlaySong(2, "a2")
	skipped.ToggleLoop()
	skipped.Pause()

	ended.HandleSongEnd()
	skipped.Next()

	assert.Equal(t, skipped.CurrentSongIndex(), ended.CurrentSongIndex())
	assert.Equal(t, 0, ended.CurrentSongIndex())
	assert.False(t, ended.IsPlaying(), "album loop must not change the playing intent")
}

func TestHandleSongEnd_NoAlbumIsNoop(t *testing.T) {
	s := newTestState(t)
	s.HandleSongEnd()
	assert.Equal(t, NoSelection, s.CurrentSongIndex())
}

func TestSetVolume(t *testing.T) {
	s := newTestState(t)

	s.SetVolume(0)
	assert.True(t, s.IsMuted())
	assert.Equal(t, 0.0, s.Volume())

	s.SetVolume(0.5)
	assert.False(t, s.IsMuted())
	assert.Equal(t, 0.5, s.Volume())

	s.ToggleMute()
	s.SetVolume(0.5)
	assert.False(t, s.IsMuted(), "setting a non-zero volume unmutes")

	s.SetVolume(4)
	assert.Equal(t, 1.0, s.Volume())
	s.SetVolume(-1)
	assert.Equal(t, 0.0, s.Volume())
	assert.True(t, s.IsMuted())
}

func TestToggleMute_PreservesVolume(t *testing.T) {
	s := newTestState(t)
	s.SetVolume(0.3)

	s.ToggleMute()
	assert.True(t, s.IsMuted())
	assert.Equal(t, 0.3, s.Volume())
	assert.Equal(t, 0.0, s.EffectiveVolume())

	s.ToggleMute()
	assert.False(t, s.IsMuted())
	assert.Equal(t, 0.3, s.EffectiveVolume())
}

func TestLoadAlbum(t *testing.T) {
	s := newTestState(t)
	s.PlaySong(0, "a1")

	album, needs := s.LoadAlbum("a2")
	require.NotNil(t, album)
	assert.True(t, needs)
	assert.Equal(t, "a2", s.LoadedAlbumID())
	assert.Equal(t, "a1", s.CurrentAlbum().ID, "loading must not switch the current album")
	assert.True(t, s.IsPlaying())

	album, needs = s.LoadAlbum("missing")
	assert.Nil(t, album)
	assert.False(t, needs)
	assert.Equal(t, "a2", s.LoadedAlbumID())
}

func TestMergeAlbumDurations(t *testing.T) {
	resolved := []models.Song{
		models.Song{Title: "s1", URL: "s1.mp3"}.WithDuration("3:45"),
		{Title: "s2", URL: "s2.mp3"},
	}

	t.Run("current album gains durations", func(t *testing.T) {
		s := newTestState(t)
		s.SelectSong(0, "a1")

		changed := s.MergeAlbumDurations("a1", resolved)

		assert.True(t, changed)
		assert.Equal(t, "3:45", *s.CurrentAlbum().Songs[0].Duration)
		album, _ := s.Album("a1")
		assert.Equal(t, "3:45", *album.Songs[0].Duration)
	})

	t.Run("other current album is kept", func(t *testing.T) {
		s := newTestState(t)
		s.SelectSong(0, "a2")

		changed := s.MergeAlbumDurations("a1", resolved)

		assert.False(t, changed)
		assert.Equal(t, "a2", s.CurrentAlbum().ID)
		album, _ := s.Album("a1")
		assert.True(t, album.Songs[0].HasDuration())
	})

	t.Run("songs added by a reload survive", func(t *testing.T) {
		s := newTestState(t)
		reloaded := testAlbums()
		reloaded[0].Songs = append(reloaded[0].Songs, models.Song{Title: "s9", URL: "s9.mp3"})
		s.SetAlbums(reloaded)

		s.MergeAlbumDurations("a1", resolved)

		album, _ := s.Album("a1")
		require.Len(t, album.Songs, len(reloaded[0].Songs))
		assert.Equal(t, "3:45", *album.Songs[0].Duration)
		assert.Equal(t, "s9.mp3", album.Songs[len(album.Songs)-1].URL)
	})
}

func TestSnapshot(t *testing.T) {
	s := newTestState(t)
	s.PlaySong(1, "a1")
	s.ToggleLoop()

	snap := s.Snapshot()

	require.NotNil(t, snap.CurrentSong)
	assert.Equal(t, "s2.mp3", snap.CurrentSong.URL)
	assert.Equal(t, 1, snap.CurrentSongIndex)
	assert.True(t, snap.IsPlaying)
	assert.Equal(t, models.LoopAlbum, snap.LoopMode)

	snap.CurrentAlbum.Songs[0].Title = "changed"
	assert.Equal(t, "s1", s.CurrentAlbum().Songs[0].Title)
}
