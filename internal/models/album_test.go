package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "0:00"},
		{"under a minute", 9.9, "0:09"},
		{"minutes and seconds", 225, "3:45"},
		{"fractional", 225.7, "3:45"},
		{"over an hour", 3725, "62:05"},
		{"nan", math.NaN(), "0:00"},
		{"negative", -3, "0:00"},
		{"infinite", math.Inf(1), "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestAlbumNeedsDurations(t *testing.T) {
	album := &Album{ID: "a1", Songs: []Song{
		{Title: "one", URL: "s1.mp3"},
		Song{Title: "two", URL: "s2.mp3"}.WithDuration("1:00"),
	}}
	assert.True(t, album.NeedsDurations())

	album.Songs[0] = album.Songs[0].WithDuration("2:00")
	assert.False(t, album.NeedsDurations())
}

func TestAlbumClone_DoesNotShareSongs(t *testing.T) {
	album := &Album{ID: "a1", Songs: []Song{{Title: "one", URL: "s1.mp3"}}}
	clone := album.Clone()

	clone.Songs[0] = clone.Songs[0].WithDuration("3:00")

	assert.False(t, album.Songs[0].HasDuration())
	assert.True(t, clone.Songs[0].HasDuration())
	assert.Nil(t, (*Album)(nil).Clone())
}

func TestSongJSON_OmitsUnresolvedDuration(t *testing.T) {
	data, err := json.Marshal(Song{Title: "one", URL: "/a/one.mp3"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"one","url":"/a/one.mp3"}`, string(data))

	var song Song
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","url":"/x.mp3","duration":"3:45"}`), &song))
	require.NotNil(t, song.Duration)
	assert.Equal(t, "3:45", *song.Duration)
}

func TestLoopModeCycle(t *testing.T) {
	mode := LoopNone
	assert.Equal(t, LoopAlbum, mode.Next())
	assert.Equal(t, LoopSong, mode.Next().Next())
	assert.Equal(t, LoopNone, mode.Next().Next().Next())
}

func TestParseLoopMode(t *testing.T) {
	for _, mode := range []LoopMode{LoopNone, LoopAlbum, LoopSong} {
		parsed, err := ParseLoopMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := ParseLoopMode("forever")
	assert.Error(t, err)
}

func TestLoopModeJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Mode LoopMode `json:"mode"`
	}{LoopSong})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"song"}`, string(data))

	var mode LoopMode
	require.NoError(t, json.Unmarshal([]byte(`"album"`), &mode))
	assert.Equal(t, LoopAlbum, mode)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"3:45", 225, true},
		{"0:09", 9, true},
		{"62:05", 3725, true},
		{"3:60", 0, false},
		{"345", 0, false},
		{"a:05", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDuration(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlbumPlayTime(t *testing.T) {
	album := Album{Songs: []Song{
		Song{URL: "/a/1.mp3"}.WithDuration("3:45"),
		{URL: "/a/2.mp3"},
		Song{URL: "/a/3.mp3"}.WithDuration("bogus"),
		Song{URL: "/a/4.mp3"}.WithDuration("1:15"),
	}}

	assert.Equal(t, int64(300), album.TotalSeconds(), "unresolved and malformed durations are skipped")
	assert.Equal(t, "5 min", album.PlayTime())

	assert.Equal(t, "0 min", FormatPlayTime(59))
	assert.Equal(t, "59 min", FormatPlayTime(3599))
	assert.Equal(t, "1 hr 0 min", FormatPlayTime(3600))
	assert.Equal(t, "2 hr 5 min", FormatPlayTime(2*3600+5*60+30))
}

func TestMergeDurations(t *testing.T) {
	songs := []Song{
		{Title: "one", URL: "/a/1.mp3"},
		Song{Title: "two", URL: "/a/2.mp3"}.WithDuration("1:00"),
		{Title: "three", URL: "/a/3.mp3"},
	}
	resolved := []Song{
		Song{URL: "/a/1.mp3"}.WithDuration("3:45"),
		Song{URL: "/a/2.mp3"}.WithDuration("9:99"),
		Song{URL: "/a/gone.mp3"}.WithDuration("2:00"),
	}

	merged, applied := MergeDurations(songs, resolved)
	require.Len(t, merged, 3)
	assert.Equal(t, 1, applied)
	assert.Equal(t, "3:45", *merged[0].Duration)
	assert.Equal(t, "1:00", *merged[1].Duration, "existing durations win")
	assert.Nil(t, merged[2].Duration)
	assert.Equal(t, "three", merged[2].Title)
	assert.Nil(t, songs[0].Duration, "input is not modified")
}
