package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/gravmusic/internal/media"
	"github.com/stwalsh4118/gravmusic/internal/models"
)

const albumList = `albums:
  - dir: "Romeo and Juliette"
    id: romeo
    title: "Roméo et Juliette"
    artist: "Cast"
    cover: "/covers/romeo.jpg"
  - dir: Mozart
    id: mozart
    title: "Mozart, l'opéra rock"
    artist: Cast
    cover: ""
`

func setupLibrary(t *testing.T) (root, configPath string) {
	t.Helper()

	root = t.TempDir()
	for _, f := range []string{
		"Romeo and Juliette/01 Verone.mp3",
		"Romeo and Juliette/02 Les Rois du monde.mp3",
		"Romeo and Juliette/notes.txt",
		"Mozart/01 Le bien qui fait mal.mp3",
	} {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	configPath = filepath.Join(t.TempDir(), "albums.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(albumList), 0o644))
	return root, configPath
}

func TestRootCmd(t *testing.T) {
	root, configPath := setupLibrary(t)

	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--root", root, "--config", configPath})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, "albums.json"))
	require.NoError(t, err)

	var albums []models.Album
	require.NoError(t, json.Unmarshal(data, &albums))
	require.Len(t, albums, 2)

	assert.Equal(t, "romeo", albums[0].ID)
	assert.Equal(t, "Roméo et Juliette", albums[0].Title)
	require.Len(t, albums[0].Songs, 2)
	assert.Equal(t, "/Romeo and Juliette/01 Verone.mp3", albums[0].Songs[0].URL)
	assert.Equal(t, "01 Verone", albums[0].Songs[0].Title)
	assert.Len(t, albums[1].Songs, 1)

	assert.Contains(t, stderr.String(), "Catalog written")
}

func TestRunBuild_CustomOut(t *testing.T) {
	root, configPath := setupLibrary(t)
	out := filepath.Join(t.TempDir(), "nested", "manifest.json")

	err := runBuild(context.Background(), buildOptions{root: root, config: configPath, out: out, ext: ".mp3"})
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestRunBuild_MissingAlbumDirectory(t *testing.T) {
	root, configPath := setupLibrary(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "Mozart")))

	err := runBuild(context.Background(), buildOptions{root: root, config: configPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrInvalidDirectory)
	assert.NoFileExists(t, filepath.Join(root, "albums.json"), "no partial manifest is written")
}

func TestLoadEntries(t *testing.T) {
	_, configPath := setupLibrary(t)

	entries, err := loadEntries(configPath)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, media.LibraryEntry{
		Dir: "Romeo and Juliette", ID: "romeo", Title: "Roméo et Juliette", Artist: "Cast", Cover: "/covers/romeo.jpg",
	}, entries[0])

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("albums: []\n"), 0o644))
	_, err = loadEntries(empty)
	assert.ErrorIs(t, err, media.ErrInvalidEntry)

	_, err = loadEntries(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
