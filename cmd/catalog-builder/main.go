// Command catalog-builder scans the media library and writes the album
// manifest served to the player.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/media"
)

type buildOptions struct {
	root    string
	config  string
	out     string
	ext     string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := buildOptions{}

	cmd := &cobra.Command{
		Use:           "catalog-builder",
		Short:         "Build the album manifest from the media library",
		Version:       appVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if opts.verbose {
				level = "debug"
			}
			logger.InitWithWriter(level, true, cmd.ErrOrStderr())
			return runBuild(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "./public", "media library root containing one directory per album")
	cmd.Flags().StringVar(&opts.config, "config", "./albums.yaml", "yaml or json file listing the albums under an 'albums' key")
	cmd.Flags().StringVar(&opts.out, "out", "", "manifest path (default <root>/albums.json)")
	cmd.Flags().StringVar(&opts.ext, "ext", media.DefaultAudioExtension, "audio file extension to collect")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every album")

	return cmd
}

func runBuild(ctx context.Context, opts buildOptions) error {
	entries, err := loadEntries(opts.config)
	if err != nil {
		return err
	}

	albums, err := media.BuildCatalog(ctx, opts.root, entries, opts.ext)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = filepath.Join(opts.root, "albums.json")
	}
	if err := media.WriteCatalog(out, albums); err != nil {
		return err
	}

	songs := 0
	for _, album := range albums {
		songs += len(album.Songs)
		logger.Log.Debug().
			Str("album_id", album.ID).
			Int("songs", len(album.Songs)).
			Msg("Album scanned")
	}

	logger.Log.Info().
		Str("out", out).
		Int("albums", len(albums)).
		Int("songs", songs).
		Msg("Catalog written")
	return nil
}

// loadEntries reads the album list from a viper-readable file
func loadEntries(path string) ([]media.LibraryEntry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read album list %s: %w", path, err)
	}

	var entries []media.LibraryEntry
	if err := v.UnmarshalKey("albums", &entries); err != nil {
		return nil, fmt.Errorf("failed to decode album list %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s lists no albums", media.ErrInvalidEntry, path)
	}
	return entries, nil
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "unknown"
	}
	return bi.Main.Version
}
