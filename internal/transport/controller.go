// Package transport drives the single audio resource from the playback state.
//
// The Controller runs one goroutine that owns the player.State, the progress
// and the resource handle. User intents, resource events and enrichment
// results are all queued on one inbox and handled to completion in arrival
// order, so no two state mutations ever interleave.
package transport

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/models"
	"github.com/stwalsh4118/gravmusic/internal/player"
	"github.com/stwalsh4118/gravmusic/internal/progress"
)

const defaultInboxSize = 64

// Enricher resolves missing song durations for an album. It returns the
// album's full song list with whatever durations could be resolved.
type Enricher interface {
	Enrich(ctx context.Context, album models.Album) ([]models.Song, error)
}

// View is what presentation sees after a transition
type View struct {
	player.Snapshot
	Progress progress.View `json:"progress"`
	Source   string        `json:"source,omitempty"`
	Resume   ResumeState   `json:"resume"`
}

// message is one unit of work for the controller loop
type message struct {
	apply func(c *Controller)
	reply chan View // nil for events and background results
}

// applied remembers what was last pushed to the resource
type applied struct {
	song      string
	playing   bool
	volume    float64
	volumeSet bool
}

// Controller translates playback state into resource commands and resource
// events back into state transitions
type Controller struct {
	state    *player.State
	resource Resource
	enricher Enricher
	log      zerolog.Logger

	inbox    chan message
	stopChan chan struct{}
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	started  bool
	stopped  bool

	// Owned by the loop goroutine
	progress  progress.Progress
	resume    ResumeState
	source    string
	last      applied
	enriching map[string]bool
}

// Option configures a Controller
type Option func(*Controller)

// WithEnricher sets the duration enricher used by LoadAlbum
func WithEnricher(e Enricher) Option {
	return func(c *Controller) {
		c.enricher = e
	}
}

// WithInboxSize sets the capacity of the message queue
func WithInboxSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.inbox = make(chan message, size)
		}
	}
}

// NewController creates a controller for state and resource and subscribes
// to the resource's events. Call Start before sending intents.
func NewController(state *player.State, resource Resource, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		state:     state,
		resource:  resource,
		log:       logger.With("transport"),
		inbox:     make(chan message, defaultInboxSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		enriching: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}

	resource.Subscribe(c.Notify)
	return c
}

// Start launches the controller loop
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return nil
	}
	c.started = true

	go c.run()

	c.log.Info().Int("inbox_size", cap(c.inbox)).Msg("Transport controller started")
	return nil
}

// Stop ends the loop and waits for it to exit. Pending intents fail with
// ErrStopped; in-flight enrichment results are discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	started := c.started
	c.mu.Unlock()

	close(c.stopChan)
	c.cancel()
	if started {
		<-c.done
	}

	c.log.Info().Msg("Transport controller stopped")
}

func (c *Controller) run() {
	defer close(c.done)

	c.reconcile()

	for {
		select {
		case <-c.stopChan:
			return
		case msg := <-c.inbox:
			msg.apply(c)
			c.reconcile()
			if msg.reply != nil {
				msg.reply <- c.view()
			}
		}
	}
}

// do queues fn and waits for the loop to apply it
func (c *Controller) do(ctx context.Context, fn func(c *Controller)) (View, error) {
	c.mu.Lock()
	started, stopped := c.started, c.stopped
	c.mu.Unlock()
	if stopped {
		return View{}, ErrStopped
	}
	if !started {
		return View{}, ErrNotStarted
	}

	msg := message{apply: fn, reply: make(chan View, 1)}
	select {
	case c.inbox <- msg:
	case <-c.stopChan:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case view := <-msg.reply:
		return view, nil
	case <-c.stopChan:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// post queues fn without waiting for it
func (c *Controller) post(fn func(c *Controller)) {
	select {
	case c.inbox <- message{apply: fn}:
	case <-c.stopChan:
	}
}

// Notify queues a resource event. It is the handler subscribed to the
// resource and returns once the event is queued, not handled. Events raised
// before Start or after Stop are dropped.
func (c *Controller) Notify(ev Event) {
	c.mu.Lock()
	running := c.started && !c.stopped
	c.mu.Unlock()
	if !running {
		c.log.Debug().Str("event", string(ev.Type)).Msg("Dropping event, controller not running")
		return
	}
	c.post(func(c *Controller) {
		c.handleEvent(ev)
	})
}

// Snapshot returns the current view without changing anything
func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	return c.do(ctx, func(*Controller) {})
}

// Albums returns the catalog as the playback state currently sees it,
// including any durations applied by enrichment
func (c *Controller) Albums(ctx context.Context) ([]models.Album, error) {
	var albums []models.Album
	_, err := c.do(ctx, func(c *Controller) {
		albums = c.state.Albums()
	})
	return albums, err
}

// SetAlbums replaces the catalog
func (c *Controller) SetAlbums(ctx context.Context, albums []models.Album) (View, error) {
	return c.do(ctx, func(c *Controller) {
		c.state.SetAlbums(albums)
		c.log.Info().Int("album_count", len(albums)).Msg("Catalog set")
	})
}

// PlaySong selects a song and starts playback
func (c *Controller) PlaySong(ctx context.Context, index int, albumID string) (View, error) {
	return c.do(ctx, func(c *Controller) {
		c.state.PlaySong(index, albumID)
	})
}

// SelectSong selects a song without starting playback
func (c *Controller) SelectSong(ctx context.Context, index int, albumID string) (View, error) {
	return c.do(ctx, func(c *Controller) {
		c.state.SelectSong(index, albumID)
	})
}

// LoadAlbum marks an album as viewed and starts background enrichment of
// missing durations. It does not wait for enrichment.
func (c *Controller) LoadAlbum(ctx context.Context, albumID string) (View, error) {
	return c.do(ctx, func(c *Controller) {
		album, needsDurations := c.state.LoadAlbum(albumID)
		if album == nil || !needsDurations || c.enricher == nil {
			return
		}
		if c.enriching[albumID] {
			c.log.Debug().Str("album_id", albumID).Msg("Enrichment already in flight")
			return
		}
		c.enriching[albumID] = true
		go c.enrich(*album)
	})
}

// Play sets the playing intent
func (c *Controller) Play(ctx context.Context) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.Play() })
}

// Pause clears the playing intent
func (c *Controller) Pause(ctx context.Context) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.Pause() })
}

// Next skips forward
func (c *Controller) Next(ctx context.Context) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.Next() })
}

// Prev skips back
func (c *Controller) Prev(ctx context.Context) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.Prev() })
}

// ToggleShuffle flips shuffle mode
func (c *Controller) ToggleShuffle(ctx context.Context) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.ToggleShuffle() })
}

// ToggleLoop cycles the loop mode
func (c *Controller) ToggleLoop(ctx context.Context) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.ToggleLoop() })
}

// SetVolume sets the volume in [0, 1]
func (c *Controller) SetVolume(ctx context.Context, volume float64) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.SetVolume(volume) })
}

// ToggleMute flips the mute flag
func (c *Controller) ToggleMute(ctx context.Context) (View, error) {
	return c.do(ctx, func(c *Controller) { c.state.ToggleMute() })
}

// Seek moves playback to fraction of the known duration. It is a no-op
// while the duration is unknown.
func (c *Controller) Seek(ctx context.Context, fraction float64) (View, error) {
	return c.do(ctx, func(c *Controller) {
		if !c.progress.Known() {
			return
		}
		target := progress.Clamp(fraction) * c.progress.Duration
		if err := c.resource.Seek(c.ctx, target); err != nil {
			c.log.Warn().Err(err).Float64("position", target).Msg("Seek failed")
			return
		}
		c.progress.CurrentTime = target
	})
}

// SeekAt seeks to a pointer offset along a track control of the given width
func (c *Controller) SeekAt(ctx context.Context, offset, width float64) (View, error) {
	return c.Seek(ctx, progress.FractionAt(offset, width))
}

func (c *Controller) handleEvent(ev Event) {
	if ev.Source != "" && ev.Source != c.source {
		c.log.Debug().
			Str("event", string(ev.Type)).
			Str("event_source", ev.Source).
			Str("source", c.source).
			Msg("Dropping event for stale source")
		return
	}

	switch ev.Type {
	case EventReady:
		c.handleReady()
	case EventTimeUpdate:
		c.progress.CurrentTime = ev.Position
	case EventMetadataLoaded:
		c.progress.Duration = ev.Duration
	case EventEnded:
		c.handleEnded()
	case EventError:
		c.log.Warn().
			Str("source", c.source).
			Str("error", ev.Message).
			Msg("Resource error, skipping to next song")
		c.state.Next()
	default:
		c.log.Debug().Str("event", string(ev.Type)).Msg("Ignoring unknown resource event")
	}
}

// handleReady starts playback deferred by a load made while playing. A
// rejected play at this point falls back to paused intent.
func (c *Controller) handleReady() {
	if c.resume != ResumePending {
		return
	}
	c.resume = ResumeConsumed

	if !c.state.IsPlaying() {
		return
	}
	if err := c.resource.Play(c.ctx); err != nil {
		c.log.Debug().Err(err).Str("source", c.source).Msg("Resumed play rejected, pausing")
		c.state.Pause()
	}
}

// handleEnded applies the end-of-track policy. Repeating one song never
// touches the state; the resource is rewound and restarted.
func (c *Controller) handleEnded() {
	if c.source == "" || c.state.CurrentSong() == nil {
		return
	}
	if c.state.LoopMode() == models.LoopSong {
		c.restart()
		return
	}

	c.state.HandleSongEnd()

	// The next pick may resolve to the same url (single-song album, shuffle
	// repeat). No reload happens for it, so rewind explicitly.
	if song := c.state.CurrentSong(); song != nil && song.URL == c.source && c.state.IsPlaying() {
		c.restart()
	}
}

func (c *Controller) restart() {
	c.progress.CurrentTime = 0
	if err := c.resource.Seek(c.ctx, 0); err != nil {
		c.log.Warn().Err(err).Msg("Rewind failed")
	}
	if err := c.resource.Play(c.ctx); err != nil {
		c.log.Debug().Err(err).Msg("Replay rejected")
	}
}

// reconcile pushes state changes to the resource: source, then playing
// intent, then volume
func (c *Controller) reconcile() {
	song := c.state.CurrentSong()
	url := ""
	if song != nil {
		url = song.URL
	}
	playing := c.state.IsPlaying()
	songChanged := url != c.last.song

	if song != nil && url != c.source {
		c.progress.Reset()
		c.source = url
		if playing {
			c.resume = ResumePending
		} else {
			c.resume = ResumeIdle
		}
		if err := c.resource.Load(c.ctx, url); err != nil {
			c.log.Warn().Err(err).Str("source", url).Msg("Load failed")
		} else {
			c.log.Debug().Str("source", url).Bool("resume", playing).Msg("Source loaded")
		}
	}

	if song != nil && (songChanged || playing != c.last.playing) {
		if playing {
			if err := c.resource.Play(c.ctx); err != nil {
				// Rejection keeps the intent so a later trigger can retry
				c.log.Debug().Err(err).Str("source", url).Msg("Play rejected")
			}
		} else if err := c.resource.Pause(c.ctx); err != nil {
			c.log.Warn().Err(err).Msg("Pause failed")
		}
	}
	c.last.song = url
	c.last.playing = playing

	volume := c.state.EffectiveVolume()
	if !c.last.volumeSet || volume != c.last.volume {
		if err := c.resource.SetVolume(c.ctx, volume); err != nil {
			c.log.Warn().Err(err).Float64("volume", volume).Msg("Set volume failed")
		}
		c.last.volume = volume
		c.last.volumeSet = true
	}
}

// enrich runs outside the loop and posts the result back into it
func (c *Controller) enrich(album models.Album) {
	songs, err := c.enricher.Enrich(c.ctx, album)

	c.post(func(c *Controller) {
		delete(c.enriching, album.ID)
		if err != nil {
			c.log.Warn().Err(err).Str("album_id", album.ID).Msg("Duration enrichment failed")
			return
		}
		changedCurrent := c.state.MergeAlbumDurations(album.ID, songs)
		c.log.Debug().
			Str("album_id", album.ID).
			Bool("changed_current", changedCurrent).
			Msg("Applied enriched durations")
	})
}

func (c *Controller) view() View {
	return View{
		Snapshot: c.state.Snapshot(),
		Progress: c.progress.View(),
		Source:   c.source,
		Resume:   c.resume,
	}
}
