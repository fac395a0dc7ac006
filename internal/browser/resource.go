// Package browser implements the audio resource as a remote audio element.
//
// Commands are fanned out to every connected listener (an SSE stream in
// production) and events reported by a listener are handed to the
// subscribed controller. Decoding and output happen in the browser.
package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

const defaultClientBuffer = 32

// ErrNoListener is returned by Play when no audio element is connected to
// start playback
var ErrNoListener = errors.New("no audio listener connected")

// Op names a resource command
type Op string

// Resource command operations
const (
	OpLoad   Op = "load"
	OpPlay   Op = "play"
	OpPause  Op = "pause"
	OpSeek   Op = "seek"
	OpVolume Op = "volume"
)

// Command is one instruction for the audio element
type Command struct {
	Seq      uint64   `json:"seq"`
	Op       Op       `json:"op"`
	Src      string   `json:"src,omitempty"`
	Position *float64 `json:"position,omitempty"`
	Volume   *float64 `json:"volume,omitempty"`
}

// Listener is one attached audio element
type Listener struct {
	ID       uuid.UUID
	Commands <-chan Command
}

var _ transport.Resource = (*Resource)(nil)

// Resource is a transport.Resource backed by remote audio elements
type Resource struct {
	bufferSize int
	log        zerolog.Logger

	mu         sync.Mutex
	seq        uint64
	listeners  map[uuid.UUID]chan Command
	lastLoad   *Command
	lastVolume *Command
	handlers   []func(transport.Event)
	closed     bool
}

// Option configures a Resource
type Option func(*Resource)

// WithClientBuffer sets how many commands may queue for a slow listener
// before it is dropped. The catch-up commands need at least two slots.
func WithClientBuffer(size int) Option {
	return func(r *Resource) {
		if size >= 2 {
			r.bufferSize = size
		}
	}
}

// NewResource creates a resource with no listeners
func NewResource(opts ...Option) *Resource {
	r := &Resource{
		bufferSize: defaultClientBuffer,
		log:        logger.With("browser"),
		listeners:  make(map[uuid.UUID]chan Command),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load points the audio element at src
func (r *Resource) Load(_ context.Context, src string) error {
	r.broadcast(Command{Op: OpLoad, Src: src})
	return nil
}

// Play starts playback. It is rejected when nobody is listening, the same
// way a browser rejects autoplay without a user gesture.
func (r *Resource) Play(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.listeners) == 0 {
		return ErrNoListener
	}
	r.sendLocked(Command{Op: OpPlay})
	return nil
}

// Pause pauses playback
func (r *Resource) Pause(_ context.Context) error {
	r.broadcast(Command{Op: OpPause})
	return nil
}

// Seek moves the playback position, in seconds
func (r *Resource) Seek(_ context.Context, position float64) error {
	r.broadcast(Command{Op: OpSeek, Position: &position})
	return nil
}

// SetVolume sets the output volume in [0, 1]
func (r *Resource) SetVolume(_ context.Context, volume float64) error {
	r.broadcast(Command{Op: OpVolume, Volume: &volume})
	return nil
}

// Subscribe registers a handler for events reported by listeners
func (r *Resource) Subscribe(handler func(transport.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// Emit delivers an event reported by a listener to the subscribed handlers
func (r *Resource) Emit(ev transport.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	handlers := append(([]func(transport.Event))(nil), r.handlers...)
	r.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Attach registers a new listener. It first receives the current source and
// volume so it can catch up.
func (r *Resource) Attach() *Listener {
	ch := make(chan Command, r.bufferSize)
	id := uuid.New()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return &Listener{ID: id, Commands: ch}
	}
	if r.lastLoad != nil {
		ch <- *r.lastLoad
	}
	if r.lastVolume != nil {
		ch <- *r.lastVolume
	}
	r.listeners[id] = ch
	count := len(r.listeners)
	r.mu.Unlock()

	r.log.Info().
		Str("listener_id", id.String()).
		Int("listener_count", count).
		Msg("Audio listener attached")

	return &Listener{ID: id, Commands: ch}
}

// Detach removes a listener and closes its command channel
func (r *Resource) Detach(id uuid.UUID) {
	r.mu.Lock()
	ch, ok := r.listeners[id]
	if ok {
		delete(r.listeners, id)
		close(ch)
	}
	count := len(r.listeners)
	r.mu.Unlock()

	if ok {
		r.log.Info().
			Str("listener_id", id.String()).
			Int("listener_count", count).
			Msg("Audio listener detached")
	}
}

// Close detaches every listener and refuses new ones, ending their streams
func (r *Resource) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for id, ch := range r.listeners {
		delete(r.listeners, id)
		close(ch)
	}
}

// ListenerCount returns the number of attached listeners
func (r *Resource) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

func (r *Resource) broadcast(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendLocked(cmd)
}

func (r *Resource) sendLocked(cmd Command) {
	r.seq++
	cmd.Seq = r.seq

	switch cmd.Op {
	case OpLoad:
		r.lastLoad = &cmd
	case OpVolume:
		r.lastVolume = &cmd
	}

	for id, ch := range r.listeners {
		select {
		case ch <- cmd:
		default:
			// A listener that cannot keep up would replay a stale sequence
			delete(r.listeners, id)
			close(ch)
			r.log.Warn().Str("listener_id", id.String()).Msg("Dropping slow audio listener")
		}
	}
}
