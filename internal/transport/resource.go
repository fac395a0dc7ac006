package transport

import (
	"context"
	"fmt"
)

// EventType names a signal raised by the audio resource
type EventType string

// Resource signals
const (
	EventReady          EventType = "ready"          // enough data to start playing
	EventTimeUpdate     EventType = "timeupdate"     // position advanced
	EventMetadataLoaded EventType = "loadedmetadata" // duration known
	EventEnded          EventType = "ended"          // natural end of track
	EventError          EventType = "error"          // decode or network failure
)

// Valid reports whether t is one of the known signals
func (t EventType) Valid() bool {
	switch t {
	case EventReady, EventTimeUpdate, EventMetadataLoaded, EventEnded, EventError:
		return true
	default:
		return false
	}
}

// Event is a single signal from the resource.
// Source, when set, is the url the resource was playing when it raised the
// event; events for a source that is no longer loaded are dropped.
type Event struct {
	Type     EventType `json:"type"`
	Source   string    `json:"source,omitempty"`
	Position float64   `json:"position,omitempty"` // seconds, for timeupdate
	Duration float64   `json:"duration,omitempty"` // seconds, for loadedmetadata
	Message  string    `json:"message,omitempty"`  // for error
}

// Validate checks the event is well formed
func (e Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	if e.Position < 0 || e.Duration < 0 {
		return fmt.Errorf("%w: negative position or duration", ErrInvalidEvent)
	}
	return nil
}

// Resource is the single streaming audio element the controller drives.
// Only the controller issues commands to it. Play may fail when the
// environment refuses to start playback (autoplay policy); callers decide
// whether that matters.
//
// Implementations must not call the subscribed handler from inside a
// command method.
type Resource interface {
	Load(ctx context.Context, src string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, position float64) error
	SetVolume(ctx context.Context, volume float64) error
	Subscribe(handler func(Event))
}
