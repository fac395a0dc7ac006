package models

import (
	"encoding/json"
	"fmt"
)

// LoopMode governs what happens when a track ends naturally
type LoopMode int

const (
	LoopNone  LoopMode = iota // stop after the last song
	LoopAlbum                 // wrap around to the first song
	LoopSong                  // repeat the current song
)

// loopCycle is the order ToggleLoop walks through
var loopCycle = []LoopMode{LoopNone, LoopAlbum, LoopSong}

// Next returns the mode that follows m in the none -> album -> song cycle
func (m LoopMode) Next() LoopMode {
	for i, mode := range loopCycle {
		if mode == m {
			return loopCycle[(i+1)%len(loopCycle)]
		}
	}
	return LoopNone
}

// String returns the wire name of the loop mode
func (m LoopMode) String() string {
	switch m {
	case LoopAlbum:
		return "album"
	case LoopSong:
		return "song"
	default:
		return "none"
	}
}

// ParseLoopMode converts a wire name to a LoopMode
func ParseLoopMode(s string) (LoopMode, error) {
	switch s {
	case "none", "":
		return LoopNone, nil
	case "album":
		return LoopAlbum, nil
	case "song":
		return LoopSong, nil
	default:
		return LoopNone, fmt.Errorf("unknown loop mode %q", s)
	}
}

// MarshalJSON encodes the loop mode by name
func (m LoopMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a loop mode from its name
func (m *LoopMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := ParseLoopMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
