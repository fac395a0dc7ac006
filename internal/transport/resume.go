package transport

import "encoding/json"

// ResumeState carries the playing intent across an asynchronous load.
// A load made while playing sets it to pending; the next ready signal
// consumes it.
type ResumeState int

const (
	ResumeIdle ResumeState = iota
	ResumePending
	ResumeConsumed
)

// String returns the state name
func (r ResumeState) String() string {
	switch r {
	case ResumePending:
		return "pending"
	case ResumeConsumed:
		return "consumed"
	default:
		return "idle"
	}
}

// MarshalJSON encodes the state by name
func (r ResumeState) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}
