// Package progress holds the derived time position of the active resource.
package progress

import (
	"math"

	"github.com/stwalsh4118/gravmusic/internal/models"
)

// Progress is the position and length of the active resource in seconds
type Progress struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

// Reset zeroes both fields; called whenever the resource source changes
func (p *Progress) Reset() {
	p.CurrentTime = 0
	p.Duration = 0
}

// Known reports whether the duration has been reported by the resource
func (p Progress) Known() bool {
	return p.Duration > 0 && !math.IsInf(p.Duration, 0) && !math.IsNaN(p.Duration)
}

// Ratio is CurrentTime/Duration clamped to [0, 1], or 0 when unknown
func (p Progress) Ratio() float64 {
	if !p.Known() {
		return 0
	}
	return Clamp(p.CurrentTime / p.Duration)
}

// Percent is Ratio scaled to [0, 100]
func (p Progress) Percent() float64 {
	return p.Ratio() * 100
}

// Elapsed formats CurrentTime as M:SS
func (p Progress) Elapsed() string {
	return models.FormatDuration(p.CurrentTime)
}

// Total formats Duration as M:SS
func (p Progress) Total() string {
	return models.FormatDuration(p.Duration)
}

// FractionAt converts a pointer offset along a track control of the given
// width into a fraction in [0, 1]
func FractionAt(offset, width float64) float64 {
	if width <= 0 {
		return 0
	}
	return Clamp(offset / width)
}

// Clamp limits f to [0, 1]. NaN maps to 0.
func Clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// View is the JSON shape of the progress for presentation
type View struct {
	Progress
	Ratio   float64 `json:"ratio"`
	Percent float64 `json:"percent"`
	Elapsed string  `json:"elapsed"`
	Total   string  `json:"total"`
}

// View renders the derived fields alongside the raw values
func (p Progress) View() View {
	return View{
		Progress: p,
		Ratio:    p.Ratio(),
		Percent:  p.Percent(),
		Elapsed:  p.Elapsed(),
		Total:    p.Total(),
	}
}
