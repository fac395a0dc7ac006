package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		p    Progress
		want float64
	}{
		{"unknown duration", Progress{CurrentTime: 10}, 0},
		{"half way", Progress{CurrentTime: 30, Duration: 60}, 0.5},
		{"past the end", Progress{CurrentTime: 90, Duration: 60}, 1},
		{"infinite stream", Progress{CurrentTime: 5, Duration: math.Inf(1)}, 0},
		{"nan duration", Progress{CurrentTime: 5, Duration: math.NaN()}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.p.Ratio(), 1e-9)
		})
	}
}

func TestReset(t *testing.T) {
	p := Progress{CurrentTime: 12, Duration: 200}
	p.Reset()
	assert.Equal(t, Progress{}, p)
}

func TestFractionAt(t *testing.T) {
	assert.Equal(t, 0.25, FractionAt(25, 100))
	assert.Equal(t, 0.0, FractionAt(-5, 100))
	assert.Equal(t, 1.0, FractionAt(150, 100))
	assert.Equal(t, 0.0, FractionAt(10, 0))
}

func TestView(t *testing.T) {
	v := Progress{CurrentTime: 65, Duration: 225}.View()

	assert.Equal(t, "1:05", v.Elapsed)
	assert.Equal(t, "3:45", v.Total)
	assert.InDelta(t, 65.0/225.0, v.Ratio, 1e-9)
	assert.InDelta(t, 100*65.0/225.0, v.Percent, 1e-9)
}
