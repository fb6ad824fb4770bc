// ABOUTME: Linear-ramp gain stage
// ABOUTME: Computes gain from a start value, target and ramp span against a clock
package output

import (
	"sync"
	"time"
)

// LinearGain is a Gain whose value moves linearly between set points
type LinearGain struct {
	mu           sync.Mutex
	now          func() time.Time
	from         float64
	to           float64
	start        time.Time
	span         time.Duration
	disconnected bool
}

// NewLinearGain creates a gain stage at unity. now supplies the clock used
// to evaluate ramps.
func NewLinearGain(now func() time.Time) *LinearGain {
	if now == nil {
		now = time.Now
	}
	return &LinearGain{
		now:  now,
		from: 1.0,
		to:   1.0,
	}
}

// Value returns the gain at the current instant
func (g *LinearGain) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disconnected {
		return 0
	}
	return g.valueLocked()
}

func (g *LinearGain) valueLocked() float64 {
	if g.span <= 0 {
		return g.to
	}

	elapsed := g.now().Sub(g.start)
	if elapsed >= g.span {
		return g.to
	}
	if elapsed <= 0 {
		return g.from
	}
	return g.from + (g.to-g.from)*float64(elapsed)/float64(g.span)
}

// SetValue jumps to v
func (g *LinearGain) SetValue(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.from = v
	g.to = v
	g.span = 0
}

// RampTo starts a linear ramp from the current value to target
func (g *LinearGain) RampTo(target float64, over time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.from = g.valueLocked()
	g.to = target
	g.start = g.now()
	g.span = over
}

// Disconnect silences the stage permanently
func (g *LinearGain) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.disconnected = true
}
