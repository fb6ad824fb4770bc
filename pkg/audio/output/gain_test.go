// ABOUTME: Tests for the linear-ramp gain stage
// ABOUTME: Verifies ramp interpolation, jumps and disconnection
package output

import (
	"math"
	"testing"
	"time"
)

type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time { return c.t }

func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinearGainStartsAtUnity(t *testing.T) {
	g := NewLinearGain(nil)
	if g.Value() != 1.0 {
		t.Errorf("expected unity gain, got %f", g.Value())
	}
}

func TestLinearGainRamp(t *testing.T) {
	clk := &manualClock{t: time.Unix(0, 0)}
	g := NewLinearGain(clk.now)

	g.RampTo(0, 100*time.Millisecond)

	tests := []struct {
		at       time.Duration
		expected float64
	}{
		{0, 1.0},
		{25 * time.Millisecond, 0.75},
		{50 * time.Millisecond, 0.5},
		{100 * time.Millisecond, 0},
		{200 * time.Millisecond, 0},
	}

	start := clk.t
	for _, tt := range tests {
		clk.t = start.Add(tt.at)
		if got := g.Value(); !approxEqual(got, tt.expected) {
			t.Errorf("at %v: expected %f, got %f", tt.at, tt.expected, got)
		}
	}
}

func TestLinearGainRampFromMidpoint(t *testing.T) {
	clk := &manualClock{t: time.Unix(0, 0)}
	g := NewLinearGain(clk.now)

	g.RampTo(0, 100*time.Millisecond)
	clk.advance(50 * time.Millisecond)

	// A new ramp starts from wherever the previous one had got to
	g.RampTo(1, 50*time.Millisecond)
	if got := g.Value(); !approxEqual(got, 0.5) {
		t.Errorf("expected ramp to start at 0.5, got %f", got)
	}

	clk.advance(25 * time.Millisecond)
	if got := g.Value(); !approxEqual(got, 0.75) {
		t.Errorf("expected 0.75, got %f", got)
	}
}

func TestLinearGainSetValueCancelsRamp(t *testing.T) {
	clk := &manualClock{t: time.Unix(0, 0)}
	g := NewLinearGain(clk.now)

	g.RampTo(0, 100*time.Millisecond)
	clk.advance(10 * time.Millisecond)
	g.SetValue(1)
	clk.advance(500 * time.Millisecond)

	if g.Value() != 1 {
		t.Errorf("expected gain 1 after SetValue, got %f", g.Value())
	}
}

func TestLinearGainDisconnect(t *testing.T) {
	g := NewLinearGain(nil)
	g.Disconnect()

	if g.Value() != 0 {
		t.Errorf("expected silence after disconnect, got %f", g.Value())
	}

	g.SetValue(1)
	if g.Value() != 0 {
		t.Errorf("expected disconnected stage to stay silent, got %f", g.Value())
	}
}
