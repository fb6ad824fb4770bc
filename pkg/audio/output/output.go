// ABOUTME: Audio output interface definition
// ABOUTME: Device, Voice and Gain contracts shared by playback backends
package output

import (
	"context"
	"errors"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

var (
	// ErrNotOpen is returned when playing on a device that was never opened
	ErrNotOpen = errors.New("output not initialized")

	// ErrClosed is returned when releasing a voice or device twice
	ErrClosed = errors.New("output already closed")
)

// Device represents an audio output device
type Device interface {
	// Play starts playback of seg through gain. onEnd is called once, from
	// another goroutine, after the segment has played to its natural end.
	// It is not called for voices halted with Stop.
	Play(seg audio.Segment, gain Gain, onEnd func()) (Voice, error)

	// NewGain creates a gain stage at unity connected to the device output
	NewGain() Gain

	// Suspended reports whether the device is in a suspended power state
	Suspended() bool

	// Resume reactivates a suspended device, blocking until it is ready
	Resume(ctx context.Context) error

	// Close releases output resources
	Close() error
}

// Voice is one playing segment
type Voice interface {
	// Stop halts playback without reporting an end
	Stop() error

	// Disconnect releases the voice from the output path
	Disconnect() error
}

// Gain scales everything played through it
type Gain interface {
	// Value returns the current gain
	Value() float64

	// SetValue jumps to v immediately, cancelling any ramp
	SetValue(v float64)

	// RampTo moves linearly from the current value to target over the given span
	RampTo(target float64, over time.Duration)

	// Disconnect detaches the stage; it outputs silence afterwards
	Disconnect()
}
