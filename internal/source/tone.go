// ABOUTME: Test tone generator for the stream server
// ABOUTME: Generates a sine wave at the stream sample rate
package source

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// DefaultToneFrequency is A4
const DefaultToneFrequency = 440.0

// Tone generates a sine wave, optionally for a limited duration
type Tone struct {
	mu          sync.Mutex
	frequency   float64
	sampleIndex uint64
	limit       uint64
}

// NewTone creates a tone generator. A zero duration never ends.
func NewTone(frequency float64, duration time.Duration) *Tone {
	return &Tone{
		frequency: frequency,
		limit:     uint64(audio.SamplesFor(duration, audio.SampleRate)),
	}
}

func (s *Tone) Read(samples []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(samples)
	if s.limit > 0 {
		if s.sampleIndex >= s.limit {
			return 0, io.EOF
		}
		if remaining := s.limit - s.sampleIndex; uint64(n) > remaining {
			n = int(remaining)
		}
	}

	for i := 0; i < n; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(audio.SampleRate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)

		// 50% volume
		samples[i] = int16(sample * 32767.0 * 0.5)
	}

	s.sampleIndex += uint64(n)

	return n, nil
}

func (s *Tone) Title() string {
	return fmt.Sprintf("Test Tone %.0f Hz", s.frequency)
}

func (s *Tone) Close() error { return nil }
