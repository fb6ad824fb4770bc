// ABOUTME: Audio type definitions for the PCM16 streaming pipeline
// ABOUTME: Defines the stream format, decoded segments and sample conversions
package audio

import "time"

const (
	// SampleRate is the fixed rate of every stream (Hz)
	SampleRate = 24000

	// Channels is the channel count of every stream (mono)
	Channels = 1

	// BitDepth of the wire format
	BitDepth = 16

	// BytesPerSample of the wire format
	BytesPerSample = BitDepth / 8
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// StreamFormat is the only format the pipeline accepts
var StreamFormat = Format{
	Codec:      "pcm",
	SampleRate: SampleRate,
	Channels:   Channels,
	BitDepth:   BitDepth,
}

// Segment is one decoded, ready-to-play unit of audio.
//
// A Segment is immutable once created: its duration is derived from the
// sample count and rate, and the sample slice must not be modified by
// whoever holds it.
type Segment struct {
	samples  []float32
	rate     int
	duration time.Duration
}

// NewSegment wraps decoded samples recorded at sampleRate
func NewSegment(samples []float32, sampleRate int) Segment {
	return Segment{
		samples:  samples,
		rate:     sampleRate,
		duration: DurationOf(len(samples), sampleRate),
	}
}

// Samples returns the normalized samples in [-1.0, 1.0)
func (s Segment) Samples() []float32 { return s.samples }

// Len returns the number of samples
func (s Segment) Len() int { return len(s.samples) }

// SampleRate returns the rate the samples were recorded at
func (s Segment) SampleRate() int { return s.rate }

// Duration returns the playable duration
func (s Segment) Duration() time.Duration { return s.duration }

// DurationOf returns the playback time of n samples at rate
func DurationOf(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(rate))
}

// SamplesFor returns the number of samples covering d at rate
func SamplesFor(d time.Duration, rate int) int {
	return int(int64(d) * int64(rate) / int64(time.Second))
}

// SampleFromInt16 normalizes a 16-bit sample by 32768, so -32768 maps to
// exactly -1.0 and 32767 to just under 1.0
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}
