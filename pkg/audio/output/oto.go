// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays each segment on its own oto player and polls for its natural end
package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

const (
	// float32 little-endian, mono
	otoBytesPerSample = 4

	defaultPollInterval = 5 * time.Millisecond
)

// Oto output implementation using oto library
type Oto struct {
	mu           sync.Mutex
	otoCtx       *oto.Context
	sampleRate   int
	suspended    bool
	closed       bool
	pollInterval time.Duration
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{
		pollInterval: defaultPollInterval,
	}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}

	// oto allows one context per process, so an open device is reused
	if o.otoCtx != nil {
		if o.sampleRate != sampleRate {
			log.Warn().Int("current", o.sampleRate).Int("requested", sampleRate).
				Msg("oto doesn't support reinitialization, continuing with existing context")
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate

	log.Info().Int("sample_rate", sampleRate).Int("channels", audio.Channels).Msg("Audio output initialized")

	return nil
}

// NewGain creates a gain stage at unity
func (o *Oto) NewGain() Gain {
	return NewLinearGain(time.Now)
}

// Play starts a segment on a fresh oto player
func (o *Oto) Play(seg audio.Segment, gain Gain, onEnd func()) (Voice, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrClosed
	}
	if o.otoCtx == nil {
		return nil, ErrNotOpen
	}
	if err := o.otoCtx.Err(); err != nil {
		return nil, fmt.Errorf("oto context failed: %w", err)
	}

	player := o.otoCtx.NewPlayer(newSegmentReader(seg, gain))
	player.Play()

	v := &otoVoice{player: player}
	go v.watch(onEnd, o.pollInterval)

	return v, nil
}

// Suspended reports whether the context is suspended
func (o *Oto) Suspended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suspended
}

// Suspend pauses the whole output context
func (o *Oto) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return ErrNotOpen
	}
	if err := o.otoCtx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	o.suspended = true
	return nil
}

// Resume reactivates a suspended context
func (o *Oto) Resume(ctx context.Context) error {
	o.mu.Lock()
	otoCtx := o.otoCtx
	o.mu.Unlock()

	if otoCtx == nil {
		return ErrNotOpen
	}

	done := make(chan error, 1)
	go func() {
		done <- otoCtx.Resume()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	o.mu.Lock()
	o.suspended = false
	o.mu.Unlock()

	log.Debug().Msg("Audio output resumed")
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	o.closed = true

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Warn().Err(err).Msg("oto context suspend error")
		}
	}
	return nil
}

// otoVoice is one oto player bound to one segment
type otoVoice struct {
	player   *oto.Player
	stopped  atomic.Bool
	released atomic.Bool
}

// watch polls the player until it drains, then reports the end
func (v *otoVoice) watch(onEnd func(), interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if v.stopped.Load() || v.released.Load() {
			return
		}
		if v.player.IsPlaying() {
			continue
		}
		if err := v.player.Err(); err != nil {
			log.Warn().Err(err).Msg("oto player error")
		}
		if !v.stopped.Load() && onEnd != nil {
			onEnd()
		}
		return
	}
}

// Stop halts the player without reporting an end
func (v *otoVoice) Stop() error {
	if v.stopped.Swap(true) {
		return ErrClosed
	}
	v.player.Pause()
	return nil
}

// Disconnect closes the underlying player
func (v *otoVoice) Disconnect() error {
	if v.released.Swap(true) {
		return ErrClosed
	}
	return v.player.Close()
}

// segmentReader streams a segment as float32 LE bytes, scaled by the gain
// stage at the moment each block is read
type segmentReader struct {
	samples []float32
	pos     int
	gain    Gain
}

func newSegmentReader(seg audio.Segment, gain Gain) *segmentReader {
	return &segmentReader{
		samples: seg.Samples(),
		gain:    gain,
	}
}

func (r *segmentReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.samples) {
		return 0, io.EOF
	}

	n := len(p) / otoBytesPerSample
	if remaining := len(r.samples) - r.pos; n > remaining {
		n = remaining
	}

	g := float32(1)
	if r.gain != nil {
		g = float32(r.gain.Value())
	}

	for i := 0; i < n; i++ {
		sample := r.samples[r.pos+i] * g
		binary.LittleEndian.PutUint32(p[i*otoBytesPerSample:], math.Float32bits(sample))
	}
	r.pos += n

	return n * otoBytesPerSample, nil
}
