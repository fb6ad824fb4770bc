// ABOUTME: Streaming playback scheduler and lifecycle controller
// ABOUTME: Chains queued segments gaplessly and handles stop, resume and completion
package streamer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by Resume after Close
var ErrClosed = errors.New("streamer closed")

// State is the playback state
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultStartThreshold    = 500 * time.Millisecond
	DefaultCompleteThreshold = 200 * time.Millisecond
	DefaultStallTimeout      = 1000 * time.Millisecond
	DefaultWatchdogInterval  = 1000 * time.Millisecond
	DefaultRetryDelay        = 100 * time.Millisecond
	DefaultFadeOut           = 100 * time.Millisecond
	DefaultGainResetDelay    = 200 * time.Millisecond
)

// Config holds streamer timings and callbacks. Zero fields take defaults.
type Config struct {
	SampleRate int

	// StartThreshold is the buffered duration that starts playback from idle
	StartThreshold time.Duration

	// CompleteThreshold is the buffered duration at or above which Complete is ignored
	CompleteThreshold time.Duration

	StallTimeout     time.Duration
	WatchdogInterval time.Duration
	RetryDelay       time.Duration
	FadeOut          time.Duration
	GainResetDelay   time.Duration

	Clock Clock

	// OnComplete runs after a natural drain or an accepted Complete call
	OnComplete func()

	// OnStateChange runs after every state transition
	OnStateChange func(State)
}

// DefaultConfig returns the standard timings
func DefaultConfig() Config {
	return Config{
		SampleRate:        audio.SampleRate,
		StartThreshold:    DefaultStartThreshold,
		CompleteThreshold: DefaultCompleteThreshold,
		StallTimeout:      DefaultStallTimeout,
		WatchdogInterval:  DefaultWatchdogInterval,
		RetryDelay:        DefaultRetryDelay,
		FadeOut:           DefaultFadeOut,
		GainResetDelay:    DefaultGainResetDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.StartThreshold <= 0 {
		c.StartThreshold = d.StartThreshold
	}
	if c.CompleteThreshold <= 0 {
		c.CompleteThreshold = d.CompleteThreshold
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = d.StallTimeout
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = d.WatchdogInterval
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.FadeOut <= 0 {
		c.FadeOut = d.FadeOut
	}
	if c.GainResetDelay <= 0 {
		c.GainResetDelay = d.GainResetDelay
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
	return c
}

// Stats tracks streamer metrics
type Stats struct {
	Received    int64
	Played      int64
	Failed      int64
	Stalls      int64
	Completions int64
	Queued      int
	Buffered    time.Duration
	State       State
}

// notices are callbacks collected under the lock and run after it is released
type notices struct {
	states   []State
	complete bool
}

// Streamer buffers PCM16 chunks and plays them through an output device.
//
// Every exported method and every timer or device callback runs under one
// mutex, so queue, state and timers only change in non-overlapping steps.
// Each segment start bumps gen; callbacks carrying an older gen are dropped.
type Streamer struct {
	mu      sync.Mutex
	cfg     Config
	clock   Clock
	device  output.Device
	decoder decode.Decoder

	queue        *Queue
	state        State
	gen          uint64
	active       output.Voice
	lastPlayback time.Time

	next    Timer
	nextSeq uint64

	watchdog watchdog

	gain      output.Gain
	gainReset Timer
	gainGen   uint64

	onComplete    func()
	onStateChange func(State)

	stats   Stats
	pending notices
	closed  bool
}

// New creates a streamer that owns device
func New(device output.Device, cfg Config) *Streamer {
	cfg = cfg.withDefaults()

	decoder, err := decode.NewPCM(audio.StreamFormat)
	if err != nil {
		panic(fmt.Sprintf("streamer: stream format rejected by decoder: %v", err))
	}

	s := &Streamer{
		cfg:           cfg,
		clock:         cfg.Clock,
		device:        device,
		decoder:       decoder,
		queue:         NewQueue(),
		state:         StateIdle,
		gain:          device.NewGain(),
		onComplete:    cfg.OnComplete,
		onStateChange: cfg.OnStateChange,
	}
	s.watchdog = watchdog{clock: cfg.Clock, interval: cfg.WatchdogInterval}
	s.lastPlayback = s.clock.Now()

	return s
}

// SetOnComplete replaces the completion callback
func (s *Streamer) SetOnComplete(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

// unlock releases the mutex and then delivers collected notices
func (s *Streamer) unlock() {
	n := s.pending
	s.pending = notices{}
	onComplete := s.onComplete
	onStateChange := s.onStateChange
	s.mu.Unlock()

	if onStateChange != nil {
		for _, st := range n.states {
			onStateChange(st)
		}
	}
	if n.complete && onComplete != nil {
		onComplete()
	}
}

// AddPCM16 ingests one chunk of little-endian 16-bit mono PCM. It never
// fails; an odd trailing byte is dropped.
func (s *Streamer) AddPCM16(chunk []byte) {
	samples, err := s.decoder.Decode(chunk)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(chunk)).Msg("Dropping undecodable chunk")
		return
	}
	if len(samples) == 0 {
		return
	}
	seg := audio.NewSegment(samples, s.cfg.SampleRate)

	s.mu.Lock()
	defer s.unlock()

	if s.closed {
		return
	}

	s.queue.Enqueue(seg)
	s.stats.Received++

	if s.state != StatePlaying && s.queue.Buffered() >= s.cfg.StartThreshold {
		log.Debug().Dur("buffered", s.queue.Buffered()).Msg("Start threshold reached")
		s.startPlayback()
		return
	}

	if s.state == StatePlaying && !s.watchdog.armed() {
		s.armWatchdog()
	}
}

// startPlayback moves to Playing and starts the head segment
func (s *Streamer) startPlayback() {
	s.setState(StatePlaying)
	s.restoreGain()
	s.lastPlayback = s.clock.Now()
	s.armWatchdog()
	s.playNext()
}

// playNext starts the head segment, or goes idle when there is none
func (s *Streamer) playNext() {
	s.cancelNext()

	seg, ok := s.queue.Dequeue()
	if !ok {
		s.goIdle()
		return
	}

	s.gen++
	gen := s.gen
	s.lastPlayback = s.clock.Now()
	s.releaseActive()

	voice, err := s.device.Play(seg, s.gain, func() { s.segmentEnded(gen) })
	if err != nil {
		s.stats.Failed++
		log.Error().Err(err).Dur("segment", seg.Duration()).Int("queued", s.queue.Len()).
			Msg("Failed to start segment")

		if s.queue.Len() > 0 {
			s.schedule(s.cfg.RetryDelay)
			return
		}
		s.goIdle()
		return
	}

	s.active = voice
	s.stats.Played++
}

// segmentEnded handles a natural end notification from the device
func (s *Streamer) segmentEnded(gen uint64) {
	s.mu.Lock()
	defer s.unlock()

	if gen != s.gen || s.state != StatePlaying {
		return
	}

	s.lastPlayback = s.clock.Now()

	if s.queue.Len() > 0 {
		s.schedule(0)
		return
	}

	s.goIdle()
	s.stats.Completions++
	s.pending.complete = true
	log.Debug().Msg("Playback drained")
}

// schedule runs playNext after d unless a newer segment starts first
func (s *Streamer) schedule(d time.Duration) {
	s.cancelNext()

	gen := s.gen
	s.nextSeq++
	seq := s.nextSeq

	s.next = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.unlock()

		if gen != s.gen || seq != s.nextSeq || s.state != StatePlaying {
			return
		}
		s.next = nil
		s.playNext()
	})
}

func (s *Streamer) cancelNext() {
	if s.next != nil {
		s.next.Stop()
		s.next = nil
	}
	s.nextSeq++
}

// goIdle leaves Playing after a drain or an unrecoverable start failure
func (s *Streamer) goIdle() {
	s.setState(StateIdle)
	s.queue.resetBuffered()
	s.watchdog.cancel()
	s.cancelNext()
	s.releaseActive()
}

// releaseActive disconnects the last started voice; failures are ignored
func (s *Streamer) releaseActive() {
	if s.active == nil {
		return
	}
	_ = s.active.Disconnect()
	s.active = nil
}

func (s *Streamer) setState(st State) {
	if s.state == st {
		return
	}
	log.Debug().Stringer("from", s.state).Stringer("to", st).Msg("Playback state change")
	s.state = st
	s.pending.states = append(s.pending.states, st)
}

// Stop halts playback immediately, clears the queue and fades the output
// to silence. It is safe to call in any state and never reports completion.
func (s *Streamer) Stop() {
	s.mu.Lock()
	defer s.unlock()

	if s.closed {
		return
	}

	s.setState(StateStopped)
	s.gen++
	s.watchdog.cancel()
	s.cancelNext()

	if s.active != nil {
		_ = s.active.Stop()
	}
	s.releaseActive()
	s.queue.Clear()

	s.fadeOut()
}

// Resume reactivates a suspended output device, restores full gain and
// continues draining any queued segments. It blocks while the device resumes.
func (s *Streamer) Resume(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}

	if s.device.Suspended() {
		if err := s.device.Resume(ctx); err != nil {
			return fmt.Errorf("failed to resume output: %w", err)
		}
	}

	s.mu.Lock()
	defer s.unlock()

	if s.closed {
		return ErrClosed
	}

	s.lastPlayback = s.clock.Now()
	s.restoreGain()

	if s.queue.Len() > 0 && s.state != StatePlaying {
		s.startPlayback()
	}
	return nil
}

// Complete signals that no more chunks are expected. With less than the
// complete threshold buffered it reports completion before returning;
// otherwise it does nothing.
func (s *Streamer) Complete() {
	s.mu.Lock()
	defer s.unlock()

	if s.closed {
		return
	}

	if s.queue.Buffered() >= s.cfg.CompleteThreshold {
		log.Debug().Dur("buffered", s.queue.Buffered()).Msg("Ignoring complete, audio still buffered")
		return
	}

	s.watchdog.cancel()
	s.stats.Completions++
	s.pending.complete = true
}

// State returns the playback state
func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffered returns the duration of queued, not yet started audio
func (s *Streamer) Buffered() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Buffered()
}

// Stats returns streamer statistics
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Queued = s.queue.Len()
	st.Buffered = s.queue.Buffered()
	st.State = s.state
	return st
}

// Close stops playback without a fade and releases the output device
func (s *Streamer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true

	s.gen++
	s.watchdog.cancel()
	s.cancelNext()
	s.cancelGainReset()
	if s.active != nil {
		_ = s.active.Stop()
	}
	s.releaseActive()
	s.queue.Clear()
	s.gain.Disconnect()

	if err := s.device.Close(); err != nil && !errors.Is(err, output.ErrClosed) {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}
