// ABOUTME: Test doubles for the streamer
// ABOUTME: Manual clock and recording output device with controllable end notifications
package streamer

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
)

// fakeClock only moves when Advance is called. Due timers fire in order on
// the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	when  time.Time
	seq   int
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, when: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock forward by d, firing every timer that falls due
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if t.done || t.when.After(target) {
				continue
			}
			if due == nil || t.when.Before(due.when) || (t.when.Equal(due.when) && t.seq < due.seq) {
				due = t
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if due.when.After(c.now) {
			c.now = due.when
		}
		due.done = true
		c.mu.Unlock()

		due.f()
	}
}

// Flush fires timers due now, such as zero-delay continuations
func (c *fakeClock) Flush() {
	c.Advance(0)
}

// pending counts timers that have neither fired nor been stopped
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

type fakeVoice struct {
	seg          audio.Segment
	onEnd        func()
	stopped      bool
	disconnected bool
}

func (v *fakeVoice) Stop() error {
	if v.stopped {
		return output.ErrClosed
	}
	v.stopped = true
	return nil
}

func (v *fakeVoice) Disconnect() error {
	if v.disconnected {
		return output.ErrClosed
	}
	v.disconnected = true
	return nil
}

var errRejected = errors.New("device rejected segment")

// fakeDevice records every segment it is asked to play
type fakeDevice struct {
	mu        sync.Mutex
	clock     *fakeClock
	voices    []*fakeVoice
	gains     []*output.LinearGain
	failNext  int
	suspended bool
	resumes   int
	resumeErr error
	closed    bool
}

func newFakeDevice(clock *fakeClock) *fakeDevice {
	return &fakeDevice{clock: clock}
}

func (d *fakeDevice) Play(seg audio.Segment, gain output.Gain, onEnd func()) (output.Voice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failNext > 0 {
		d.failNext--
		return nil, errRejected
	}
	v := &fakeVoice{seg: seg, onEnd: onEnd}
	d.voices = append(d.voices, v)
	return v, nil
}

func (d *fakeDevice) NewGain() output.Gain {
	d.mu.Lock()
	defer d.mu.Unlock()

	g := output.NewLinearGain(d.clock.Now)
	d.gains = append(d.gains, g)
	return g
}

func (d *fakeDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

func (d *fakeDevice) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resumes++
	if d.resumeErr != nil {
		return d.resumeErr
	}
	d.suspended = false
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return output.ErrClosed
	}
	d.closed = true
	return nil
}

// end fires the natural end notification of the i-th started voice
func (d *fakeDevice) end(t *testing.T, i int) {
	t.Helper()

	d.mu.Lock()
	if i >= len(d.voices) {
		d.mu.Unlock()
		t.Fatalf("voice %d never started (%d started)", i, len(d.voices))
	}
	v := d.voices[i]
	d.mu.Unlock()

	v.onEnd()
}

func (d *fakeDevice) played() []int {
	d.mu.Lock()
	defer d.mu.Unlock()

	markers := make([]int, len(d.voices))
	for i, v := range d.voices {
		markers[i] = markerOf(v.seg)
	}
	return markers
}

func (d *fakeDevice) voice(i int) *fakeVoice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voices[i]
}

func (d *fakeDevice) gain(i int) *output.LinearGain {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gains[i]
}

func (d *fakeDevice) gainCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.gains)
}

// chunk builds d worth of PCM16 whose first sample carries marker
func chunk(d time.Duration, marker int) []byte {
	n := audio.SamplesFor(d, audio.SampleRate)
	buf := make([]byte, n*audio.BytesPerSample)
	if n > 0 {
		binary.LittleEndian.PutUint16(buf, uint16(int16(marker)))
	}
	return buf
}

func markerOf(seg audio.Segment) int {
	if seg.Len() == 0 {
		return -1
	}
	return int(math.Round(float64(seg.Samples()[0]) * 32768))
}

type harness struct {
	clock       *fakeClock
	device      *fakeDevice
	streamer    *Streamer
	completions int
	states      []State
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{clock: newFakeClock()}
	h.device = newFakeDevice(h.clock)

	cfg.Clock = h.clock
	cfg.OnComplete = func() { h.completions++ }
	cfg.OnStateChange = func(st State) { h.states = append(h.states, st) }
	h.streamer = New(h.device, cfg)

	return h
}

// add enqueues n 100ms chunks with markers first, first+1, ...
func (h *harness) add(n, first int) {
	for i := 0; i < n; i++ {
		h.streamer.AddPCM16(chunk(100*time.Millisecond, first+i))
	}
}

// drain ends every started voice in turn until playback goes idle
func (h *harness) drain(t *testing.T) {
	t.Helper()

	for i := 0; h.streamer.State() == StatePlaying; i++ {
		if i > 1000 {
			t.Fatal("playback never drained")
		}
		h.device.end(t, len(h.device.played())-1)
		h.clock.Flush()
	}
}
