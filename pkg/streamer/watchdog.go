// ABOUTME: Stall watchdog for the streamer
// ABOUTME: Periodically restarts playback when segment ends stop arriving
package streamer

import (
	"time"

	"github.com/rs/zerolog/log"
)

// watchdog is a single repeating check, cancelable as a unit
type watchdog struct {
	clock    Clock
	interval time.Duration
	timer    Timer
	token    uint64
}

// arm replaces any pending check with one that calls fire after interval
func (w *watchdog) arm(fire func(token uint64)) {
	w.cancel()
	tok := w.token
	w.timer = w.clock.AfterFunc(w.interval, func() { fire(tok) })
}

// claim reports whether tok belongs to the pending check and consumes it
func (w *watchdog) claim(tok uint64) bool {
	if w.timer == nil || tok != w.token {
		return false
	}
	w.timer = nil
	return true
}

func (w *watchdog) armed() bool {
	return w.timer != nil
}

func (w *watchdog) cancel() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.token++
}

func (s *Streamer) armWatchdog() {
	s.watchdog.arm(s.watchdogTick)
}

// watchdogTick restarts a stalled drain and re-arms while playing
func (s *Streamer) watchdogTick(tok uint64) {
	s.mu.Lock()
	defer s.unlock()

	if !s.watchdog.claim(tok) {
		return
	}

	if s.state == StatePlaying && s.queue.Len() > 0 && s.stalled() {
		s.stats.Stalls++
		log.Warn().Dur("since", s.clock.Now().Sub(s.lastPlayback)).Int("queued", s.queue.Len()).
			Msg("Playback appears to have stalled, restarting")
		s.playNext()
	}

	if s.state == StatePlaying {
		s.armWatchdog()
	}
}

// stalled reports whether no segment has started or ended for longer than
// the stall timeout
func (s *Streamer) stalled() bool {
	return s.clock.Now().Sub(s.lastPlayback) > s.cfg.StallTimeout
}
