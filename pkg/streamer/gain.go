// ABOUTME: Output gain control for the streamer
// ABOUTME: Fades to silence on stop and rebuilds the gain stage afterwards
package streamer

import "github.com/rs/zerolog/log"

// fadeOut ramps the gain to zero and schedules a fresh gain stage
func (s *Streamer) fadeOut() {
	s.gain.RampTo(0, s.cfg.FadeOut)

	s.cancelGainReset()
	tok := s.gainGen
	s.gainReset = s.clock.AfterFunc(s.cfg.GainResetDelay, func() {
		s.mu.Lock()
		defer s.unlock()

		if tok != s.gainGen || s.closed {
			return
		}
		s.gainReset = nil
		s.rebuildGain()
	})
}

// restoreGain brings the output back to unity. A pending reset is done now
// so the stage cannot be swapped out under a playing segment.
func (s *Streamer) restoreGain() {
	if s.gainReset != nil {
		s.cancelGainReset()
		s.rebuildGain()
	}
	s.gain.SetValue(1)
}

func (s *Streamer) rebuildGain() {
	s.gain.Disconnect()
	s.gain = s.device.NewGain()
	log.Debug().Msg("Output gain stage rebuilt")
}

func (s *Streamer) cancelGainReset() {
	if s.gainReset != nil {
		s.gainReset.Stop()
		s.gainReset = nil
	}
	s.gainGen++
}
