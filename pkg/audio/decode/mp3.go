// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 streams to 16-bit mono samples at the stream rate
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/resample"
	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog/log"
)

// mp3FrameBytes is one stereo 16-bit frame as produced by go-mp3
const mp3FrameBytes = 4

// MP3Reader decodes an MP3 stream to mono int16 samples at the stream
// sample rate. go-mp3 always emits interleaved stereo; the two channels are
// averaged. Other rates are resampled.
type MP3Reader struct {
	decoder   *mp3.Decoder
	buf       []byte
	resampler *resample.Resampler
	raw       []int16
	pending   []int16
}

// NewMP3Reader creates a reader over an MP3 stream
func NewMP3Reader(r io.Reader) (*MP3Reader, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	m := &MP3Reader{decoder: decoder}
	if rate := decoder.SampleRate(); rate != audio.SampleRate {
		log.Info().Int("from", rate).Int("to", audio.SampleRate).Msg("Resampling MP3 stream")
		m.resampler = resample.New(rate, audio.SampleRate)
	}

	return m, nil
}

// SourceRate returns the sample rate encoded in the stream
func (m *MP3Reader) SourceRate() int {
	return m.decoder.SampleRate()
}

// Read fills samples with mono PCM at the stream rate, returning io.EOF at
// the end of the stream
func (m *MP3Reader) Read(samples []int16) (int, error) {
	if m.resampler == nil {
		return m.readMono(samples)
	}

	for len(m.pending) < len(samples) {
		need := m.resampler.InputSamplesNeeded(len(samples) - len(m.pending))
		if cap(m.raw) < need {
			m.raw = make([]int16, need)
		}

		n, err := m.readMono(m.raw[:need])
		m.pending = m.resampler.Resample(m.pending, m.raw[:n])

		if err == io.EOF {
			if len(m.pending) == 0 {
				return 0, io.EOF
			}
			break
		}
		if err != nil {
			return 0, err
		}
	}

	n := copy(samples, m.pending)
	m.pending = m.pending[:copy(m.pending, m.pending[n:])]
	return n, nil
}

// readMono decodes frames straight from the stream
func (m *MP3Reader) readMono(samples []int16) (int, error) {
	need := len(samples) * mp3FrameBytes
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	buf := m.buf[:need]

	n, err := io.ReadFull(m.decoder, buf)
	frames := n / mp3FrameBytes
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(buf[i*mp3FrameBytes:]))
		right := int16(binary.LittleEndian.Uint16(buf[i*mp3FrameBytes+2:]))
		samples[i] = int16((int32(left) + int32(right)) / 2)
	}

	switch {
	case err == io.ErrUnexpectedEOF:
		return frames, nil
	case err == io.EOF:
		return frames, io.EOF
	case err != nil:
		return frames, fmt.Errorf("mp3 decode error: %w", err)
	}
	return frames, nil
}
