// ABOUTME: PCM audio decoder
// ABOUTME: Decodes signed 16-bit little-endian PCM to normalized float32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/rs/zerolog/log"
)

// PCMDecoder decodes 16-bit PCM audio
type PCMDecoder struct{}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	return &PCMDecoder{}, nil
}

// Decode converts PCM bytes to samples. The result always holds len(data)/2
// samples; a sample that cannot be read is logged and left at zero.
func (d *PCMDecoder) Decode(data []byte) ([]float32, error) {
	samples := make([]float32, len(data)/audio.BytesPerSample)
	decodeInto(samples, data)

	if rem := len(data) % audio.BytesPerSample; rem != 0 {
		log.Debug().Int("bytes", len(data)).Int("dropped", rem).Msg("Dropping trailing partial PCM sample")
	}

	return samples, nil
}

// decodeInto fills samples from data and returns how many were skipped.
// Decode sizes samples from data, so skips only happen with a short buffer.
func decodeInto(samples []float32, data []byte) int {
	skipped := 0
	for i := range samples {
		sample, err := readSample(data, i)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping malformed PCM sample")
			samples[i] = 0
			skipped++
			continue
		}
		samples[i] = audio.SampleFromInt16(sample)
	}
	return skipped
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}

// readSample reads the i-th little-endian int16 from data
func readSample(data []byte, i int) (int16, error) {
	off := i * audio.BytesPerSample
	if off < 0 || off+audio.BytesPerSample > len(data) {
		return 0, fmt.Errorf("sample %d out of range (%d bytes)", i, len(data))
	}
	return int16(binary.LittleEndian.Uint16(data[off:])), nil
}
