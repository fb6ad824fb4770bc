// ABOUTME: Streaming linear resampler for mono PCM16
// ABOUTME: Converts MP3 sources to the stream sample rate chunk by chunk
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int

	// input samples advanced per output sample
	step float64

	// position of the next output sample, in input samples after prev
	pos    float64
	prev   int16
	primed bool
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		step:       float64(inputRate) / float64(outputRate),
	}
}

// Step returns the number of input samples consumed per output sample
func (r *Resampler) Step() float64 {
	return r.step
}

// Resample appends the output for input to dst and returns the extended
// slice. Output lags input by one sample; the lag carries across calls.
func (r *Resampler) Resample(dst []int16, input []int16) []int16 {
	for _, s := range input {
		if !r.primed {
			r.prev = s
			r.primed = true
			continue
		}

		for r.pos < 1 {
			v := float64(r.prev) + (float64(s)-float64(r.prev))*r.pos
			dst = append(dst, int16(v))
			r.pos += r.step
		}
		r.pos--
		r.prev = s
	}
	return dst
}

// Reset forgets the stream position
func (r *Resampler) Reset() {
	r.pos = 0
	r.prev = 0
	r.primed = false
}

// OutputSamplesNeeded estimates how many output samples input samples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	return int(float64(inputSamples) / r.step)
}

// InputSamplesNeeded estimates how many input samples produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	return int(float64(outputSamples)*r.step) + 1
}
