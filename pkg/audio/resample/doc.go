// Package resample converts mono PCM16 audio between sample rates.
//
// Uses linear interpolation and keeps its position across calls, so a
// stream can be converted chunk by chunk without seams.
//
// Example:
//
//	r := resample.New(44100, audio.SampleRate)
//	out = r.Resample(out[:0], chunk)
package resample
