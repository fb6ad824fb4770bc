// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the stream Format, the Segment type and sample conversion functions
// Package audio provides the fundamental types of the PCM16 streaming pipeline.
//
// Every stream is signed 16-bit little-endian mono PCM at 24000 Hz:
//   - Format: describes the stream (codec, sample rate, channels, bit depth)
//   - Segment: an immutable decoded unit with a known playable duration
//
// Samples are normalized by dividing by 32768, so the decoded range is
// [-1.0, 0.999969...].
//
// Example:
//
//	seg := audio.NewSegment(samples, audio.SampleRate)
//	fmt.Println(seg.Duration())
package audio
