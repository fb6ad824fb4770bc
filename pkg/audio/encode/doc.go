// ABOUTME: Audio encoder package for producing wire-format PCM
// ABOUTME: Provides the Encoder interface and the PCM16 implementation
// Package encode provides audio encoders for stream sources.
//
// Supports: PCM (signed 16-bit little-endian)
//
// Example:
//
//	encoder, err := encode.NewPCM(audio.StreamFormat)
//	data, err := encoder.Encode(samples)
package encode
