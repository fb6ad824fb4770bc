// ABOUTME: Audio decoder package for the PCM16 stream and its sources
// ABOUTME: Provides the Decoder interface, the PCM16 decoder and an MP3 reader
// Package decode provides audio decoders.
//
// The PCM decoder turns signed 16-bit little-endian bytes into float32
// samples normalized by 32768. A malformed sample never aborts a chunk: it is
// logged and left as silence.
//
// MP3Reader decodes MP3 files into 16-bit mono PCM for stream sources.
//
// Example:
//
//	decoder, err := decode.NewPCM(audio.StreamFormat)
//	samples, err := decoder.Decode(chunk)
package decode
