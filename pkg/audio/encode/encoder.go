// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for audio encoders feeding the wire
package encode

// Encoder encodes 16-bit samples to wire format
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}
