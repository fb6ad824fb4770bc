// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for converting wire bytes to normalized samples
package decode

// Decoder decodes wire audio to normalized float32 samples
type Decoder interface {
	// Decode converts encoded audio data to samples in [-1.0, 1.0)
	Decode(data []byte) ([]float32, error)

	// Close releases decoder resources
	Close() error
}
