// ABOUTME: Audio sources for the stream server
// ABOUTME: Opens a test tone, a local MP3 file or an HTTP MP3 stream
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Source produces 24 kHz mono PCM16 samples
type Source interface {
	// Read fills samples and returns how many were written. It returns
	// io.EOF once the source is exhausted.
	Read(samples []int16) (int, error)

	// Title describes the source for logs and the stream config message
	Title() string

	// Close releases the source
	Close() error
}

// New opens pathOrURL. An empty path yields a test tone lasting
// toneDuration, or forever when toneDuration is zero.
func New(pathOrURL string, toneDuration time.Duration) (Source, error) {
	if pathOrURL == "" {
		return NewTone(DefaultToneFrequency, toneDuration), nil
	}

	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return OpenURL(pathOrURL)
	}

	if _, err := os.Stat(pathOrURL); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", pathOrURL)
	}

	ext := strings.ToLower(filepath.Ext(pathOrURL))
	switch ext {
	case ".mp3":
		return OpenFile(pathOrURL)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3)", ext)
	}
}
