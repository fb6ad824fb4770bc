// ABOUTME: MP3 sources for the stream server
// ABOUTME: Streams MP3 from a local file or an HTTP URL
package source

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio/decode"
	"github.com/rs/zerolog/log"
)

// MP3 decodes an MP3 stream to mono PCM16
type MP3 struct {
	body   io.ReadCloser
	reader *decode.MP3Reader
	title  string
}

// OpenFile opens a local MP3 file
func OpenFile(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	src, err := newMP3(f, filepath.Base(path))
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Info().Str("file", path).Msg("Streaming MP3 file")
	return src, nil
}

// OpenURL streams MP3 over HTTP
func OpenURL(url string) (*MP3, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	src, err := newMP3(resp.Body, url)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	log.Info().Str("url", url).Msg("Streaming MP3 from HTTP")
	return src, nil
}

func newMP3(body io.ReadCloser, title string) (*MP3, error) {
	reader, err := decode.NewMP3Reader(body)
	if err != nil {
		return nil, err
	}
	return &MP3{body: body, reader: reader, title: title}, nil
}

func (s *MP3) Read(samples []int16) (int, error) {
	return s.reader.Read(samples)
}

func (s *MP3) Title() string { return s.title }

func (s *MP3) Close() error {
	return s.body.Close()
}
