// ABOUTME: Server-side audio chunk buffer
// ABOUTME: Coalesces small PCM reads into larger audio messages by size or age
package server

import (
	"sync"
	"time"
)

// minCheckInterval bounds how often the flush timer fires
const minCheckInterval = 10 * time.Millisecond

// chunkBuffer accumulates PCM bytes and releases them once enough audio is
// buffered or the oldest unsent byte has waited long enough
type chunkBuffer struct {
	mu       sync.Mutex
	data     []byte
	maxBytes int
	timeout  time.Duration
	lastSend time.Time
	now      func() time.Time
}

func newChunkBuffer(maxBytes int, timeout time.Duration, now func() time.Time) *chunkBuffer {
	if now == nil {
		now = time.Now
	}
	return &chunkBuffer{
		maxBytes: maxBytes,
		timeout:  timeout,
		lastSend: now(),
		now:      now,
	}
}

// Add appends pcm and returns a payload if the buffer is now due
func (b *chunkBuffer) Add(pcm []byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, pcm...)
	return b.flushLocked(false)
}

// Flush returns the buffered bytes if they are due, or unconditionally
// when force is set. It returns nil when there is nothing to send.
func (b *chunkBuffer) Flush(force bool) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(force)
}

func (b *chunkBuffer) flushLocked(force bool) []byte {
	if len(b.data) == 0 {
		return nil
	}

	now := b.now()
	due := len(b.data) >= b.maxBytes || now.Sub(b.lastSend) >= b.timeout || force
	if !due {
		return nil
	}

	out := b.data
	b.data = nil
	b.lastSend = now
	return out
}

// Clear drops buffered audio and returns how many bytes were dropped
func (b *chunkBuffer) Clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.data)
	b.data = nil
	return n
}

// Len returns the number of buffered bytes
func (b *chunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// untilDue returns how long until the age limit next expires
func (b *chunkBuffer) untilDue() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	wait := b.timeout - b.now().Sub(b.lastSend)
	if wait < minCheckInterval {
		return minCheckInterval
	}
	return wait
}
