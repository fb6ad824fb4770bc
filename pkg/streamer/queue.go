// ABOUTME: FIFO playback queue
// ABOUTME: Holds pending segments and the running total of buffered duration
package streamer

import (
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

// Queue is an insertion-ordered list of pending segments. It is not safe for
// concurrent use; the Streamer serializes access.
type Queue struct {
	pending  []audio.Segment
	buffered time.Duration
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends seg to the tail
func (q *Queue) Enqueue(seg audio.Segment) {
	q.pending = append(q.pending, seg)
	q.buffered += seg.Duration()
}

// Dequeue removes and returns the head. ok is false when the queue is empty.
func (q *Queue) Dequeue() (seg audio.Segment, ok bool) {
	if len(q.pending) == 0 {
		return audio.Segment{}, false
	}

	seg = q.pending[0]
	q.pending[0] = audio.Segment{}
	q.pending = q.pending[1:]

	q.buffered -= seg.Duration()
	if q.buffered < 0 || len(q.pending) == 0 {
		q.buffered = q.sum()
	}
	return seg, true
}

// Clear drops every pending segment
func (q *Queue) Clear() {
	q.pending = nil
	q.buffered = 0
}

// Len returns the number of pending segments
func (q *Queue) Len() int {
	return len(q.pending)
}

// Buffered returns the total duration of pending segments
func (q *Queue) Buffered() time.Duration {
	return q.buffered
}

// resetBuffered zeroes the running total after a drain
func (q *Queue) resetBuffered() {
	q.buffered = 0
}

func (q *Queue) sum() time.Duration {
	var total time.Duration
	for _, seg := range q.pending {
		total += seg.Duration()
	}
	return total
}
