// ABOUTME: Per-player stream session
// ABOUTME: Reads the source in real time, buffers it and writes ordered messages
package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/source"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/encode"
	"github.com/Resonate-Protocol/pcmstream/pkg/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Session states shown in Sessions and the TUI
const (
	stateStreaming   = "streaming"
	stateComplete    = "complete"
	stateInterrupted = "interrupted"
	stateFailed      = "failed"
)

type session struct {
	id   string
	name string
	conn *websocket.Conn
	src  source.Source

	buffer *chunkBuffer
	send   chan protocol.Message

	ctx    context.Context
	cancel context.CancelFunc

	streamCtx    context.Context
	streamCancel context.CancelFunc
	streamDone   chan struct{}

	mu        sync.RWMutex
	state     string
	sentBytes int64

	closeOnce sync.Once
}

func newSession(hello protocol.Hello, conn *websocket.Conn, src source.Source, buffer *chunkBuffer) *session {
	ctx, cancel := context.WithCancel(context.Background())
	streamCtx, streamCancel := context.WithCancel(ctx)

	return &session{
		id:           hello.SessionID,
		name:         hello.Name,
		conn:         conn,
		src:          src,
		buffer:       buffer,
		send:         make(chan protocol.Message, 100),
		ctx:          ctx,
		cancel:       cancel,
		streamCtx:    streamCtx,
		streamCancel: streamCancel,
		streamDone:   make(chan struct{}),
		state:        stateStreaming,
	}
}

func (c *session) info() SessionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return SessionInfo{
		ID:     c.id,
		Name:   c.name,
		Source: c.src.Title(),
		State:  c.state,
		SentMs: audio.DurationOf(int(c.sentBytes/audio.BytesPerSample), audio.SampleRate).Milliseconds(),
	}
}

func (c *session) setState(state string) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// enqueue hands a message to the writer
func (c *session) enqueue(msg protocol.Message) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	}
}

func (c *session) sendAudio(pcm []byte) {
	c.mu.Lock()
	c.sentBytes += int64(len(pcm))
	c.mu.Unlock()

	c.enqueue(protocol.NewAudioMessage(pcm))
}

// sendControl flushes buffered audio before any non-audio message
func (c *session) sendControl(msg protocol.Message) {
	if pcm := c.buffer.Flush(true); pcm != nil {
		c.sendAudio(pcm)
	}
	c.enqueue(msg)
}

// writer owns all writes to the connection
func (c *session) writer() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("session", c.id).Msg("Write failed")
				c.close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				c.close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// stream reads the source at real-time pace until it ends, fails or is
// interrupted. notify is called whenever the session state changes.
func (c *session) stream(chunk time.Duration, notify func()) {
	defer close(c.streamDone)
	defer c.src.Close()

	ticker := time.NewTicker(chunk)
	defer ticker.Stop()

	flush := time.NewTimer(c.buffer.untilDue())
	defer flush.Stop()

	samples := make([]int16, audio.SamplesFor(chunk, audio.SampleRate))

	encoder, err := encode.NewPCM(audio.StreamFormat)
	if err != nil {
		c.fail(err, notify)
		return
	}
	defer encoder.Close()

	for {
		select {
		case <-c.streamCtx.Done():
			return

		case <-flush.C:
			if pcm := c.buffer.Flush(false); pcm != nil {
				c.sendAudio(pcm)
			}
			flush.Reset(c.buffer.untilDue())

		case <-ticker.C:
			n, err := c.src.Read(samples)
			if n > 0 {
				data, encErr := encoder.Encode(samples[:n])
				if encErr != nil {
					c.fail(encErr, notify)
					return
				}
				if pcm := c.buffer.Add(data); pcm != nil {
					c.sendAudio(pcm)
				}
			}

			switch {
			case errors.Is(err, io.EOF):
				c.setState(stateComplete)
				c.sendControl(protocol.Message{Type: protocol.TypeTurnComplete})
				log.Info().Str("session", c.id).Msg("Stream complete")
				notify()
				return

			case err != nil:
				c.fail(err, notify)
				return
			}
		}
	}
}

// fail reports a streaming error to the player and ends the response
func (c *session) fail(err error, notify func()) {
	log.Error().Err(err).Str("session", c.id).Msg("Error streaming audio source")
	c.setState(stateFailed)
	c.sendControl(errorMessage(err.Error()))
	notify()
}

// errorMessage builds an error message for the player. If the payload
// cannot be encoded the bare type is sent.
func errorMessage(text string) protocol.Message {
	msg, err := protocol.NewMessage(protocol.TypeError, protocol.ErrorData{Message: text})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode error message")
		return protocol.Message{Type: protocol.TypeError}
	}
	return msg
}

// interrupt stops streaming, drops unsent audio and confirms to the player.
// It returns the number of buffered bytes dropped.
func (c *session) interrupt() int {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()
	if state != stateStreaming {
		return 0
	}

	c.streamCancel()
	<-c.streamDone

	dropped := c.buffer.Clear()
	c.setState(stateInterrupted)
	c.enqueue(protocol.Message{Type: protocol.TypeInterrupted})
	return dropped
}

func (c *session) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}
