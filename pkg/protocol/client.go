// ABOUTME: WebSocket client for the PCM stream protocol
// ABOUTME: Handles connection, hello, and in-order event delivery
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeDeadline = 10 * time.Second

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string
	Name       string
	SessionID  string

	// UserAgent is sent as the User-Agent header when set
	UserAgent string
}

// Event is one decoded message from the server. Audio is set for audio
// messages and binary frames, Text for text and error messages.
type Event struct {
	Type    string
	Audio   []byte
	Text    string
	Message Message
}

// Client represents a WebSocket client
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	wmu    sync.Mutex

	// Events delivers server messages in arrival order. It is closed when
	// the connection ends.
	Events chan Event

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.SessionID == "" {
		config.SessionID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		Events: make(chan Event, 100),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SessionID returns the id announced in hello
func (c *Client) SessionID() string {
	return c.config.SessionID
}

// Connect dials the server, sends hello and starts reading
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Info().Str("url", u.String()).Msg("Connecting")

	var header http.Header
	if c.config.UserAgent != "" {
		header = http.Header{"User-Agent": []string{c.config.UserAgent}}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	hello, err := NewMessage(TypeHello, Hello{
		SessionID: c.config.SessionID,
		Name:      c.config.Name,
		Version:   ProtocolVersion,
	})
	if err != nil {
		c.Close()
		return err
	}
	if err := c.Send(hello); err != nil {
		c.Close()
		return fmt.Errorf("failed to send hello: %w", err)
	}

	go c.readMessages()

	return nil
}

// Send writes one message as a JSON text frame
func (c *Client) Send(msg Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteJSON(msg)
}

// SendInterrupt asks the server to drop the current response
func (c *Client) SendInterrupt() error {
	return c.Send(Message{Type: TypeInterrupt})
}

// readMessages reads frames and forwards them as events
func (c *Client) readMessages() {
	defer close(c.Events)
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Warn().Err(err).Msg("Read error")
			}
			return
		}

		var ev Event
		var ok bool
		switch messageType {
		case websocket.BinaryMessage:
			ev, ok = Event{Type: TypeAudio, Audio: data}, true
		case websocket.TextMessage:
			ev, ok = c.parseMessage(data)
		default:
			log.Debug().Int("type", messageType).Msg("Unknown WebSocket message type")
		}
		if !ok {
			continue
		}

		select {
		case c.Events <- ev:
		case <-c.ctx.Done():
			return
		}
	}
}

// parseMessage turns a JSON frame into an event
func (c *Client) parseMessage(data []byte) (Event, bool) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Msg("Failed to parse JSON message")
		return Event{}, false
	}

	ev := Event{Type: msg.Type, Message: msg}

	switch msg.Type {
	case TypeAudio:
		pcm, err := msg.Audio()
		if err != nil {
			log.Warn().Err(err).Msg("Dropping malformed audio message")
			return Event{}, false
		}
		ev.Audio = pcm

	case TypeText:
		text, err := msg.Text()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to parse text message")
			return Event{}, false
		}
		ev.Text = text

	case TypeError:
		var e ErrorData
		if err := msg.Decode(&e); err != nil {
			// some servers send the error as a bare string
			text, terr := msg.Text()
			if terr != nil {
				log.Warn().Err(err).Msg("Failed to parse error message")
				return Event{}, false
			}
			e.Message = text
		}
		ev.Text = e.Message
	}

	return ev, true
}

// Done is closed when the client shuts down
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Info().Msg("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
