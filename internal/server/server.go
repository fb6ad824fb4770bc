// ABOUTME: PCM stream server
// ABOUTME: Accepts WebSocket players and streams each one its own audio source
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/source"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/discovery"
	"github.com/Resonate-Protocol/pcmstream/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAddr           = ":8927"
	DefaultChunkDuration  = 20 * time.Millisecond
	DefaultBufferDuration = 300 * time.Millisecond
	DefaultBufferTimeout  = 250 * time.Millisecond

	helloTimeout  = 5 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Config holds server configuration
type Config struct {
	Addr       string
	Path       string
	Name       string
	EnableMDNS bool
	UseTUI     bool

	// NewSource opens the audio streamed to one connection
	NewSource func() (source.Source, error)

	// ChunkDuration is how much audio is read from the source per tick
	ChunkDuration time.Duration

	// BufferDuration is the amount of audio that triggers an immediate send
	BufferDuration time.Duration

	// BufferTimeout is the longest buffered audio waits before it is sent
	BufferTimeout time.Duration
}

// Server streams PCM16 audio to connected players
type Server struct {
	config   Config
	serverID string

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux
	listener   net.Listener
	ready      chan struct{}

	sessions   map[string]*session
	sessionsMu sync.RWMutex

	mdnsManager *discovery.Manager

	tui       *ServerTUI
	startTime time.Time

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// SessionInfo describes a connected player
type SessionInfo struct {
	ID     string
	Name   string
	Source string
	State  string
	SentMs int64
}

// New creates a stream server
func New(config Config) (*Server, error) {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.Path == "" {
		config.Path = protocol.DefaultPath
	}
	if config.Name == "" {
		config.Name = "PCM Stream Server"
	}
	if config.NewSource == nil {
		return nil, fmt.Errorf("audio source is required")
	}
	if config.ChunkDuration <= 0 {
		config.ChunkDuration = DefaultChunkDuration
	}
	if config.BufferDuration <= 0 {
		config.BufferDuration = DefaultBufferDuration
	}
	if config.BufferTimeout <= 0 {
		config.BufferTimeout = DefaultBufferTimeout
	}

	mux := http.NewServeMux()

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      mux,
		ready:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network deployments accept all origins
				return true
			},
		},
		sessions: make(map[string]*session),
		stopChan: make(chan struct{}),
	}, nil
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	s.startTime = time.Now()

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	close(s.ready)

	log.Info().Str("name", s.config.Name).Str("id", s.serverID).Str("addr", listener.Addr().String()).
		Str("path", s.config.Path).Msg("Server starting")

	if s.config.UseTUI {
		s.tui = NewServerTUI()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Name, s.Addr()); err != nil {
				log.Error().Err(err).Msg("TUI error")
			}
		}()
	}

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.port(),
			Path:        s.config.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Warn().Err(err).Msg("Failed to start mDNS advertisement")
		}
	}

	s.mux.HandleFunc(s.config.Path, s.handleWebSocket)
	s.httpServer = &http.Server{Handler: s.mux}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var tuiQuit <-chan struct{}
	if s.tui != nil {
		tuiQuit = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Info().Msg("Server shutting down")
	case <-tuiQuit:
		log.Info().Msg("TUI quit requested, shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server error")
		return err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}
	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	// Hijacked websocket connections are not closed by Shutdown
	s.sessionsMu.RLock()
	for _, sess := range s.sessions {
		sess.close()
	}
	s.sessionsMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	s.wg.Wait()
	log.Info().Msg("Server stopped cleanly")

	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Ready is closed once the server is listening
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) port() int {
	_, portStr, err := net.SplitHostPort(s.Addr())
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

// Sessions returns information about all connected players
func (s *Server) Sessions() []SessionInfo {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	sessions := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess.info())
	}
	return sessions
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	log.Info().Str("remote", r.RemoteAddr).Msg("New WebSocket connection")
	s.handleConnection(conn)
}

// handleConnection runs one player connection to completion
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Info().Msg("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello, err := readHello(conn)
	if err != nil {
		log.Warn().Err(err).Msg("Handshake failed")
		return
	}
	if hello.SessionID == "" {
		hello.SessionID = uuid.New().String()
	}

	log.Info().Str("name", hello.Name).Str("session", hello.SessionID).Int("version", hello.Version).
		Msg("Player hello")

	src, err := s.config.NewSource()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open audio source")
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteJSON(errorMessage("audio source unavailable")); err != nil {
			log.Debug().Err(err).Msg("Failed to send source error")
		}
		return
	}

	maxBytes := audio.SamplesFor(s.config.BufferDuration, audio.SampleRate) * audio.BytesPerSample
	sess := newSession(hello, conn, src, newChunkBuffer(maxBytes, s.config.BufferTimeout, nil))

	s.sessionsMu.Lock()
	if _, exists := s.sessions[sess.id]; exists {
		s.sessionsMu.Unlock()
		log.Warn().Str("session", sess.id).Msg("Session already connected, rejecting duplicate")
		src.Close()
		return
	}
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()
	s.updateTUI()

	defer func() {
		sess.close()
		s.removeSession(sess)
		log.Info().Str("name", sess.name).Str("session", sess.id).Msg("Player disconnected")
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.writer()
	}()

	cfg, err := protocol.NewMessage(protocol.TypeConfig, protocol.ConfigData{
		SessionID: sess.id,
		Server:    s.config.Name,
		Format:    protocol.StreamAudioFormat,
		Source:    src.Title(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to build config message")
		return
	}
	sess.enqueue(cfg)
	sess.enqueue(protocol.Message{Type: protocol.TypeReady})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.stream(s.config.ChunkDuration, s.updateTUI)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
		s.handlePlayerMessage(sess, data)
	}
}

// readHello waits for the player's hello
func readHello(conn *websocket.Conn) (protocol.Hello, error) {
	var hello protocol.Hello

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("failed to read hello: %w", err)
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return hello, fmt.Errorf("failed to parse hello: %w", err)
	}
	if msg.Type != protocol.TypeHello {
		return hello, fmt.Errorf("expected hello, got %s", msg.Type)
	}
	if err := msg.Decode(&hello); err != nil {
		return hello, err
	}
	return hello, nil
}

// handlePlayerMessage reacts to messages after the hello
func (s *Server) handlePlayerMessage(sess *session, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Msg("Ignoring malformed player message")
		return
	}

	switch msg.Type {
	case protocol.TypeInterrupt:
		dropped := sess.interrupt()
		log.Info().Str("session", sess.id).Int("dropped_bytes", dropped).Msg("Player interrupted stream")
		s.updateTUI()
	default:
		log.Debug().Str("type", msg.Type).Str("session", sess.id).Msg("Unhandled player message")
	}
}

func (s *Server) removeSession(sess *session) {
	s.sessionsMu.Lock()
	if s.sessions[sess.id] == sess {
		delete(s.sessions, sess.id)
	}
	s.sessionsMu.Unlock()
	s.updateTUI()
}

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}

	s.tui.Update(ServerStatus{
		Name:     s.config.Name,
		Addr:     s.Addr(),
		Sessions: s.Sessions(),
	})
}
