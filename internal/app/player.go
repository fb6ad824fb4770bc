// ABOUTME: Main player application orchestration
// ABOUTME: Connects to a stream server and feeds its audio to the streamer
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/pcmstream/internal/metrics"
	"github.com/Resonate-Protocol/pcmstream/internal/ui"
	"github.com/Resonate-Protocol/pcmstream/internal/version"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/discovery"
	"github.com/Resonate-Protocol/pcmstream/pkg/protocol"
	"github.com/Resonate-Protocol/pcmstream/pkg/streamer"
)

const (
	statusInterval = 250 * time.Millisecond
	resumeTimeout  = 2 * time.Second
)

// ErrDisconnected is returned by Run when the server closes the connection
var ErrDisconnected = errors.New("server disconnected")

// Device is an output device that must be opened before use and can be
// suspended from the TUI
type Device interface {
	output.Device
	Open(sampleRate int) error
	Suspend() error
}

// Config holds player configuration
type Config struct {
	// ServerAddr is host:port; empty means discover via mDNS
	ServerAddr       string
	Path             string
	Name             string
	DiscoveryTimeout time.Duration
	UseTUI           bool

	// MetricsAddr serves Prometheus metrics when set
	MetricsAddr string

	Streamer streamer.Config

	// Device defaults to the oto output
	Device Device
}

// Player represents the main player application
type Player struct {
	config   Config
	device   Device
	streamer *streamer.Streamer
	controls *ui.Controls

	mu      sync.Mutex
	client  *protocol.Client
	server  string
	tuiProg *tea.Program
}

// New creates a new player
func New(config Config) *Player {
	if config.Name == "" {
		config.Name = version.Product
	}
	if config.Device == nil {
		config.Device = output.NewOto()
	}

	p := &Player{
		config:   config,
		device:   config.Device,
		controls: ui.NewControls(),
	}

	cfg := config.Streamer
	userOnComplete := cfg.OnComplete
	cfg.OnComplete = func() {
		log.Info().Msg("Response playback complete")
		if userOnComplete != nil {
			userOnComplete()
		}
	}
	userOnState := cfg.OnStateChange
	cfg.OnStateChange = func(st streamer.State) {
		log.Debug().Stringer("state", st).Msg("Playback state changed")
		if userOnState != nil {
			userOnState(st)
		}
	}
	p.streamer = streamer.New(p.device, cfg)

	return p
}

// Stats returns the streamer statistics
func (p *Player) Stats() streamer.Stats {
	return p.streamer.Stats()
}

// Run opens the output, connects and plays until ctx is cancelled, the user
// quits or the server disconnects
func (p *Player) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := p.device.Open(audio.SampleRate); err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer func() {
		if err := p.streamer.Close(); err != nil {
			log.Warn().Err(err).Msg("Streamer close error")
		}
	}()

	if p.config.MetricsAddr != "" {
		m := metrics.New(p.streamer)
		go func() {
			if err := m.Serve(ctx, p.config.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	addr, err := p.resolveServer(ctx)
	if err != nil {
		return err
	}

	client := protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		Path:       p.config.Path,
		Name:       p.config.Name,
		UserAgent:  version.UserAgent(),
	})
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer client.Close()

	p.mu.Lock()
	p.client = client
	p.server = addr
	p.mu.Unlock()

	log.Info().Str("server", addr).Str("session", client.SessionID()).Msg("Connected to server")

	if p.config.UseTUI {
		p.startTUI()
		defer p.stopTUI()
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-client.Events:
			if !ok {
				return ErrDisconnected
			}
			handleEvent(ctx, p.streamer, ev)
			if ev.Type == protocol.TypeText && ev.Text != "" {
				p.sendStatus(ui.StatusMsg{Text: ev.Text})
			}

		case cmd := <-p.controls.Commands:
			if p.handleCommand(ctx, client, cmd) {
				return nil
			}

		case <-ticker.C:
			p.sendStatus(p.status())

		case <-ctx.Done():
			return nil
		}
	}
}

// resolveServer returns the configured address or the first discovered one
func (p *Player) resolveServer(ctx context.Context) (string, error) {
	if p.config.ServerAddr != "" {
		return p.config.ServerAddr, nil
	}

	log.Info().Dur("timeout", p.config.DiscoveryTimeout).Msg("Discovering stream servers")

	server, err := discovery.Discover(ctx, p.config.DiscoveryTimeout)
	if err != nil {
		return "", fmt.Errorf("server discovery failed: %w", err)
	}
	if p.config.Path == "" {
		p.config.Path = server.Path
	}

	log.Info().Str("name", server.Name).Str("addr", server.Addr()).Msg("Discovered server")
	return server.Addr(), nil
}

// handleCommand applies a TUI command and reports whether to quit
func (p *Player) handleCommand(ctx context.Context, client *protocol.Client, cmd ui.Command) bool {
	log.Debug().Stringer("command", cmd).Msg("User command")

	switch cmd {
	case ui.CommandStop:
		p.streamer.Stop()
	case ui.CommandPause:
		if err := p.device.Suspend(); err != nil {
			log.Warn().Err(err).Msg("Failed to suspend output")
		}
	case ui.CommandResume:
		resume(ctx, p.streamer)
	case ui.CommandInterrupt:
		p.streamer.Stop()
		if err := client.SendInterrupt(); err != nil {
			log.Warn().Err(err).Msg("Failed to send interrupt")
		}
	case ui.CommandQuit:
		return true
	}
	return false
}

func (p *Player) status() ui.StatusMsg {
	stats := p.streamer.Stats()

	p.mu.Lock()
	connected := p.client != nil && p.client.IsConnected()
	msg := ui.StatusMsg{
		Connected:  &connected,
		ServerName: p.server,
	}
	if p.client != nil {
		msg.SessionID = p.client.SessionID()
	}
	p.mu.Unlock()

	msg.Stats = &ui.PlaybackStats{
		State:       stats.State.String(),
		Buffered:    stats.Buffered,
		Queued:      stats.Queued,
		Received:    stats.Received,
		Played:      stats.Played,
		Failed:      stats.Failed,
		Stalls:      stats.Stalls,
		Completions: stats.Completions,
	}
	return msg
}

func (p *Player) startTUI() {
	prog := ui.Run(p.controls)

	p.mu.Lock()
	p.tuiProg = prog
	p.mu.Unlock()

	go func() {
		if _, err := prog.Run(); err != nil {
			log.Error().Err(err).Msg("TUI error")
		}
	}()
}

func (p *Player) stopTUI() {
	p.mu.Lock()
	prog := p.tuiProg
	p.tuiProg = nil
	p.mu.Unlock()

	if prog != nil {
		prog.Quit()
	}
}

func (p *Player) sendStatus(msg ui.StatusMsg) {
	p.mu.Lock()
	prog := p.tuiProg
	p.mu.Unlock()

	if prog != nil {
		prog.Send(msg)
	}
}
