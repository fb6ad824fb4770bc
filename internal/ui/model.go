// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Shows connection, playback state and stream statistics
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	playingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	stoppedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// bufferBarSpan is the buffered duration shown as a full bar
const bufferBarSpan = 3 * time.Second

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string
	sessionID  string

	// Playback
	state    string
	buffered time.Duration
	queued   int

	// Stats
	received    int64
	played      int64
	failed      int64
	stalls      int64
	completions int64

	lastText string

	controls *Controls
	quitting bool
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping player...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("PCM Stream Player"))
	b.WriteString("\n")

	b.WriteString(m.renderConnection())
	b.WriteString(m.renderPlayback())
	b.WriteString(m.renderStats())

	if m.lastText != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Text:"))
		b.WriteString(valueStyle.Render(truncate(m.lastText, 60)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s:Stop  p:Pause  r:Resume  i:Interrupt  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderConnection() string {
	status := "Disconnected"
	if m.connected {
		status = fmt.Sprintf("Connected to %s", m.serverName)
	}

	s := labelStyle.Render("Server:") + valueStyle.Render(status) + "\n"
	if m.sessionID != "" {
		s += labelStyle.Render("Session:") + valueStyle.Render(m.sessionID) + "\n"
	}
	return s
}

func (m Model) renderPlayback() string {
	var state string
	switch m.state {
	case "playing":
		state = playingStyle.Render(m.state)
	case "stopped":
		state = stoppedStyle.Render(m.state)
	default:
		state = valueStyle.Render(m.state)
	}

	return "\n" +
		labelStyle.Render("State:") + state + "\n" +
		labelStyle.Render("Buffer:") +
		valueStyle.Render(fmt.Sprintf("[%s] %dms (%d queued)",
			renderBar(m.buffered, bufferBarSpan, 20), m.buffered.Milliseconds(), m.queued)) + "\n"
}

func (m Model) renderStats() string {
	return "\n" + labelStyle.Render("Stats:") +
		valueStyle.Render(fmt.Sprintf("RX: %d  Played: %d  Failed: %d  Stalls: %d  Done: %d",
			m.received, m.played, m.failed, m.stalls, m.completions)) + "\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.controls.send(CommandQuit)
		return m, tea.Quit
	case "s":
		m.controls.send(CommandStop)
	case "p":
		m.controls.send(CommandPause)
	case "r":
		m.controls.send(CommandResume)
	case "i":
		m.controls.send(CommandInterrupt)
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.SessionID != "" {
		m.sessionID = msg.SessionID
	}
	if msg.Text != "" {
		m.lastText = msg.Text
	}
	if msg.Stats != nil {
		m.state = msg.Stats.State
		m.buffered = msg.Stats.Buffered
		m.queued = msg.Stats.Queued
		m.received = msg.Stats.Received
		m.played = msg.Stats.Played
		m.failed = msg.Stats.Failed
		m.stalls = msg.Stats.Stalls
		m.completions = msg.Stats.Completions
	}
}

// StatusMsg updates TUI state. Zero fields leave the current value.
type StatusMsg struct {
	Connected  *bool
	ServerName string
	SessionID  string
	Text       string
	Stats      *PlaybackStats
}

// PlaybackStats is a snapshot of the player's streamer
type PlaybackStats struct {
	State       string
	Buffered    time.Duration
	Queued      int
	Received    int64
	Played      int64
	Failed      int64
	Stalls      int64
	Completions int64
}

func renderBar(value, max time.Duration, width int) string {
	filled := 0
	if max > 0 {
		filled = int(int64(value) * int64(width) / int64(max))
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
