// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and carries key commands to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a user action from the TUI
type Command int

const (
	CommandStop Command = iota
	CommandResume
	CommandInterrupt
	CommandQuit
	CommandPause
)

func (c Command) String() string {
	switch c {
	case CommandStop:
		return "stop"
	case CommandResume:
		return "resume"
	case CommandInterrupt:
		return "interrupt"
	case CommandQuit:
		return "quit"
	case CommandPause:
		return "pause"
	default:
		return "unknown"
	}
}

// Controls carries commands from the TUI to the player
type Controls struct {
	Commands chan Command
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 10),
	}
}

// send drops the command when nobody is listening
func (c *Controls) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		state:    "idle",
		controls: controls,
	}
}

// Run creates the TUI program; the caller starts it with Run
func Run(controls *Controls) *tea.Program {
	return tea.NewProgram(NewModel(controls), tea.WithAltScreen())
}
