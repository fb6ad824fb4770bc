// ABOUTME: Tests for player application orchestration
// ABOUTME: Runs the player against an in-process stream server
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/server"
	"github.com/Resonate-Protocol/pcmstream/internal/source"
	"github.com/Resonate-Protocol/pcmstream/internal/ui"
	"github.com/Resonate-Protocol/pcmstream/internal/version"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/streamer"
)

// instantDevice ends every segment almost immediately
type instantDevice struct {
	mu      sync.Mutex
	opened  int
	rate    int
	played  int
	closed  bool
	openErr error

	suspended bool
	resumes   int
}

type instantVoice struct {
	stopped atomic.Bool
}

func (v *instantVoice) Stop() error {
	v.stopped.Store(true)
	return nil
}

func (v *instantVoice) Disconnect() error { return nil }

func (d *instantDevice) Open(sampleRate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened++
	d.rate = sampleRate
	return d.openErr
}

func (d *instantDevice) Play(seg audio.Segment, gain output.Gain, onEnd func()) (output.Voice, error) {
	d.mu.Lock()
	d.played++
	d.mu.Unlock()

	v := &instantVoice{}
	go func() {
		time.Sleep(time.Millisecond)
		if !v.stopped.Load() {
			onEnd()
		}
	}()
	return v, nil
}

func (d *instantDevice) NewGain() output.Gain { return output.NewLinearGain(time.Now) }

func (d *instantDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = true
	return nil
}

func (d *instantDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

func (d *instantDevice) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	d.suspended = false
	return nil
}

func (d *instantDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *instantDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func startServer(t *testing.T, toneDuration time.Duration) *server.Server {
	t.Helper()

	srv, err := server.New(server.Config{
		Addr: "127.0.0.1:0",
		NewSource: func() (source.Source, error) {
			return source.NewTone(source.DefaultToneFrequency, toneDuration), nil
		},
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	go srv.Start()
	select {
	case <-srv.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestNewPlayer(t *testing.T) {
	device := &instantDevice{}
	player := New(Config{ServerAddr: "localhost:8927", Device: device})

	if player.config.Name != version.Product {
		t.Errorf("expected default name %s, got %s", version.Product, player.config.Name)
	}
	if player.streamer == nil {
		t.Fatal("streamer should be created")
	}
	if player.Stats().State != streamer.StateIdle {
		t.Errorf("expected idle, got %s", player.Stats().State)
	}
}

func TestRunOpenFailure(t *testing.T) {
	device := &instantDevice{openErr: errors.New("no device")}
	player := New(Config{ServerAddr: "127.0.0.1:1", Device: device})

	if err := player.Run(context.Background()); err == nil {
		t.Fatal("expected error when the device fails to open")
	}
}

func TestRunConnectFailure(t *testing.T) {
	device := &instantDevice{}
	player := New(Config{ServerAddr: "127.0.0.1:1", Device: device})

	if err := player.Run(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
	if !device.isClosed() {
		t.Error("device should be released after a failed run")
	}
}

func TestRunPlaysStream(t *testing.T) {
	srv := startServer(t, time.Second)
	device := &instantDevice{}

	var completions atomic.Int32
	player := New(Config{
		ServerAddr: srv.Addr(),
		Name:       "Test Player",
		Device:     device,
		Streamer: streamer.Config{
			OnComplete: func() { completions.Add(1) },
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- player.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for completions.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	stats := player.Stats()
	if completions.Load() == 0 {
		t.Fatalf("expected playback to complete, stats %+v", stats)
	}
	if stats.Received == 0 || stats.Played == 0 {
		t.Errorf("expected audio to be received and played, stats %+v", stats)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected run error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("player did not stop")
	}

	device.mu.Lock()
	if device.rate != audio.SampleRate {
		t.Errorf("expected device opened at %d Hz, got %d", audio.SampleRate, device.rate)
	}
	device.mu.Unlock()
	if !device.isClosed() {
		t.Error("device should be closed after run")
	}
}

func TestRunServerDisconnect(t *testing.T) {
	srv := startServer(t, 0)
	player := New(Config{ServerAddr: srv.Addr(), Device: &instantDevice{}})

	done := make(chan error, 1)
	go func() {
		done <- player.Run(context.Background())
	}()

	deadline := time.Now().Add(3 * time.Second)
	for len(srv.Sessions()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	srv.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrDisconnected) {
			t.Errorf("expected ErrDisconnected, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("player did not notice the disconnect")
	}
}

func TestHandleCommand(t *testing.T) {
	srv := startServer(t, 0)
	player := New(Config{ServerAddr: srv.Addr(), Device: &instantDevice{}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- player.Run(ctx)
	}()

	player.controls.Commands <- ui.CommandStop
	player.controls.Commands <- ui.CommandQuit

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean quit, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("player did not quit")
	}

	if st := player.Stats().State; st != streamer.StateStopped {
		t.Errorf("expected stopped after the stop command, got %s", st)
	}
}

func TestPauseAndResumeCommands(t *testing.T) {
	srv := startServer(t, 0)
	device := &instantDevice{}
	player := New(Config{ServerAddr: srv.Addr(), Device: device})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- player.Run(ctx)
	}()

	player.controls.Commands <- ui.CommandPause
	player.controls.Commands <- ui.CommandResume
	player.controls.Commands <- ui.CommandQuit

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean quit, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("player did not quit")
	}

	device.mu.Lock()
	defer device.mu.Unlock()
	if device.suspended {
		t.Error("expected device to be resumed")
	}
	if device.resumes < 1 {
		t.Errorf("expected the resume command to wake the suspended device, got %d resumes", device.resumes)
	}
}
