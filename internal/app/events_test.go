package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Resonate-Protocol/pcmstream/pkg/protocol"
)

type recordingSink struct {
	calls       []string
	chunks      [][]byte
	resumeErr   error
	hadDeadline bool
}

func (r *recordingSink) AddPCM16(chunk []byte) {
	r.calls = append(r.calls, "add")
	r.chunks = append(r.chunks, chunk)
}

func (r *recordingSink) Complete() { r.calls = append(r.calls, "complete") }

func (r *recordingSink) Stop() { r.calls = append(r.calls, "stop") }

func (r *recordingSink) Resume(ctx context.Context) error {
	r.calls = append(r.calls, "resume")
	_, r.hadDeadline = ctx.Deadline()
	return r.resumeErr
}

func configEvent(t *testing.T, format protocol.AudioFormat) protocol.Event {
	t.Helper()
	msg, err := protocol.NewMessage(protocol.TypeConfig, protocol.ConfigData{Server: "Den", Format: format})
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}
	return protocol.Event{Type: protocol.TypeConfig, Message: msg}
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    protocol.Event
		expected []string
	}{
		{"audio", protocol.Event{Type: protocol.TypeAudio, Audio: []byte{1, 2}}, []string{"add"}},
		{"turn complete", protocol.Event{Type: protocol.TypeTurnComplete}, []string{"complete"}},
		{"interrupted", protocol.Event{Type: protocol.TypeInterrupted}, []string{"stop"}},
		{"ready", protocol.Event{Type: protocol.TypeReady}, []string{"resume"}},
		{"text", protocol.Event{Type: protocol.TypeText, Text: "hi"}, nil},
		{"error", protocol.Event{Type: protocol.TypeError, Text: "boom"}, nil},
		{"tool call", protocol.Event{Type: protocol.TypeToolCall}, nil},
		{"unknown", protocol.Event{Type: "mystery"}, nil},
		{"malformed config", protocol.Event{Type: protocol.TypeConfig, Message: protocol.Message{Type: protocol.TypeConfig, Data: []byte(`[1]`)}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			handleEvent(context.Background(), sink, tt.event)

			if !reflect.DeepEqual(sink.calls, tt.expected) {
				t.Errorf("expected calls %v, got %v", tt.expected, sink.calls)
			}
		})
	}
}

func TestHandleEventConfig(t *testing.T) {
	tests := []struct {
		name   string
		format protocol.AudioFormat
	}{
		{"stream format", protocol.StreamAudioFormat},
		{"other format", protocol.AudioFormat{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			handleEvent(context.Background(), sink, configEvent(t, tt.format))
			if len(sink.calls) != 0 {
				t.Errorf("config should not drive playback, got %v", sink.calls)
			}
		})
	}
}

func TestHandleEventAudioPassesBytes(t *testing.T) {
	sink := &recordingSink{}
	chunk := []byte{0x00, 0x40, 0x00, 0xC0}

	handleEvent(context.Background(), sink, protocol.Event{Type: protocol.TypeAudio, Audio: chunk})

	if len(sink.chunks) != 1 || !reflect.DeepEqual(sink.chunks[0], chunk) {
		t.Errorf("expected chunk to reach the sink unchanged, got %v", sink.chunks)
	}
}

func TestResumeBounded(t *testing.T) {
	sink := &recordingSink{resumeErr: errors.New("device busy")}

	handleEvent(context.Background(), sink, protocol.Event{Type: protocol.TypeReady})

	if !sink.hadDeadline {
		t.Error("resume should run with a deadline")
	}
	if !reflect.DeepEqual(sink.calls, []string{"resume"}) {
		t.Errorf("unexpected calls %v", sink.calls)
	}
}

func TestHandleEventSequence(t *testing.T) {
	sink := &recordingSink{}
	events := []protocol.Event{
		{Type: protocol.TypeReady},
		{Type: protocol.TypeAudio, Audio: []byte{0, 0}},
		{Type: protocol.TypeAudio, Audio: []byte{0, 0}},
		{Type: protocol.TypeInterrupted},
		{Type: protocol.TypeAudio, Audio: []byte{0, 0}},
		{Type: protocol.TypeTurnComplete},
	}

	for _, ev := range events {
		handleEvent(context.Background(), sink, ev)
	}

	expected := []string{"resume", "add", "add", "stop", "add", "complete"}
	if !reflect.DeepEqual(sink.calls, expected) {
		t.Errorf("expected %v, got %v", expected, sink.calls)
	}
}
