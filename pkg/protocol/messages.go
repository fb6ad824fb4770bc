// ABOUTME: Stream protocol message type definitions
// ABOUTME: Defines the JSON envelope and payloads exchanged over the stream socket
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
)

const (
	// ProtocolVersion is the version of the stream protocol we implement
	ProtocolVersion = 1

	// DefaultPath is the WebSocket endpoint path
	DefaultPath = "/stream"
)

// Server to client message types
const (
	TypeAudio        = "audio"
	TypeTurnComplete = "turn_complete"
	TypeInterrupted  = "interrupted"
	TypeText         = "text"
	TypeError        = "error"
	TypeConfig       = "config"
	TypeReady        = "ready"
	TypeToolCall     = "tool_call"
	TypeToolResult   = "tool_result"
	TypeImage        = "image"
)

// Client to server message types
const (
	TypeHello     = "hello"
	TypeInterrupt = "interrupt"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage builds a message with data marshaled to JSON
func NewMessage(msgType string, data interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if data == nil {
		return msg, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s data: %w", msgType, err)
	}
	msg.Data = raw
	return msg, nil
}

// NewAudioMessage wraps PCM16 bytes as base64 audio
func NewAudioMessage(pcm []byte) Message {
	raw, _ := json.Marshal(base64.StdEncoding.EncodeToString(pcm))
	return Message{Type: TypeAudio, Data: raw}
}

// Decode unmarshals the message data into v
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no data", m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", m.Type, err)
	}
	return nil
}

// Audio returns the PCM16 bytes of an audio message
func (m Message) Audio() ([]byte, error) {
	var encoded string
	if err := m.Decode(&encoded); err != nil {
		return nil, err
	}

	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	return pcm, nil
}

// Text returns the data of a message whose payload is a plain string
func (m Message) Text() (string, error) {
	var s string
	if err := m.Decode(&s); err != nil {
		return "", err
	}
	return s, nil
}

// AudioFormat describes the audio carried by a stream
type AudioFormat struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// StreamAudioFormat is the only format on the wire
var StreamAudioFormat = AudioFormat{
	Codec:      audio.StreamFormat.Codec,
	SampleRate: audio.StreamFormat.SampleRate,
	Channels:   audio.StreamFormat.Channels,
	BitDepth:   audio.StreamFormat.BitDepth,
}

// Hello is sent by clients right after connecting
type Hello struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
}

// ConfigData is sent by the server after hello
type ConfigData struct {
	SessionID string      `json:"session_id"`
	Server    string      `json:"server"`
	Format    AudioFormat `json:"format"`
	Source    string      `json:"source,omitempty"`
}

// ErrorData carries a server-side failure description
type ErrorData struct {
	Message string `json:"message"`
}
