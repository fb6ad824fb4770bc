// ABOUTME: Tests for audio types
// ABOUTME: Tests segment durations and sample conversion functions
package audio

import (
	"testing"
	"time"
)

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected float32
	}{
		{"zero", 0, 0},
		{"half positive", 16384, 0.5},
		{"half negative", -16384, -0.5},
		{"min", -32768, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSampleFromInt16Max(t *testing.T) {
	result := SampleFromInt16(32767)
	if result < 0.99996 || result >= 1.0 {
		t.Errorf("expected max sample in [0.99996, 1.0), got %v", result)
	}
}

func TestNewSegmentDuration(t *testing.T) {
	tests := []struct {
		name     string
		samples  int
		rate     int
		expected time.Duration
	}{
		{"100ms at 24kHz", 2400, SampleRate, 100 * time.Millisecond},
		{"half second", 12000, SampleRate, 500 * time.Millisecond},
		{"empty", 0, SampleRate, 0},
		{"single sample", 1, SampleRate, 41666 * time.Nanosecond},
		{"invalid rate", 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := NewSegment(make([]float32, tt.samples), tt.rate)
			if seg.Duration() != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, seg.Duration())
			}
			if seg.Len() != tt.samples {
				t.Errorf("expected %d samples, got %d", tt.samples, seg.Len())
			}
		})
	}
}

func TestSamplesFor(t *testing.T) {
	if n := SamplesFor(300*time.Millisecond, SampleRate); n != 7200 {
		t.Errorf("expected 7200 samples, got %d", n)
	}
	if d := DurationOf(SamplesFor(20*time.Millisecond, SampleRate), SampleRate); d != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %v", d)
	}
}
