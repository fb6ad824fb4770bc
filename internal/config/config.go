// ABOUTME: YAML configuration for the player and server
// ABOUTME: Loads a file over defaults and validates every section
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/pcmstream/pkg/protocol"
	"github.com/Resonate-Protocol/pcmstream/pkg/streamer"
)

// Config represents the complete configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Player   PlayerConfig   `yaml:"player"`
	Streamer StreamerConfig `yaml:"streamer"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig contains stream server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
	Name string `yaml:"name"`
	MDNS bool   `yaml:"mdns"`

	// Source is an MP3 file or URL; empty streams a test tone
	Source       string        `yaml:"source"`
	ToneDuration time.Duration `yaml:"tone_duration"`
}

// PlayerConfig contains player settings
type PlayerConfig struct {
	Name string `yaml:"name"`

	// Server is host:port; empty means discover via mDNS
	Server           string        `yaml:"server"`
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
	TUI              bool          `yaml:"tui"`
}

// StreamerConfig contains playback timings
type StreamerConfig struct {
	StartThreshold    time.Duration `yaml:"start_threshold"`
	CompleteThreshold time.Duration `yaml:"complete_threshold"`
	StallTimeout      time.Duration `yaml:"stall_timeout"`
	WatchdogInterval  time.Duration `yaml:"watchdog_interval"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	FadeOut           time.Duration `yaml:"fade_out"`
	GainResetDelay    time.Duration `yaml:"gain_reset_delay"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8927",
			Path: protocol.DefaultPath,
			Name: "PCM Stream Server",
			MDNS: true,
		},
		Player: PlayerConfig{
			DiscoveryTimeout: 5 * time.Second,
			TUI:              true,
		},
		Streamer: StreamerConfig{
			StartThreshold:    streamer.DefaultStartThreshold,
			CompleteThreshold: streamer.DefaultCompleteThreshold,
			StallTimeout:      streamer.DefaultStallTimeout,
			WatchdogInterval:  streamer.DefaultWatchdogInterval,
			RetryDelay:        streamer.DefaultRetryDelay,
			FadeOut:           streamer.DefaultFadeOut,
			GainResetDelay:    streamer.DefaultGainResetDelay,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Metrics: MetricsConfig{
			Addr: ":9108",
		},
	}
}

// Load reads a configuration file over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Player.Validate(); err != nil {
		return fmt.Errorf("player config: %w", err)
	}
	if err := c.Streamer.Validate(); err != nil {
		return fmt.Errorf("streamer config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if s.Path == "" || s.Path[0] != '/' {
		return fmt.Errorf("path must start with '/', got '%s'", s.Path)
	}
	if s.ToneDuration < 0 {
		return fmt.Errorf("tone_duration cannot be negative, got %v", s.ToneDuration)
	}
	return nil
}

func (p *PlayerConfig) Validate() error {
	if p.Server == "" && p.DiscoveryTimeout <= 0 {
		return fmt.Errorf("discovery_timeout must be positive when no server is set, got %v", p.DiscoveryTimeout)
	}
	return nil
}

// Validate requires positive timings. The stall timeout must exceed the
// retry delay so a failed start is retried before it counts as a stall.
func (s *StreamerConfig) Validate() error {
	fields := []struct {
		name  string
		value time.Duration
	}{
		{"start_threshold", s.StartThreshold},
		{"complete_threshold", s.CompleteThreshold},
		{"stall_timeout", s.StallTimeout},
		{"watchdog_interval", s.WatchdogInterval},
		{"retry_delay", s.RetryDelay},
		{"fade_out", s.FadeOut},
		{"gain_reset_delay", s.GainResetDelay},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", f.name, f.value)
		}
	}

	if s.StallTimeout <= s.RetryDelay {
		return fmt.Errorf("stall_timeout (%v) must be greater than retry_delay (%v)", s.StallTimeout, s.RetryDelay)
	}
	return nil
}

// Apply copies the timings into a streamer configuration
func (s StreamerConfig) Apply(cfg streamer.Config) streamer.Config {
	cfg.StartThreshold = s.StartThreshold
	cfg.CompleteThreshold = s.CompleteThreshold
	cfg.StallTimeout = s.StallTimeout
	cfg.WatchdogInterval = s.WatchdogInterval
	cfg.RetryDelay = s.RetryDelay
	cfg.FadeOut = s.FadeOut
	cfg.GainResetDelay = s.GainResetDelay
	return cfg
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Addr == "" {
		return fmt.Errorf("addr cannot be empty when metrics are enabled")
	}
	return nil
}
