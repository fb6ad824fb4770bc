// ABOUTME: Entry point for the PCM stream server
// ABOUTME: Parses CLI flags and streams a tone or MP3 to connected players
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/pcmstream/internal/config"
	"github.com/Resonate-Protocol/pcmstream/internal/logging"
	"github.com/Resonate-Protocol/pcmstream/internal/server"
	"github.com/Resonate-Protocol/pcmstream/internal/source"
)

var (
	configPath   = flag.String("config", "", "YAML config file")
	addr         = flag.String("addr", "", "WebSocket listen address (default :8927)")
	name         = flag.String("name", "", "Server friendly name (default from config)")
	logFile      = flag.String("log-file", "", "Log file path")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	noMDNS       = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI        = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	audioFile    = flag.String("audio", "", "MP3 file or URL to stream. If not specified, plays test tone")
	toneDuration = flag.Duration("tone-duration", 0, "Length of each tone response; 0 streams until interrupted")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *name != "" {
		cfg.Server.Name = *name
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if *noMDNS {
		cfg.Server.MDNS = false
	}
	if *audioFile != "" {
		cfg.Server.Source = *audioFile
	}
	if *toneDuration > 0 {
		cfg.Server.ToneDuration = *toneDuration
	}

	useTUI := !*noTUI
	if useTUI {
		cfg.Logging.Console = false
		if cfg.Logging.File == "" {
			cfg.Logging.File = "pcmstream-server.log"
		}
	}

	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	serverName := cfg.Server.Name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-pcmstream-server", hostname)
	}

	src := cfg.Server.Source
	tone := cfg.Server.ToneDuration

	// fail fast on a bad source before accepting players
	probe, err := source.New(src, 0)
	if err != nil {
		log.Error().Err(err).Str("source", src).Msg("Cannot open audio source")
		closer.Close()
		os.Exit(1)
	}
	probe.Close()

	srv, err := server.New(server.Config{
		Addr:       cfg.Server.Addr,
		Path:       cfg.Server.Path,
		Name:       serverName,
		EnableMDNS: cfg.Server.MDNS,
		UseTUI:     useTUI,
		NewSource: func() (source.Source, error) {
			return source.New(src, tone)
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create server")
		closer.Close()
		os.Exit(1)
	}

	log.Info().Str("name", serverName).Str("addr", cfg.Server.Addr).Msg("Starting PCM stream server")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Stringer("signal", sig).Msg("Shutting down gracefully")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Server error")
		closer.Close()
		os.Exit(1)
	}

	log.Info().Msg("Server stopped")
}
