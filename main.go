// ABOUTME: Entry point for the PCM stream player
// ABOUTME: Loads config, applies CLI flags and runs the player application
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/pcmstream/internal/app"
	"github.com/Resonate-Protocol/pcmstream/internal/config"
	"github.com/Resonate-Protocol/pcmstream/internal/logging"
	"github.com/Resonate-Protocol/pcmstream/internal/version"
	"github.com/Resonate-Protocol/pcmstream/pkg/streamer"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	serverAddr  = flag.String("server", "", "Manual server address host:port (skip mDNS)")
	name        = flag.String("name", "", "Player friendly name (default: hostname-pcmstream-player)")
	logFile     = flag.String("log-file", "", "Log file path")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.UserAgent())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	// TUI mode logs to the file only
	if cfg.Player.TUI {
		cfg.Logging.Console = false
		if cfg.Logging.File == "" {
			cfg.Logging.File = "pcmstream-player.log"
		}
	}

	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	playerName := cfg.Player.Name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-pcmstream-player", hostname)
	}

	log.Info().Str("name", playerName).Str("version", version.Version).Msg("Starting PCM stream player")

	metrics := ""
	if cfg.Metrics.Enabled {
		metrics = cfg.Metrics.Addr
	}

	player := app.New(app.Config{
		ServerAddr:       cfg.Player.Server,
		Path:             cfg.Server.Path,
		Name:             playerName,
		DiscoveryTimeout: cfg.Player.DiscoveryTimeout,
		UseTUI:           cfg.Player.TUI,
		MetricsAddr:      metrics,
		Streamer:         cfg.Streamer.Apply(streamer.DefaultConfig()),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Stringer("signal", sig).Msg("Shutdown signal received")
		cancel()
	}()

	if err := player.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Player stopped with error")
		closer.Close()
		os.Exit(1)
	}

	log.Info().Msg("Player stopped")
}

// applyFlags overrides config values with flags given on the command line
func applyFlags(cfg *config.Config) {
	if *serverAddr != "" {
		cfg.Player.Server = *serverAddr
	}
	if *name != "" {
		cfg.Player.Name = *name
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}
	if *noTUI {
		cfg.Player.TUI = false
	}
}
