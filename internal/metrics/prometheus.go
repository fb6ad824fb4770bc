// ABOUTME: Prometheus metrics for the player
// ABOUTME: Exposes streamer counters and gauges on a /metrics endpoint
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/pcmstream/pkg/streamer"
)

const namespace = "pcmstream"

// StatsSource provides a snapshot of streamer statistics
type StatsSource interface {
	Stats() streamer.Stats
}

// Metrics holds a registry whose collectors read from a StatsSource on
// every scrape
type Metrics struct {
	registry *prometheus.Registry
}

// New creates a registry exposing the source's statistics
func New(source StatsSource) *Metrics {
	registry := prometheus.NewRegistry()

	counter := func(name, help string, value func(streamer.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(source.Stats())) })
	}

	gauge := func(name, help string, value func(streamer.Stats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return value(source.Stats()) })
	}

	registry.MustRegister(
		counter("segments_received_total", "Total number of audio segments received",
			func(s streamer.Stats) int64 { return s.Received }),
		counter("segments_played_total", "Total number of audio segments started on the output",
			func(s streamer.Stats) int64 { return s.Played }),
		counter("segment_failures_total", "Total number of segments that failed to start",
			func(s streamer.Stats) int64 { return s.Failed }),
		counter("stalls_total", "Total number of playback stalls recovered by the watchdog",
			func(s streamer.Stats) int64 { return s.Stalls }),
		counter("completions_total", "Total number of completed responses",
			func(s streamer.Stats) int64 { return s.Completions }),
		gauge("queued_segments", "Current number of segments waiting to play",
			func(s streamer.Stats) float64 { return float64(s.Queued) }),
		gauge("buffered_seconds", "Current duration of queued audio",
			func(s streamer.Stats) float64 { return s.Buffered.Seconds() }),
		gauge("playing", "Whether playback is active (1) or not (0)",
			func(s streamer.Stats) float64 {
				if s.State == streamer.StatePlaying {
					return 1
				}
				return 0
			}),
	)

	return &Metrics{registry: registry}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return m.serve(ctx, listener)
}

func (m *Metrics) serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", listener.Addr().String()).Msg("Metrics endpoint listening")

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}
