// ABOUTME: Maps stream protocol events onto playback operations
// ABOUTME: Audio is queued, turn ends complete, interruptions stop
package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/pcmstream/pkg/protocol"
)

// sink is the playback surface driven by server events
type sink interface {
	AddPCM16(chunk []byte)
	Complete()
	Stop()
	Resume(ctx context.Context) error
}

func handleEvent(ctx context.Context, s sink, ev protocol.Event) {
	switch ev.Type {
	case protocol.TypeAudio:
		s.AddPCM16(ev.Audio)

	case protocol.TypeTurnComplete:
		s.Complete()

	case protocol.TypeInterrupted:
		log.Info().Msg("Response interrupted")
		s.Stop()

	case protocol.TypeReady:
		resume(ctx, s)

	case protocol.TypeConfig:
		var cfg protocol.ConfigData
		if err := ev.Message.Decode(&cfg); err != nil {
			log.Warn().Err(err).Msg("Malformed config message")
			return
		}
		if cfg.Format != protocol.StreamAudioFormat {
			log.Warn().Interface("format", cfg.Format).Msg("Server announced an unsupported audio format")
		}
		log.Info().Str("server", cfg.Server).Str("source", cfg.Source).Msg("Stream configured")

	case protocol.TypeText:
		log.Info().Str("text", ev.Text).Msg("Server text")

	case protocol.TypeError:
		log.Error().Str("error", ev.Text).Msg("Server error")

	default:
		log.Debug().Str("type", ev.Type).Msg("Ignoring message")
	}
}

func resume(ctx context.Context, s sink) {
	ctx, cancel := context.WithTimeout(ctx, resumeTimeout)
	defer cancel()

	if err := s.Resume(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to resume playback")
	}
}
