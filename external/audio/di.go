package audio

import (
	"log/slog"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/foxseedlab/gijiroku/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.Decoder, error) {
		return NewFileDecoder(), nil
	})
	do.Provide(injector, func(i do.Injector) (audio.BoundaryScorer, error) {
		c := do.MustInvoke[*config.Config](i)
		scorer, err := NewVADScorer(c.VADMode)
		if err != nil {
			slog.Warn("webrtc vad unavailable, falling back to energy scorer", "error", err)
			return audio.EnergyScorer{}, nil
		}
		return scorer, nil
	})
	do.Provide(injector, func(i do.Injector) (*audio.Chunker, error) {
		c := do.MustInvoke[*config.Config](i)
		scorer := do.MustInvoke[audio.BoundaryScorer](i)
		return audio.NewChunker(audio.ChunkerConfig{
			MaxChunkDuration:    time.Duration(c.MaxChunkDurationSec) * time.Second,
			MinChunkDuration:    time.Duration(c.MinChunkDurationSec) * time.Second,
			SilenceSearchWindow: time.Duration(c.SilenceSearchWindowSec) * time.Second,
			MinSilenceGap:       time.Duration(c.MinSilenceGapMs) * time.Millisecond,
		}, scorer), nil
	})
}
