package local

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/foxseedlab/gijiroku/internal/engine"
)

const (
	gapFrameMs = 20
	// Silence longer than this flips the attributed speaker. Crude, but it
	// keeps diarization alive when no model-backed engine is reachable.
	speakerSwitchGap = 2 * time.Second
	// Pauses shorter than this stay inside one turn.
	intraTurnPause = 500 * time.Millisecond
)

type GapDiarizerConfig struct {
	// EnergyThreshold is the normalized RMS below which a frame is silent.
	// Zero means the chunker's default.
	EnergyThreshold float64
}

// GapDiarizer is the local-path diarization fallback: it detects speech
// intervals by frame energy and alternates between two anonymous speakers
// on long silences.
type GapDiarizer struct {
	cfg GapDiarizerConfig
}

func NewGapDiarizer(cfg GapDiarizerConfig) *GapDiarizer {
	return &GapDiarizer{cfg: cfg}
}

func (d *GapDiarizer) Diarize(ctx context.Context, chunk audio.Chunk) (*engine.DiarizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chunk.Rate <= 0 {
		return nil, fmt.Errorf("diarize chunk %d: invalid sample rate %d", chunk.Index, chunk.Rate)
	}

	intervals := d.speechIntervals(chunk)
	turns := make([]engine.SpeakerTurn, 0, len(intervals))
	speaker := 0
	for i, iv := range intervals {
		if i > 0 && iv.start-intervals[i-1].end > speakerSwitchGap {
			speaker = 1 - speaker
		}
		turns = append(turns, engine.SpeakerTurn{
			SpeakerID: fmt.Sprintf("SPEAKER_%02d", speaker),
			Start:     iv.start,
			End:       iv.end,
		})
	}
	slog.Debug("gap diarization complete", "chunk_index", chunk.Index, "turns", len(turns))
	return &engine.DiarizationResult{Turns: turns}, nil
}

type interval struct {
	start, end time.Duration
}

func (d *GapDiarizer) speechIntervals(chunk audio.Chunk) []interval {
	threshold := d.cfg.EnergyThreshold
	if threshold == 0 {
		threshold = 0.0178
	}
	frameSize := chunk.Rate * gapFrameMs / 1000
	if frameSize <= 0 {
		return nil
	}
	frameDur := time.Duration(gapFrameMs) * time.Millisecond

	var intervals []interval
	var current *interval
	for i := 0; i+frameSize <= len(chunk.Samples); i += frameSize {
		at := time.Duration(i/frameSize) * frameDur
		if rms(chunk.Samples[i:i+frameSize]) >= threshold {
			if current == nil {
				intervals = append(intervals, interval{start: at})
				current = &intervals[len(intervals)-1]
			}
			current.end = at + frameDur
		} else if current != nil && at-current.end >= intraTurnPause {
			current = nil
		}
	}
	return intervals
}

func rms(frame []int16) float64 {
	var sum float64
	for _, v := range frame {
		f := float64(v) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
