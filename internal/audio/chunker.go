package audio

import (
	"log/slog"
	"math"
	"time"
)

// boundaryScoreFloor is the minimum silence fraction a candidate window must
// reach before it qualifies as a cut point.
const boundaryScoreFloor = 0.8

type ChunkerConfig struct {
	MaxChunkDuration    time.Duration
	MinChunkDuration    time.Duration
	SilenceSearchWindow time.Duration
	MinSilenceGap       time.Duration
}

// Chunker splits a decoded waveform into bounded-duration chunks, preferring
// to cut inside detected silence near the duration limit.
type Chunker struct {
	cfg    ChunkerConfig
	scorer BoundaryScorer
}

func NewChunker(cfg ChunkerConfig, scorer BoundaryScorer) *Chunker {
	if scorer == nil {
		scorer = EnergyScorer{}
	}
	return &Chunker{cfg: cfg, scorer: scorer}
}

// ChunkAll splits pcm into chunks covering the whole waveform with no gaps:
// chunk[i].EndOffset == chunk[i+1].StartOffset. A tail shorter than the
// minimum duration is merged into the previous chunk. Returns
// ErrInvalidAudio for empty input.
func (c *Chunker) ChunkAll(pcm PCM) ([]Chunk, error) {
	if len(pcm.Samples) == 0 || pcm.Rate <= 0 {
		return nil, ErrInvalidAudio
	}

	maxSamples := c.samplesIn(c.cfg.MaxChunkDuration, pcm.Rate)
	minSamples := c.samplesIn(c.cfg.MinChunkDuration, pcm.Rate)
	if maxSamples <= 0 {
		return nil, ErrInvalidAudio
	}

	var chunks []Chunk
	start := 0
	for start < len(pcm.Samples) {
		end := start + maxSamples
		if end >= len(pcm.Samples) {
			end = len(pcm.Samples)
		} else {
			end = c.findCut(pcm, start, end)
		}
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			StartOffset: c.offsetAt(start, pcm.Rate),
			EndOffset:   c.offsetAt(end, pcm.Rate),
			Samples:     pcm.Samples[start:end],
			Rate:        pcm.Rate,
		})
		start = end
	}

	// Degenerate tails confuse diarization; fold them into the neighbor.
	if n := len(chunks); n > 1 && len(chunks[n-1].Samples) < minSamples {
		prev := chunks[n-2]
		tail := chunks[n-1]
		merged := Chunk{
			Index:       prev.Index,
			StartOffset: prev.StartOffset,
			EndOffset:   tail.EndOffset,
			Samples:     pcm.Samples[c.sampleAt(prev.StartOffset, pcm.Rate):],
			Rate:        pcm.Rate,
		}
		chunks = append(chunks[:n-2], merged)
	}

	slog.Debug("audio chunked",
		"duration", pcm.Duration(),
		"chunks", len(chunks),
		"max_chunk_duration", c.cfg.MaxChunkDuration)
	return chunks, nil
}

// findCut searches the window before the hard limit for the qualifying
// silence closest to the limit. Falls back to a hard cut at the limit.
func (c *Chunker) findCut(pcm PCM, start, limit int) int {
	gapSamples := c.samplesIn(c.cfg.MinSilenceGap, pcm.Rate)
	windowSamples := c.samplesIn(c.cfg.SilenceSearchWindow, pcm.Rate)
	if gapSamples <= 0 || windowSamples <= gapSamples {
		return limit
	}

	searchStart := limit - windowSamples
	if searchStart < start {
		searchStart = start
	}
	step := gapSamples / 2
	if step == 0 {
		step = 1
	}

	// Walk candidates from the limit backwards so the first qualifying gap
	// is the one closest to the target duration.
	for cut := limit; cut-gapSamples >= searchStart; cut -= step {
		window := pcm.Samples[cut-gapSamples : cut]
		if c.scorer.Score(window, pcm.Rate) >= boundaryScoreFloor {
			// Cut in the middle of the gap, not at its trailing edge.
			return cut - gapSamples/2
		}
	}
	return limit
}

func (c *Chunker) samplesIn(d time.Duration, rate int) int {
	return int(d.Seconds() * float64(rate))
}

func (c *Chunker) offsetAt(sample int, rate int) time.Duration {
	return time.Duration(sample) * time.Second / time.Duration(rate)
}

func (c *Chunker) sampleAt(offset time.Duration, rate int) int {
	return int(offset.Seconds() * float64(rate))
}

// EnergyScorer judges silence by per-frame RMS energy against a normalized
// threshold. It is the fallback when no VAD is available.
type EnergyScorer struct {
	// Threshold is the normalized RMS below which a frame counts as silent.
	// Zero means the default, roughly -35 dBFS.
	Threshold float64
}

const (
	defaultEnergyThreshold = 0.0178
	scorerFrameMs          = 20
)

func (s EnergyScorer) Score(samples []int16, rate int) float64 {
	threshold := s.Threshold
	if threshold == 0 {
		threshold = defaultEnergyThreshold
	}
	frameSize := rate * scorerFrameMs / 1000
	if frameSize <= 0 || len(samples) < frameSize {
		return 0
	}

	frames, silent := 0, 0
	for i := 0; i+frameSize <= len(samples); i += frameSize {
		frames++
		if frameRMS(samples[i:i+frameSize]) < threshold {
			silent++
		}
	}
	if frames == 0 {
		return 0
	}
	return float64(silent) / float64(frames)
}

func frameRMS(frame []int16) float64 {
	var sum float64
	for _, v := range frame {
		f := float64(v) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
