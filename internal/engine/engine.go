package engine

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
)

// Per-chunk engine failures. Both trigger the fallback path before the chunk
// is marked failed; neither aborts the whole run on its own.
var (
	ErrTimeout     = errors.New("engine call timed out")
	ErrUnavailable = errors.New("engine unavailable")
)

type Capability string

const (
	CapabilityTranscription Capability = "transcription"
	CapabilityDiarization   Capability = "diarization"
)

// Word is one transcribed token. Timestamps are relative to the chunk.
type Word struct {
	Text       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// SpeakerTurn is one diarized speech interval, chunk-relative, non-overlapping
// within a single diarization result, ordered by start.
type SpeakerTurn struct {
	SpeakerID string
	Start     time.Duration
	End       time.Duration
}

type TranscriptionResult struct {
	Words    []Word
	Language string
}

type DiarizationResult struct {
	Turns []SpeakerTurn
}

type Transcriber interface {
	Transcribe(ctx context.Context, chunk audio.Chunk) (*TranscriptionResult, error)
}

type Diarizer interface {
	Diarize(ctx context.Context, chunk audio.Chunk) (*DiarizationResult, error)
}
