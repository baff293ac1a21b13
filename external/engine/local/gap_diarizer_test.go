package local

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
)

const testRate = 16000

func toneChunk(d time.Duration, regions ...[2]time.Duration) audio.Chunk {
	samples := make([]int16, int(d.Seconds()*testRate))
	for _, r := range regions {
		start := int(r[0].Seconds() * testRate)
		end := int(r[1].Seconds() * testRate)
		for i := start; i < end && i < len(samples); i++ {
			samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/testRate))
		}
	}
	return audio.Chunk{Samples: samples, Rate: testRate}
}

func TestDiarize_SilentChunkHasNoTurns(t *testing.T) {
	d := NewGapDiarizer(GapDiarizerConfig{})
	out, err := d.Diarize(context.Background(), toneChunk(3*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Turns) != 0 {
		t.Fatalf("expected no turns for silence, got %d", len(out.Turns))
	}
}

func TestDiarize_SingleSpeakerAcrossShortPause(t *testing.T) {
	// Two speech bursts separated by less than the switch gap: same speaker.
	chunk := toneChunk(6*time.Second,
		[2]time.Duration{0, 2 * time.Second},
		[2]time.Duration{3 * time.Second, 5 * time.Second})

	d := NewGapDiarizer(GapDiarizerConfig{})
	out, err := d.Diarize(context.Background(), chunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(out.Turns))
	}
	if out.Turns[0].SpeakerID != out.Turns[1].SpeakerID {
		t.Fatalf("expected same speaker across short pause, got %s and %s", out.Turns[0].SpeakerID, out.Turns[1].SpeakerID)
	}
}

func TestDiarize_SpeakerSwitchesOnLongGap(t *testing.T) {
	chunk := toneChunk(8*time.Second,
		[2]time.Duration{0, 2 * time.Second},
		[2]time.Duration{5 * time.Second, 7 * time.Second})

	d := NewGapDiarizer(GapDiarizerConfig{})
	out, err := d.Diarize(context.Background(), chunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(out.Turns))
	}
	if out.Turns[0].SpeakerID == out.Turns[1].SpeakerID {
		t.Fatal("expected speaker switch across long gap")
	}
}

func TestDiarize_TurnsAreOrderedAndNonOverlapping(t *testing.T) {
	chunk := toneChunk(12*time.Second,
		[2]time.Duration{0, 1 * time.Second},
		[2]time.Duration{4 * time.Second, 5 * time.Second},
		[2]time.Duration{8 * time.Second, 9 * time.Second})

	d := NewGapDiarizer(GapDiarizerConfig{})
	out, err := d.Diarize(context.Background(), chunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(out.Turns); i++ {
		if out.Turns[i].Start < out.Turns[i-1].End {
			t.Fatalf("turns overlap: %+v then %+v", out.Turns[i-1], out.Turns[i])
		}
	}
}
