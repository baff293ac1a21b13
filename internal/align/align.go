package align

import (
	"strings"
	"time"

	"github.com/foxseedlab/gijiroku/internal/engine"
	"github.com/foxseedlab/gijiroku/internal/transcript"
)

// Align assigns every recognized word to a speaker turn and coalesces
// consecutive same-speaker words into segments. Words and turns carry
// chunk-relative timestamps and must be sorted by start, which is how both
// engines emit them; the output is chunk-relative too.
//
// Assignment picks the turn with the largest temporal overlap. Ties go to
// the earlier-starting turn. A word overlapping no turn goes to the turn
// whose boundary is nearest to the word's center. With no turns at all,
// every word is labeled with the unknown-speaker sentinel.
//
// A turn cursor advances alongside the word walk, so the merge is linear in
// words plus turns rather than rescanning every turn per word.
func Align(words []engine.Word, turns []engine.SpeakerTurn) []transcript.Segment {
	if len(words) == 0 {
		return nil
	}

	segments := make([]transcript.Segment, 0, len(turns)+1)
	cursor := 0
	for _, w := range words {
		for cursor < len(turns) && turns[cursor].End <= w.Start {
			cursor++
		}
		speaker := speakerAt(w, turns, cursor)
		n := len(segments)
		if n > 0 && segments[n-1].Speaker == speaker {
			segments[n-1].Text += " " + w.Text
			if w.End > segments[n-1].End {
				segments[n-1].End = w.End
			}
			continue
		}
		segments = append(segments, transcript.Segment{
			Speaker: speaker,
			Text:    w.Text,
			Start:   w.Start,
			End:     w.End,
		})
	}

	for i := range segments {
		segments[i].Text = strings.TrimSpace(segments[i].Text)
	}
	return segments
}

// speakerAt resolves one word against the turns at and after the cursor.
// Turns before the cursor all end at or before the word's start, so only the
// one directly preceding it can still matter, as the nearest-turn fallback.
func speakerAt(w engine.Word, turns []engine.SpeakerTurn, cursor int) string {
	if len(turns) == 0 {
		return transcript.UnknownSpeaker
	}

	best := -1
	var bestOverlap time.Duration
	for i := cursor; i < len(turns) && turns[i].Start < w.End; i++ {
		if o := overlap(w, turns[i]); o > 0 && (best == -1 || o > bestOverlap) {
			best = i
			bestOverlap = o
		}
	}
	if best >= 0 {
		return turns[best].SpeakerID
	}

	// Gap word: the nearest turn is either the one the cursor passed or the
	// next one ahead. Equidistant goes to the earlier turn.
	prev, next := cursor-1, cursor
	if prev < 0 {
		return turns[next].SpeakerID
	}
	if next >= len(turns) {
		return turns[prev].SpeakerID
	}
	center := w.Start + (w.End-w.Start)/2
	if boundaryDistance(center, turns[prev]) <= boundaryDistance(center, turns[next]) {
		return turns[prev].SpeakerID
	}
	return turns[next].SpeakerID
}

func overlap(w engine.Word, t engine.SpeakerTurn) time.Duration {
	start := w.Start
	if t.Start > start {
		start = t.Start
	}
	end := w.End
	if t.End < end {
		end = t.End
	}
	return end - start
}

func boundaryDistance(p time.Duration, t engine.SpeakerTurn) time.Duration {
	if p < t.Start {
		return t.Start - p
	}
	if p > t.End {
		return p - t.End
	}
	return 0
}
