package assemble

import (
	"sort"
	"time"

	"github.com/foxseedlab/gijiroku/internal/engine"
	"github.com/foxseedlab/gijiroku/internal/transcript"
)

// ChunkSegments pairs one chunk's aligned segments with the offset of the
// chunk inside the source file. Segments are chunk-relative on input.
type ChunkSegments struct {
	Index       int
	StartOffset time.Duration
	Segments    []transcript.Segment
}

// Options tunes assembly.
type Options struct {
	// MergeEpsilon is the maximum gap across a chunk boundary under which
	// two adjacent same-speaker segments are joined into one.
	MergeEpsilon time.Duration

	// GlobalTurns, when present, relabel every segment by file-absolute
	// overlap and take precedence over per-chunk speaker ids.
	GlobalTurns []engine.SpeakerTurn
}

// Assemble shifts each chunk's segments to file-absolute time, concatenates
// them in chunk order and merges same-speaker segments that butt against a
// chunk boundary. The result is sorted and non-overlapping segment-start-wise.
func Assemble(chunks []ChunkSegments, opts Options) transcript.Transcript {
	ordered := append([]ChunkSegments(nil), chunks...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var flat []transcript.Segment
	for _, c := range ordered {
		for _, s := range c.Segments {
			s.Start += c.StartOffset
			s.End += c.StartOffset
			flat = append(flat, s)
		}
	}

	if len(opts.GlobalTurns) > 0 {
		relabel(flat, opts.GlobalTurns)
	}

	return transcript.Transcript{Segments: mergeAdjacent(flat, opts.MergeEpsilon)}
}

func mergeAdjacent(segments []transcript.Segment, epsilon time.Duration) []transcript.Segment {
	if len(segments) == 0 {
		return nil
	}

	out := segments[:1]
	for _, s := range segments[1:] {
		last := &out[len(out)-1]
		if s.Speaker == last.Speaker && s.Start-last.End <= epsilon {
			last.Text += " " + s.Text
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func relabel(segments []transcript.Segment, turns []engine.SpeakerTurn) {
	for i, s := range segments {
		if speaker, ok := dominantSpeaker(s, turns); ok {
			segments[i].Speaker = speaker
		}
	}
}

func dominantSpeaker(s transcript.Segment, turns []engine.SpeakerTurn) (string, bool) {
	best := ""
	var bestOverlap time.Duration
	found := false
	for _, t := range turns {
		start := s.Start
		if t.Start > start {
			start = t.Start
		}
		end := s.End
		if t.End < end {
			end = t.End
		}
		if o := end - start; o > 0 && (!found || o > bestOverlap) {
			best = t.SpeakerID
			bestOverlap = o
			found = true
		}
	}
	return best, found
}
