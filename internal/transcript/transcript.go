package transcript

import (
	"encoding/json"
	"time"
)

// UnknownSpeaker labels words no diarization turn accounts for.
const UnknownSpeaker = "Unknown"

// Segment is one speaker-labeled stretch of text. Start and End are
// file-absolute once assembled; chunk-relative before.
type Segment struct {
	Speaker string
	Text    string
	Start   time.Duration
	End     time.Duration
}

// Transcript is the terminal artifact: segments in strictly non-decreasing
// Start order covering the source file.
type Transcript struct {
	Segments []Segment
}

// SerializedSegment is the wire shape consumed by the summarization, export
// and UI collaborators. Field names and units are a compatibility contract;
// changing them requires a version bump on the consumer side.
type SerializedSegment struct {
	Speaker      string  `json:"speaker"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

func (t Transcript) Serialize() []SerializedSegment {
	out := make([]SerializedSegment, 0, len(t.Segments))
	for _, s := range t.Segments {
		out = append(out, SerializedSegment{
			Speaker:      s.Speaker,
			Text:         s.Text,
			StartSeconds: s.Start.Seconds(),
			EndSeconds:   s.End.Seconds(),
		})
	}
	return out
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Serialize())
}
