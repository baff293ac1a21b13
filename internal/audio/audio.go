package audio

import (
	"errors"
	"time"
)

// EngineSampleRate is the rate every chunk is delivered at. Both engine
// implementations expect 16 kHz mono LINEAR16.
const EngineSampleRate = 16000

var ErrInvalidAudio = errors.New("invalid audio: empty or zero duration")

// PCM is a decoded mono waveform.
type PCM struct {
	Samples []int16
	Rate    int
}

func (p PCM) Duration() time.Duration {
	if p.Rate <= 0 {
		return 0
	}
	return time.Duration(len(p.Samples)) * time.Second / time.Duration(p.Rate)
}

// Chunk is a bounded slice of the source audio, processed independently of
// its neighbors. Samples alias the decoded waveform and must not be mutated.
type Chunk struct {
	Index       int
	StartOffset time.Duration
	EndOffset   time.Duration
	Samples     []int16
	Rate        int
}

func (c Chunk) Duration() time.Duration {
	return c.EndOffset - c.StartOffset
}

// Decoder turns an uploaded audio file into mono PCM at the engine rate.
type Decoder interface {
	Decode(data []byte) (PCM, error)
}

// BoundaryScorer rates a candidate cut window. The returned score is the
// fraction of the window judged silent, in [0, 1]; the chunker cuts where
// the score is high so that a spoken word is never split mid-utterance.
type BoundaryScorer interface {
	Score(samples []int16, rate int) float64
}
