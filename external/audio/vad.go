package audio

import (
	"fmt"

	"github.com/foxseedlab/gijiroku/internal/audio"
	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const vadFrameMs = 20

// VADScorer rates chunk-boundary candidates with WebRTC voice activity
// detection: the score is the fraction of frames without detected speech.
type VADScorer struct {
	vad  *webrtcvad.VAD
	mode int
}

func NewVADScorer(mode int) (*VADScorer, error) {
	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("create webrtc vad: %w", err)
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("set vad mode %d: %w", mode, err)
	}
	return &VADScorer{vad: vad, mode: mode}, nil
}

func (s *VADScorer) Score(samples []int16, rate int) float64 {
	// WebRTC VAD only accepts 8/16/32/48 kHz input.
	switch rate {
	case 8000, 16000, 32000, 48000:
	default:
		return audio.EnergyScorer{}.Score(samples, rate)
	}

	frameSize := rate * vadFrameMs / 1000
	if len(samples) < frameSize {
		return 0
	}

	frames, quiet := 0, 0
	for i := 0; i+frameSize <= len(samples); i += frameSize {
		frames++
		active, err := s.vad.Process(rate, int16ToBytes(samples[i:i+frameSize]))
		if err != nil {
			return audio.EnergyScorer{}.Score(samples, rate)
		}
		if !active {
			quiet++
		}
	}
	if frames == 0 {
		return 0
	}
	return float64(quiet) / float64(frames)
}

func int16ToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
