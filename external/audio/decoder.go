package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/hraban/opus"
	resampling "github.com/tphakala/go-audio-resampling"
)

const opusDecodeRate = 48000

// FileDecoder decodes uploaded WAV (PCM16) and Ogg/Opus files into mono PCM
// at the engine sample rate.
type FileDecoder struct{}

func NewFileDecoder() audio.Decoder {
	return &FileDecoder{}
}

func (d *FileDecoder) Decode(data []byte) (audio.PCM, error) {
	if len(data) == 0 {
		return audio.PCM{}, audio.ErrInvalidAudio
	}
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return d.decodeWAV(data)
	case bytes.HasPrefix(data, []byte("OggS")):
		return d.decodeOpus(data)
	default:
		return audio.PCM{}, fmt.Errorf("%w: unsupported container", audio.ErrInvalidAudio)
	}
}

func (d *FileDecoder) decodeWAV(data []byte) (audio.PCM, error) {
	if len(data) < 12 || string(data[8:12]) != "WAVE" {
		return audio.PCM{}, fmt.Errorf("%w: malformed RIFF header", audio.ErrInvalidAudio)
	}

	var (
		rate     int
		channels int
		bits     int
		pcmBytes []byte
	)
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}
		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return audio.PCM{}, fmt.Errorf("%w: truncated fmt chunk", audio.ErrInvalidAudio)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return audio.PCM{}, fmt.Errorf("%w: only PCM wav is supported, got format %d", audio.ErrInvalidAudio, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcmBytes = data[body : body+chunkSize]
		}
		// Chunks are word-aligned.
		offset = body + chunkSize + chunkSize%2
	}

	if rate <= 0 || channels <= 0 || len(pcmBytes) == 0 {
		return audio.PCM{}, fmt.Errorf("%w: missing fmt or data chunk", audio.ErrInvalidAudio)
	}
	if bits != 16 {
		return audio.PCM{}, fmt.Errorf("%w: only 16-bit wav is supported, got %d-bit", audio.ErrInvalidAudio, bits)
	}

	samples := make([]int16, len(pcmBytes)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcmBytes[i*2 : i*2+2]))
	}
	return d.normalize(samples, rate, channels)
}

func (d *FileDecoder) decodeOpus(data []byte) (audio.PCM, error) {
	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: %v", audio.ErrInvalidAudio, err)
	}
	defer stream.Close()

	// Opus always decodes at 48 kHz; meeting exports are mono voice streams.
	var samples []int16
	buf := make([]int16, opusDecodeRate/10)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			samples = append(samples, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return audio.PCM{}, fmt.Errorf("decode opus stream: %w", err)
		}
	}
	return d.normalize(samples, opusDecodeRate, 1)
}

// normalize downmixes to mono and resamples to the engine rate.
func (d *FileDecoder) normalize(samples []int16, rate, channels int) (audio.PCM, error) {
	if len(samples) == 0 {
		return audio.PCM{}, audio.ErrInvalidAudio
	}
	if channels > 1 {
		mono := make([]int16, len(samples)/channels)
		for i := range mono {
			var sum int
			for ch := 0; ch < channels; ch++ {
				sum += int(samples[i*channels+ch])
			}
			mono[i] = int16(sum / channels)
		}
		samples = mono
	}
	if rate == audio.EngineSampleRate {
		return audio.PCM{Samples: samples, Rate: rate}, nil
	}
	resampled, err := resample(samples, rate, audio.EngineSampleRate)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("resample %dHz to %dHz: %w", rate, audio.EngineSampleRate, err)
	}
	return audio.PCM{Samples: resampled, Rate: audio.EngineSampleRate}, nil
}

func resample(samples []int16, srcRate, dstRate int) ([]int16, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, err
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}
	output, err := rs.Process(input)
	if err != nil {
		return nil, err
	}

	out := make([]int16, len(output))
	for i, s := range output {
		switch {
		case s > 1.0:
			out[i] = 32767
		case s < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(s * 32767.0)
		}
	}
	return out, nil
}
