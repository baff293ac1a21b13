package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/foxseedlab/gijiroku/internal/engine"
)

// Client invokes the remote GPU worker over HTTP. One worker instance serves
// both capabilities on separate endpoints; audio is shipped as base64 LINEAR16.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type chunkRequest struct {
	ChunkIndex int    `json:"chunk_index"`
	SampleRate int    `json:"sample_rate"`
	Audio      string `json:"audio"`
}

type wordPayload struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

type transcribeResponse struct {
	Words    []wordPayload `json:"words"`
	Language string        `json:"language"`
}

type turnPayload struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

type diarizeResponse struct {
	Turns []turnPayload `json:"turns"`
}

func (c *Client) Transcribe(ctx context.Context, chunk audio.Chunk) (*engine.TranscriptionResult, error) {
	var resp transcribeResponse
	if err := c.post(ctx, "/transcribe", chunk, &resp); err != nil {
		return nil, err
	}
	words := make([]engine.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, engine.Word{
			Text:       w.Text,
			Start:      secondsToDuration(w.Start),
			End:        secondsToDuration(w.End),
			Confidence: w.Confidence,
		})
	}
	slog.Debug("remote transcription complete", "chunk_index", chunk.Index, "words", len(words), "language", resp.Language)
	return &engine.TranscriptionResult{Words: words, Language: resp.Language}, nil
}

func (c *Client) Diarize(ctx context.Context, chunk audio.Chunk) (*engine.DiarizationResult, error) {
	var resp diarizeResponse
	if err := c.post(ctx, "/diarize", chunk, &resp); err != nil {
		return nil, err
	}
	turns := make([]engine.SpeakerTurn, 0, len(resp.Turns))
	for _, turn := range resp.Turns {
		turns = append(turns, engine.SpeakerTurn{
			SpeakerID: turn.Speaker,
			Start:     secondsToDuration(turn.Start),
			End:       secondsToDuration(turn.End),
		})
	}
	slog.Debug("remote diarization complete", "chunk_index", chunk.Index, "turns", len(turns))
	return &engine.DiarizationResult{Turns: turns}, nil
}

func (c *Client) post(ctx context.Context, path string, chunk audio.Chunk, out any) error {
	body, err := json.Marshal(chunkRequest{
		ChunkIndex: chunk.Index,
		SampleRate: chunk.Rate,
		Audio:      base64.StdEncoding.EncodeToString(samplesToBytes(chunk.Samples)),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("%w: worker returned status %d", engine.ErrUnavailable, resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode worker response: %w", err)
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func samplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
