package local

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/foxseedlab/gijiroku/internal/engine"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

// CloudSpeechTranscriber is the local-path transcription engine: a per-chunk
// batch Recognize call with word time offsets enabled.
type CloudSpeechTranscriber struct {
	cfg CloudSpeechConfig

	initOnce sync.Once
	client   *speech.Client
	initErr  error
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) *CloudSpeechTranscriber {
	cfg.Location = strings.TrimSpace(cfg.Location)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &CloudSpeechTranscriber{cfg: cfg}
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, chunk audio.Chunk) (*engine.TranscriptionResult, error) {
	client, err := t.ensureClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}

	recognizer := fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.cfg.ProjectID, t.cfg.Location)
	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: recognizer,
		Config: &speechpb.RecognitionConfig{
			Model:         t.cfg.Model,
			LanguageCodes: []string{t.cfg.Language},
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   int32(chunk.Rate),
					AudioChannelCount: 1,
				},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableWordTimeOffsets: true,
				EnableWordConfidence:  true,
			},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: samplesToBytes(chunk.Samples)},
	})
	if err != nil {
		return nil, classifyRecognizeError(err)
	}

	var words []engine.Word
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		for _, w := range alts[0].GetWords() {
			words = append(words, engine.Word{
				Text:       w.GetWord(),
				Start:      w.GetStartOffset().AsDuration(),
				End:        w.GetEndOffset().AsDuration(),
				Confidence: float64(w.GetConfidence()),
			})
		}
	}
	language := t.cfg.Language
	if results := resp.GetResults(); len(results) > 0 && results[0].GetLanguageCode() != "" {
		language = results[0].GetLanguageCode()
	}
	slog.Debug("cloud speech recognition complete", "chunk_index", chunk.Index, "words", len(words), "language", language)
	return &engine.TranscriptionResult{Words: words, Language: language}, nil
}

func (t *CloudSpeechTranscriber) ensureClient(ctx context.Context) (*speech.Client, error) {
	t.initOnce.Do(func() {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			CredentialsJSON: []byte(t.cfg.CredentialsJSON),
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			t.initErr = fmt.Errorf("detect credentials: %w", err)
			return
		}
		opts := []option.ClientOption{option.WithAuthCredentials(creds)}
		if t.cfg.Location != "global" {
			opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.cfg.Location, speechAPIEndpointPort)))
		}
		t.client, t.initErr = speech.NewClient(ctx, opts...)
	})
	return t.client, t.initErr
}

func classifyRecognizeError(err error) error {
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", engine.ErrTimeout, err)
	case codes.Unavailable, codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	default:
		return fmt.Errorf("cloud speech recognize: %w", err)
	}
}

func samplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
