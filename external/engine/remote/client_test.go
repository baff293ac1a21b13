package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/foxseedlab/gijiroku/internal/engine"
)

func TestTranscribe_Success(t *testing.T) {
	var gotPath string
	var gotReq chunkRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(transcribeResponse{
			Language: "en-US",
			Words: []wordPayload{
				{Text: "Hi", Start: 0.0, End: 0.5, Confidence: 0.9},
				{Text: "there", Start: 0.5, End: 1.0, Confidence: 0.8},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	out, err := client.Transcribe(context.Background(), audio.Chunk{Index: 3, Samples: []int16{1, 2, 3}, Rate: 16000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/transcribe" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotReq.ChunkIndex != 3 || gotReq.SampleRate != 16000 || gotReq.Audio == "" {
		t.Fatalf("unexpected request payload: %+v", gotReq)
	}
	if out.Language != "en-US" || len(out.Words) != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out.Words[1].Text != "there" || out.Words[1].Start != 500*time.Millisecond {
		t.Fatalf("unexpected word: %+v", out.Words[1])
	}
}

func TestDiarize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(diarizeResponse{
			Turns: []turnPayload{{Speaker: "SPEAKER_00", Start: 0.0, End: 1.0}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	out, err := client.Diarize(context.Background(), audio.Chunk{Samples: []int16{1}, Rate: 16000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Turns) != 1 || out.Turns[0].SpeakerID != "SPEAKER_00" || out.Turns[0].End != time.Second {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestPost_Non2xxIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Transcribe(context.Background(), audio.Chunk{Samples: []int16{1}, Rate: 16000})
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPost_ConnectionErrorIsUnavailable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	_, err := client.Diarize(context.Background(), audio.Chunk{Samples: []int16{1}, Rate: 16000})
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
