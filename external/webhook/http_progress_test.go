package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/gijiroku/internal/progress"
)

func TestSend_EmptyWebhookURL(t *testing.T) {
	sink := NewHTTPSink("")
	u := progress.Update{RunID: "r1", Percent: 50, Status: "processing"}
	if err := sink.Send(context.Background(), u); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSend_Success(t *testing.T) {
	var got progress.Update

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL)
	u := progress.Update{RunID: "r1", Percent: 100, Status: "completed"}
	if err := sink.Send(context.Background(), u); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != u {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSend_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL)
	u := progress.Update{RunID: "r1", Percent: 100, Status: "failed", Error: "boom"}
	if err := sink.Send(context.Background(), u); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
