package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
)

type mockTranscriber struct {
	calls   int
	results []*TranscriptionResult
	errs    []error
	delay   time.Duration
}

func (m *mockTranscriber) Transcribe(ctx context.Context, _ audio.Chunk) (*TranscriptionResult, error) {
	idx := m.calls
	m.calls++
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.results) {
		return m.results[idx], nil
	}
	return &TranscriptionResult{}, nil
}

type mockDiarizer struct {
	calls int
	err   error
	out   *DiarizationResult
}

func (m *mockDiarizer) Diarize(_ context.Context, _ audio.Chunk) (*DiarizationResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.out != nil {
		return m.out, nil
	}
	return &DiarizationResult{}, nil
}

func testStrategyConfig() StrategyConfig {
	return StrategyConfig{RemoteTimeout: 200 * time.Millisecond, RetryBackoff: time.Millisecond}
}

func testChunk() audio.Chunk {
	return audio.Chunk{Index: 0, Samples: make([]int16, 160), Rate: 16000}
}

func TestStrategy_RemoteSuccessNotDegraded(t *testing.T) {
	remote := &mockTranscriber{results: []*TranscriptionResult{{Language: "en-US"}}}
	local := &mockTranscriber{}
	s := NewStrategy(testStrategyConfig(), remote, local, nil, &mockDiarizer{})

	out, degraded, err := s.Transcribe(context.Background(), testChunk())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if degraded {
		t.Fatal("remote success must not be degraded")
	}
	if out.Language != "en-US" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if local.calls != 0 {
		t.Fatalf("local engine must not be called, got %d calls", local.calls)
	}
}

func TestStrategy_RetriesTransientRemoteError(t *testing.T) {
	remote := &mockTranscriber{
		errs:    []error{errors.New("connection reset")},
		results: []*TranscriptionResult{nil, {Language: "en-US"}},
	}
	s := NewStrategy(testStrategyConfig(), remote, &mockTranscriber{}, nil, nil)

	_, degraded, err := s.Transcribe(context.Background(), testChunk())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if degraded {
		t.Fatal("retry success on remote must not be degraded")
	}
	if remote.calls != 2 {
		t.Fatalf("expected 2 remote attempts, got %d", remote.calls)
	}
}

func TestStrategy_FallsBackToLocalAndFlagsDegraded(t *testing.T) {
	remote := &mockTranscriber{errs: []error{errors.New("boom"), errors.New("boom")}}
	local := &mockTranscriber{results: []*TranscriptionResult{{Language: "en-US"}}}
	s := NewStrategy(testStrategyConfig(), remote, local, nil, nil)

	out, degraded, err := s.Transcribe(context.Background(), testChunk())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !degraded {
		t.Fatal("local fallback must be flagged degraded")
	}
	if out == nil || out.Language != "en-US" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestStrategy_RemoteTimeoutTriggersFallback(t *testing.T) {
	remote := &mockTranscriber{delay: time.Second}
	local := &mockTranscriber{results: []*TranscriptionResult{{Language: "en-US"}}}
	s := NewStrategy(testStrategyConfig(), remote, local, nil, nil)

	_, degraded, err := s.Transcribe(context.Background(), testChunk())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !degraded {
		t.Fatal("timeout fallback must be flagged degraded")
	}
}

func TestStrategy_BothEnginesFail(t *testing.T) {
	remote := &mockDiarizer{err: errors.New("remote down")}
	local := &mockDiarizer{err: errors.New("local down")}
	s := NewStrategy(testStrategyConfig(), nil, nil, remote, local)

	_, _, err := s.Diarize(context.Background(), testChunk())
	if err == nil {
		t.Fatal("expected error when both engines fail")
	}
	// One retry each.
	if remote.calls != 2 || local.calls != 2 {
		t.Fatalf("expected 2 attempts per engine, got remote=%d local=%d", remote.calls, local.calls)
	}
}

func TestStrategy_LocalOnlyNotDegraded(t *testing.T) {
	local := &mockDiarizer{out: &DiarizationResult{Turns: []SpeakerTurn{{SpeakerID: "SPEAKER_00"}}}}
	s := NewStrategy(testStrategyConfig(), nil, nil, nil, local)

	out, degraded, err := s.Diarize(context.Background(), testChunk())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if degraded {
		t.Fatal("local-only configuration is not a degradation")
	}
	if len(out.Turns) != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestStrategy_NoEngineConfigured(t *testing.T) {
	s := NewStrategy(testStrategyConfig(), nil, nil, nil, nil)
	_, _, err := s.Diarize(context.Background(), testChunk())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
