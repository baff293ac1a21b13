package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/gijiroku/internal/audio"
)

const engineRetries = 1

type StrategyConfig struct {
	RemoteTimeout time.Duration
	RetryBackoff  time.Duration
}

// Strategy decides, per chunk and per capability, whether the remote or the
// local engine runs. Remote is preferred when configured; on failure the
// chunk falls back to the local engine without affecting other chunks.
// Every engine call is retried once with exponential backoff first.
type Strategy struct {
	cfg StrategyConfig

	remoteTranscriber Transcriber
	localTranscriber  Transcriber
	remoteDiarizer    Diarizer
	localDiarizer     Diarizer
}

func NewStrategy(cfg StrategyConfig, remoteT, localT Transcriber, remoteD, localD Diarizer) *Strategy {
	return &Strategy{
		cfg:               cfg,
		remoteTranscriber: remoteT,
		localTranscriber:  localT,
		remoteDiarizer:    remoteD,
		localDiarizer:     localD,
	}
}

// Transcribe runs the transcription capability for one chunk. The returned
// degraded flag is true when the remote engine failed and the local engine
// produced the result.
func (s *Strategy) Transcribe(ctx context.Context, chunk audio.Chunk) (*TranscriptionResult, bool, error) {
	var out *TranscriptionResult
	degraded, err := s.execute(ctx, CapabilityTranscription, chunk.Index,
		s.remoteTranscriber != nil, s.localTranscriber != nil,
		func(callCtx context.Context, remote bool) error {
			var callErr error
			if remote {
				out, callErr = s.remoteTranscriber.Transcribe(callCtx, chunk)
			} else {
				out, callErr = s.localTranscriber.Transcribe(callCtx, chunk)
			}
			return callErr
		})
	if err != nil {
		return nil, degraded, err
	}
	return out, degraded, nil
}

// Diarize runs the diarization capability for one chunk, with the same
// remote-first policy as Transcribe.
func (s *Strategy) Diarize(ctx context.Context, chunk audio.Chunk) (*DiarizationResult, bool, error) {
	var out *DiarizationResult
	degraded, err := s.execute(ctx, CapabilityDiarization, chunk.Index,
		s.remoteDiarizer != nil, s.localDiarizer != nil,
		func(callCtx context.Context, remote bool) error {
			var callErr error
			if remote {
				out, callErr = s.remoteDiarizer.Diarize(callCtx, chunk)
			} else {
				out, callErr = s.localDiarizer.Diarize(callCtx, chunk)
			}
			return callErr
		})
	if err != nil {
		return nil, degraded, err
	}
	return out, degraded, nil
}

func (s *Strategy) execute(ctx context.Context, cap Capability, chunkIndex int, hasRemote, hasLocal bool, call func(ctx context.Context, remote bool) error) (bool, error) {
	if !hasRemote && !hasLocal {
		return false, fmt.Errorf("%s: %w: no engine configured", cap, ErrUnavailable)
	}

	var remoteErr error
	if hasRemote {
		remoteErr = s.callWithRetry(ctx, func(attemptCtx context.Context) error {
			callCtx := attemptCtx
			if s.cfg.RemoteTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(attemptCtx, s.cfg.RemoteTimeout)
				defer cancel()
			}
			err := call(callCtx, true)
			if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return err
		})
		if remoteErr == nil {
			return false, nil
		}
		slog.Warn("remote engine failed, falling back to local",
			"capability", cap, "chunk_index", chunkIndex, "error", remoteErr)
		if !hasLocal {
			return false, fmt.Errorf("%s: %w", cap, remoteErr)
		}
	}

	localErr := s.callWithRetry(ctx, func(attemptCtx context.Context) error {
		return call(attemptCtx, false)
	})
	if localErr != nil {
		if remoteErr != nil {
			return true, fmt.Errorf("%s: remote failed (%v), local failed: %w", cap, remoteErr, localErr)
		}
		return false, fmt.Errorf("%s: %w", cap, localErr)
	}
	// Local success counts as degraded only when it covered for the remote.
	return remoteErr != nil, nil
}

// callWithRetry absorbs transient errors: one retry with exponential backoff.
func (s *Strategy) callWithRetry(ctx context.Context, call func(ctx context.Context) error) error {
	backoff := s.cfg.RetryBackoff
	var err error
	for attempt := 0; attempt <= engineRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = call(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
