package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/gijiroku/internal/progress"
	"github.com/foxseedlab/gijiroku/internal/repository"
)

// Config tunes the pipeline orchestration, independent of the audio and
// engine layers it drives.
type Config struct {
	// WorkerCount bounds how many chunks are in flight at once.
	WorkerCount int

	// FailedChunkTolerance is the fraction of chunks allowed to fail before
	// the whole run fails. 0 fails the run on any chunk failure.
	FailedChunkTolerance float64

	// BoundaryMergeEpsilon is forwarded to assembly for joining same-speaker
	// segments across chunk boundaries.
	BoundaryMergeEpsilon time.Duration
}

// tracker is the single writer of a run's progress. It keeps reported
// progress monotonically non-decreasing even when chunk completions arrive
// interleaved with state transitions, persists each snapshot and forwards it
// to the sink. Sink failures are logged and swallowed.
type tracker struct {
	runID string
	repo  repository.Repository
	sink  progress.Sink
	last  int
}

func newTracker(runID string, repo repository.Repository, sink progress.Sink) *tracker {
	return &tracker{runID: runID, repo: repo, sink: sink}
}

func (t *tracker) update(ctx context.Context, state repository.RunState, percent, chunksTotal, chunksDone int, degraded bool) {
	if percent < t.last {
		percent = t.last
	}
	t.last = percent

	err := t.repo.UpdateRunProgress(ctx, repository.UpdateRunProgressInput{
		RunID:       t.runID,
		State:       state,
		Progress:    percent,
		ChunksTotal: chunksTotal,
		ChunksDone:  chunksDone,
		Degraded:    degraded,
	})
	if err != nil {
		slog.Error("failed to persist run progress", "run_id", t.runID, "state", state, "error", err)
	}
	t.notify(ctx, statusText(state), percent, "")
}

// statusText is what progress consumers display; states stay machine-readable
// in the run record.
func statusText(state repository.RunState) string {
	switch state {
	case repository.RunStateQueued:
		return "Queued"
	case repository.RunStateChunking:
		return "Analyzing audio..."
	case repository.RunStateProcessing:
		return "Transcribing audio..."
	case repository.RunStateAssembling:
		return "Assigning speakers to text..."
	case repository.RunStateCompleted:
		return "Completed"
	case repository.RunStateCancelled:
		return "Cancelled"
	default:
		return "Failed"
	}
}

func (t *tracker) notify(ctx context.Context, status string, percent int, errText string) {
	err := t.sink.Send(ctx, progress.Update{
		RunID:   t.runID,
		Percent: percent,
		Status:  status,
		Error:   errText,
	})
	if err != nil {
		slog.Warn("failed to deliver progress update", "run_id", t.runID, "status", status, "error", err)
	}
}
