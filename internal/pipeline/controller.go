package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/gijiroku/internal/align"
	"github.com/foxseedlab/gijiroku/internal/assemble"
	"github.com/foxseedlab/gijiroku/internal/audio"
	"github.com/foxseedlab/gijiroku/internal/engine"
	"github.com/foxseedlab/gijiroku/internal/progress"
	"github.com/foxseedlab/gijiroku/internal/repository"
	"github.com/foxseedlab/gijiroku/internal/transcript"
)

var ErrRunNotFound = errors.New("run not found")

// Progress checkpoints. Chunk completions interpolate between
// progressProcessing and progressAssembling proportionally to chunks done.
const (
	progressChunking   = 5
	progressProcessing = 10
	progressAssembling = 90
	progressPersisting = 95
	progressTerminal   = 100
)

type Controller struct {
	cfg     Config
	decoder audio.Decoder
	chunker *audio.Chunker
	engines ChunkEngine
	repo    repository.Repository
	sink    progress.Sink

	mu   sync.Mutex
	runs map[string]*activeRun
}

// ChunkEngine runs both capabilities for one chunk. Satisfied by
// engine.Strategy; narrowed to an interface so tests can fake it.
type ChunkEngine interface {
	Transcribe(ctx context.Context, chunk audio.Chunk) (*engine.TranscriptionResult, bool, error)
	Diarize(ctx context.Context, chunk audio.Chunk) (*engine.DiarizationResult, bool, error)
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(cfg Config, decoder audio.Decoder, chunker *audio.Chunker, engines ChunkEngine, repo repository.Repository, sink progress.Sink) *Controller {
	return &Controller{
		cfg:     cfg,
		decoder: decoder,
		chunker: chunker,
		engines: engines,
		repo:    repo,
		sink:    sink,
		runs:    make(map[string]*activeRun),
	}
}

// Start registers a run, validates the audio and launches the pipeline in
// the background. Undecodable input fails the run immediately and returns
// the decode error; all later failures surface through run state instead.
func (c *Controller) Start(ctx context.Context, runID, filename string, data []byte) error {
	if _, err := c.repo.CreateRun(ctx, repository.CreateRunInput{RunID: runID, Filename: filename}); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	pcm, err := c.decoder.Decode(data)
	if err != nil {
		c.failRun(ctx, runID, repository.RunStateFailed, err)
		return fmt.Errorf("failed to decode audio: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ar := &activeRun{cancel: cancel, done: make(chan struct{})}
	c.mu.Lock()
	c.runs[runID] = ar
	c.mu.Unlock()

	go func() {
		defer close(ar.done)
		defer cancel()
		c.process(runCtx, runID, pcm)
		c.mu.Lock()
		delete(c.runs, runID)
		c.mu.Unlock()
	}()
	return nil
}

// Cancel stops an in-flight run. Chunks already dispatched finish but their
// results are discarded and the run lands in the cancelled state.
func (c *Controller) Cancel(runID string) error {
	c.mu.Lock()
	ar, ok := c.runs[runID]
	c.mu.Unlock()
	if !ok {
		return ErrRunNotFound
	}
	ar.cancel()
	return nil
}

// Wait blocks until the run's pipeline goroutine has exited. Completed or
// never-started runs return immediately.
func (c *Controller) Wait(runID string) {
	c.mu.Lock()
	ar, ok := c.runs[runID]
	c.mu.Unlock()
	if !ok {
		return
	}
	<-ar.done
}

// RunResult is a run's state paired with its persisted transcript.
// Transcript is empty unless the run completed.
type RunResult struct {
	Run        repository.Run
	Transcript transcript.Transcript
}

func (c *Controller) GetResult(ctx context.Context, runID string) (*RunResult, error) {
	run, err := c.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}

	result := &RunResult{Run: *run}
	if run.State != repository.RunStateCompleted {
		return result, nil
	}

	rows, err := c.repo.ListSegmentsByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result.Transcript.Segments = append(result.Transcript.Segments, transcript.Segment{
			Speaker: row.Speaker,
			Text:    row.Content,
			Start:   secondsToDuration(row.StartSeconds),
			End:     secondsToDuration(row.EndSeconds),
		})
	}
	return result, nil
}

func (c *Controller) process(ctx context.Context, runID string, pcm audio.PCM) {
	tracker := newTracker(runID, c.repo, c.sink)

	tracker.update(ctx, repository.RunStateChunking, progressChunking, 0, 0, false)
	chunks, err := c.chunker.ChunkAll(pcm)
	if err != nil {
		c.failRun(ctx, runID, repository.RunStateFailed, err)
		return
	}

	total := len(chunks)
	tracker.update(ctx, repository.RunStateProcessing, progressProcessing, total, 0, false)

	results := c.runChunks(ctx, chunks)

	done, failed := 0, 0
	degraded := false
	byIndex := make([]*chunkResult, total)
	for res := range results {
		if ctx.Err() != nil {
			// Keep draining so workers can exit; results are discarded.
			continue
		}
		done++
		if res.err != nil {
			failed++
			slog.Error("chunk failed", "run_id", runID, "chunk_index", res.index, "error", res.err)
		} else {
			byIndex[res.index] = res
			if res.degraded {
				degraded = true
			}
		}
		tracker.update(ctx, repository.RunStateProcessing, processingProgress(done, total), total, done, degraded)
	}

	if ctx.Err() != nil {
		c.failRun(ctx, runID, repository.RunStateCancelled, errors.New("run cancelled"))
		return
	}
	if total > 0 && float64(failed)/float64(total) > c.cfg.FailedChunkTolerance {
		c.failRun(ctx, runID, repository.RunStateFailed,
			fmt.Errorf("%d of %d chunks failed, exceeding tolerance %.2f", failed, total, c.cfg.FailedChunkTolerance))
		return
	}

	tracker.update(ctx, repository.RunStateAssembling, progressAssembling, total, done, degraded)
	var parts []assemble.ChunkSegments
	for _, res := range byIndex {
		if res == nil {
			continue
		}
		parts = append(parts, assemble.ChunkSegments{
			Index:       res.index,
			StartOffset: res.startOffset,
			Segments:    res.segments,
		})
	}
	final := assemble.Assemble(parts, assemble.Options{MergeEpsilon: c.cfg.BoundaryMergeEpsilon})

	tracker.update(ctx, repository.RunStateAssembling, progressPersisting, total, done, degraded)
	if err := c.persistTranscript(ctx, runID, final); err != nil {
		c.failRun(ctx, runID, repository.RunStateFailed, fmt.Errorf("failed to persist transcript: %w", err))
		return
	}

	if err := c.repo.CompleteRun(ctx, runID); err != nil {
		slog.Error("failed to mark run completed", "run_id", runID, "error", err)
	}
	tracker.notify(ctx, statusText(repository.RunStateCompleted), progressTerminal, "")
	slog.Info("run completed", "run_id", runID, "chunks", total, "failed_chunks", failed, "degraded", degraded, "segments", len(final.Segments))
}

type chunkResult struct {
	index       int
	startOffset time.Duration
	segments    []transcript.Segment
	degraded    bool
	err         error
}

// runChunks fans chunks out over a bounded worker pool and returns the
// channel of per-chunk results. The channel closes when all workers finish.
func (c *Controller) runChunks(ctx context.Context, chunks []audio.Chunk) <-chan *chunkResult {
	workerCount := c.cfg.WorkerCount
	if workerCount > len(chunks) {
		workerCount = len(chunks)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	tasks := make(chan audio.Chunk)
	results := make(chan *chunkResult)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range tasks {
				results <- c.processChunk(ctx, chunk)
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, chunk := range chunks {
			select {
			case <-ctx.Done():
				return
			case tasks <- chunk:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// processChunk transcribes, diarizes and aligns one chunk. A diarization
// failure degrades the chunk to the unknown speaker instead of failing it;
// a transcription failure fails the chunk.
func (c *Controller) processChunk(ctx context.Context, chunk audio.Chunk) *chunkResult {
	res := &chunkResult{index: chunk.Index, startOffset: chunk.StartOffset}

	tr, trDegraded, err := c.engines.Transcribe(ctx, chunk)
	if err != nil {
		res.err = fmt.Errorf("chunk %d: %w", chunk.Index, err)
		return res
	}
	res.degraded = trDegraded
	if len(tr.Words) == 0 {
		return res
	}

	dr, diDegraded, err := c.engines.Diarize(ctx, chunk)
	if err != nil {
		slog.Warn("diarization failed, labeling speakers unknown", "chunk_index", chunk.Index, "error", err)
		res.degraded = true
		res.segments = align.Align(tr.Words, nil)
		return res
	}
	res.degraded = res.degraded || diDegraded
	res.segments = align.Align(tr.Words, dr.Turns)
	return res
}

func (c *Controller) persistTranscript(ctx context.Context, runID string, t transcript.Transcript) error {
	input := repository.SaveTranscriptInput{RunID: runID}
	for i, s := range t.Segments {
		input.Segments = append(input.Segments, repository.SegmentInput{
			SegmentIndex: i,
			Speaker:      s.Speaker,
			Content:      s.Text,
			StartSeconds: s.Start.Seconds(),
			EndSeconds:   s.End.Seconds(),
		})
	}
	return c.repo.SaveTranscript(ctx, input)
}

func (c *Controller) failRun(ctx context.Context, runID string, state repository.RunState, cause error) {
	// Terminal writes must not be lost to the cancellation that caused them.
	ctx = context.WithoutCancel(ctx)
	err := c.repo.FailRun(ctx, repository.FailRunInput{RunID: runID, State: state, ErrorMsg: cause.Error()})
	if err != nil {
		slog.Error("failed to record run failure", "run_id", runID, "error", err)
	}
	if err := c.sink.Send(ctx, progress.Update{
		RunID:   runID,
		Percent: progressTerminal,
		Status:  statusText(state),
		Error:   cause.Error(),
	}); err != nil {
		slog.Warn("failed to deliver progress update", "run_id", runID, "error", err)
	}
	slog.Info("run ended", "run_id", runID, "state", state, "error", cause)
}

// processingProgress maps chunk completion onto the processing band of the
// progress scale.
func processingProgress(done, total int) int {
	if total == 0 {
		return progressAssembling
	}
	span := progressAssembling - progressProcessing
	return progressProcessing + span*done/total
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
