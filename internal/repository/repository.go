package repository

import "context"

type CreateRunInput struct {
	RunID    string
	Filename string
}

type UpdateRunProgressInput struct {
	RunID       string
	State       RunState
	Progress    int
	ChunksTotal int
	ChunksDone  int
	Degraded    bool
}

type FailRunInput struct {
	RunID    string
	State    RunState
	ErrorMsg string
}

type SegmentInput struct {
	SegmentIndex int
	Speaker      string
	Content      string
	StartSeconds float64
	EndSeconds   float64
}

type SaveTranscriptInput struct {
	RunID    string
	Segments []SegmentInput
}

type RunRepository interface {
	CreateRun(ctx context.Context, input CreateRunInput) (*Run, error)
	UpdateRunProgress(ctx context.Context, input UpdateRunProgressInput) error
	CompleteRun(ctx context.Context, runID string) error
	FailRun(ctx context.Context, input FailRunInput) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	DeleteRun(ctx context.Context, runID string) error
}

type TranscriptRepository interface {
	SaveTranscript(ctx context.Context, input SaveTranscriptInput) error
	ListSegmentsByRunID(ctx context.Context, runID string) ([]TranscriptSegment, error)
}

type Repository interface {
	RunRepository
	TranscriptRepository
}
