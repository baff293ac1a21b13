package repository

import "time"

type RunState string

const (
	RunStateQueued     RunState = "queued"
	RunStateChunking   RunState = "chunking"
	RunStateProcessing RunState = "processing"
	RunStateAssembling RunState = "assembling"
	RunStateCompleted  RunState = "completed"
	RunStateFailed     RunState = "failed"
	RunStateCancelled  RunState = "cancelled"
)

// Terminal reports whether no further state transitions are allowed.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed || s == RunStateCancelled
}

type Run struct {
	ID          string
	Filename    string
	State       RunState
	Progress    int
	ChunksTotal int
	ChunksDone  int
	Degraded    bool
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TranscriptSegment struct {
	ID           string
	RunID        string
	SegmentIndex int
	Speaker      string
	Content      string
	StartSeconds float64
	EndSeconds   float64
	CreatedAt    time.Time
}
