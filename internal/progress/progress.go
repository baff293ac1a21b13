package progress

import "context"

// Update is one progress snapshot for a run. Percent is monotonically
// non-decreasing over a run's lifetime and reaches exactly 100 on any
// terminal state. Error is empty unless Status is a failure.
type Update struct {
	RunID   string `json:"run_id"`
	Percent int    `json:"progress"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Sink receives progress snapshots. Implementations must tolerate being
// called from the pipeline's hot path; delivery failures are the caller's
// to log and swallow, never to propagate into run state.
type Sink interface {
	Send(ctx context.Context, u Update) error
}
