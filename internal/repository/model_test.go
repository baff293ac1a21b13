package repository

import "testing"

func TestRunState_Terminal(t *testing.T) {
	terminal := []RunState{RunStateCompleted, RunStateFailed, RunStateCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}

	active := []RunState{RunStateQueued, RunStateChunking, RunStateProcessing, RunStateAssembling}
	for _, s := range active {
		if s.Terminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}
