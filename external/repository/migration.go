package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE run_state AS ENUM ('queued', 'chunking', 'processing', 'assembling', 'completed', 'failed', 'cancelled'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		filename TEXT NOT NULL,
		state run_state NOT NULL DEFAULT 'queued',
		progress INTEGER NOT NULL DEFAULT 0,
		chunks_total INTEGER NOT NULL DEFAULT 0,
		chunks_done INTEGER NOT NULL DEFAULT 0,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs (state)`,
	`CREATE TABLE IF NOT EXISTS transcript_segments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		segment_index INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		content TEXT NOT NULL,
		start_seconds DOUBLE PRECISION NOT NULL,
		end_seconds DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(run_id, segment_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transcript_segments_run ON transcript_segments (run_id, segment_index)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
