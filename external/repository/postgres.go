package repository

import (
	"context"

	"github.com/foxseedlab/gijiroku/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateRun(ctx context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO runs (id, filename, state, progress)
		 VALUES ($1, $2, 'queued', 0)
		 RETURNING id, filename, state, progress, chunks_total, chunks_done, degraded, error_message, created_at, updated_at`,
		input.RunID, input.Filename)
	return scanRun(row)
}

func (r *PostgresRepository) UpdateRunProgress(ctx context.Context, input repository.UpdateRunProgressInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE runs
		 SET state = $2, progress = $3, chunks_total = $4, chunks_done = $5, degraded = $6, updated_at = NOW()
		 WHERE id = $1`,
		input.RunID, input.State, input.Progress, input.ChunksTotal, input.ChunksDone, input.Degraded)
	return err
}

func (r *PostgresRepository) CompleteRun(ctx context.Context, runID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE runs SET state = 'completed', progress = 100, updated_at = NOW() WHERE id = $1`,
		runID)
	return err
}

func (r *PostgresRepository) FailRun(ctx context.Context, input repository.FailRunInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE runs SET state = $2, progress = 100, error_message = $3, updated_at = NOW() WHERE id = $1`,
		input.RunID, input.State, input.ErrorMsg)
	return err
}

func (r *PostgresRepository) GetRun(ctx context.Context, runID string) (*repository.Run, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, filename, state, progress, chunks_total, chunks_done, degraded, error_message, created_at, updated_at
		 FROM runs WHERE id = $1`,
		runID)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

func (r *PostgresRepository) DeleteRun(ctx context.Context, runID string) error {
	// Segments go with the run via ON DELETE CASCADE.
	_, err := r.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runID)
	return err
}

// SaveTranscript replaces a run's persisted segments atomically.
func (r *PostgresRepository) SaveTranscript(ctx context.Context, input repository.SaveTranscriptInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_segments WHERE run_id = $1`, input.RunID); err != nil {
		return err
	}
	for _, seg := range input.Segments {
		_, err := tx.Exec(ctx,
			`INSERT INTO transcript_segments (run_id, segment_index, speaker, content, start_seconds, end_seconds)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			input.RunID, seg.SegmentIndex, seg.Speaker, seg.Content, seg.StartSeconds, seg.EndSeconds)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) ListSegmentsByRunID(ctx context.Context, runID string) ([]repository.TranscriptSegment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, run_id, segment_index, speaker, content, start_seconds, end_seconds, created_at
		 FROM transcript_segments WHERE run_id = $1 ORDER BY segment_index ASC`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranscriptSegment
	for rows.Next() {
		var seg repository.TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.RunID, &seg.SegmentIndex, &seg.Speaker, &seg.Content, &seg.StartSeconds, &seg.EndSeconds, &seg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, seg)
	}
	return list, rows.Err()
}

func scanRun(row pgx.Row) (*repository.Run, error) {
	var run repository.Run
	err := row.Scan(&run.ID, &run.Filename, &run.State, &run.Progress,
		&run.ChunksTotal, &run.ChunksDone, &run.Degraded, &run.Error,
		&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
