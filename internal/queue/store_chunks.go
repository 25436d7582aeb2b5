package queue

import (
	"context"
	"fmt"
)

// ReplaceChunks swaps a job's chunk plan. Used when a plan is first computed
// and again when a timeout forces re-chunking at a shorter length.
func (s *Store) ReplaceChunks(ctx context.Context, videoID string, chunks []Chunk) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin chunk tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE video_id = ?`, videoID); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		for _, chunk := range chunks {
			state := chunk.State
			if state == "" {
				state = ChunkPending
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO chunks (video_id, idx, start_sec, end_sec, state, error) VALUES (?, ?, ?, ?, ?, ?)`,
				videoID,
				chunk.Index,
				chunk.StartSec,
				chunk.EndSec,
				state,
				nullableString(chunk.Error),
			); err != nil {
				return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit chunks: %w", err)
		}
		return nil
	})
}

// MarkChunk records the outcome of one chunk's transcription.
func (s *Store) MarkChunk(ctx context.Context, videoID string, index int, state, errMsg string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE chunks SET state = ?, error = ? WHERE video_id = ? AND idx = ?`,
		state,
		nullableString(errMsg),
		videoID,
		index,
	); err != nil {
		return fmt.Errorf("mark chunk: %w", err)
	}
	return nil
}

// Chunks returns a job's chunk plan ordered by index.
func (s *Store) Chunks(ctx context.Context, videoID string) ([]Chunk, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT video_id, idx, start_sec, end_sec, state, COALESCE(error, '') FROM chunks WHERE video_id = ? ORDER BY idx`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(&chunk.VideoID, &chunk.Index, &chunk.StartSec, &chunk.EndSec, &chunk.State, &chunk.Error); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
