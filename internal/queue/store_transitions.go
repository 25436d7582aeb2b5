package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ytscribe/internal/services"
)

// ErrInvalidTransition indicates a status change the state machine forbids.
// Hitting it means workflow code is broken, not that input was bad.
var ErrInvalidTransition = errors.New("invalid status transition")

var validTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning},
	StatusRunning: {StatusCompleted, StatusFailed, StatusSkipped},
	StatusFailed:  {StatusQueued},
}

func transitionAllowed(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionOptions carries the fields persisted together with a status
// change.
type TransitionOptions struct {
	Stage           string
	ProgressPercent float64
	LastError       string
	OutputPath      string
	Source          string
	Title           string
	BumpAttempt     bool
	ClearHeartbeat  bool
}

// Transition validates and applies a status change as one read-modify-write
// transaction, so concurrent writers (CLI remove, retry) cannot slip between
// the validation read and the update. A row that vanished or changed status
// mid-flight yields an error, never (nil, nil). LastError is truncated to
// the persistence limit before it is stored.
func (s *Store) Transition(ctx context.Context, videoID string, to Status, opts TransitionOptions) (*Job, error) {
	ctx = ensureContext(ctx)

	var updated *Job
	err := retryOnBusy(ctx, func() error {
		job, txErr := s.transitionTx(ctx, videoID, to, opts)
		if txErr != nil {
			return txErr
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) transitionTx(ctx context.Context, videoID string, to Status, opts TransitionOptions) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	job, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE video_id = ?`, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition: job %s not found", videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("transition: read job: %w", err)
	}
	if !transitionAllowed(job.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s (job %s)", ErrInvalidTransition, job.Status, to, videoID)
	}

	now := time.Now().UTC()
	attempt := job.AttemptCount
	if opts.BumpAttempt {
		attempt++
	}

	heartbeat := nullableTimePtr(job.LastHeartbeat)
	if opts.ClearHeartbeat || to != StatusRunning {
		heartbeat = nil
	}

	title := job.Title
	if opts.Title != "" {
		title = opts.Title
	}
	outputPath := job.OutputPath
	if opts.OutputPath != "" {
		outputPath = opts.OutputPath
	}
	source := job.Source
	if opts.Source != "" {
		source = opts.Source
	}

	res, err := tx.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, stage = ?, progress_percent = ?, attempt_count = ?,
             last_error = ?, output_path = ?, source = ?, title = ?,
             last_heartbeat = ?, updated_at = ?
         WHERE video_id = ? AND status = ?`,
		to,
		nullableString(opts.Stage),
		opts.ProgressPercent,
		attempt,
		nullableString(services.Truncate(opts.LastError, services.MessageLimit)),
		nullableString(outputPath),
		nullableString(source),
		nullableString(title),
		heartbeat,
		now.Format(time.RFC3339Nano),
		videoID,
		job.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("transition: job %s changed or vanished while applying %s", videoID, to)
	}

	updated, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE video_id = ?`, videoID))
	if err != nil {
		return nil, fmt.Errorf("transition: reread job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return updated, nil
}

// UpdateProgress persists the stage label and percent for an in-flight job.
func (s *Store) UpdateProgress(ctx context.Context, videoID, stage string, percent float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET stage = ?, progress_percent = ?, updated_at = ? WHERE video_id = ?`,
		nullableString(stage),
		percent,
		time.Now().UTC().Format(time.RFC3339Nano),
		videoID,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// UpdateTitle persists the video title once metadata arrives.
func (s *Store) UpdateTitle(ctx context.Context, videoID, title string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET title = ?, updated_at = ? WHERE video_id = ?`,
		nullableString(title),
		time.Now().UTC().Format(time.RFC3339Nano),
		videoID,
	); err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, videoID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE video_id = ?`,
		now,
		now,
		videoID,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleRunning returns RUNNING jobs with expired heartbeats to QUEUED
// so a restarted daemon can pick them up.
func (s *Store) ReclaimStaleRunning(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		StatusQueued,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusRunning,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to QUEUED for reprocessing. Attempt
// counts are preserved. With no ids, every failed job is retried.
func (s *Store) RetryFailed(ctx context.Context, videoIDs ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(videoIDs) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, last_error = NULL, cancel_requested = 0, updated_at = ?
             WHERE status = ?`,
			StatusQueued,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(videoIDs))
	args := make([]any, 0, len(videoIDs)+2)
	args = append(args, StatusQueued, now)
	for _, id := range videoIDs {
		args = append(args, id)
	}
	query := `UPDATE jobs
        SET status = ?, last_error = NULL, cancel_requested = 0, updated_at = ?
        WHERE video_id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// RequestCancel flags a job for cancellation. The worker honors the flag at
// its next checkpoint; a still-queued job fails immediately.
func (s *Store) RequestCancel(ctx context.Context, videoID string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ?
         WHERE video_id = ? AND status IN (?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		videoID,
		StatusQueued,
		StatusRunning,
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CancelRequested reports whether cancellation is pending for a job.
func (s *Store) CancelRequested(ctx context.Context, videoID string) (bool, error) {
	ctx = ensureContext(ctx)
	var flag int
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE video_id = ?`, videoID).Scan(&flag)
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

func nullableTimePtr(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
