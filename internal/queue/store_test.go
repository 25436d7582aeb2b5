package queue_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ytscribe/internal/queue"
	"ytscribe/internal/testsupport"
)

const (
	testVideoID = "dQw4w9WgXcQ"
	testURL     = "https://youtu.be/dQw4w9WgXcQ"
)

func TestEnqueueNewJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	job := testsupport.Enqueue(t, store, testVideoID, testURL)
	if job.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want QUEUED", job.Status)
	}
	if job.VideoID != testVideoID {
		t.Fatalf("video id = %s", job.VideoID)
	}
	if job.AttemptCount != 0 {
		t.Fatalf("attempt count = %d", job.AttemptCount)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestEnqueueExistingNonTerminalReturnsRow(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.Enqueue(t, store, testVideoID, testURL)
	second := testsupport.Enqueue(t, store, testVideoID, testURL)

	if second.Status != queue.StatusQueued {
		t.Fatalf("status = %s", second.Status)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("second enqueue altered the stored row")
	}

	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 row, got %d", len(jobs))
	}
}

func TestEnqueueCompletedYieldsSkippedSnapshot(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)
	mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{Stage: queue.StageValidatingURL})
	mustTransition(t, store, testVideoID, queue.StatusCompleted, queue.TransitionOptions{OutputPath: "/out/t.txt", Source: queue.SourceCaptions})

	snapshot := testsupport.Enqueue(t, store, testVideoID, testURL)
	if snapshot.Status != queue.StatusSkipped {
		t.Fatalf("status = %s, want SKIPPED", snapshot.Status)
	}
	if snapshot.OutputPath != "/out/t.txt" {
		t.Fatalf("output path = %q", snapshot.OutputPath)
	}

	// Stored row stays COMPLETED.
	stored, err := store.Get(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("stored status = %s, want COMPLETED", stored.Status)
	}
}

func TestNextQueuedOrder(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, "aaaaaaaaaaa", "https://youtu.be/aaaaaaaaaaa")
	time.Sleep(5 * time.Millisecond)
	testsupport.Enqueue(t, store, "bbbbbbbbbbb", "https://youtu.be/bbbbbbbbbbb")

	next, err := store.NextQueued(ctx)
	if err != nil {
		t.Fatalf("NextQueued: %v", err)
	}
	if next == nil || next.VideoID != "aaaaaaaaaaa" {
		t.Fatalf("next = %+v, want oldest", next)
	}
}

func TestNextQueuedEmpty(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	next, err := store.NextQueued(context.Background())
	if err != nil {
		t.Fatalf("NextQueued: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil, got %+v", next)
	}
}

func TestTransitionRejectsInvalid(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)

	// QUEUED cannot jump straight to COMPLETED.
	_, err := store.Transition(ctx, testVideoID, queue.StatusCompleted, queue.TransitionOptions{})
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{})
	mustTransition(t, store, testVideoID, queue.StatusCompleted, queue.TransitionOptions{})

	// COMPLETED is terminal.
	_, err = store.Transition(ctx, testVideoID, queue.StatusQueued, queue.TransitionOptions{})
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from COMPLETED, got %v", err)
	}
}

func TestTransitionRejectsEdgesOutsideStateMachine(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)

	// A queued job can only be claimed; it never fails in place.
	_, err := store.Transition(ctx, testVideoID, queue.StatusFailed, queue.TransitionOptions{LastError: "boom"})
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("QUEUED -> FAILED: expected ErrInvalidTransition, got %v", err)
	}

	mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{})

	// Requeueing a running job is the reclaimer's job, not Transition's.
	_, err = store.Transition(ctx, testVideoID, queue.StatusQueued, queue.TransitionOptions{})
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("RUNNING -> QUEUED: expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionNeverReturnsNilJobWithoutError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)
	job, err := store.Transition(ctx, testVideoID, queue.StatusRunning, queue.TransitionOptions{})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if job == nil {
		t.Fatal("successful transition returned nil job")
	}

	// A row removed out from under the worker surfaces as an error, not as
	// a nil job the caller would dereference.
	if _, err := store.Remove(ctx, testVideoID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	job, err = store.Transition(ctx, testVideoID, queue.StatusCompleted, queue.TransitionOptions{})
	if err == nil {
		t.Fatalf("expected error for removed job, got job %+v", job)
	}
	if job != nil {
		t.Fatalf("job = %+v, want nil alongside the error", job)
	}
}

func TestTransitionPersistsFields(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	testsupport.Enqueue(t, store, testVideoID, testURL)
	job := mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{
		Stage:       queue.StageFetchingMetadata,
		BumpAttempt: true,
		Title:       "Some Talk",
	})
	if job.AttemptCount != 1 {
		t.Fatalf("attempt count = %d", job.AttemptCount)
	}
	if job.Stage != queue.StageFetchingMetadata {
		t.Fatalf("stage = %q", job.Stage)
	}
	if job.Title != "Some Talk" {
		t.Fatalf("title = %q", job.Title)
	}

	job = mustTransition(t, store, testVideoID, queue.StatusFailed, queue.TransitionOptions{
		LastError: "download failed: network unreachable",
	})
	if job.LastError != "download failed: network unreachable" {
		t.Fatalf("last error = %q", job.LastError)
	}
}

func TestTransitionTruncatesLongErrors(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	testsupport.Enqueue(t, store, testVideoID, testURL)
	mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{})

	long := strings.Repeat("x", 5000)
	job := mustTransition(t, store, testVideoID, queue.StatusFailed, queue.TransitionOptions{LastError: long})
	if len(job.LastError) > 2000 {
		t.Fatalf("error not truncated: %d chars", len(job.LastError))
	}
}

func TestRetryFailedPreservesAttempts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)
	mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{BumpAttempt: true})
	mustTransition(t, store, testVideoID, queue.StatusFailed, queue.TransitionOptions{LastError: "boom"})

	n, err := store.RetryFailed(ctx, testVideoID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if n != 1 {
		t.Fatalf("retried %d rows", n)
	}

	job, err := store.Get(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("status = %s", job.Status)
	}
	if job.AttemptCount != 1 {
		t.Fatalf("attempt count reset: %d", job.AttemptCount)
	}
	if job.LastError != "" {
		t.Fatalf("last error not cleared: %q", job.LastError)
	}
}

func TestRetryFailedIgnoresNonFailed(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	testsupport.Enqueue(t, store, testVideoID, testURL)
	n, err := store.RetryFailed(context.Background(), testVideoID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if n != 0 {
		t.Fatalf("retried %d rows, want 0", n)
	}
}

func TestRequestCancelFlagsJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)
	ok, err := store.RequestCancel(ctx, testVideoID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !ok {
		t.Fatal("cancel not applied")
	}

	flagged, err := store.CancelRequested(ctx, testVideoID)
	if err != nil {
		t.Fatalf("CancelRequested: %v", err)
	}
	if !flagged {
		t.Fatal("flag not set")
	}
}

func TestRequestCancelIgnoresTerminal(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)
	mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{})
	mustTransition(t, store, testVideoID, queue.StatusCompleted, queue.TransitionOptions{})

	ok, err := store.RequestCancel(ctx, testVideoID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if ok {
		t.Fatal("cancel applied to completed job")
	}
}

func TestReclaimStaleRunning(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)
	mustTransition(t, store, testVideoID, queue.StatusRunning, queue.TransitionOptions{})
	if err := store.UpdateHeartbeat(ctx, testVideoID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	// Heartbeat is fresh; nothing to reclaim with a past cutoff.
	n, err := store.ReclaimStaleRunning(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleRunning: %v", err)
	}
	if n != 0 {
		t.Fatalf("reclaimed %d fresh rows", n)
	}

	// A future cutoff expires the heartbeat.
	n, err = store.ReclaimStaleRunning(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleRunning: %v", err)
	}
	if n != 1 {
		t.Fatalf("reclaimed %d rows, want 1", n)
	}

	job, err := store.Get(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want QUEUED", job.Status)
	}
	if job.LastHeartbeat != nil {
		t.Fatal("heartbeat not cleared")
	}
}

func TestChunkLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)

	plan := []queue.Chunk{
		{VideoID: testVideoID, Index: 0, StartSec: 0, EndSec: 3600},
		{VideoID: testVideoID, Index: 1, StartSec: 3598, EndSec: 7198},
	}
	if err := store.ReplaceChunks(ctx, testVideoID, plan); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	chunks, err := store.Chunks(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d", len(chunks))
	}
	if chunks[0].State != queue.ChunkPending {
		t.Fatalf("state = %s", chunks[0].State)
	}

	if err := store.MarkChunk(ctx, testVideoID, 0, queue.ChunkDone, ""); err != nil {
		t.Fatalf("MarkChunk: %v", err)
	}
	chunks, err = store.Chunks(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if chunks[0].State != queue.ChunkDone {
		t.Fatalf("state = %s after mark", chunks[0].State)
	}

	// Re-chunking replaces the plan wholesale.
	if err := store.ReplaceChunks(ctx, testVideoID, []queue.Chunk{{VideoID: testVideoID, Index: 0, StartSec: 0, EndSec: 1800}}); err != nil {
		t.Fatalf("ReplaceChunks (second): %v", err)
	}
	chunks, err = store.Chunks(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunk count after replace = %d", len(chunks))
	}
}

func TestRemoveCascadesChunks(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, testVideoID, testURL)
	if err := store.ReplaceChunks(ctx, testVideoID, []queue.Chunk{{VideoID: testVideoID, Index: 0, StartSec: 0, EndSec: 60}}); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	ok, err := store.Remove(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !ok {
		t.Fatal("nothing removed")
	}

	chunks, err := store.Chunks(ctx, testVideoID)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("chunks survived removal: %d", len(chunks))
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, "aaaaaaaaaaa", "https://youtu.be/aaaaaaaaaaa")
	testsupport.Enqueue(t, store, "bbbbbbbbbbb", "https://youtu.be/bbbbbbbbbbb")
	mustTransition(t, store, "bbbbbbbbbbb", queue.StatusRunning, queue.TransitionOptions{})
	mustTransition(t, store, "bbbbbbbbbbb", queue.StatusFailed, queue.TransitionOptions{LastError: "x"})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusQueued] != 1 || stats[queue.StatusFailed] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Queued != 1 || health.Failed != 1 {
		t.Fatalf("health = %+v", health)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus("queued"); !ok || status != queue.StatusQueued {
		t.Fatalf("ParseStatus(queued) = %v %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("ParseStatus accepted bogus")
	}
}

func mustTransition(t *testing.T, store *queue.Store, videoID string, to queue.Status, opts queue.TransitionOptions) *queue.Job {
	t.Helper()
	job, err := store.Transition(context.Background(), videoID, to, opts)
	if err != nil {
		t.Fatalf("Transition to %s: %v", to, err)
	}
	return job
}
