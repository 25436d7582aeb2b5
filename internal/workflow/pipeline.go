package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ytscribe/internal/captions"
	"ytscribe/internal/fileutil"
	"ytscribe/internal/identity"
	"ytscribe/internal/logging"
	"ytscribe/internal/media"
	"ytscribe/internal/output"
	"ytscribe/internal/queue"
	"ytscribe/internal/services"
)

// errSkipDuplicate aborts a pipeline run because the transcript already
// exists on disk.
var errSkipDuplicate = errors.New("transcript already exists")

// jobRun carries the mutable state of one job through the pipeline.
type jobRun struct {
	job       *queue.Job
	logger    *slog.Logger
	workspace string
	stage     string

	title          string
	duration       float64
	formats        []media.StreamInfo
	formatID       string
	normalizedPath string
	spans          []media.ChunkSpan
	chunkPaths     []string
	chunkTexts     []string
	transcript     string
	source         string
	outputPath     string
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	jobCtx := m.jobContext(ctx, job.VideoID)
	logger := logging.WithContext(jobCtx, m.logger)

	claimed, err := m.store.Transition(jobCtx, job.VideoID, queue.StatusRunning, queue.TransitionOptions{
		Stage:       queue.StageValidatingURL,
		BumpAttempt: true,
	})
	if err != nil {
		logger.Warn("failed to claim job", logging.Error(err))
		return nil
	}

	stopHeartbeat := m.startHeartbeat(jobCtx, job.VideoID)
	defer stopHeartbeat()

	run := &jobRun{
		job:       claimed,
		logger:    logger,
		workspace: m.cfg.JobWorkspace(job.VideoID),
		title:     claimed.Title,
	}

	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.Int("attempt", claimed.AttemptCount),
	)

	err = m.runPipeline(jobCtx, run)
	switch {
	case err == nil:
		return m.completeJob(jobCtx, run)
	case errors.Is(err, errSkipDuplicate):
		return m.skipJob(jobCtx, run)
	case errors.Is(err, context.Canceled):
		// Daemon shutdown. Leave the job RUNNING; the stale-heartbeat
		// reclaimer re-queues it on the next start.
		return err
	default:
		return m.failJob(jobCtx, run, err)
	}
}

func (m *Manager) runPipeline(ctx context.Context, run *jobRun) error {
	if err := m.runStage(ctx, run, queue.StageValidatingURL, m.stageValidate); err != nil {
		return err
	}
	if err := m.runStage(ctx, run, queue.StageFetchingMetadata, m.stageMetadata); err != nil {
		return err
	}
	if err := m.runStage(ctx, run, queue.StageFetchingCaptions, m.stageCaptions); err != nil {
		return err
	}
	if run.transcript != "" {
		return m.runStage(ctx, run, queue.StageWritingOutput, m.stageWriteOutput)
	}

	audioStages := []struct {
		name string
		fn   stageFunc
	}{
		{queue.StageSelectingAudio, m.stageSelectAudio},
		{queue.StageDownloading, m.stageDownload},
		{queue.StageNormalizing, m.stageNormalize},
		{queue.StageChunking, m.stageChunk},
		{queue.StageTranscribing, m.stageTranscribe},
		{queue.StageMerging, m.stageMerge},
		{queue.StageWritingOutput, m.stageWriteOutput},
	}
	for _, stage := range audioStages {
		if err := m.runStage(ctx, run, stage.name, stage.fn); err != nil {
			return err
		}
	}
	return nil
}

type stageFunc func(ctx context.Context, run *jobRun) error

// runStage executes one stage with cancellation checks and stage-local
// retries of transient failures.
func (m *Manager) runStage(ctx context.Context, run *jobRun, stage string, fn stageFunc) error {
	if err := m.checkCancel(ctx, run); err != nil {
		return err
	}
	run.stage = stage

	stageCtx := services.WithStage(ctx, stage)
	logger := logging.WithContext(stageCtx, run.logger)
	if err := m.store.UpdateProgress(stageCtx, run.job.VideoID, stage, queue.StageProgress(stage)); err != nil {
		logger.Warn("progress update failed", logging.Error(err))
	}
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_started"))

	maxAttempts := m.cfg.Workflow.MaxStageAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(stageCtx, run)
		if err == nil {
			logger.Info("stage completed", logging.String(logging.FieldEventType, "stage_completed"))
			return nil
		}
		if !services.IsTransient(err) || attempt == maxAttempts {
			break
		}
		logger.Warn("stage failed, retrying",
			logging.Error(err),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", maxAttempts),
		)
		m.waitOrShutdown(stageCtx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
		if cancelErr := m.checkCancel(stageCtx, run); cancelErr != nil {
			return cancelErr
		}
	}
	return err
}

func (m *Manager) checkCancel(ctx context.Context, run *jobRun) error {
	if ctx.Err() != nil {
		return context.Canceled
	}
	requested, err := m.store.CancelRequested(ctx, run.job.VideoID)
	if err != nil {
		run.logger.Warn("cancel flag read failed", logging.Error(err))
		return nil
	}
	if requested {
		return services.ErrCanceled
	}
	return nil
}

func (m *Manager) stageValidate(ctx context.Context, run *jobRun) error {
	videoID, err := identity.Resolve(run.job.SourceURL)
	if err != nil {
		return err
	}
	if videoID != run.job.VideoID {
		return services.Wrap(services.ErrParse, "workflow", "validate",
			fmt.Sprintf("url resolves to %s, job keyed by %s", videoID, run.job.VideoID), nil)
	}

	exists, err := output.TranscriptExists(m.cfg.Paths.OutputDir, run.job.VideoID)
	if err != nil {
		return err
	}
	if exists {
		return errSkipDuplicate
	}
	return fileutil.EnsureDir(run.workspace)
}

func (m *Manager) stageMetadata(ctx context.Context, run *jobRun) error {
	meta, err := m.fetcher.FetchMetadata(ctx, run.job.SourceURL)
	if err != nil {
		return err
	}
	run.title = meta.Title
	run.duration = meta.Duration
	run.formats = meta.Formats
	if err := m.store.UpdateTitle(ctx, run.job.VideoID, meta.Title); err != nil {
		run.logger.Warn("title update failed", logging.Error(err))
	}
	if m.cfg.Debug.KeepArtifacts {
		m.saveArtifact(run, "metadata.json", []byte(fmt.Sprintf("{%q: %q, %q: %.3f}\n", "title", meta.Title, "duration", meta.Duration)))
	}
	return nil
}

func (m *Manager) stageCaptions(ctx context.Context, run *jobRun) error {
	path, found, err := m.fetcher.FetchCaptions(ctx, run.job.SourceURL, run.job.VideoID, run.workspace)
	if err != nil {
		return err
	}
	if !found {
		run.logger.Info("no caption track, falling back to audio")
		return nil
	}
	text, err := captions.ParseFile(path)
	if err != nil {
		run.logger.Warn("caption parse failed, falling back to audio", logging.Error(err))
		return nil
	}
	if text == "" {
		run.logger.Info("caption track empty, falling back to audio")
		return nil
	}
	run.transcript = text
	run.source = queue.SourceCaptions
	return nil
}

func (m *Manager) stageSelectAudio(ctx context.Context, run *jobRun) error {
	selection := media.SelectStream(run.formats, m.cfg.Audio)
	run.logger.Info("audio stream selected",
		logging.String("format_id", selection.FormatID),
		logging.Float64("abr_kbps", selection.ABRKbps),
		logging.String("reason", selection.Reason),
	)
	run.formatID = selection.FormatID
	return nil
}

func (m *Manager) stageDownload(ctx context.Context, run *jobRun) error {
	path, err := m.fetcher.DownloadAudio(ctx, run.job.SourceURL, run.formatID, run.workspace)
	if err != nil {
		return err
	}
	run.logger.Debug("audio downloaded", logging.String("path", path))
	return nil
}

func (m *Manager) stageNormalize(ctx context.Context, run *jobRun) error {
	source, err := findDownloadedAudio(run.workspace)
	if err != nil {
		return err
	}
	normalized, err := m.audio.Normalize(ctx, source, run.workspace)
	if err != nil {
		return err
	}
	run.normalizedPath = normalized
	return nil
}

func (m *Manager) completeJob(ctx context.Context, run *jobRun) error {
	m.cleanupWorkspace(run)
	_, err := m.store.Transition(ctx, run.job.VideoID, queue.StatusCompleted, queue.TransitionOptions{
		Stage:           queue.StageCleanup,
		ProgressPercent: 100,
		OutputPath:      run.outputPath,
		Source:          run.source,
		Title:           run.title,
	})
	if err != nil {
		return err
	}
	run.logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("source", run.source),
		logging.String("output_path", run.outputPath),
	)
	return nil
}

func (m *Manager) skipJob(ctx context.Context, run *jobRun) error {
	m.cleanupWorkspace(run)
	_, err := m.store.Transition(ctx, run.job.VideoID, queue.StatusSkipped, queue.TransitionOptions{
		Stage:           queue.StageCleanup,
		ProgressPercent: 100,
		Title:           run.title,
	})
	if err != nil {
		return err
	}
	run.logger.Info("job skipped, transcript already exists",
		logging.String(logging.FieldEventType, "job_skipped"),
	)
	return nil
}

func (m *Manager) failJob(ctx context.Context, run *jobRun, jobErr error) error {
	m.cleanupWorkspace(run)
	message := jobErr.Error()
	if errors.Is(jobErr, services.ErrCanceled) {
		message = "canceled by user"
	}
	failedStage := run.stage
	if failedStage == "" {
		failedStage = run.job.Stage
	}
	_, err := m.store.Transition(ctx, run.job.VideoID, queue.StatusFailed, queue.TransitionOptions{
		Stage:     failedStage,
		LastError: message,
		Title:     run.title,
	})
	if err != nil {
		return err
	}
	logging.ErrorWithContext(run.logger, "job failed", "job_failed", logging.Error(jobErr))
	return nil
}

// cleanupWorkspace removes job artifacts. With keep_artifacts set, audio
// files are still deleted but metadata and raw responses stay for
// inspection.
func (m *Manager) cleanupWorkspace(run *jobRun) {
	if !m.cfg.Debug.KeepArtifacts {
		if err := fileutil.RemoveTree(run.workspace); err != nil {
			run.logger.Warn("workspace cleanup failed", logging.Error(err))
		}
		return
	}
	for _, pattern := range []string{"source.*", "normalized.mp3", "chunk_*.mp3", "rechunk_*"} {
		matches, _ := filepath.Glob(filepath.Join(run.workspace, pattern))
		for _, match := range matches {
			if err := os.RemoveAll(match); err != nil {
				run.logger.Warn("artifact removal failed", logging.String("path", match), logging.Error(err))
			}
		}
	}
}

func (m *Manager) saveArtifact(run *jobRun, name string, data []byte) {
	path := filepath.Join(run.workspace, name)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		run.logger.Warn("artifact write failed", logging.String("path", path), logging.Error(err))
	}
}

func findDownloadedAudio(workspace string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(workspace, "source.*"))
	if err != nil || len(matches) == 0 {
		return "", services.Wrap(services.ErrDownload, "workflow", "normalize", "downloaded audio missing", err)
	}
	return matches[0], nil
}
