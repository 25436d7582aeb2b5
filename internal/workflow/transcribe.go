package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"ytscribe/internal/fileutil"
	"ytscribe/internal/logging"
	"ytscribe/internal/media"
	"ytscribe/internal/merge"
	"ytscribe/internal/output"
	"ytscribe/internal/queue"
	"ytscribe/internal/services"
)

// stageChunk probes the normalized audio and lays out the chunk plan. Audio
// at or under the threshold stays whole.
func (m *Manager) stageChunk(ctx context.Context, run *jobRun) error {
	duration, err := m.audio.Duration(ctx, run.normalizedPath)
	if err != nil {
		return err
	}
	run.duration = duration

	if media.NeedsChunking(duration, m.cfg.ChunkThresholdSeconds()) {
		run.spans = media.PlanChunks(duration, m.cfg.Chunking.BaseChunkSeconds, m.cfg.Chunking.OverlapSeconds)
	} else {
		run.spans = []media.ChunkSpan{{Index: 0, StartSec: 0, EndSec: duration}}
	}

	chunks := make([]queue.Chunk, 0, len(run.spans))
	for _, span := range run.spans {
		chunks = append(chunks, queue.Chunk{
			VideoID:  run.job.VideoID,
			Index:    span.Index,
			StartSec: span.StartSec,
			EndSec:   span.EndSec,
		})
	}
	if err := m.store.ReplaceChunks(ctx, run.job.VideoID, chunks); err != nil {
		return err
	}

	if len(run.spans) == 1 {
		run.chunkPaths = []string{run.normalizedPath}
		return nil
	}
	paths, err := m.audio.Split(ctx, run.normalizedPath, run.workspace, run.spans)
	if err != nil {
		return err
	}
	run.chunkPaths = paths
	run.logger.Info("audio chunked",
		logging.Int("chunks", len(paths)),
		logging.Float64("duration_sec", duration),
	)
	return nil
}

// stageTranscribe submits every chunk in order. A timed-out chunk is split
// in half and retried at the smaller size until the configured floor.
func (m *Manager) stageTranscribe(ctx context.Context, run *jobRun) error {
	run.chunkTexts = make([]string, 0, len(run.spans))
	for i, span := range run.spans {
		if err := m.checkCancel(ctx, run); err != nil {
			return err
		}
		text, err := m.transcribeSpan(ctx, run, span, run.chunkPaths[i], 0)
		if err != nil {
			if markErr := m.store.MarkChunk(ctx, run.job.VideoID, span.Index, queue.ChunkFailed, err.Error()); markErr != nil {
				run.logger.Warn("chunk state update failed", logging.Error(markErr))
			}
			return err
		}
		if markErr := m.store.MarkChunk(ctx, run.job.VideoID, span.Index, queue.ChunkDone, ""); markErr != nil {
			run.logger.Warn("chunk state update failed", logging.Error(markErr))
		}
		run.chunkTexts = append(run.chunkTexts, text)
	}
	return nil
}

// maxRechunkDepth bounds recursive timeout splitting independently of the
// duration floor.
const maxRechunkDepth = 4

func (m *Manager) transcribeSpan(ctx context.Context, run *jobRun, span media.ChunkSpan, path string, depth int) (string, error) {
	result, err := m.transcriber.TranscribeFile(ctx, path)
	if err == nil {
		if m.cfg.Debug.KeepArtifacts {
			m.saveArtifact(run, fmt.Sprintf("chunk_%03d_s%05.0f.response.json", span.Index, span.StartSec), result.Raw)
		}
		return result.Text, nil
	}
	if !errors.Is(err, services.ErrTimeout) {
		return "", err
	}

	half := (span.EndSec - span.StartSec) / 2
	if depth >= maxRechunkDepth || half < float64(m.cfg.Chunking.MinChunkSeconds) {
		return "", services.Wrap(services.ErrTimeout, "workflow", "transcribe",
			fmt.Sprintf("chunk %d still times out at %.0fs, at re-chunk floor", span.Index, span.EndSec-span.StartSec), err)
	}

	run.logger.Warn("chunk timed out, splitting in half",
		logging.Int("chunk", span.Index),
		logging.Int("depth", depth),
		logging.Float64("length_sec", span.EndSec-span.StartSec),
	)

	halves := media.SplitInHalf(span, m.cfg.Chunking.OverlapSeconds)
	for i := range halves {
		halves[i].Index = i
	}
	subDir := filepath.Join(run.workspace, fmt.Sprintf("rechunk_%03d_d%d", span.Index, depth))
	if err := fileutil.EnsureDir(subDir); err != nil {
		return "", err
	}
	paths, err := m.audio.Split(ctx, run.normalizedPath, subDir, halves)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(halves))
	for i, sub := range halves {
		sub.Index = span.Index
		text, err := m.transcribeSpan(ctx, run, sub, paths[i], depth+1)
		if err != nil {
			return "", err
		}
		texts = append(texts, text)
	}
	return merge.Transcripts(texts), nil
}

func (m *Manager) stageMerge(ctx context.Context, run *jobRun) error {
	run.transcript = merge.Transcripts(run.chunkTexts)
	if run.transcript == "" {
		return services.Wrap(services.ErrTransient, "workflow", "merge", "merged transcript is empty", nil)
	}
	run.source = queue.SourceSpeech
	return nil
}

func (m *Manager) stageWriteOutput(ctx context.Context, run *jobRun) error {
	path, err := output.WriteTranscript(m.cfg.Paths.OutputDir, run.title, run.job.VideoID, run.transcript)
	if err != nil {
		return err
	}
	run.outputPath = path
	return nil
}
