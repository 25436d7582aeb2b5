package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ytscribe/internal/config"
	"ytscribe/internal/logging"
	"ytscribe/internal/media"
	"ytscribe/internal/queue"
	"ytscribe/internal/services"
	"ytscribe/internal/services/deepgram"
	"ytscribe/internal/services/ytdlp"
)

// MediaFetcher covers the yt-dlp surface the pipeline needs.
type MediaFetcher interface {
	FetchMetadata(ctx context.Context, url string) (*ytdlp.Metadata, error)
	FetchCaptions(ctx context.Context, url, videoID, workDir string) (string, bool, error)
	DownloadAudio(ctx context.Context, url, formatID, outputDir string) (string, error)
}

// AudioProcessor covers the ffmpeg surface the pipeline needs.
type AudioProcessor interface {
	Normalize(ctx context.Context, inputPath, outputDir string) (string, error)
	Duration(ctx context.Context, path string) (float64, error)
	Split(ctx context.Context, inputPath, outputDir string, spans []media.ChunkSpan) ([]string, error)
}

// Transcriber submits one audio file for speech-to-text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (*deepgram.Result, error)
}

// Manager runs the single-worker processing loop over the job queue.
type Manager struct {
	cfg         *config.Config
	store       *queue.Store
	logger      *slog.Logger
	fetcher     MediaFetcher
	audio       AudioProcessor
	transcriber Transcriber

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher MediaFetcher, audio AudioProcessor, transcriber Transcriber) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		fetcher:      fetcher,
		audio:        audio,
		transcriber:  transcriber,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.runWorker(runCtx)
	return nil
}

// Stop terminates background processing and waits for the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()

	m.reclaimStale(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextQueued(ctx)
		if err != nil {
			m.logger.Error("failed to fetch next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.waitOrShutdown(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}
		if job == nil {
			m.waitOrShutdown(ctx, m.pollInterval)
			continue
		}

		if err := m.processJob(ctx, job); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// RunOnce drains the queue synchronously, processing jobs until none remain
// or the context ends. Used by `ytscribe run --once` and tests.
func (m *Manager) RunOnce(ctx context.Context) error {
	m.reclaimStale(ctx)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		job, err := m.store.NextQueued(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}
		if err := m.processJob(ctx, job); err != nil {
			return err
		}
	}
}

// reclaimStale returns RUNNING jobs with expired heartbeats to QUEUED so a
// restarted daemon picks them up.
func (m *Manager) reclaimStale(ctx context.Context) {
	timeout := time.Duration(m.cfg.Workflow.HeartbeatTimeout) * time.Second
	if timeout <= 0 {
		return
	}
	reclaimed, err := m.store.ReclaimStaleRunning(ctx, time.Now().Add(-timeout))
	if err != nil {
		m.logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
		)
		return
	}
	if reclaimed > 0 {
		m.logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// startHeartbeat refreshes the job's liveness timestamp until the returned
// stop function is called.
func (m *Manager) startHeartbeat(ctx context.Context, videoID string) func() {
	interval := time.Duration(m.cfg.Workflow.HeartbeatInterval) * time.Second
	if interval <= 0 {
		return func() {}
	}

	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := m.store.UpdateHeartbeat(hbCtx, videoID); err != nil && !errors.Is(err, context.Canceled) {
					m.logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (m *Manager) jobContext(ctx context.Context, videoID string) context.Context {
	ctx = services.WithVideoID(ctx, videoID)
	return services.WithRequestID(ctx, uuid.NewString())
}
