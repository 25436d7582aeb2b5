package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Stage labels in pipeline order. Persisted verbatim so `ytscribe list` can
// show where a job is.
const (
	StageValidatingURL    = "VALIDATING_URL"
	StageFetchingMetadata = "FETCHING_METADATA"
	StageFetchingCaptions = "FETCHING_CAPTIONS"
	StageSelectingAudio   = "SELECTING_AUDIO"
	StageDownloading      = "DOWNLOADING"
	StageNormalizing      = "NORMALIZING"
	StageChunking         = "CHUNKING"
	StageTranscribing     = "TRANSCRIBING"
	StageMerging          = "MERGING"
	StageWritingOutput    = "WRITING_OUTPUT"
	StageCleanup          = "CLEANUP"
)

// StageOrder lists the pipeline stages in execution order.
var StageOrder = []string{
	StageValidatingURL,
	StageFetchingMetadata,
	StageFetchingCaptions,
	StageSelectingAudio,
	StageDownloading,
	StageNormalizing,
	StageChunking,
	StageTranscribing,
	StageMerging,
	StageWritingOutput,
	StageCleanup,
}

// StageProgress maps a stage to the percent shown when that stage begins.
func StageProgress(stage string) float64 {
	for i, name := range StageOrder {
		if name == stage {
			return float64(i) / float64(len(StageOrder)) * 100
		}
	}
	return 0
}

// Transcript sources recorded on completed jobs.
const (
	SourceCaptions = "captions"
	SourceSpeech   = "deepgram"
)

// Chunk states.
const (
	ChunkPending = "pending"
	ChunkDone    = "done"
	ChunkFailed  = "failed"
)

// Job represents one video's transcription job persisted in SQLite.
type Job struct {
	VideoID         string
	SourceURL       string
	Title           string
	Status          Status
	Stage           string
	ProgressPercent float64
	AttemptCount    int
	LastError       string
	OutputPath      string
	Source          string
	CancelRequested bool
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Chunk is one planned audio segment of a job.
type Chunk struct {
	VideoID  string
	Index    int
	StartSec float64
	EndSec   float64
	State    string
	Error    string
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total     int
	Queued    int
	Running   int
	Completed int
	Failed    int
	Skipped   int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions except
// the explicit FAILED→QUEUED retry.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped:
		return true
	default:
		return false
	}
}
