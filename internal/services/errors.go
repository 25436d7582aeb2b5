package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classify pipeline failures. Fatal sentinels fail the job
// immediately; transient sentinels are retried inside the owning stage up to
// its bound before the job is failed.
var (
	// ErrParse marks input that is not a recognizable video reference.
	ErrParse = errors.New("invalid video reference")
	// ErrMetadataUnavailable marks a metadata fetch that did not produce a result.
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	// ErrNoAcceptableStream marks a video with no usable audio-only stream.
	ErrNoAcceptableStream = errors.New("no acceptable audio stream")
	// ErrDownload marks an audio download failure.
	ErrDownload = errors.New("download failed")
	// ErrNormalize marks a transcode-to-normalized-audio failure.
	ErrNormalize = errors.New("normalize failed")
	// ErrChunking marks a chunk extraction failure.
	ErrChunking = errors.New("chunking failed")
	// ErrRateLimited marks a transcription request rejected for rate limiting.
	// It becomes a job failure only after the backoff schedule is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRejected marks a request the remote service refused outright (bad
	// request, bad credentials). Retrying cannot help.
	ErrRejected = errors.New("request rejected")
	// ErrTimeout marks a transcription request that timed out. The orchestrator
	// responds by re-chunking at a smaller interval, not by plain retry.
	ErrTimeout = errors.New("request timeout")
	// ErrPathTraversal marks an output path that escaped the output root.
	ErrPathTraversal = errors.New("path traversal rejected")
	// ErrRestricted marks content that needs authentication (cookies) to access.
	ErrRestricted = errors.New("restricted content")
	// ErrUnavailable marks a video that does not exist or was removed.
	ErrUnavailable = errors.New("video unavailable")
	// ErrExternalTool marks a missing or broken external binary.
	ErrExternalTool = errors.New("external tool error")
	// ErrTransient marks a generic retryable failure (network and the like).
	ErrTransient = errors.New("transient failure")
	// ErrCanceled marks work abandoned because cancellation was requested.
	ErrCanceled = errors.New("canceled by user")
)

var fatalSentinels = []error{
	ErrParse,
	ErrNoAcceptableStream,
	ErrRateLimited,
	ErrRejected,
	ErrPathTraversal,
	ErrRestricted,
	ErrUnavailable,
	ErrExternalTool,
	ErrCanceled,
}

// Wrap builds an error message that includes stage context while tagging it
// with the provided sentinel for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err should fail the job without automatic retry.
func IsFatal(err error) bool {
	for _, sentinel := range fatalSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is eligible for stage-local retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		// Timeouts take the re-chunk path, never the plain retry path.
		return false
	}
	return !IsFatal(err)
}

// Truncate bounds a diagnostic message for persistence and logging.
func Truncate(message string, limit int) string {
	message = strings.TrimSpace(message)
	if limit <= 0 || len(message) <= limit {
		return message
	}
	return message[:limit]
}

// MessageLimit is the persisted length cap for job error messages.
const MessageLimit = 2000

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
