// Package preflight validates the environment before jobs run: external
// binaries, directory permissions, free disk space, and credentials.
package preflight

import (
	"errors"

	"ytscribe/internal/config"
	"ytscribe/internal/deps"
	"ytscribe/internal/secrets"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(cfg *config.Config, creds secrets.Store) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir))
	results = append(results, CheckCredential(creds))

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = "found"
		}
		results = append(results, result)
	}
	return results
}

// AllPassed reports whether every check succeeded.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// CheckSystemDeps evaluates the external binary requirements. Both the
// daemon startup path and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	ytdlp := cfg.Tools.YtDlp
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	ffmpeg := cfg.Tools.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := cfg.Tools.FFprobe
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return deps.CheckBinaries([]deps.Requirement{
		{Name: "yt-dlp", Command: ytdlp, Description: "Required for metadata, captions, and audio download"},
		{Name: "FFmpeg", Command: ffmpeg, Description: "Required for audio normalization and chunking"},
		{Name: "FFprobe", Command: ffprobe, Description: "Required for duration probing"},
	})
}

// CheckCredential verifies the transcription API key is present. The key
// value itself never appears in the result.
func CheckCredential(creds secrets.Store) Result {
	const name = "Deepgram API key"
	if creds == nil {
		return Result{Name: name, Detail: "credential store unavailable"}
	}
	if _, err := creds.Get(secrets.KeyDeepgram); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return Result{Name: name, Detail: "not set (run 'ytscribe key set')"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
