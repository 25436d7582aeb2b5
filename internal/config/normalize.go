package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Clamp bounds for chunking values. Out-of-range values are pulled into
// range rather than rejected so a hand-edited config cannot brick the daemon.
const (
	minChunkThresholdHours = 0.25
	maxChunkThresholdHours = 12.0
	minBaseChunkSeconds    = 300
	maxBaseChunkSeconds    = 7200
	minOverlapSeconds      = 1
	maxOverlapSeconds      = 30
)

// Normalize expands paths and clamps tunables into safe ranges. It runs
// before Validate so validation only ever sees resolved values.
func (c *Config) Normalize() {
	c.Paths.OutputDir = expandPath(c.Paths.OutputDir)
	c.Paths.StagingDir = expandPath(c.Paths.StagingDir)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)
	c.Cookies.Path = expandPath(c.Cookies.Path)

	c.Cookies.Mode = strings.ToLower(strings.TrimSpace(c.Cookies.Mode))
	if c.Cookies.Mode == "" {
		c.Cookies.Mode = CookiesModeOff
	}

	c.Chunking.ThresholdHours = clampFloat(c.Chunking.ThresholdHours, minChunkThresholdHours, maxChunkThresholdHours)
	c.Chunking.BaseChunkSeconds = clampInt(c.Chunking.BaseChunkSeconds, minBaseChunkSeconds, maxBaseChunkSeconds)
	c.Chunking.OverlapSeconds = clampInt(c.Chunking.OverlapSeconds, minOverlapSeconds, maxOverlapSeconds)
	if c.Chunking.MinChunkSeconds <= 0 {
		c.Chunking.MinChunkSeconds = defaultMinChunkSeconds
	}

	if c.Deepgram.BaseURL != "" {
		c.Deepgram.BaseURL = strings.TrimRight(c.Deepgram.BaseURL, "/")
	}
}

func expandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
		}
	}
	return filepath.Clean(trimmed)
}

func clampFloat(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
