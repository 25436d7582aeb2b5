package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// OutputDir is the root under which finished transcripts are written.
	OutputDir string `toml:"output_dir"`
	// StagingDir holds per-job transient workspaces.
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Cookies contains configuration for restricted-content access. The cookie
// jar is produced externally (Netscape format) and consumed read-only.
type Cookies struct {
	Mode string `toml:"mode"` // "off" or "file"
	Path string `toml:"path"`
}

// Chunking contains the audio chunking policy.
type Chunking struct {
	// ThresholdHours is the duration above which audio is split.
	ThresholdHours float64 `toml:"threshold_hours"`
	// BaseChunkSeconds is the nominal chunk length.
	BaseChunkSeconds int `toml:"base_chunk_seconds"`
	// OverlapSeconds is the seam shared by adjacent chunks.
	OverlapSeconds int `toml:"overlap_seconds"`
	// MinChunkSeconds is the floor for adaptive re-chunking after timeouts.
	MinChunkSeconds int `toml:"min_chunk_seconds"`
}

// Audio contains the stream selection band.
type Audio struct {
	PreferredBitrateKbps int `toml:"preferred_bitrate_kbps"`
	MinBitrateKbps       int `toml:"min_bitrate_kbps"`
	MaxBitrateKbps       int `toml:"max_bitrate_kbps"`
}

// Deepgram contains transcription service settings. The API key itself lives
// in the credential store, never in the config file.
type Deepgram struct {
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	Language          string `toml:"language"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	BackoffBaseSecs   int    `toml:"backoff_base_seconds"`
	BackoffAttempts   int    `toml:"backoff_attempts"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	YtDlp   string `toml:"ytdlp"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Workflow contains daemon timing and retry bounds.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	// MaxStageAttempts bounds stage-local retries of transient failures.
	MaxStageAttempts int `toml:"max_stage_attempts"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Debug contains diagnostics behavior.
type Debug struct {
	// KeepArtifacts retains metadata and raw transcription responses after a
	// job finishes. Audio artifacts are always removed.
	KeepArtifacts bool `toml:"keep_artifacts"`
}

// Config is the root configuration document.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Cookies  Cookies  `toml:"cookies"`
	Chunking Chunking `toml:"chunking"`
	Audio    Audio    `toml:"audio"`
	Deepgram Deepgram `toml:"deepgram"`
	Tools    Tools    `toml:"tools"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
	Debug    Debug    `toml:"debug"`
}

// CookiesModeOff disables cookie use; CookiesModeFile reads the configured jar.
const (
	CookiesModeOff  = "off"
	CookiesModeFile = "file"
)

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ytscribe", "config.toml"), nil
}

// Load reads the config file at path (or the default location when path is
// empty), layers it over defaults, normalizes, and validates. A missing file
// yields normalized defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved := path
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		resolved = defaultPath
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if unmarshalErr := toml.Unmarshal(data, &cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, unmarshalErr)
		}
	case errors.Is(err, fs.ErrNotExist) && path == "":
		// No config file is fine; defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the output, staging, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// JobWorkspace returns the transient workspace root for one job. Workspaces
// are keyed by video id so no two jobs ever share artifact directories.
func (c *Config) JobWorkspace(videoID string) string {
	return filepath.Join(c.Paths.StagingDir, "jobs", videoID)
}

// ChunkThresholdSeconds converts the configured threshold to seconds.
func (c *Config) ChunkThresholdSeconds() float64 {
	return c.Chunking.ThresholdHours * 3600
}

// CookiesEnabled reports whether the cookie jar should be consulted.
func (c *Config) CookiesEnabled() bool {
	return c.Cookies.Mode == CookiesModeFile
}
