package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCookies(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateDeepgram(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateCookies() error {
	switch c.Cookies.Mode {
	case CookiesModeOff, CookiesModeFile:
	default:
		return fmt.Errorf("cookies.mode must be %q or %q", CookiesModeOff, CookiesModeFile)
	}
	if c.Cookies.Mode == CookiesModeFile && strings.TrimSpace(c.Cookies.Path) == "" {
		return errors.New("cookies.path must be set when cookies.mode is \"file\"")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.OverlapSeconds >= c.Chunking.BaseChunkSeconds {
		return errors.New("chunking.overlap_seconds must be smaller than chunking.base_chunk_seconds")
	}
	if c.Chunking.MinChunkSeconds > c.Chunking.BaseChunkSeconds {
		return errors.New("chunking.min_chunk_seconds must not exceed chunking.base_chunk_seconds")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.MinBitrateKbps <= 0 || c.Audio.MaxBitrateKbps <= 0 {
		return errors.New("audio bitrate bounds must be positive")
	}
	if c.Audio.MinBitrateKbps > c.Audio.MaxBitrateKbps {
		return errors.New("audio.min_bitrate_kbps must not exceed audio.max_bitrate_kbps")
	}
	if c.Audio.PreferredBitrateKbps < c.Audio.MinBitrateKbps || c.Audio.PreferredBitrateKbps > c.Audio.MaxBitrateKbps {
		return errors.New("audio.preferred_bitrate_kbps must fall inside the min/max band")
	}
	return nil
}

func (c *Config) validateDeepgram() error {
	if strings.TrimSpace(c.Deepgram.BaseURL) == "" {
		return errors.New("deepgram.base_url must be set")
	}
	if strings.TrimSpace(c.Deepgram.Model) == "" {
		return errors.New("deepgram.model must be set")
	}
	if c.Deepgram.BackoffBaseSecs <= 0 {
		return errors.New("deepgram.backoff_base_seconds must be positive")
	}
	if c.Deepgram.BackoffAttempts <= 0 {
		return errors.New("deepgram.backoff_attempts must be positive")
	}
	if c.Deepgram.RequestsPerMinute <= 0 {
		return errors.New("deepgram.requests_per_minute must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.max_stage_attempts":   c.Workflow.MaxStageAttempts,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json", "":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
