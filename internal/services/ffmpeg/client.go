// Package ffmpeg wraps ffmpeg and ffprobe for audio normalization, duration
// probing, and chunk extraction.
package ffmpeg

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"

	"ytscribe/internal/config"
	"ytscribe/internal/logging"
)

type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// Client drives ffmpeg and ffprobe.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
}

// New returns a client using the configured binaries.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		run:    defaultRunner,
	}
}

func defaultRunner(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (c *Client) ffmpegBinary() string {
	if c.cfg.Tools.FFmpeg != "" {
		return c.cfg.Tools.FFmpeg
	}
	return "ffmpeg"
}

func (c *Client) ffprobeBinary() string {
	if c.cfg.Tools.FFprobe != "" {
		return c.cfg.Tools.FFprobe
	}
	return "ffprobe"
}
