// Package ytdlp wraps the yt-dlp binary for metadata, caption, and audio
// acquisition. Every invocation uses a fully enumerated argument array and
// never a shell.
package ytdlp

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"ytscribe/internal/config"
	"ytscribe/internal/logging"
)

// commandRunner executes a command and captures its output. Tests inject a
// fake to avoid running the real binary.
type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// Client drives yt-dlp.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger
	run    commandRunner
}

// New returns a client using the configured yt-dlp binary.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "ytdlp"),
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

// cookieArgs returns the --cookies flag when cookie mode is enabled and the
// jar exists. The jar is consumed read-only.
func (c *Client) cookieArgs() []string {
	if !c.cfg.CookiesEnabled() {
		return nil
	}
	path := strings.TrimSpace(c.cfg.Cookies.Path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return []string{"--cookies", path}
}

func (c *Client) binary() string {
	if c.cfg.Tools.YtDlp != "" {
		return c.cfg.Tools.YtDlp
	}
	return "yt-dlp"
}
