package ytdlp

import (
	"context"
	"path/filepath"
	"strings"

	"ytscribe/internal/fileutil"
	"ytscribe/internal/logging"
)

// FetchCaptions attempts to download creator-provided English captions as
// VTT into workDir. Auto-generated subtitles are deliberately never
// requested. Returns the VTT path when a track was found; failures to fetch
// are not errors, the caller just falls back to the audio path.
func (c *Client) FetchCaptions(ctx context.Context, url, videoID, workDir string) (string, bool, error) {
	if err := fileutil.EnsureDir(workDir); err != nil {
		return "", false, err
	}

	if path := c.tryFetchCaptions(ctx, url, videoID, workDir, false); path != "" {
		return path, true, nil
	}
	if c.cfg.CookiesEnabled() {
		c.logger.Info("retrying captions fetch with cookies", logging.String("video_id", videoID))
		if path := c.tryFetchCaptions(ctx, url, videoID, workDir, true); path != "" {
			return path, true, nil
		}
	}
	return "", false, nil
}

func (c *Client) tryFetchCaptions(ctx context.Context, url, videoID, workDir string, useCookies bool) string {
	args := []string{
		"--skip-download",
		"--write-subs",
		"--sub-langs", "en.*",
		"--sub-format", "vtt",
		"--no-playlist",
		"-o", filepath.Join(workDir, "%(id)s.%(ext)s"),
	}
	if useCookies {
		cookie := c.cookieArgs()
		if len(cookie) == 0 {
			return ""
		}
		args = append(args, cookie...)
	}
	args = append(args, url)

	if _, stderr, err := c.run(ctx, c.binary(), args...); err != nil {
		c.logger.Warn("captions fetch error",
			logging.String("video_id", videoID),
			logging.String("detail", truncated(stderr)),
		)
		return ""
	}

	return findCaptionFile(workDir, videoID)
}

func findCaptionFile(workDir, videoID string) string {
	matches, _ := filepath.Glob(filepath.Join(workDir, videoID+"*.vtt"))
	if len(matches) == 0 {
		matches, _ = filepath.Glob(filepath.Join(workDir, "*.en*.vtt"))
	}
	if len(matches) == 0 {
		return ""
	}
	for _, match := range matches {
		name := strings.ToLower(filepath.Base(match))
		if strings.Contains(name, ".en.") || strings.Contains(name, ".en-") {
			return match
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}
	return ""
}

func truncated(stderr string) string {
	s := strings.TrimSpace(stderr)
	if len(s) > stderrDetailLimit {
		return s[:stderrDetailLimit]
	}
	return s
}
