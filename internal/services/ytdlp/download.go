package ytdlp

import (
	"context"
	"path/filepath"
	"strings"

	"ytscribe/internal/fileutil"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

// DownloadAudio fetches the selected stream into outputDir as source.<ext>
// and returns the downloaded path. Failures classify as transient download
// errors.
func (c *Client) DownloadAudio(ctx context.Context, url, formatID, outputDir string) (string, error) {
	if err := fileutil.EnsureDir(outputDir); err != nil {
		return "", err
	}

	args := []string{
		"--no-playlist",
		"-f", formatID,
		"-o", filepath.Join(outputDir, "source.%(ext)s"),
	}
	args = append(args, c.cookieArgs()...)
	args = append(args, url)

	if _, stderr, err := c.run(ctx, c.binary(), args...); err != nil {
		return "", services.Wrap(services.ErrDownload, "ytdlp", "download_audio",
			services.Truncate(strings.TrimSpace(stderr), stderrDetailLimit), err)
	}

	matches, err := filepath.Glob(filepath.Join(outputDir, "source.*"))
	if err != nil {
		return "", services.Wrap(services.ErrDownload, "ytdlp", "download_audio", "scan download directory", err)
	}
	if len(matches) == 0 {
		return "", services.Wrap(services.ErrDownload, "ytdlp", "download_audio", "no audio file found after download", nil)
	}

	c.logger.Debug("audio downloaded",
		logging.String("format_id", formatID),
		logging.String("path", matches[0]),
	)
	return matches[0], nil
}
