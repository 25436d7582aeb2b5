package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ytscribe/internal/logging"
	"ytscribe/internal/media"
	"ytscribe/internal/services"
)

const stderrDetailLimit = 300

// NormalizedFileName is the canonical name of the transcription-ready audio
// file inside a job workspace.
const NormalizedFileName = "normalized.mp3"

// Normalize downmixes the input to mono 16 kHz 96 kbps MP3, the shape the
// transcription service expects. The stereo channels are averaged rather
// than dropped.
func (c *Client) Normalize(ctx context.Context, inputPath, outputDir string) (string, error) {
	outputPath := filepath.Join(outputDir, NormalizedFileName)
	args := []string{
		"-y",
		"-i", inputPath,
		"-af", "pan=mono|c0=0.5*c0+0.5*c1",
		"-ar", "16000",
		"-ac", "1",
		"-b:a", "96k",
		"-codec:a", "libmp3lame",
		outputPath,
	}

	if _, stderr, err := c.run(ctx, c.ffmpegBinary(), args...); err != nil {
		return "", services.Wrap(services.ErrNormalize, "ffmpeg", "normalize",
			services.Truncate(strings.TrimSpace(stderr), stderrDetailLimit), err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", services.Wrap(services.ErrNormalize, "ffmpeg", "normalize",
			"normalized file missing after transcode", err)
	}

	c.logger.Debug("audio normalized", logging.String("path", outputPath))
	return outputPath, nil
}

// Duration probes the audio duration in seconds.
func (c *Client) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	stdout, stderr, err := c.run(ctx, c.ffprobeBinary(), args...)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "duration",
			services.Truncate(strings.TrimSpace(stderr), stderrDetailLimit), err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "duration",
			fmt.Sprintf("unparseable duration %q", strings.TrimSpace(stdout)), err)
	}
	return duration, nil
}

// Split extracts each planned span from the normalized file as
// chunk_NNN.mp3 using stream copy. Returns the chunk paths in span order.
func (c *Client) Split(ctx context.Context, inputPath, outputDir string, spans []media.ChunkSpan) ([]string, error) {
	paths := make([]string, 0, len(spans))
	for _, span := range spans {
		outputPath := filepath.Join(outputDir, fmt.Sprintf("chunk_%03d.mp3", span.Index))
		args := []string{
			"-y",
			"-i", inputPath,
			"-ss", formatSeconds(span.StartSec),
			"-t", formatSeconds(span.EndSec - span.StartSec),
			"-codec:a", "copy",
			outputPath,
		}

		if _, stderr, err := c.run(ctx, c.ffmpegBinary(), args...); err != nil {
			return nil, services.Wrap(services.ErrChunking, "ffmpeg", "split",
				services.Truncate(strings.TrimSpace(stderr), stderrDetailLimit), err)
		}
		if _, err := os.Stat(outputPath); err != nil {
			return nil, services.Wrap(services.ErrChunking, "ffmpeg", "split",
				fmt.Sprintf("chunk %d missing after extraction", span.Index), err)
		}
		paths = append(paths, outputPath)
	}

	c.logger.Debug("audio split", logging.Int("chunks", len(paths)))
	return paths, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
