package ytdlp

import (
	"context"
	"encoding/json"
	"strings"

	"ytscribe/internal/logging"
	"ytscribe/internal/media"
	"ytscribe/internal/services"
)

// Metadata is the subset of yt-dlp's JSON dump the pipeline consumes.
type Metadata struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Duration float64            `json:"duration"`
	Formats  []media.StreamInfo `json:"formats"`
}

// stderrDetailLimit bounds how much tool stderr is folded into error
// messages.
const stderrDetailLimit = 300

// FetchMetadata runs `yt-dlp --dump-json` for url and decodes the result.
// Unavailable and restricted videos classify as fatal; everything else is
// treated as a transient network failure.
func (c *Client) FetchMetadata(ctx context.Context, url string) (*Metadata, error) {
	args := []string{"--dump-json", "--no-playlist", "--skip-download"}
	args = append(args, c.cookieArgs()...)
	args = append(args, url)

	stdout, stderr, err := c.run(ctx, c.binary(), args...)
	if err != nil {
		if classified := classifyFetchError(stderr); classified != nil {
			return nil, services.Wrap(classified, "ytdlp", "fetch_metadata",
				services.Truncate(strings.TrimSpace(stderr), stderrDetailLimit), err)
		}
		return nil, services.Wrap(services.ErrMetadataUnavailable, "ytdlp", "fetch_metadata",
			services.Truncate(strings.TrimSpace(stderr), stderrDetailLimit), err)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(stdout), &meta); err != nil {
		return nil, services.Wrap(services.ErrMetadataUnavailable, "ytdlp", "fetch_metadata",
			"failed to decode yt-dlp JSON", err)
	}

	c.logger.Debug("metadata fetched",
		logging.String("video_id", meta.ID),
		logging.Float64("duration_sec", meta.Duration),
		logging.Int("format_count", len(meta.Formats)),
	)
	return &meta, nil
}

func classifyFetchError(stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(stderr, "Video unavailable") || strings.Contains(stderr, "is not available"):
		return services.ErrUnavailable
	case strings.Contains(lower, "geo") || strings.Contains(lower, "country"):
		return services.ErrRestricted
	case strings.Contains(stderr, "Sign in") || strings.Contains(lower, "age") || strings.Contains(lower, "consent"):
		return services.ErrRestricted
	default:
		return nil
	}
}
