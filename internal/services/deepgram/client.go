// Package deepgram implements the speech-to-text client. Requests stream
// audio files to the hosted /listen endpoint; the API key travels only in
// the Authorization header and is never logged.
package deepgram

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ytscribe/internal/config"
	"ytscribe/internal/logging"
)

// DefaultBaseURL is the hosted API endpoint.
const DefaultBaseURL = "https://api.deepgram.com/v1"

// Client submits audio for transcription.
type Client struct {
	cfg     *config.Config
	apiKey  string
	logger  *slog.Logger
	http    *http.Client
	limiter *rate.Limiter

	// sleep and jitter are swapped out in tests so backoff schedules can be
	// asserted without waiting.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// New returns a client for the configured endpoint. apiKey comes from the
// credential store.
func New(cfg *config.Config, apiKey string, logger *slog.Logger) *Client {
	rpm := cfg.Deepgram.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &Client{
		cfg:     cfg,
		apiKey:  apiKey,
		logger:  logging.NewComponentLogger(logger, "deepgram"),
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		sleep:   sleepContext,
		jitter:  randomJitter,
	}
}

func (c *Client) baseURL() string {
	base := strings.TrimSpace(c.cfg.Deepgram.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
}
