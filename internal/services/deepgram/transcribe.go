package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

const (
	bodyDetailLimit = 300

	// Upload timeouts scale with file size so long chunks are not cut off
	// mid-transfer. A timeout signals the caller to re-chunk, not retry.
	minRequestTimeout  = 120 * time.Second
	timeoutPerTenMiB   = 60 * time.Second
	timeoutBaseSeconds = 60 * time.Second
)

// Result carries the extracted transcript plus the raw API response for
// optional artifact retention.
type Result struct {
	Text string
	Raw  []byte
}

type apiResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Paragraphs struct {
					Transcript string `json:"transcript"`
				} `json:"paragraphs"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// TranscribeFile submits one audio file and returns the transcript text.
// Rate limiting follows the configured backoff schedule before giving up;
// request timeouts and gateway timeouts surface as timeout errors so the
// orchestrator can re-chunk.
func (c *Client) TranscribeFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "deepgram", "transcribe", "stat audio file", err)
	}
	timeout := requestTimeout(info.Size())

	attempts := c.cfg.Deepgram.BackoffAttempts
	if attempts <= 0 {
		attempts = 4
	}
	backoffBase := time.Duration(c.cfg.Deepgram.BackoffBaseSecs) * time.Second
	if backoffBase <= 0 {
		backoffBase = 2 * time.Second
	}

	wait := backoffBase
	for attempt := 1; ; attempt++ {
		result, retryable, err := c.attempt(ctx, path, timeout)
		if err == nil {
			return result, nil
		}
		if !retryable || attempt >= attempts {
			return nil, err
		}

		c.logger.Warn("rate limited, backing off",
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
		)
		if sleepErr := c.sleep(ctx, wait+c.jitter()); sleepErr != nil {
			return nil, services.Wrap(services.ErrCanceled, "deepgram", "transcribe", "backoff interrupted", sleepErr)
		}
		wait *= 2
	}
}

func (c *Client) attempt(ctx context.Context, path string, timeout time.Duration) (*Result, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, services.Wrap(services.ErrCanceled, "deepgram", "transcribe", "rate limiter wait", err)
	}

	audio, err := os.Open(path)
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "deepgram", "transcribe", "open audio file", err)
	}
	defer audio.Close()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.listenURL(), audio)
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "deepgram", "transcribe", "build request", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "audio/mpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, services.Wrap(services.ErrCanceled, "deepgram", "transcribe", "request canceled", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() != nil {
			return nil, false, services.Wrap(services.ErrTimeout, "deepgram", "transcribe",
				fmt.Sprintf("upload exceeded %s", timeout), nil)
		}
		return nil, false, services.Wrap(services.ErrTransient, "deepgram", "transcribe", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "deepgram", "transcribe", "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		result, err := extractTranscript(body)
		if err != nil {
			return nil, false, err
		}
		return result, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, services.Wrap(services.ErrRateLimited, "deepgram", "transcribe",
			"too many requests", nil)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, false, services.Wrap(services.ErrTimeout, "deepgram", "transcribe",
			"gateway timeout", nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The service refused the request itself; resubmitting the same
		// request cannot succeed.
		return nil, false, services.Wrap(services.ErrRejected, "deepgram", "transcribe",
			fmt.Sprintf("status %d: %s", resp.StatusCode, services.Truncate(string(body), bodyDetailLimit)), nil)
	default:
		return nil, false, services.Wrap(services.ErrTransient, "deepgram", "transcribe",
			fmt.Sprintf("status %d: %s", resp.StatusCode, services.Truncate(string(body), bodyDetailLimit)), nil)
	}
}

func (c *Client) listenURL() string {
	params := url.Values{}
	params.Set("model", c.model())
	params.Set("language", c.language())
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")
	params.Set("paragraphs", "true")
	return c.baseURL() + "/listen?" + params.Encode()
}

func (c *Client) model() string {
	if c.cfg.Deepgram.Model != "" {
		return c.cfg.Deepgram.Model
	}
	return "nova-3"
}

func (c *Client) language() string {
	if c.cfg.Deepgram.Language != "" {
		return c.cfg.Deepgram.Language
	}
	return "en"
}

// extractTranscript prefers the paragraph-formatted transcript and falls
// back to the flat one.
func extractTranscript(body []byte) (*Result, error) {
	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.Wrap(services.ErrTransient, "deepgram", "transcribe", "decode response", err)
	}
	if len(decoded.Results.Channels) == 0 || len(decoded.Results.Channels[0].Alternatives) == 0 {
		return nil, services.Wrap(services.ErrTransient, "deepgram", "transcribe", "response carried no alternatives", nil)
	}
	alt := decoded.Results.Channels[0].Alternatives[0]
	text := alt.Paragraphs.Transcript
	if text == "" {
		text = alt.Transcript
	}
	return &Result{Text: text, Raw: body}, nil
}

func requestTimeout(sizeBytes int64) time.Duration {
	scaled := timeoutBaseSeconds + time.Duration(sizeBytes/(10*1024*1024))*timeoutPerTenMiB
	if scaled < minRequestTimeout {
		return minRequestTimeout
	}
	return scaled
}
