package deepgram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"ytscribe/internal/config"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
	"ytscribe/internal/testsupport"
)

const successBody = `{"results":{"channels":[{"alternatives":[{"transcript":"flat transcript","paragraphs":{"transcript":"formatted transcript"}}]}]}}`

type fakeTransport struct {
	requests  []*http.Request
	responses []*http.Response
	errs      []error
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, transport *fakeTransport, opts ...testsupport.ConfigOption) (*Client, *[]time.Duration) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	client := New(cfg, "dg_secret_123", logging.NewNop())
	client.http = &http.Client{Transport: transport}
	client.limiter = rate.NewLimiter(rate.Inf, 1)
	client.jitter = func() time.Duration { return 0 }
	slept := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return client, slept
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk_000.mp3")
	if err := os.WriteFile(path, []byte("audio bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribePrefersParagraphs(t *testing.T) {
	transport := &fakeTransport{responses: []*http.Response{response(http.StatusOK, successBody)}}
	client, _ := newTestClient(t, transport)

	result, err := client.TranscribeFile(context.Background(), audioFile(t))
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if result.Text != "formatted transcript" {
		t.Fatalf("text = %q", result.Text)
	}
	if len(result.Raw) == 0 {
		t.Fatal("raw response missing")
	}

	req := transport.requests[0]
	if got := req.Header.Get("Authorization"); got != "Token dg_secret_123" {
		t.Fatalf("auth header = %q", got)
	}
	query := req.URL.Query()
	for key, want := range map[string]string{
		"model":        "nova-3",
		"language":     "en",
		"smart_format": "true",
		"punctuate":    "true",
		"paragraphs":   "true",
	} {
		if got := query.Get(key); got != want {
			t.Fatalf("query %s = %q, want %q", key, got, want)
		}
	}
}

func TestTranscribeFallsBackToFlatTranscript(t *testing.T) {
	body := `{"results":{"channels":[{"alternatives":[{"transcript":"only flat"}]}]}}`
	transport := &fakeTransport{responses: []*http.Response{response(http.StatusOK, body)}}
	client, _ := newTestClient(t, transport)

	result, err := client.TranscribeFile(context.Background(), audioFile(t))
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if result.Text != "only flat" {
		t.Fatalf("text = %q", result.Text)
	}
}

func TestTranscribeRateLimitBackoffSchedule(t *testing.T) {
	transport := &fakeTransport{responses: []*http.Response{
		response(http.StatusTooManyRequests, `{"err_msg":"rate limit"}`),
		response(http.StatusTooManyRequests, `{"err_msg":"rate limit"}`),
		response(http.StatusTooManyRequests, `{"err_msg":"rate limit"}`),
		response(http.StatusOK, successBody),
	}}
	client, slept := newTestClient(t, transport)

	result, err := client.TranscribeFile(context.Background(), audioFile(t))
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if result.Text != "formatted transcript" {
		t.Fatalf("text = %q", result.Text)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Fatalf("slept %v, want %v", *slept, want)
		}
	}
}

func TestTranscribeRateLimitExhaustsAttempts(t *testing.T) {
	transport := &fakeTransport{responses: []*http.Response{
		response(http.StatusTooManyRequests, `{"err_msg":"rate limit"}`),
	}}
	client, slept := newTestClient(t, transport)

	_, err := client.TranscribeFile(context.Background(), audioFile(t))
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("error = %v, want rate limited", err)
	}
	if len(transport.requests) != 4 {
		t.Fatalf("attempts = %d, want 4", len(transport.requests))
	}
	if len(*slept) != 3 {
		t.Fatalf("sleeps = %d, want 3", len(*slept))
	}
	if !services.IsFatal(err) {
		t.Fatal("exhausted rate limiting must fail the job")
	}
}

func TestTranscribeGatewayTimeout(t *testing.T) {
	transport := &fakeTransport{responses: []*http.Response{
		response(http.StatusGatewayTimeout, "upstream request timeout"),
	}}
	client, _ := newTestClient(t, transport)

	_, err := client.TranscribeFile(context.Background(), audioFile(t))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if services.IsTransient(err) {
		t.Fatal("timeouts must take the re-chunk path, not plain retry")
	}
}

func TestTranscribeDeadlineExceededIsTimeout(t *testing.T) {
	transport := &fakeTransport{errs: []error{context.DeadlineExceeded}, responses: []*http.Response{nil}}
	client, _ := newTestClient(t, transport)

	_, err := client.TranscribeFile(context.Background(), audioFile(t))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("error = %v, want timeout", err)
	}
}

func TestTranscribeServerErrorIsTransient(t *testing.T) {
	transport := &fakeTransport{responses: []*http.Response{
		response(http.StatusInternalServerError, "oops"),
	}}
	client, _ := newTestClient(t, transport)

	_, err := client.TranscribeFile(context.Background(), audioFile(t))
	if !services.IsTransient(err) {
		t.Fatalf("error = %v, want transient", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("server errors are not retried in the client, got %d requests", len(transport.requests))
	}
}

func TestTranscribeAuthFailureIsFatal(t *testing.T) {
	transport := &fakeTransport{responses: []*http.Response{
		response(http.StatusUnauthorized, "invalid credentials"),
	}}
	client, _ := newTestClient(t, transport)

	_, err := client.TranscribeFile(context.Background(), audioFile(t))
	if !errors.Is(err, services.ErrRejected) {
		t.Fatalf("error = %v, want ErrRejected", err)
	}
	if !services.IsFatal(err) || services.IsTransient(err) {
		t.Fatalf("401 must be fatal, got %v", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("client errors are never retried, got %d requests", len(transport.requests))
	}
}

func TestTranscribeConfiguredEndpoint(t *testing.T) {
	transport := &fakeTransport{responses: []*http.Response{response(http.StatusOK, successBody)}}
	client, _ := newTestClient(t, transport, func(cfg *config.Config) {
		cfg.Deepgram.BaseURL = "https://dg.example.test/v1/"
		cfg.Deepgram.Model = "nova-3"
	})

	if _, err := client.TranscribeFile(context.Background(), audioFile(t)); err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	req := transport.requests[0]
	if req.URL.Host != "dg.example.test" || !strings.HasPrefix(req.URL.Path, "/v1/listen") {
		t.Fatalf("url = %s", req.URL)
	}
	if got := req.URL.Query().Get("model"); got != "nova-3" {
		t.Fatalf("model = %q", got)
	}
}

func TestRequestTimeoutScalesWithSize(t *testing.T) {
	if got := requestTimeout(1 << 20); got != 2*time.Minute {
		t.Fatalf("small file timeout = %s", got)
	}
	if got := requestTimeout(50 << 20); got != 6*time.Minute {
		t.Fatalf("large file timeout = %s", got)
	}
}
