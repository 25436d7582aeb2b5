package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"ytscribe/internal/logging"
	"ytscribe/internal/media"
	"ytscribe/internal/services"
	"ytscribe/internal/testsupport"
)

type fakeCall struct {
	name string
	args []string
}

func newTestClient(t *testing.T) (*Client, *[]fakeCall) {
	t.Helper()
	client := New(testsupport.NewConfig(t), logging.NewNop())
	calls := &[]fakeCall{}
	client.run = func(_ context.Context, name string, args ...string) (string, string, error) {
		*calls = append(*calls, fakeCall{name: name, args: args})
		// Produce whatever output file the invocation named last.
		out := args[len(args)-1]
		if filepath.Ext(out) == ".mp3" {
			if err := os.WriteFile(out, []byte("audio"), 0o644); err != nil {
				return "", "", err
			}
		}
		return "", "", nil
	}
	return client, calls
}

func TestNormalizeArguments(t *testing.T) {
	client, calls := newTestClient(t)
	outputDir := t.TempDir()

	path, err := client.Normalize(context.Background(), "/work/source.m4a", outputDir)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if filepath.Base(path) != NormalizedFileName {
		t.Fatalf("path = %q", path)
	}

	call := (*calls)[0]
	if call.name != "ffmpeg" {
		t.Fatalf("binary = %q", call.name)
	}
	for _, want := range []string{"pan=mono|c0=0.5*c0+0.5*c1", "16000", "96k", "libmp3lame"} {
		if !slices.Contains(call.args, want) {
			t.Fatalf("missing arg %q in %v", want, call.args)
		}
	}
}

func TestNormalizeFailureClassifies(t *testing.T) {
	client, _ := newTestClient(t)
	client.run = func(context.Context, string, ...string) (string, string, error) {
		return "", "Invalid data found when processing input", fmt.Errorf("exit status 1")
	}
	_, err := client.Normalize(context.Background(), "/work/source.m4a", t.TempDir())
	if !errors.Is(err, services.ErrNormalize) {
		t.Fatalf("error = %v, want normalize failure", err)
	}
}

func TestNormalizeMissingOutputIsError(t *testing.T) {
	client, _ := newTestClient(t)
	client.run = func(context.Context, string, ...string) (string, string, error) {
		return "", "", nil
	}
	_, err := client.Normalize(context.Background(), "/work/source.m4a", t.TempDir())
	if !errors.Is(err, services.ErrNormalize) {
		t.Fatalf("error = %v, want normalize failure", err)
	}
}

func TestDurationParsesProbeOutput(t *testing.T) {
	client, calls := newTestClient(t)
	client.run = func(_ context.Context, name string, args ...string) (string, string, error) {
		*calls = append(*calls, fakeCall{name: name, args: args})
		return "7214.382000\n", "", nil
	}

	duration, err := client.Duration(context.Background(), "/work/normalized.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if duration != 7214.382 {
		t.Fatalf("duration = %v", duration)
	}
	if (*calls)[0].name != "ffprobe" {
		t.Fatalf("binary = %q", (*calls)[0].name)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	client, _ := newTestClient(t)
	client.run = func(context.Context, string, ...string) (string, string, error) {
		return "N/A", "", nil
	}
	if _, err := client.Duration(context.Background(), "/work/normalized.mp3"); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestSplitExtractsEachSpan(t *testing.T) {
	client, calls := newTestClient(t)
	outputDir := t.TempDir()
	spans := []media.ChunkSpan{
		{Index: 0, StartSec: 0, EndSec: 3600},
		{Index: 1, StartSec: 3598, EndSec: 7198},
		{Index: 2, StartSec: 7196, EndSec: 10000},
	}

	paths, err := client.Split(context.Background(), "/work/normalized.mp3", outputDir, spans)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(paths))
	}
	if filepath.Base(paths[1]) != "chunk_001.mp3" {
		t.Fatalf("chunk path = %q", paths[1])
	}

	second := (*calls)[1].args
	ss := slices.Index(second, "-ss")
	if ss < 0 || second[ss+1] != "3598.000" {
		t.Fatalf("start offset missing in %v", second)
	}
	dur := slices.Index(second, "-t")
	if dur < 0 || second[dur+1] != "3600.000" {
		t.Fatalf("duration missing in %v", second)
	}
	if !slices.Contains(second, "copy") {
		t.Fatalf("expected stream copy in %v", second)
	}
}

func TestSplitFailureClassifies(t *testing.T) {
	client, _ := newTestClient(t)
	client.run = func(context.Context, string, ...string) (string, string, error) {
		return "", "No space left on device", fmt.Errorf("exit status 1")
	}
	_, err := client.Split(context.Background(), "/work/normalized.mp3", t.TempDir(),
		[]media.ChunkSpan{{Index: 0, StartSec: 0, EndSec: 10}})
	if !errors.Is(err, services.ErrChunking) {
		t.Fatalf("error = %v, want chunking failure", err)
	}
}
