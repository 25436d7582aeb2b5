package merge

import (
	"strings"
	"testing"
)

func TestTranscriptsEmpty(t *testing.T) {
	if got := Transcripts(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscriptsSingleIsIdentity(t *testing.T) {
	text := "a single chunk needs no merging at all"
	if got := Transcripts([]string{text}); got != text {
		t.Fatalf("got %q", got)
	}
}

func TestTranscriptsDedupesSeam(t *testing.T) {
	a := "the quick brown fox jumps over the lazy dog"
	b := "over the lazy dog and keeps on running"
	got := Transcripts([]string{a, b})

	want := "the quick brown fox jumps over the lazy dog and keeps on running"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if strings.Count(got, "lazy dog") != 1 {
		t.Fatalf("seam not deduped: %q", got)
	}
}

func TestTranscriptsShortMatchNotDeduped(t *testing.T) {
	// Only a 2-token match at the boundary; too short to trust.
	a := "first chunk ends with the word"
	b := "the word appears again by coincidence"
	got := Transcripts([]string{a, b})

	if !strings.Contains(got, "\n\n") {
		t.Fatalf("expected paragraph join, got %q", got)
	}
	if strings.Count(got, "the word") != 2 {
		t.Fatalf("lossless join violated: %q", got)
	}
}

func TestTranscriptsNoMatchIsLossless(t *testing.T) {
	a := "completely distinct opening segment"
	b := "entirely different closing segment"
	got := Transcripts([]string{a, b})
	if got != a+"\n\n"+b {
		t.Fatalf("got %q", got)
	}
}

func TestTranscriptsEmptyChunkPreservesRest(t *testing.T) {
	got := Transcripts([]string{"kept text", "", "more kept text"})
	if !strings.Contains(got, "kept text") || !strings.Contains(got, "more kept text") {
		t.Fatalf("content lost: %q", got)
	}
}

func TestTranscriptsMultipleSeams(t *testing.T) {
	chunks := []string{
		"one two three four five six seven eight",
		"five six seven eight nine ten eleven twelve",
		"nine ten eleven twelve thirteen fourteen",
	}
	got := Transcripts(chunks)
	want := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTranscriptsWindowBoundsComparison(t *testing.T) {
	// An overlap longer than the window is still caught at window length.
	overlap := strings.Fields(strings.Repeat("tok ", 40))
	a := "prefix " + strings.Join(overlap, " ")
	b := strings.Join(overlap, " ") + " suffix"
	got := Transcripts([]string{a, b})
	if !strings.HasSuffix(got, "suffix") || !strings.HasPrefix(got, "prefix") {
		t.Fatalf("got %q", got)
	}
}
