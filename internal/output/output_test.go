package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "A Normal Title", "A Normal Title"},
		{"unsafe chars", `What? <Really>: "Go/Rust\Zig|*"`, "What Really Go Rust Zig"},
		{"traversal removed", "../../etc/passwd", "etc passwd"},
		{"collapsed runs", "too   many___underscores", "too many underscores"},
		{"dots stripped", "...hidden...", "hidden"},
		{"empty", "", ""},
		{"only junk", `<>:"/\|?*`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeTitle(tc.input); got != tc.want {
				t.Fatalf("SanitizeTitle(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeTitleCapsLength(t *testing.T) {
	got := SanitizeTitle(strings.Repeat("a", 500))
	if len(got) != 200 {
		t.Fatalf("length = %d, want 200", len(got))
	}
}

func TestSafeFolderFallsBackOnEmptyTitle(t *testing.T) {
	root := t.TempDir()
	folder, err := SafeFolder(root, "", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("SafeFolder: %v", err)
	}
	if filepath.Base(folder) != "video_dQw4w9WgXcQ" {
		t.Fatalf("folder = %q", folder)
	}
}

func TestSafeFolderStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	folder, err := SafeFolder(root, "../../etc/passwd", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("SafeFolder: %v", err)
	}
	rel, err := filepath.Rel(root, folder)
	if err != nil || strings.HasPrefix(rel, "..") {
		t.Fatalf("folder escapes root: %q", folder)
	}
}

func TestWriteTranscript(t *testing.T) {
	root := t.TempDir()
	path, err := WriteTranscript(root, "A Talk About Go", "dQw4w9WgXcQ", "the transcript body")
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}

	want := filepath.Join(root, "A Talk About Go", "dQw4w9WgXcQ.txt")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "the transcript body" {
		t.Fatalf("content = %q", data)
	}
}

func TestWriteTranscriptHostileTitleContained(t *testing.T) {
	root := t.TempDir()
	path, err := WriteTranscript(root, "../../outside", "dQw4w9WgXcQ", "text")
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	rel, relErr := filepath.Rel(root, path)
	if relErr != nil || strings.HasPrefix(rel, "..") {
		t.Fatalf("write escaped root: %q", path)
	}
}

func TestTranscriptExists(t *testing.T) {
	root := t.TempDir()

	exists, err := TranscriptExists(root, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("TranscriptExists: %v", err)
	}
	if exists {
		t.Fatal("reported existing transcript in empty root")
	}

	if _, err := WriteTranscript(root, "Some Title", "dQw4w9WgXcQ", "text"); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}

	exists, err = TranscriptExists(root, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("TranscriptExists: %v", err)
	}
	if !exists {
		t.Fatal("transcript not found")
	}
}

func TestSafeFolderMissingRootTolerated(t *testing.T) {
	// Root need not exist yet; containment is purely lexical.
	root := filepath.Join(t.TempDir(), "not-created")
	if _, err := SafeFolder(root, "Title", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("SafeFolder: %v", err)
	}
}
