package output

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"ytscribe/internal/fileutil"
	"ytscribe/internal/services"
)

// SafeFolder builds <root>/<sanitized title> and verifies the result stays
// inside root. A title that escapes containment is rejected with
// services.ErrPathTraversal rather than silently remapped.
func SafeFolder(root, title, videoID string) (string, error) {
	sanitized := SanitizeTitle(title)
	if sanitized == "" {
		sanitized = FallbackFolder(videoID)
	}

	candidate := filepath.Join(root, sanitized)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve output root: %w", err)
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve output folder: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absCandidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrPathTraversal, "output", "safe_folder",
			fmt.Sprintf("title %q escapes output root", title), nil)
	}
	return candidate, nil
}

// WriteTranscript persists text to <root>/<sanitized title>/<video_id>.txt
// atomically and returns the written path.
func WriteTranscript(root, title, videoID, text string) (string, error) {
	folder, err := SafeFolder(root, title, videoID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(folder, videoID+".txt")
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// TranscriptExists reports whether any <video_id>.txt already exists under
// root, at any depth. Used as a secondary dedup check alongside the job
// store.
func TranscriptExists(root, videoID string) (bool, error) {
	want := videoID + ".txt"
	found := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return filepath.SkipAll
			}
			return nil
		}
		if !d.IsDir() && d.Name() == want {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("scan output root: %w", err)
	}
	return found, nil
}
