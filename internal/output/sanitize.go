// Package output writes finished transcripts under sanitized,
// containment-checked paths.
package output

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxFolderNameLen caps sanitized folder names so deep titles cannot blow
// filesystem limits.
const maxFolderNameLen = 200

var (
	unsafeCharsRE  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	collapseRunsRE = regexp.MustCompile(`[_\s]+`)
)

// SanitizeTitle rewrites a video title into a safe folder name: NFC
// normalization, unsafe characters replaced, traversal sequences removed,
// whitespace collapsed, length capped, leading and trailing dots stripped.
// Returns "" when nothing usable remains.
func SanitizeTitle(title string) string {
	if title == "" {
		return ""
	}
	safe := norm.NFC.String(title)
	safe = unsafeCharsRE.ReplaceAllString(safe, "_")
	safe = strings.ReplaceAll(safe, "..", "")
	safe = collapseRunsRE.ReplaceAllString(safe, " ")
	safe = strings.TrimSpace(safe)
	if len(safe) > maxFolderNameLen {
		safe = strings.TrimRight(safe[:maxFolderNameLen], " ")
	}
	safe = strings.Trim(safe, ".")
	return safe
}

// FallbackFolder names the output folder when the title sanitizes to
// nothing.
func FallbackFolder(videoID string) string {
	return "video_" + videoID
}
