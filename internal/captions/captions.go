// Package captions converts WebVTT subtitle tracks into clean plain text.
package captions

import (
	"os"
	"regexp"
	"strings"
)

var (
	timestampRE = regexp.MustCompile(`(?m)^\d{2}:\d{2}:\d{2}\.\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}\.\d{3}.*$`)
	cueIDRE     = regexp.MustCompile(`(?m)^\d+\s*$`)
	headerRE    = regexp.MustCompile(`(?m)^WEBVTT.*$`)
	kindRE      = regexp.MustCompile(`(?m)^Kind:.*$`)
	languageRE  = regexp.MustCompile(`(?m)^Language:.*$`)
	noteRE      = regexp.MustCompile(`(?m)^NOTE\s.*$`)
	markupRE    = regexp.MustCompile(`<[^>]+>`)
	positionRE  = regexp.MustCompile(`(?i)\b(?:position|align|size|line):\S+`)
	blankRunRE  = regexp.MustCompile(`\n{3,}`)
	spaceRunRE  = regexp.MustCompile(`[ \t]+`)
)

// ParseFile reads a VTT file and returns its plain-text rendering.
func ParseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Parse(string(data)), nil
}

// Parse strips VTT structure from content: header and metadata lines,
// timestamps, cue numbers, positioning hints, and styling tags. Consecutive
// duplicate lines collapse to one (auto-captions repeat heavily) and single
// blank lines survive as paragraph breaks. An effectively empty track yields
// "".
func Parse(content string) string {
	content = headerRE.ReplaceAllString(content, "")
	content = kindRE.ReplaceAllString(content, "")
	content = languageRE.ReplaceAllString(content, "")
	content = noteRE.ReplaceAllString(content, "")
	content = timestampRE.ReplaceAllString(content, "")
	content = cueIDRE.ReplaceAllString(content, "")
	content = positionRE.ReplaceAllString(content, "")
	content = markupRE.ReplaceAllString(content, "")

	var cleaned []string
	prev := ""
	blanks := 0
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			blanks++
			if blanks <= 1 && len(cleaned) > 0 {
				cleaned = append(cleaned, "")
			}
			continue
		}
		blanks = 0
		if stripped == prev {
			continue
		}
		cleaned = append(cleaned, stripped)
		prev = stripped
	}

	text := strings.Join(cleaned, "\n")
	text = blankRunRE.ReplaceAllString(text, "\n\n")
	text = spaceRunRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
