// Package identity resolves YouTube URLs and pasted input into canonical
// 11-character video identifiers.
package identity

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"ytscribe/internal/services"
)

// urlPatterns cover the recognized YouTube URL shapes. Each captures the
// 11-character video id.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?m\.youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
}

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Resolve extracts the video id from input, which may be any recognized
// YouTube URL form or a bare 11-character id. It returns services.ErrParse
// when nothing can be extracted.
func Resolve(input string) (string, error) {
	id, ok := extract(input)
	if !ok {
		return "", services.Wrap(services.ErrParse, "identity", "resolve", fmt.Sprintf("not a recognized YouTube URL: %s", strings.TrimSpace(input)), nil)
	}
	return id, nil
}

// IsVideoURL reports whether input resolves to a video id.
func IsVideoURL(input string) bool {
	_, ok := extract(input)
	return ok
}

func extract(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	if videoIDPattern.MatchString(trimmed) {
		return trimmed, true
	}

	for _, pattern := range urlPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			return m[1], true
		}
	}

	// Query-string fallback for URL shapes the patterns miss, e.g. extra
	// parameters ahead of v=.
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	host := parsed.Hostname()
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return "", false
	}
	v := parsed.Query().Get("v")
	if videoIDPattern.MatchString(v) {
		return v, true
	}
	return "", false
}

// ResolveLines parses pasted text into the URLs that resolve, one candidate
// per line. Blank lines and unrecognized entries are skipped.
func ResolveLines(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsVideoURL(line) {
			urls = append(urls, line)
		}
	}
	return urls
}

// ResolveFile reads a .txt (one URL per line) or .csv input file and returns
// the recognized URLs. CSV files use a "url" or "youtube_url" header column
// when present, otherwise the first column.
func ResolveFile(path string) ([]string, error) {
	if strings.EqualFold(ext(path), "csv") {
		return resolveCSV(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	return ResolveLines(string(data)), nil
}

func ext(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return path[idx+1:]
}

func resolveCSV(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	urlCol := 0
	header := rows[0]
	headerMatched := false
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "url", "youtube_url":
			urlCol = i
			headerMatched = true
		}
		if headerMatched {
			break
		}
	}
	switch {
	case headerMatched:
		rows = rows[1:]
	case len(header) > 0 && IsVideoURL(strings.TrimSpace(header[0])):
		// First row is data; keep it.
	default:
		// Assume an unrecognized header row.
		rows = rows[1:]
	}

	var urls []string
	for _, row := range rows {
		if urlCol >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[urlCol])
		if IsVideoURL(cell) {
			urls = append(urls, cell)
		}
	}
	return urls, nil
}
