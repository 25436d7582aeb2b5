// Package merge joins chunk transcripts into one text, deduplicating the
// overlap the chunk planner deliberately creates at each seam.
package merge

import "strings"

// overlapWindow bounds how many boundary tokens are compared at a seam.
const overlapWindow = 30

// minOverlapRun is the smallest exact token run treated as a real overlap.
// Shorter matches are too likely to be coincidence, so the texts are joined
// losslessly instead.
const minOverlapRun = 4

// Transcripts merges ordered chunk texts. At each boundary the longest exact
// token run shared between the end of the accumulated text and the start of
// the next chunk is removed from the latter; when no meaningful run exists
// the texts are joined with a paragraph break so nothing is lost.
func Transcripts(texts []string) string {
	if len(texts) == 0 {
		return ""
	}
	if len(texts) == 1 {
		return texts[0]
	}

	result := texts[0]
	for _, next := range texts[1:] {
		result = dedupeOverlap(result, next)
	}
	return strings.TrimSpace(result)
}

func dedupeOverlap(a, b string) string {
	if a == "" || b == "" {
		return a + "\n\n" + b
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return a + "\n\n" + b
	}

	checkLen := overlapWindow
	if len(wordsA) < checkLen {
		checkLen = len(wordsA)
	}
	if len(wordsB) < checkLen {
		checkLen = len(wordsB)
	}

	tailA := wordsA[len(wordsA)-checkLen:]

	bestOverlap := 0
	for i := checkLen; i > 0; i-- {
		if equalTokens(tailA[len(tailA)-i:], wordsB[:i]) {
			bestOverlap = i
			break
		}
	}

	if bestOverlap >= minOverlapRun {
		return strings.Join(wordsA, " ") + " " + strings.Join(wordsB[bestOverlap:], " ")
	}
	return strings.TrimRight(a, " \t\n") + "\n\n" + strings.TrimLeft(b, " \t\n")
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
