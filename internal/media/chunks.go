package media

// ChunkSpan is one planned audio segment in seconds.
type ChunkSpan struct {
	Index    int
	StartSec float64
	EndSec   float64
}

// NeedsChunking reports whether audio of the given duration must be split
// before transcription.
func NeedsChunking(durationSec, thresholdSec float64) bool {
	return durationSec > thresholdSec
}

// PlanChunks lays out overlapping segments covering [0, durationSec]. Each
// chunk after the first starts overlapSec before the previous chunk's end so
// the merge step can dedupe the seam. The final chunk ends exactly at
// durationSec.
func PlanChunks(durationSec float64, chunkSec, overlapSec int) []ChunkSpan {
	if durationSec <= 0 {
		return nil
	}

	var spans []ChunkSpan
	idx := 0
	start := 0.0
	for start < durationSec {
		end := start + float64(chunkSec)
		if end > durationSec {
			end = durationSec
		}
		spans = append(spans, ChunkSpan{Index: idx, StartSec: start, EndSec: end})
		idx++
		if end < durationSec {
			start = end - float64(overlapSec)
		} else {
			start = durationSec
		}
	}
	return spans
}

// SplitInHalf divides one span for an adaptive timeout retry. The second
// half starts overlapSec before the midpoint so the seam still overlaps.
func SplitInHalf(span ChunkSpan, overlapSec int) []ChunkSpan {
	mid := (span.StartSec + span.EndSec) / 2
	return []ChunkSpan{
		{StartSec: span.StartSec, EndSec: mid},
		{StartSec: mid - float64(overlapSec), EndSec: span.EndSec},
	}
}
