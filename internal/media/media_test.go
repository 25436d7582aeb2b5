package media

import (
	"math"
	"testing"

	"ytscribe/internal/config"
)

func testBand() config.Audio {
	return config.Audio{PreferredBitrateKbps: 96, MinBitrateKbps: 64, MaxBitrateKbps: 128}
}

func TestSelectStreamPrefersClosestToPreferred(t *testing.T) {
	formats := []StreamInfo{
		{FormatID: "249", ABRKbps: 50, ACodec: "opus", VCodec: "none"},
		{FormatID: "250", ABRKbps: 70, ACodec: "opus", VCodec: "none"},
		{FormatID: "251", ABRKbps: 110, ACodec: "opus", VCodec: "none"},
		{FormatID: "140", ABRKbps: 128, ACodec: "mp4a", VCodec: "none"},
	}
	sel := SelectStream(formats, testBand())
	if sel.FormatID != "251" {
		t.Fatalf("selected %s, want 251 (closest to 96)", sel.FormatID)
	}
}

func TestSelectStreamTieGoesHigher(t *testing.T) {
	formats := []StreamInfo{
		{FormatID: "low", ABRKbps: 80, ACodec: "opus", VCodec: "none"},
		{FormatID: "high", ABRKbps: 112, ACodec: "opus", VCodec: "none"},
	}
	// Both are 16 kbps from 96.
	sel := SelectStream(formats, testBand())
	if sel.FormatID != "high" {
		t.Fatalf("selected %s, want high on tie", sel.FormatID)
	}
}

func TestSelectStreamAllAboveBand(t *testing.T) {
	formats := []StreamInfo{
		{FormatID: "a", ABRKbps: 256, ACodec: "opus", VCodec: "none"},
		{FormatID: "b", ABRKbps: 160, ACodec: "opus", VCodec: "none"},
	}
	sel := SelectStream(formats, testBand())
	if sel.FormatID != "b" {
		t.Fatalf("selected %s, want lowest above floor", sel.FormatID)
	}
}

func TestSelectStreamAllBelowFloor(t *testing.T) {
	formats := []StreamInfo{
		{FormatID: "a", ABRKbps: 32, ACodec: "opus", VCodec: "none"},
		{FormatID: "b", ABRKbps: 48, ACodec: "opus", VCodec: "none"},
	}
	sel := SelectStream(formats, testBand())
	if sel.FormatID != "b" {
		t.Fatalf("selected %s, want highest available below floor", sel.FormatID)
	}
}

func TestSelectStreamIgnoresVideoStreams(t *testing.T) {
	formats := []StreamInfo{
		{FormatID: "video", ABRKbps: 96, ACodec: "mp4a", VCodec: "avc1"},
		{FormatID: "audio", ABRKbps: 70, ACodec: "opus", VCodec: "none"},
	}
	sel := SelectStream(formats, testBand())
	if sel.FormatID != "audio" {
		t.Fatalf("selected %s, want audio-only", sel.FormatID)
	}
}

func TestSelectStreamNoAudioFallsBack(t *testing.T) {
	formats := []StreamInfo{
		{FormatID: "video", ACodec: "none", VCodec: "avc1"},
	}
	sel := SelectStream(formats, testBand())
	if sel.FormatID != BestAudioFormat {
		t.Fatalf("selected %s, want bestaudio", sel.FormatID)
	}
}

func TestSelectStreamNoBitrateData(t *testing.T) {
	formats := []StreamInfo{
		{FormatID: "first", ACodec: "opus", VCodec: "none"},
		{FormatID: "second", ACodec: "mp4a", VCodec: "none"},
	}
	sel := SelectStream(formats, testBand())
	if sel.FormatID != "first" {
		t.Fatalf("selected %s, want first audio-only", sel.FormatID)
	}
}

func TestNeedsChunking(t *testing.T) {
	if NeedsChunking(7200, 7200) {
		t.Fatal("exactly at threshold should not chunk")
	}
	if !NeedsChunking(7201, 7200) {
		t.Fatal("above threshold should chunk")
	}
}

func TestPlanChunksOverlap(t *testing.T) {
	spans := PlanChunks(10000, 3600, 2)
	if len(spans) != 3 {
		t.Fatalf("got %d chunks, want 3", len(spans))
	}
	if spans[0].StartSec != 0 || spans[0].EndSec != 3600 {
		t.Fatalf("chunk 0 = %+v", spans[0])
	}
	// Each successor starts exactly overlap before its predecessor's end.
	for i := 1; i < len(spans); i++ {
		if got := spans[i-1].EndSec - spans[i].StartSec; got != 2 {
			t.Fatalf("overlap between %d and %d = %v", i-1, i, got)
		}
	}
	last := spans[len(spans)-1]
	if last.EndSec != 10000 {
		t.Fatalf("last chunk ends at %v", last.EndSec)
	}
	for i, span := range spans {
		if span.Index != i {
			t.Fatalf("index %d = %d", i, span.Index)
		}
	}
}

func TestPlanChunksDeterministic(t *testing.T) {
	a := PlanChunks(9999.5, 1800, 2)
	b := PlanChunks(9999.5, 1800, 2)
	if len(a) != len(b) {
		t.Fatal("plans differ in length")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("plans differ at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPlanChunksShortAudioSingleChunk(t *testing.T) {
	spans := PlanChunks(600, 3600, 2)
	if len(spans) != 1 {
		t.Fatalf("got %d chunks, want 1", len(spans))
	}
	if spans[0].StartSec != 0 || spans[0].EndSec != 600 {
		t.Fatalf("chunk = %+v", spans[0])
	}
}

func TestPlanChunksZeroDuration(t *testing.T) {
	if spans := PlanChunks(0, 3600, 2); spans != nil {
		t.Fatalf("expected nil, got %v", spans)
	}
}

func TestSplitInHalf(t *testing.T) {
	halves := SplitInHalf(ChunkSpan{StartSec: 0, EndSec: 3600}, 2)
	if len(halves) != 2 {
		t.Fatalf("got %d spans", len(halves))
	}
	if halves[0].StartSec != 0 || halves[0].EndSec != 1800 {
		t.Fatalf("first half = %+v", halves[0])
	}
	if math.Abs(halves[1].StartSec-1798) > 1e-9 || halves[1].EndSec != 3600 {
		t.Fatalf("second half = %+v", halves[1])
	}
}
