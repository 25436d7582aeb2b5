package media

import (
	"fmt"
	"math"
	"sort"

	"ytscribe/internal/config"
)

// StreamInfo describes one candidate stream from video metadata.
type StreamInfo struct {
	FormatID   string  `json:"format_id"`
	ABRKbps    float64 `json:"abr"`
	Ext        string  `json:"ext"`
	ACodec     string  `json:"acodec"`
	VCodec     string  `json:"vcodec"`
	Filesize   int64   `json:"filesize"`
	FormatNote string  `json:"format_note"`
}

// Selection is the chosen stream plus the reason it won, recorded for
// diagnostics.
type Selection struct {
	FormatID string  `json:"format_id"`
	ABRKbps  float64 `json:"abr"`
	Ext      string  `json:"ext"`
	ACodec   string  `json:"acodec"`
	Reason   string  `json:"selection_reason"`
}

// BestAudioFormat is the yt-dlp selector used when no audio-only stream is
// identifiable from metadata.
const BestAudioFormat = "bestaudio"

func isAudioOnly(s StreamInfo) bool {
	return (s.VCodec == "" || s.VCodec == "none") && s.ACodec != "" && s.ACodec != "none"
}

// SelectStream picks the audio-only stream best suited for speech
// transcription. Within the configured bitrate band it takes the stream
// closest to the preferred rate, ties going to the higher bitrate. Streams
// below the floor are only chosen when nothing meets it, and missing bitrate
// data falls back to the first audio-only stream.
func SelectStream(formats []StreamInfo, audio config.Audio) Selection {
	var audioStreams []StreamInfo
	for _, s := range formats {
		if isAudioOnly(s) {
			audioStreams = append(audioStreams, s)
		}
	}

	if len(audioStreams) == 0 {
		return Selection{
			FormatID: BestAudioFormat,
			Reason:   "no audio-only streams found; using bestaudio fallback",
		}
	}

	var withABR []StreamInfo
	for _, s := range audioStreams {
		if s.ABRKbps > 0 {
			withABR = append(withABR, s)
		}
	}

	if len(withABR) == 0 {
		first := audioStreams[0]
		return selection(first, "no reliable bitrate data; chose first audio-only stream")
	}

	min := float64(audio.MinBitrateKbps)
	max := float64(audio.MaxBitrateKbps)
	preferred := float64(audio.PreferredBitrateKbps)

	var aboveFloor []StreamInfo
	for _, s := range withABR {
		if s.ABRKbps >= min {
			aboveFloor = append(aboveFloor, s)
		}
	}

	if len(aboveFloor) == 0 {
		sort.SliceStable(withABR, func(i, j int) bool { return withABR[i].ABRKbps > withABR[j].ABRKbps })
		return selection(withABR[0], fmt.Sprintf("no stream >= %dkbps; chose highest available", audio.MinBitrateKbps))
	}

	var inRange []StreamInfo
	for _, s := range aboveFloor {
		if s.ABRKbps <= max {
			inRange = append(inRange, s)
		}
	}

	if len(inRange) == 0 {
		sort.SliceStable(aboveFloor, func(i, j int) bool { return aboveFloor[i].ABRKbps < aboveFloor[j].ABRKbps })
		return selection(aboveFloor[0], fmt.Sprintf("no stream in [%d-%d] range; chose lowest above floor", audio.MinBitrateKbps, audio.MaxBitrateKbps))
	}

	sort.SliceStable(inRange, func(i, j int) bool {
		di := math.Abs(inRange[i].ABRKbps - preferred)
		dj := math.Abs(inRange[j].ABRKbps - preferred)
		if di != dj {
			return di < dj
		}
		return inRange[i].ABRKbps > inRange[j].ABRKbps
	})
	return selection(inRange[0], fmt.Sprintf("closest to %dkbps in [%d-%d] range", audio.PreferredBitrateKbps, audio.MinBitrateKbps, audio.MaxBitrateKbps))
}

func selection(s StreamInfo, reason string) Selection {
	return Selection{
		FormatID: s.FormatID,
		ABRKbps:  s.ABRKbps,
		Ext:      s.Ext,
		ACodec:   s.ACodec,
		Reason:   reason,
	}
}
