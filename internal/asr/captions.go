package asr

import (
	"fmt"
	"math"
	"strings"
)

// SRT renders the segments as SubRip captions: 1-based sequence numbers
// and HH:MM:SS,mmm timestamps, one block per segment in index order.
func (t *Transcription) SRT() string {
	var sb strings.Builder
	for _, seg := range t.Segments {
		fmt.Fprintf(&sb, "%d\n", seg.Index+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(seg.Start, ','), formatTimestamp(seg.End, ','))
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// VTT renders the segments as WebVTT captions: the literal WEBVTT header
// and HH:MM:SS.mmm timestamps, one block per segment in index order.
func (t *Transcription) VTT() string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, seg := range t.Segments {
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(seg.Start, '.'), formatTimestamp(seg.End, '.'))
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// formatTimestamp renders seconds as HH:MM:SS<sep>mmm using millisecond
// integer math so rendering is deterministic.
func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := ms % 3_600_000 / 60_000
	s := ms % 60_000 / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}
