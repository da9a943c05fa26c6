// Package subtitle encodes narration segments as SRT and WebVTT cue lists.
// Both encoders are pure functions: cue order exactly matches segment order,
// and no merging or splitting occurs here.
package subtitle

import (
	"fmt"
	"strings"

	"github.com/odvcencio/demoreel/pkg/narration"
)

// EncodeSRT renders segments in SubRip format: a 1-based index, a
// comma-delimited time range, the text, and a blank-line separator.
func EncodeSRT(segments []narration.Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(seg.StartMS, ','), formatTimestamp(seg.EndMS, ','))
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// EncodeVTT renders segments in WebVTT format, which differs from SRT only
// in its header line and dot-delimited fractional seconds.
func EncodeVTT(segments []narration.Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(seg.StartMS, '.'), formatTimestamp(seg.EndMS, '.'))
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// formatTimestamp renders milliseconds as HH:MM:SS<sep>mmm.
func formatTimestamp(ms int64, sep rune) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	seconds := (ms % 60_000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, millis)
}
