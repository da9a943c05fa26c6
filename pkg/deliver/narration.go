package deliver

import (
	"fmt"
	"strings"

	"github.com/odvcencio/demoreel/pkg/narration"
)

// GenerateNarrationText renders the narration script as plain paragraphs,
// one per segment, for a human voice artist or a TTS pipeline.
func GenerateNarrationText(segments []narration.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// GenerateNarrationTimed renders the narration script with timing brackets
// so a narrator can pace against the recorded video.
func GenerateNarrationTimed(segments []narration.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&sb, "[%s - %s] %s\n", formatClock(seg.StartMS), formatClock(seg.EndMS), seg.Text)
	}
	return sb.String()
}

func formatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60_000
	seconds := (ms % 60_000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}
