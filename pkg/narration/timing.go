package narration

import (
	"strings"

	"github.com/odvcencio/demoreel/pkg/recorder"
)

// Timing policy. The estimated-mode layout is a heuristic; any monotonic
// estimator that preserves segment non-overlap is acceptable.
const (
	WordsPerMinute   = 150
	MinSegmentMS     = 2000
	InterStepPauseMS = 500
	IntroDurationMS  = 2000
	OutroTailMS      = 5000
)

// Segment is a derived (start, end, text) triple used to drive spoken
// narration and subtitle cues. Segments are produced fresh on each
// packaging pass and never persisted as mutable state.
type Segment struct {
	Index   int
	StartMS int64
	EndMS   int64
	Text    string
}

// DurationMS returns the segment length in milliseconds.
func (s Segment) DurationMS() int64 {
	return s.EndMS - s.StartMS
}

// BuildSegments projects a completed session's step log into time-stamped
// narration segments: an intro at offset 0, one segment per step that yields
// narration text, and an outro at the end. Video-synchronized timing is used
// when every narrated step carries video-timeline offsets; otherwise timing
// is estimated from word counts and recorded action durations.
func BuildSegments(title string, steps []recorder.Step) []Segment {
	type narrated struct {
		step recorder.Step
		text string
	}
	var spoken []narrated
	for _, step := range steps {
		if text := Narrate(step); text != "" {
			spoken = append(spoken, narrated{step: step, text: text})
		}
	}

	videoMode := len(spoken) > 0
	for _, n := range spoken {
		if n.step.VideoStartMS == nil || n.step.VideoEndMS == nil {
			videoMode = false
			break
		}
	}

	var segments []Segment
	if videoMode {
		segments = append(segments, Segment{StartMS: 0, EndMS: IntroDurationMS, Text: IntroText(title)})
		for _, n := range spoken {
			segments = append(segments, Segment{
				StartMS: *n.step.VideoStartMS,
				EndMS:   *n.step.VideoEndMS,
				Text:    n.text,
			})
		}
		lastEnd := clampMonotonic(segments)
		total := totalVideoDuration(steps)
		if total <= lastEnd {
			total = lastEnd + OutroTailMS
		}
		segments = append(segments, Segment{StartMS: lastEnd, EndMS: total, Text: OutroText()})
	} else {
		intro := Segment{StartMS: 0, EndMS: estimateDurationMS(IntroText(title)), Text: IntroText(title)}
		segments = append(segments, intro)
		clock := intro.EndMS
		for _, n := range spoken {
			dur := estimateDurationMS(n.text)
			segments = append(segments, Segment{StartMS: clock, EndMS: clock + dur, Text: n.text})
			// Advance by whichever is longer: the spoken line, or the
			// recorded action plus the inter-step pause. Keeps segments
			// non-overlapping while tracking slow actions.
			advance := n.step.Duration + InterStepPauseMS
			if dur > advance {
				advance = dur
			}
			clock += advance
		}
		segments = append(segments, Segment{StartMS: clock, EndMS: clock + estimateDurationMS(OutroText()), Text: OutroText()})
	}

	for i := range segments {
		segments[i].Index = i + 1
	}
	return segments
}

// clampMonotonic enforces non-decreasing, non-overlapping segments in place
// and returns the final end offset.
func clampMonotonic(segments []Segment) int64 {
	var prevEnd int64
	for i := range segments {
		if segments[i].StartMS < prevEnd {
			segments[i].StartMS = prevEnd
		}
		if segments[i].EndMS <= segments[i].StartMS {
			segments[i].EndMS = segments[i].StartMS + 1
		}
		prevEnd = segments[i].EndMS
	}
	return prevEnd
}

// totalVideoDuration derives the session's total video length from the final
// step's end offset, falling back to summed step durations plus a fixed tail.
func totalVideoDuration(steps []recorder.Step) int64 {
	if len(steps) > 0 {
		if end := steps[len(steps)-1].VideoEndMS; end != nil {
			return *end
		}
	}
	var sum int64
	for _, step := range steps {
		sum += step.Duration
	}
	return sum + OutroTailMS
}

// estimateDurationMS derives a reading duration from word count at a fixed
// reading rate, floored at the minimum segment duration.
func estimateDurationMS(text string) int64 {
	words := int64(len(strings.Fields(text)))
	ms := words * 60_000 / WordsPerMinute
	if ms < MinSegmentMS {
		ms = MinSegmentMS
	}
	return ms
}
