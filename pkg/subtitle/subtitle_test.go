package subtitle

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/demoreel/pkg/narration"
)

func sampleSegments() []narration.Segment {
	return []narration.Segment{
		{Index: 1, StartMS: 0, EndMS: 2000, Text: "Welcome! Let's take a look."},
		{Index: 2, StartMS: 2000, EndMS: 5400, Text: "Now, click the checkout button."},
		{Index: 3, StartMS: 5400, EndMS: 3600000 + 61_250, Text: "Thanks for watching!"},
	}
}

func TestEncodeSRT(t *testing.T) {
	out := EncodeSRT(sampleSegments())

	blocks := strings.Split(strings.TrimRight(out, "\n"), "\n\n")
	require.Len(t, blocks, 3)

	first := strings.Split(blocks[0], "\n")
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "00:00:00,000 --> 00:00:02,000", first[1])
	assert.Equal(t, "Welcome! Let's take a look.", first[2])

	// Hour rollover and comma-delimited millis.
	assert.Contains(t, blocks[2], "00:00:05,400 --> 01:01:01,250")
}

func TestEncodeVTT(t *testing.T) {
	out := EncodeVTT(sampleSegments())

	require.True(t, strings.HasPrefix(out, "WEBVTT\n\n"))
	assert.Contains(t, out, "00:00:00.000 --> 00:00:02.000")
	assert.NotContains(t, out, ",")
}

func TestCueCountMatchesSegments(t *testing.T) {
	segments := sampleSegments()
	srtCues := strings.Count(EncodeSRT(segments), " --> ")
	vttCues := strings.Count(EncodeVTT(segments), " --> ")
	assert.Equal(t, len(segments), srtCues)
	assert.Equal(t, len(segments), vttCues)
}

var timeRangeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3}) --> (\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

func parseRangeMS(t *testing.T, match []string) (int64, int64) {
	t.Helper()
	val := func(i int) int64 {
		n, err := strconv.ParseInt(match[i], 10, 64)
		require.NoError(t, err)
		return n
	}
	start := val(1)*3_600_000 + val(2)*60_000 + val(3)*1000 + val(4)
	end := val(5)*3_600_000 + val(6)*60_000 + val(7)*1000 + val(8)
	return start, end
}

func TestTimestampsNonDecreasingNonOverlapping(t *testing.T) {
	for name, out := range map[string]string{
		"srt": EncodeSRT(sampleSegments()),
		"vtt": EncodeVTT(sampleSegments()),
	} {
		t.Run(name, func(t *testing.T) {
			matches := timeRangeRe.FindAllStringSubmatch(out, -1)
			require.Len(t, matches, 3)
			var prevEnd int64
			for _, m := range matches {
				start, end := parseRangeMS(t, m)
				assert.GreaterOrEqual(t, start, prevEnd)
				assert.GreaterOrEqual(t, end, start)
				prevEnd = end
			}
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	assert.Equal(t, "", EncodeSRT(nil))
	assert.Equal(t, "WEBVTT\n\n", EncodeVTT(nil))
}
