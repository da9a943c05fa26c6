package recorder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepJSONRoundTrip(t *testing.T) {
	start := int64(4200)
	end := int64(5100)
	step := Step{
		ID:           2,
		Action:       ActionFill,
		Description:  "Fill the email field",
		Timestamp:    time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Duration:     900,
		Details:      FillDetails{Ref: "1", Label: "Email", Value: "a-very-long-example-value-123"},
		Evidence:     Evidence{ScreenshotPath: "assets/step-002.png"},
		Success:      true,
		VideoStartMS: &start,
		VideoEndMS:   &end,
	}

	data, err := json.Marshal(step)
	require.NoError(t, err)

	// The CLI replay path depends on these exact field names.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "action", "description", "timestamp", "duration", "details", "evidence", "success"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "error")

	var decoded Step
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, step, decoded)

	details, ok := decoded.Details.(FillDetails)
	require.True(t, ok, "details must decode to the kind's concrete variant")
	assert.Equal(t, "a-very-long-example-value-123", details.Value)
}

func TestDecodeDetails_UnknownKind(t *testing.T) {
	_, err := DecodeDetails(ActionKind("teleport"), nil)
	require.Error(t, err)
}

func TestDecodeDetails_ViewportKinds(t *testing.T) {
	d, err := DecodeDetails(ActionOpenViewport, json.RawMessage(`{"url":"https://example.test","viewportId":2}`))
	require.NoError(t, err)
	open, ok := d.(OpenViewportDetails)
	require.True(t, ok)
	assert.Equal(t, 2, open.ViewportID)
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil)
	assert.Equal(t, 0, sum.TotalSteps)
	assert.Zero(t, sum.SuccessRate)
}
