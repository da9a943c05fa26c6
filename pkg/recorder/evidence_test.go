package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/page"
)

func TestExecuteWithEvidence_RecordsSuccessfulStep(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	session := startTestSession(t, st)

	step, err := st.ExecuteWithEvidence(context.Background(), ActionMeta{
		Kind:        ActionClick,
		Description: "Click the checkout button",
		Details:     ClickDetails{Ref: "2", Label: "Checkout"},
	}, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, step.ID)
	assert.True(t, step.Success)
	assert.Empty(t, step.Error)
	assert.Equal(t, ActionClick, step.Action)
	require.Len(t, session.Steps(), 1)
}

func TestExecuteWithEvidence_FailedActionStillRecorded(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	session := startTestSession(t, st)

	boom := errors.New(errors.ErrCodeElementNotFound, "no element for ref 9")
	step, err := st.ExecuteWithEvidence(context.Background(), ActionMeta{
		Kind:        ActionClick,
		Description: "Click a ghost",
		Details:     ClickDetails{Ref: "9"},
	}, func(ctx context.Context) error {
		return boom
	})

	// The error is re-raised to the caller, after the step is recorded.
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeElementNotFound))
	assert.False(t, step.Success)
	assert.Contains(t, step.Error, "no element")

	steps := session.Steps()
	require.Len(t, steps, 1)
	assert.False(t, steps[0].Success)
}

func TestExecuteWithEvidence_ScreenshotBeforeAction(t *testing.T) {
	driver := page.NewMemoryDriver()
	st := NewStore(driver, nil, nil)

	cfg := testRecordingConfig(t)
	cfg.ScreenshotPerStep = true
	session, err := st.Start(context.Background(), StartOptions{Title: "t", URL: "https://example.test", Config: cfg})
	require.NoError(t, err)

	var actionRan bool
	step, err := st.ExecuteWithEvidence(context.Background(), ActionMeta{
		Kind:        ActionNavigate,
		Description: "Navigate to the pricing page",
		Details:     NavigateDetails{URL: "https://example.test/pricing"},
	}, func(ctx context.Context) error {
		// By the time the action runs, the pre-action screenshot for this
		// step number must already exist on disk.
		_, statErr := os.Stat(filepath.Join(session.OutputDir, "assets", "step-001.png"))
		require.NoError(t, statErr)
		actionRan = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, actionRan)

	assert.Equal(t, filepath.Join("assets", "step-001.png"), step.Evidence.ScreenshotPath)
	assert.Equal(t, filepath.Join("assets", "step-001.snapshot.txt"), step.Evidence.SnapshotBefore)

	// Screenshot label matches the step's sequence id at capture time.
	_, err = os.Stat(filepath.Join(session.OutputDir, step.Evidence.ScreenshotPath))
	require.NoError(t, err)
}

func TestExecuteWithEvidence_VideoOffsets(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	cfg := testRecordingConfig(t)
	cfg.CaptureVideo = true
	session, err := st.Start(context.Background(), StartOptions{Title: "t", URL: "https://example.test", Config: cfg})
	require.NoError(t, err)

	// Deterministic clock: action starts 10s after the video origin and
	// takes 1.5s.
	origin := *session.VideoOrigin
	times := []time.Time{origin.Add(10 * time.Second), origin.Add(11500 * time.Millisecond)}
	st.now = func() time.Time {
		next := times[0]
		if len(times) > 1 {
			times = times[1:]
		}
		return next
	}

	step, err := st.ExecuteWithEvidence(context.Background(), ActionMeta{
		Kind:        ActionWait,
		Description: "Wait for the dashboard",
		Details:     WaitDetails{Seconds: 1.5},
	}, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	require.NotNil(t, step.VideoStartMS)
	require.NotNil(t, step.VideoEndMS)
	assert.Equal(t, int64(10000), *step.VideoStartMS)
	assert.Equal(t, int64(11500), *step.VideoEndMS)
	assert.Equal(t, int64(1500), step.Duration)
}

func TestExecuteWithEvidence_NoSession(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	_, err := st.ExecuteWithEvidence(context.Background(), ActionMeta{Kind: ActionClick}, func(ctx context.Context) error {
		t.Fatal("action must not run without a session")
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoActiveSession))
}
