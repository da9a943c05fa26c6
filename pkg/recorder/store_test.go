package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/demoreel/pkg/config"
	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/page"
)

func testRecordingConfig(t *testing.T) config.RecordingConfig {
	t.Helper()
	cfg := config.Default().Recording
	cfg.OutputDir = t.TempDir()
	cfg.ScreenshotPerStep = false
	cfg.CaptureVideo = false
	return cfg
}

func startTestSession(t *testing.T, st *Store) *Session {
	t.Helper()
	session, err := st.Start(context.Background(), StartOptions{
		Title:  "Checkout demo",
		URL:    "https://example.test",
		Config: testRecordingConfig(t),
	})
	require.NoError(t, err)
	return session
}

func TestStore_StartInitializesSession(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	session := startTestSession(t, st)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, StatusRunning, session.Status)
	assert.Equal(t, "https://example.test", session.StartURL)
	assert.Nil(t, session.VideoOrigin)

	infos := session.Registry.List()
	require.Len(t, infos, 1)
	assert.Equal(t, "https://example.test", infos[0].URL)
	assert.True(t, infos[0].IsActive)
}

func TestStore_StartWithVideoSetsOrigin(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	cfg := testRecordingConfig(t)
	cfg.CaptureVideo = true

	session, err := st.Start(context.Background(), StartOptions{Title: "t", URL: "https://example.test", Config: cfg})
	require.NoError(t, err)
	require.NotNil(t, session.VideoOrigin)
	assert.Equal(t, session.StartedAt, *session.VideoOrigin)
}

func TestStore_StartImplicitlyEndsPriorSession(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	first := startTestSession(t, st)
	second := startTestSession(t, st)

	assert.Equal(t, StatusCompleted, first.Status)
	assert.Equal(t, StatusRunning, second.Status)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, st.Active())
}

func TestStore_EndIsIdempotent(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	startTestSession(t, st)

	ended, err := st.End(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ended)
	assert.Equal(t, StatusCompleted, ended.Status)
	assert.False(t, ended.EndedAt.IsZero())

	again, err := st.End(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestStore_RequireActiveErrors(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)

	_, _, err := st.RequireActive()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoActiveSession))

	session := startTestSession(t, st)
	_, pg, err := st.RequireActive()
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", pg.URL())

	// Simulate the active viewport dying without a switch.
	session.Registry.CloseAll()
	_, _, err = st.RequireActive()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoActiveViewport))
}

func TestStore_AppendStepAssignsContiguousIDs(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	session := startTestSession(t, st)

	for i := 0; i < 5; i++ {
		success := i%2 == 0
		_, err := st.AppendStep(Step{
			Action:      ActionClick,
			Description: "click something",
			Details:     ClickDetails{Ref: "1"},
			Success:     success,
		})
		require.NoError(t, err)
	}

	steps := session.Steps()
	require.Len(t, steps, 5)
	for i, step := range steps {
		assert.Equal(t, i+1, step.ID, "ids must be 1..N contiguous regardless of failures")
		assert.False(t, step.Timestamp.IsZero())
	}
}

func TestStore_AppendStepNeverMutatesPriorSteps(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	session := startTestSession(t, st)

	_, err := st.AppendStep(Step{Action: ActionNavigate, Description: "go", Details: NavigateDetails{URL: "https://example.test"}, Success: true})
	require.NoError(t, err)
	before := session.Steps()[0]

	_, err = st.AppendStep(Step{Action: ActionClick, Description: "click", Details: ClickDetails{Ref: "1"}, Success: true})
	require.NoError(t, err)

	after := session.Steps()[0]
	assert.Equal(t, before, after)

	// Mutating the returned copy does not leak into the log.
	mutated := session.Steps()
	mutated[0].Description = "tampered"
	assert.Equal(t, before.Description, session.Steps()[0].Description)
}

func TestStore_AppendStepRequiresRunningSession(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	_, err := st.AppendStep(Step{Action: ActionWait})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoActiveSession))
}

func TestStore_SummaryComputedFromLog(t *testing.T) {
	st := NewStore(page.NewMemoryDriver(), nil, nil)
	session := startTestSession(t, st)

	st.now = func() time.Time { return session.StartedAt }
	_, err := st.AppendStep(Step{Action: ActionClick, Duration: 120, Success: true})
	require.NoError(t, err)
	_, err = st.AppendStep(Step{Action: ActionFill, Duration: 80, Success: false, Error: "element not found"})
	require.NoError(t, err)

	sum := session.Summary()
	assert.Equal(t, 2, sum.TotalSteps)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, int64(200), sum.TotalDurationMS)
	assert.InDelta(t, 0.5, sum.SuccessRate, 1e-9)
}
