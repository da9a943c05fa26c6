package deliver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/demoreel/pkg/config"
	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/page"
	"github.com/odvcencio/demoreel/pkg/recorder"
)

// recordScenario records the canonical 3-step walkthrough: navigate, fill a
// long value, take a screenshot.
func recordScenario(t *testing.T, screenshotPerStep bool) *recorder.Session {
	t.Helper()
	driver := page.NewMemoryDriver()
	st := recorder.NewStore(driver, nil, nil)

	cfg := config.Default().Recording
	cfg.OutputDir = t.TempDir()
	cfg.CaptureVideo = false
	cfg.CaptureTrace = false
	cfg.ScreenshotPerStep = screenshotPerStep

	_, err := st.Start(context.Background(), recorder.StartOptions{
		Title:  "the coupon flow",
		URL:    "https://example.test",
		Config: cfg,
	})
	require.NoError(t, err)

	_, pg, err := st.RequireActive()
	require.NoError(t, err)
	pg.(*page.MemoryPage).SetElement("1", page.Element{Tag: "input", Label: "Coupon"})

	ctx := context.Background()
	_, err = st.ExecuteWithEvidence(ctx, recorder.ActionMeta{
		Kind:        recorder.ActionNavigate,
		Description: "Navigate to https://example.test",
		Details:     recorder.NavigateDetails{URL: "https://example.test"},
	}, func(ctx context.Context) error { return pg.Navigate(ctx, "https://example.test") })
	require.NoError(t, err)

	_, err = st.ExecuteWithEvidence(ctx, recorder.ActionMeta{
		Kind:        recorder.ActionFill,
		Description: "Fill the coupon field",
		Details:     recorder.FillDetails{Ref: "1", Value: "a-very-long-example-value-123"},
	}, func(ctx context.Context) error { return pg.Fill(ctx, "1", "a-very-long-example-value-123") })
	require.NoError(t, err)

	_, err = st.ExecuteWithEvidence(ctx, recorder.ActionMeta{
		Kind:        recorder.ActionScreenshot,
		Description: "Capture the filled form",
		Details:     recorder.ScreenshotDetails{Label: "filled-form"},
	}, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	ended, err := st.End(ctx)
	require.NoError(t, err)
	require.NotNil(t, ended)
	return ended
}

func TestPackage_CanonicalScenario(t *testing.T) {
	session := recordScenario(t, true)
	p := NewPackager(nil, nil, 0)

	manifest, err := p.Package(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, manifest.Failures)

	// JSON log has ids 1..3.
	var doc StepsDocument
	data, readErr := os.ReadFile(filepath.Join(session.OutputDir, manifest.StepsJSON))
	require.NoError(t, readErr)
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Steps, 3)
	for i, step := range doc.Steps {
		assert.Equal(t, i+1, step.ID)
	}
	assert.Equal(t, 3, doc.Summary.TotalSteps)

	// Narration has exactly 2 spoken step segments; the fill line carries
	// the truncated value.
	narrationText, readErr := os.ReadFile(filepath.Join(session.OutputDir, manifest.Narration))
	require.NoError(t, readErr)
	assert.Contains(t, string(narrationText), `"a-very-long-example-..."`)

	// SRT has exactly 4 cues: intro + 2 steps + outro.
	srt, readErr := os.ReadFile(filepath.Join(session.OutputDir, manifest.SubtitlesSRT))
	require.NoError(t, readErr)
	assert.Equal(t, 4, strings.Count(string(srt), " --> "))

	// Every per-step asset was captured with screenshot-per-step enabled:
	// one PNG per step, labeled at capture time.
	for _, name := range []string{"step-001.png", "step-002.png", "step-003.png"} {
		_, statErr := os.Stat(filepath.Join(session.OutputDir, "assets", name))
		assert.NoError(t, statErr, name)
	}

	// Video/trace disabled: manifest omits them without error.
	assert.Empty(t, manifest.Video)
	assert.Empty(t, manifest.Trace)

	// The remaining artifacts exist on disk.
	for _, rel := range []string{manifest.Guide, manifest.NarrationTimed, manifest.SubtitlesVTT, manifest.Tutorial, manifest.Preview} {
		require.NotEmpty(t, rel)
		_, statErr := os.Stat(filepath.Join(session.OutputDir, rel))
		assert.NoError(t, statErr, rel)
	}
}

func TestPackage_WithoutScreenshots(t *testing.T) {
	session := recordScenario(t, false)
	p := NewPackager(nil, nil, 0)

	manifest, err := p.Package(context.Background(), session)
	require.NoError(t, err)

	entries, readErr := os.ReadDir(filepath.Join(session.OutputDir, "assets"))
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	preview, readErr := os.ReadFile(filepath.Join(session.OutputDir, manifest.Preview))
	require.NoError(t, readErr)
	assert.Contains(t, string(preview), "No screenshots")
}

func TestPackage_RequiresCompletedSession(t *testing.T) {
	driver := page.NewMemoryDriver()
	st := recorder.NewStore(driver, nil, nil)
	cfg := config.Default().Recording
	cfg.OutputDir = t.TempDir()
	cfg.CaptureVideo = false
	session, err := st.Start(context.Background(), recorder.StartOptions{Title: "t", URL: "https://example.test", Config: cfg})
	require.NoError(t, err)

	p := NewPackager(nil, nil, 0)
	_, err = p.Package(context.Background(), session)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionNotDone))

	_, err = p.Package(context.Background(), nil)
	require.Error(t, err)
}

func TestPackage_VideoLocatedInStaging(t *testing.T) {
	session := recordScenario(t, false)

	// The external recorder flushed the video into the staging directory
	// instead of the final path.
	staging := filepath.Join(session.OutputDir, StagingDirName)
	require.NoError(t, os.MkdirAll(staging, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "demo.webm"), []byte("webm"), 0644))
	session.Config.CaptureVideo = true

	p := NewPackager(nil, nil, 0)
	manifest, err := p.Package(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(StagingDirName, "demo.webm"), manifest.Video)
}

func TestPackage_MissingVideoIsNotAnError(t *testing.T) {
	session := recordScenario(t, false)
	session.Config.CaptureVideo = true
	session.Config.CaptureTrace = true

	p := NewPackager(nil, nil, 0)
	manifest, err := p.Package(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, manifest.Video)
	assert.Empty(t, manifest.Trace)
	assert.NotEmpty(t, manifest.Guide)
	assert.NotEmpty(t, manifest.StepsJSON)
}
