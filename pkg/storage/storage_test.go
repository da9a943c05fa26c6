package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/demoreel/pkg/config"
	"github.com/odvcencio/demoreel/pkg/deliver"
	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/page"
	"github.com/odvcencio/demoreel/pkg/recorder"
)

func openArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := New(filepath.Join(t.TempDir(), "history.db"), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func completedSession(t *testing.T) *recorder.Session {
	t.Helper()
	st := recorder.NewStore(page.NewMemoryDriver(), nil, nil)

	cfg := config.Default().Recording
	cfg.OutputDir = t.TempDir()
	cfg.CaptureVideo = false
	cfg.ScreenshotPerStep = false

	ctx := context.Background()
	_, err := st.Start(ctx, recorder.StartOptions{
		Title:  "checkout walkthrough",
		URL:    "https://shop.test/cart",
		Config: cfg,
	})
	require.NoError(t, err)

	_, pg, err := st.RequireActive()
	require.NoError(t, err)
	pg.(*page.MemoryPage).SetElement("12", page.Element{Tag: "button", Label: "Checkout"})

	_, err = st.ExecuteWithEvidence(ctx, recorder.ActionMeta{
		Kind:        recorder.ActionNavigate,
		Description: "Open the cart",
		Details:     recorder.NavigateDetails{URL: "https://shop.test/cart"},
	}, func(ctx context.Context) error { return pg.Navigate(ctx, "https://shop.test/cart") })
	require.NoError(t, err)

	_, err = st.ExecuteWithEvidence(ctx, recorder.ActionMeta{
		Kind:        recorder.ActionClick,
		Description: "Click the checkout button",
		Details:     recorder.ClickDetails{Ref: "12", Label: "Checkout"},
	}, func(ctx context.Context) error { return pg.Click(ctx, "12") })
	require.NoError(t, err)

	ended, err := st.End(ctx)
	require.NoError(t, err)
	return ended
}

func TestRecordAndGetRecording(t *testing.T) {
	archive := openArchive(t)
	session := completedSession(t)

	manifest := &deliver.Manifest{
		SessionID: session.ID,
		Title:     session.Title,
		OutputDir: session.OutputDir,
		Guide:     "guide.md",
		Summary:   session.Summary(),
	}
	require.NoError(t, archive.RecordSession(context.Background(), session, manifest))

	rec, steps, err := archive.GetRecording(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, rec.ID)
	assert.Equal(t, "checkout walkthrough", rec.Title)
	assert.Equal(t, recorder.StatusCompleted, rec.Status)
	assert.Equal(t, 2, rec.StepCount)
	assert.InDelta(t, 1.0, rec.SuccessRate, 0.001)
	assert.WithinDuration(t, session.StartedAt, rec.StartedAt, time.Second)
	require.NotNil(t, rec.Manifest)
	assert.Equal(t, "guide.md", rec.Manifest.Guide)

	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Seq)
	assert.Equal(t, recorder.ActionNavigate, steps[0].Action)
	nav, ok := steps[0].Details.(recorder.NavigateDetails)
	require.True(t, ok)
	assert.Equal(t, "https://shop.test/cart", nav.URL)
	click, ok := steps[1].Details.(recorder.ClickDetails)
	require.True(t, ok)
	assert.Equal(t, "12", click.Ref)
}

func TestRecordSessionIsIdempotent(t *testing.T) {
	archive := openArchive(t)
	session := completedSession(t)
	ctx := context.Background()

	require.NoError(t, archive.RecordSession(ctx, session, nil))
	require.NoError(t, archive.RecordSession(ctx, session, nil))

	recs, err := archive.ListRecordings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Manifest)

	_, steps, err := archive.GetRecording(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestListRecordingsOrderAndLimit(t *testing.T) {
	archive := openArchive(t)
	ctx := context.Background()

	first := completedSession(t)
	second := completedSession(t)
	require.NoError(t, archive.RecordSession(ctx, first, nil))
	require.NoError(t, archive.RecordSession(ctx, second, nil))

	recs, err := archive.ListRecordings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.False(t, recs[0].StartedAt.Before(recs[1].StartedAt))

	limited, err := archive.ListRecordings(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordSessionRejectsRunning(t *testing.T) {
	archive := openArchive(t)
	st := recorder.NewStore(page.NewMemoryDriver(), nil, nil)
	cfg := config.Default().Recording
	cfg.OutputDir = t.TempDir()
	cfg.CaptureVideo = false
	session, err := st.Start(context.Background(), recorder.StartOptions{Title: "t", Config: cfg})
	require.NoError(t, err)

	err = archive.RecordSession(context.Background(), session, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	err = archive.RecordSession(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestGetRecordingNotFound(t *testing.T) {
	archive := openArchive(t)
	_, _, err := archive.GetRecording(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageRead))
}

func TestSchemaVersion(t *testing.T) {
	archive := openArchive(t)
	version, err := archive.GetSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)
}
