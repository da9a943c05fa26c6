package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/demoreel/pkg/config"
	"github.com/odvcencio/demoreel/pkg/deliver"
	"github.com/odvcencio/demoreel/pkg/recorder"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Recording.CaptureVideo = false
	cfg.Recording.OutputDir = filepath.Join(dir, "out")
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Archive.Path = filepath.Join(dir, "recordings.db")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))
	return path
}

func TestRecordReplayPackageHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	outDir := filepath.Join(dir, "demo")

	require.NoError(t, runRecord([]string{"-out", outDir, "-config", cfgPath}))

	doc, err := deliver.LoadStepsDocument(filepath.Join(outDir, "steps.json"))
	require.NoError(t, err)
	require.Len(t, doc.Steps, 7)
	assert.Equal(t, "the sample checkout flow", doc.Session.Title)
	for i, step := range doc.Steps {
		assert.Equal(t, i+1, step.ID)
		assert.True(t, step.Success, "step %d: %s", step.ID, step.Error)
	}

	// Replay re-executes the log against the scripted driver and produces a
	// fresh, equivalent step log.
	replayOut := filepath.Join(dir, "replay")
	require.NoError(t, runReplay([]string{
		"-steps", filepath.Join(outDir, "steps.json"),
		"-out", replayOut,
		"-config", cfgPath,
	}))
	replayed, err := deliver.LoadStepsDocument(filepath.Join(replayOut, "steps.json"))
	require.NoError(t, err)
	require.Len(t, replayed.Steps, 7)
	for i, step := range replayed.Steps {
		assert.Equal(t, doc.Steps[i].Action, step.Action)
		assert.True(t, step.Success, "replayed step %d: %s", step.ID, step.Error)
	}

	// Packaging regenerates deliverables in place from steps.json alone.
	require.NoError(t, os.Remove(filepath.Join(outDir, "guide.md")))
	require.NoError(t, runPackage([]string{"-dir", outDir, "-config", cfgPath}))
	_, err = os.Stat(filepath.Join(outDir, "guide.md"))
	require.NoError(t, err)

	require.NoError(t, runHistory([]string{"-config", cfgPath}))
}

func TestParamsForStepRoundTrip(t *testing.T) {
	cases := []struct {
		details recorder.Details
		want    map[string]any
	}{
		{recorder.NavigateDetails{URL: "https://x.test"}, map[string]any{"url": "https://x.test"}},
		{recorder.FillDetails{Ref: "1", Value: "v", Label: "Name"}, map[string]any{"ref": "1", "value": "v", "label": "Name"}},
		{recorder.ScrollDetails{DeltaY: -200}, map[string]any{"deltaX": 0, "deltaY": -200}},
		{recorder.SwitchViewportDetails{ViewportID: 2}, map[string]any{"viewportId": 2}},
		{recorder.UploadDetails{Ref: "4", Paths: []string{"a.pdf"}}, map[string]any{"ref": "4", "paths": []string{"a.pdf"}}},
	}
	for _, tc := range cases {
		t.Run(string(tc.details.Kind()), func(t *testing.T) {
			step := recorder.Step{Action: tc.details.Kind(), Details: tc.details}
			assert.Equal(t, tc.want, paramsForStep(step))
		})
	}
}
