package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ActionMeta describes the action an evidence-wrapped callback performs.
type ActionMeta struct {
	Kind        ActionKind
	Description string
	Details     Details
}

// ExecuteWithEvidence wraps an action with the evidence-collection contract:
// a pre-action screenshot labeled with the next step number, then the action,
// then a step appended regardless of outcome. If the action fails, its error
// is returned to the caller only after the failed step is durably recorded.
// This ordering must not change; narration and subtitles assume monotonic,
// non-overlapping step timestamps.
func (st *Store) ExecuteWithEvidence(ctx context.Context, meta ActionMeta, action func(context.Context) error) (Step, error) {
	session, pg, err := st.RequireActive()
	if err != nil {
		return Step{}, err
	}

	var evidence Evidence
	if session.Config.ScreenshotPerStep {
		nextID := session.StepCount() + 1
		if data, shotErr := pg.Screenshot(ctx); shotErr == nil {
			rel := filepath.Join("assets", fmt.Sprintf("step-%03d.png", nextID))
			if writeErr := os.WriteFile(filepath.Join(session.OutputDir, rel), data, 0644); writeErr == nil {
				evidence.ScreenshotPath = rel
			}
		}
		if snap, snapErr := pg.Snapshot(ctx); snapErr == nil && snap != "" {
			rel := filepath.Join("assets", fmt.Sprintf("step-%03d.snapshot.txt", nextID))
			if writeErr := os.WriteFile(filepath.Join(session.OutputDir, rel), []byte(snap), 0644); writeErr == nil {
				evidence.SnapshotBefore = rel
			}
		}
	}

	start := st.now()
	actionErr := action(ctx)
	elapsed := st.now().Sub(start)

	if actionErr != nil && session.Config.ScreenshotPerStep {
		// A post-failure snapshot makes failed steps diagnosable from the
		// artifact directory alone.
		if snap, snapErr := pg.Snapshot(ctx); snapErr == nil && snap != "" {
			rel := filepath.Join("assets", fmt.Sprintf("step-%03d.failure.txt", session.StepCount()+1))
			if writeErr := os.WriteFile(filepath.Join(session.OutputDir, rel), []byte(snap), 0644); writeErr == nil {
				evidence.SnapshotAfter = rel
			}
		}
	}

	step := Step{
		Action:      meta.Kind,
		Description: meta.Description,
		Timestamp:   start,
		Duration:    elapsed.Milliseconds(),
		Details:     meta.Details,
		Evidence:    evidence,
		Success:     actionErr == nil,
	}
	if actionErr != nil {
		step.Error = actionErr.Error()
	}
	if session.VideoOrigin != nil {
		videoStart := start.Sub(*session.VideoOrigin).Milliseconds()
		videoEnd := videoStart + step.Duration
		step.VideoStartMS = &videoStart
		step.VideoEndMS = &videoEnd
	}

	recorded, appendErr := st.AppendStep(step)
	if appendErr != nil {
		return Step{}, appendErr
	}
	if actionErr != nil {
		return recorded, actionErr
	}
	return recorded, nil
}
