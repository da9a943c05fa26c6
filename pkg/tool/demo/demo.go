// Package demo implements the canonical recording tool set: session
// lifecycle, the recordable browser actions, and viewport management, all as
// thin delegations into the recorder. Tools hold no state of their own.
package demo

import (
	"context"

	"github.com/odvcencio/demoreel/pkg/config"
	"github.com/odvcencio/demoreel/pkg/deliver"
	"github.com/odvcencio/demoreel/pkg/page"
	"github.com/odvcencio/demoreel/pkg/recorder"
	"github.com/odvcencio/demoreel/pkg/storage"
	"github.com/odvcencio/demoreel/pkg/tool"
)

// Service bundles the shared dependencies behind the tool set.
type Service struct {
	store    *recorder.Store
	driver   page.Driver
	packager *deliver.Packager
	archive  *storage.Archive
	cfg      *config.Config
}

// NewService creates the tool service. Archive may be nil when the recording
// history is disabled.
func NewService(store *recorder.Store, driver page.Driver, packager *deliver.Packager, archive *storage.Archive, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{
		store:    store,
		driver:   driver,
		packager: packager,
		archive:  archive,
		cfg:      cfg,
	}
}

// RegisterAll registers the full tool set.
func (s *Service) RegisterAll(r *tool.Registry) {
	r.MustRegister(
		s.startSessionTool(),
		s.endSessionTool(),
		s.statusTool(),
		s.navigateTool(),
		s.snapshotTool(),
		s.clickTool(),
		s.fillTool(),
		s.selectTool(),
		s.pressKeyTool(),
		s.hoverTool(),
		s.dragTool(),
		s.uploadTool(),
		s.scrollTool(),
		s.waitTool(),
		s.screenshotTool(),
		s.assertTool(),
		s.openViewportTool(),
		s.switchViewportTool(),
		s.closeViewportTool(),
		s.listViewportsTool(),
	)
}

// demoTool is the shared tool implementation: a name, a schema, and a run
// function closing over the service.
type demoTool struct {
	name        string
	description string
	schema      tool.Schema
	run         func(ctx context.Context, params map[string]any) (*tool.Result, error)
}

func (t demoTool) Name() string        { return t.name }
func (t demoTool) Description() string { return t.description }
func (t demoTool) Parameters() tool.Schema {
	return t.schema
}
func (t demoTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	return t.run(ctx, params)
}

// record runs an action under the evidence-capture contract and translates
// the outcome. A recorded-but-failed action is a Result with Success false;
// a precondition failure (nothing recorded) is a hard error.
func (s *Service) record(ctx context.Context, meta recorder.ActionMeta, action func(context.Context) error) (*tool.Result, error) {
	step, err := s.store.ExecuteWithEvidence(ctx, meta, action)
	if err != nil {
		if step.ID == 0 {
			return nil, err
		}
		return tool.Failed(err, stepData(step)), nil
	}
	return tool.OK(stepData(step)), nil
}

func stepData(step recorder.Step) map[string]any {
	data := map[string]any{
		"stepId":      step.ID,
		"action":      string(step.Action),
		"description": step.Description,
		"durationMs":  step.Duration,
	}
	if step.Evidence.ScreenshotPath != "" {
		data["screenshotPath"] = step.Evidence.ScreenshotPath
	}
	return data
}
