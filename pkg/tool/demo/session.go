package demo

import (
	"context"
	"path/filepath"
	"time"

	"github.com/odvcencio/demoreel/pkg/recorder"
	"github.com/odvcencio/demoreel/pkg/tool"
)

func (s *Service) startSessionTool() tool.Tool {
	return demoTool{
		name:        "start-session",
		description: "Start a new recording session. Any active session is ended first.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"url":       tool.StringProperty("Starting URL the first viewport navigates to"),
			"title":     tool.StringProperty("Human title of the walkthrough, used in narration and deliverables"),
			"outputDir": tool.StringProperty("Override for the artifact output directory"),
		}, "url"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			url, err := tool.StringParam(params, "url")
			if err != nil {
				return nil, err
			}

			cfg := s.cfg.Recording
			if dir := tool.OptionalString(params, "outputDir"); dir != "" {
				cfg.OutputDir = dir
			} else {
				cfg.OutputDir = filepath.Join(cfg.OutputDir, time.Now().Format("20060102-150405"))
			}

			session, err := s.store.Start(ctx, recorder.StartOptions{
				Title:  tool.OptionalString(params, "title"),
				URL:    url,
				Config: cfg,
			})
			if err != nil {
				return nil, err
			}
			return tool.OK(map[string]any{
				"sessionId": session.ID,
				"title":     session.Title,
				"outputDir": session.OutputDir,
				"viewports": session.Registry.List(),
			}), nil
		},
	}
}

func (s *Service) endSessionTool() tool.Tool {
	return demoTool{
		name:        "end-session",
		description: "End the active session, generate all deliverables, and archive the recording.",
		schema:      tool.ObjectSchema(nil),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			session, err := s.store.End(ctx)
			if err != nil {
				return nil, err
			}
			if session == nil {
				// Ending with nothing active is an idempotent no-op.
				return tool.OK(map[string]any{"ended": false}), nil
			}

			manifest, err := s.packager.Package(ctx, session)
			if err != nil {
				return nil, err
			}

			data := map[string]any{
				"ended":     true,
				"sessionId": session.ID,
				"outputDir": session.OutputDir,
				"summary":   manifest.Summary,
				"manifest":  manifest,
			}
			if s.archive != nil {
				if err := s.archive.RecordSession(ctx, session, manifest); err != nil {
					// Deliverables are already on disk; a failed archive write
					// is reported, not fatal.
					data["archiveError"] = err.Error()
				}
			}
			return tool.OK(data), nil
		},
	}
}

func (s *Service) statusTool() tool.Tool {
	return demoTool{
		name:        "status",
		description: "Report the active session's id, title, step count, and viewports without mutating anything.",
		schema:      tool.ObjectSchema(nil),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			session := s.store.Active()
			if session == nil {
				return tool.OK(map[string]any{"active": false}), nil
			}
			summary := session.Summary()
			return tool.OK(map[string]any{
				"active":    true,
				"sessionId": session.ID,
				"title":     session.Title,
				"status":    string(session.Status),
				"stepCount": summary.TotalSteps,
				"failed":    summary.Failed,
				"elapsedMs": time.Since(session.StartedAt).Milliseconds(),
				"viewports": session.Registry.List(),
			}), nil
		},
	}
}
