package demo

import (
	"context"
	"fmt"

	"github.com/odvcencio/demoreel/pkg/recorder"
	"github.com/odvcencio/demoreel/pkg/tool"
)

func (s *Service) openViewportTool() tool.Tool {
	return demoTool{
		name:        "open-viewport",
		description: "Open an additional viewport (tab). The new viewport does not become active.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"url": tool.StringProperty("URL the new viewport navigates to"),
		}),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			url := tool.OptionalString(params, "url")
			session, _, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			id := session.Registry.NextID()

			desc := "Open a new tab"
			if url != "" {
				desc = fmt.Sprintf("Open a new tab at %s", url)
			}
			result, err := s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionOpenViewport,
				Description: desc,
				Details:     recorder.OpenViewportDetails{URL: url, ViewportID: id},
			}, func(ctx context.Context) error {
				pg, err := s.driver.NewPage(ctx)
				if err != nil {
					return err
				}
				if url != "" {
					if err := pg.Navigate(ctx, url); err != nil {
						pg.Close()
						return err
					}
				}
				session.Registry.Open(pg)
				s.store.Metrics().RecordViewportOpened(id)
				return nil
			})
			if err == nil && result.Success {
				result.Data["viewportId"] = id
			}
			return result, err
		},
	}
}

func (s *Service) switchViewportTool() tool.Tool {
	return demoTool{
		name:        "switch-viewport",
		description: "Make another viewport active and bring it to the foreground.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"viewportId": tool.IntProperty("Id of the viewport to activate"),
		}, "viewportId"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			id, err := tool.IntParam(params, "viewportId")
			if err != nil {
				return nil, err
			}
			session, _, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionSwitchViewport,
				Description: fmt.Sprintf("Switch to tab %d", id),
				Details:     recorder.SwitchViewportDetails{ViewportID: id},
			}, func(ctx context.Context) error {
				_, err := session.Registry.Switch(ctx, id)
				return err
			})
		},
	}
}

func (s *Service) closeViewportTool() tool.Tool {
	return demoTool{
		name:        "close-viewport",
		description: "Close a viewport. Closing the last remaining viewport is refused.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"viewportId": tool.IntProperty("Id of the viewport to close"),
		}, "viewportId"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			id, err := tool.IntParam(params, "viewportId")
			if err != nil {
				return nil, err
			}
			session, _, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionCloseViewport,
				Description: fmt.Sprintf("Close tab %d", id),
				Details:     recorder.CloseViewportDetails{ViewportID: id},
			}, func(ctx context.Context) error {
				if err := session.Registry.Close(id); err != nil {
					return err
				}
				s.store.Metrics().RecordViewportClosed(id)
				return nil
			})
		},
	}
}

func (s *Service) listViewportsTool() tool.Tool {
	return demoTool{
		name:        "list-viewports",
		description: "List all live viewports. Read-only; records no step.",
		schema:      tool.ObjectSchema(nil),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			session, _, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return tool.OK(map[string]any{
				"viewports": session.Registry.List(),
			}), nil
		},
	}
}
