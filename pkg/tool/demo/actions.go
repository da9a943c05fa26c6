package demo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/page"
	"github.com/odvcencio/demoreel/pkg/recorder"
	"github.com/odvcencio/demoreel/pkg/tool"
)

const (
	waitTextTimeout  = 10 * time.Second
	waitPollInterval = 100 * time.Millisecond
)

func (s *Service) navigateTool() tool.Tool {
	return demoTool{
		name:        "navigate",
		description: "Navigate the active viewport to a URL.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"url": tool.StringProperty("Destination URL"),
		}, "url"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			url, err := tool.StringParam(params, "url")
			if err != nil {
				return nil, err
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionNavigate,
				Description: fmt.Sprintf("Navigate to %s", url),
				Details:     recorder.NavigateDetails{URL: url},
			}, func(ctx context.Context) error {
				return pg.Navigate(ctx, url)
			})
		},
	}
}

func (s *Service) snapshotTool() tool.Tool {
	return demoTool{
		name:        "snapshot",
		description: "Return the active viewport's accessibility snapshot. Read-only; records no step.",
		schema:      tool.ObjectSchema(nil),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			snap, err := pg.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			return tool.OK(map[string]any{
				"url":      pg.URL(),
				"title":    pg.Title(),
				"snapshot": snap,
			}), nil
		},
	}
}

func (s *Service) clickTool() tool.Tool {
	return demoTool{
		name:        "click",
		description: "Click an element in the active viewport.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"ref":   tool.StringProperty("Element reference from a snapshot"),
			"label": tool.StringProperty("Human label for the element, used in the guide and narration"),
		}, "ref"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			ref, err := tool.StringParam(params, "ref")
			if err != nil {
				return nil, err
			}
			label := tool.OptionalString(params, "label")
			desc := fmt.Sprintf("Click element %s", ref)
			if label != "" {
				desc = fmt.Sprintf("Click %q", label)
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionClick,
				Description: desc,
				Details:     recorder.ClickDetails{Ref: ref, Label: label},
			}, func(ctx context.Context) error {
				return pg.Click(ctx, ref)
			})
		},
	}
}

func (s *Service) fillTool() tool.Tool {
	return demoTool{
		name:        "fill",
		description: "Type a value into an input element.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"ref":   tool.StringProperty("Element reference from a snapshot"),
			"value": tool.StringProperty("Text to type"),
			"label": tool.StringProperty("Human label for the field"),
		}, "ref", "value"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			ref, err := tool.StringParam(params, "ref")
			if err != nil {
				return nil, err
			}
			value, err := tool.StringParam(params, "value")
			if err != nil {
				return nil, err
			}
			label := tool.OptionalString(params, "label")
			desc := fmt.Sprintf("Fill in field %s", ref)
			if label != "" {
				desc = fmt.Sprintf("Fill in %q", label)
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionFill,
				Description: desc,
				Details:     recorder.FillDetails{Ref: ref, Label: label, Value: value},
			}, func(ctx context.Context) error {
				return pg.Fill(ctx, ref, value)
			})
		},
	}
}

func (s *Service) selectTool() tool.Tool {
	return demoTool{
		name:        "select",
		description: "Select one or more options in a select element.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"ref":    tool.StringProperty("Element reference from a snapshot"),
			"values": tool.ArrayProperty("Option values to select", tool.StringProperty("Option value")),
			"label":  tool.StringProperty("Human label for the field"),
		}, "ref", "values"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			ref, err := tool.StringParam(params, "ref")
			if err != nil {
				return nil, err
			}
			values, err := tool.StringSliceParam(params, "values")
			if err != nil {
				return nil, err
			}
			label := tool.OptionalString(params, "label")
			desc := fmt.Sprintf("Select an option in field %s", ref)
			if label != "" {
				desc = fmt.Sprintf("Select an option in %q", label)
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionSelect,
				Description: desc,
				Details:     recorder.SelectDetails{Ref: ref, Values: values},
			}, func(ctx context.Context) error {
				return pg.SelectOption(ctx, ref, values)
			})
		},
	}
}

func (s *Service) pressKeyTool() tool.Tool {
	return demoTool{
		name:        "press-key",
		description: "Press a keyboard key in the active viewport.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"key": tool.StringProperty("Key name, e.g. Enter, Tab, ArrowDown"),
		}, "key"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			key, err := tool.StringParam(params, "key")
			if err != nil {
				return nil, err
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionPressKey,
				Description: fmt.Sprintf("Press the %s key", key),
				Details:     recorder.PressKeyDetails{Key: key},
			}, func(ctx context.Context) error {
				return pg.PressKey(ctx, key)
			})
		},
	}
}

func (s *Service) hoverTool() tool.Tool {
	return demoTool{
		name:        "hover",
		description: "Hover over an element.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"ref":   tool.StringProperty("Element reference from a snapshot"),
			"label": tool.StringProperty("Human label for the element"),
		}, "ref"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			ref, err := tool.StringParam(params, "ref")
			if err != nil {
				return nil, err
			}
			label := tool.OptionalString(params, "label")
			desc := fmt.Sprintf("Hover over element %s", ref)
			if label != "" {
				desc = fmt.Sprintf("Hover over %q", label)
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionHover,
				Description: desc,
				Details:     recorder.HoverDetails{Ref: ref, Label: label},
			}, func(ctx context.Context) error {
				return pg.Hover(ctx, ref)
			})
		},
	}
}

func (s *Service) dragTool() tool.Tool {
	return demoTool{
		name:        "drag",
		description: "Drag one element onto another.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"fromRef": tool.StringProperty("Reference of the element to drag"),
			"toRef":   tool.StringProperty("Reference of the drop target"),
		}, "fromRef", "toRef"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			fromRef, err := tool.StringParam(params, "fromRef")
			if err != nil {
				return nil, err
			}
			toRef, err := tool.StringParam(params, "toRef")
			if err != nil {
				return nil, err
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionDrag,
				Description: fmt.Sprintf("Drag element %s onto %s", fromRef, toRef),
				Details:     recorder.DragDetails{FromRef: fromRef, ToRef: toRef},
			}, func(ctx context.Context) error {
				return pg.Drag(ctx, fromRef, toRef)
			})
		},
	}
}

func (s *Service) uploadTool() tool.Tool {
	return demoTool{
		name:        "upload",
		description: "Attach files to a file input element.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"ref":   tool.StringProperty("Element reference from a snapshot"),
			"paths": tool.ArrayProperty("Local file paths to attach", tool.StringProperty("File path")),
		}, "ref", "paths"),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			ref, err := tool.StringParam(params, "ref")
			if err != nil {
				return nil, err
			}
			paths, err := tool.StringSliceParam(params, "paths")
			if err != nil {
				return nil, err
			}
			desc := "Upload a file"
			if len(paths) > 1 {
				desc = fmt.Sprintf("Upload %d files", len(paths))
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionUpload,
				Description: desc,
				Details:     recorder.UploadDetails{Ref: ref, Paths: paths},
			}, func(ctx context.Context) error {
				return pg.Upload(ctx, ref, paths)
			})
		},
	}
}

func (s *Service) scrollTool() tool.Tool {
	return demoTool{
		name:        "scroll",
		description: "Scroll the active viewport.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"deltaX": tool.IntProperty("Horizontal scroll distance in pixels"),
			"deltaY": tool.IntProperty("Vertical scroll distance in pixels; positive scrolls down"),
		}),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			deltaX := tool.OptionalInt(params, "deltaX", 0)
			deltaY := tool.OptionalInt(params, "deltaY", 0)
			desc := "Scroll the page"
			switch {
			case deltaY > 0:
				desc = "Scroll down the page"
			case deltaY < 0:
				desc = "Scroll up the page"
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionScroll,
				Description: desc,
				Details:     recorder.ScrollDetails{DeltaX: deltaX, DeltaY: deltaY},
			}, func(ctx context.Context) error {
				return pg.Scroll(ctx, deltaX, deltaY)
			})
		},
	}
}

func (s *Service) waitTool() tool.Tool {
	return demoTool{
		name:        "wait",
		description: "Wait a fixed number of seconds, or until text appears in the page snapshot.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"seconds": tool.NumberProperty("Seconds to wait"),
			"text":    tool.StringProperty("Wait until this text appears instead of a fixed delay"),
		}),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			seconds := tool.OptionalFloat(params, "seconds", 0)
			text := tool.OptionalString(params, "text")
			desc := fmt.Sprintf("Wait %.1f seconds", seconds)
			if text != "" {
				desc = fmt.Sprintf("Wait for %q to appear", text)
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionWait,
				Description: desc,
				Details:     recorder.WaitDetails{Seconds: seconds, Text: text},
			}, func(ctx context.Context) error {
				return waitFor(ctx, pg, seconds, text)
			})
		},
	}
}

func waitFor(ctx context.Context, pg page.Page, seconds float64, text string) error {
	if text == "" {
		delay := time.Duration(seconds * float64(time.Second))
		if delay <= 0 {
			return nil
		}
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	deadline := time.Now().Add(waitTextTimeout)
	for {
		snap, err := pg.Snapshot(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(snap, text) {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New(errors.ErrCodeElementNotFound, "text did not appear before the timeout").
				WithContext("text", text)
		}
		select {
		case <-time.After(waitPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) screenshotTool() tool.Tool {
	return demoTool{
		name:        "screenshot",
		description: "Capture a screenshot of the active viewport into the session's assets.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"label": tool.StringProperty("Label used in the saved file name"),
		}),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			label := tool.OptionalString(params, "label")
			session, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			nextID, err := s.store.NextStepID()
			if err != nil {
				return nil, err
			}

			name := "capture"
			if label != "" {
				name = sanitizeName(label)
			}
			rel := filepath.Join("assets", fmt.Sprintf("%s-%03d.png", name, nextID))

			desc := "Take a screenshot"
			if label != "" {
				desc = fmt.Sprintf("Take a screenshot of %s", label)
			}
			result, err := s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionScreenshot,
				Description: desc,
				Details:     recorder.ScreenshotDetails{Label: label},
			}, func(ctx context.Context) error {
				data, err := pg.Screenshot(ctx)
				if err != nil {
					return err
				}
				return os.WriteFile(filepath.Join(session.OutputDir, rel), data, 0644)
			})
			if err == nil && result.Success {
				result.Data["path"] = rel
			}
			return result, err
		},
	}
}

func (s *Service) assertTool() tool.Tool {
	return demoTool{
		name:        "assert",
		description: "Assert that an element or text is present in the active viewport.",
		schema: tool.ObjectSchema(map[string]tool.Property{
			"ref":         tool.StringProperty("Element reference that must be present"),
			"expected":    tool.StringProperty("Text that must appear in the page snapshot"),
			"description": tool.StringProperty("Human phrasing of what is being verified"),
		}),
		run: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
			ref := tool.OptionalString(params, "ref")
			expected := tool.OptionalString(params, "expected")
			desc := tool.OptionalString(params, "description")
			if desc == "" {
				switch {
				case expected != "":
					desc = fmt.Sprintf("The page shows %q", expected)
				case ref != "":
					desc = fmt.Sprintf("Element %s is present", ref)
				default:
					desc = "The page is in the expected state"
				}
			}
			_, pg, err := s.store.RequireActive()
			if err != nil {
				return nil, err
			}
			return s.record(ctx, recorder.ActionMeta{
				Kind:        recorder.ActionAssert,
				Description: desc,
				Details:     recorder.AssertDetails{Ref: ref, Expected: expected},
			}, func(ctx context.Context) error {
				snap, err := pg.Snapshot(ctx)
				if err != nil {
					return err
				}
				if ref != "" && !strings.Contains(snap, fmt.Sprintf("[ref=%s]", ref)) {
					return errors.New(errors.ErrCodeElementNotFound, "asserted element is not present").
						WithContext("ref", ref)
				}
				if expected != "" && !strings.Contains(snap, expected) {
					return fmt.Errorf("expected %q to be visible", expected)
				}
				return nil
			})
		},
	}
}

// sanitizeName reduces a label to a safe file-name fragment.
func sanitizeName(label string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteRune('-')
		}
	}
	if sb.Len() == 0 {
		return "capture"
	}
	return sb.String()
}
