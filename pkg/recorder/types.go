package recorder

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionKind is the closed vocabulary of recordable actions.
type ActionKind string

const (
	ActionNavigate       ActionKind = "navigate"
	ActionClick          ActionKind = "click"
	ActionFill           ActionKind = "fill"
	ActionSelect         ActionKind = "select"
	ActionPressKey       ActionKind = "press-key"
	ActionHover          ActionKind = "hover"
	ActionDrag           ActionKind = "drag"
	ActionUpload         ActionKind = "upload"
	ActionScroll         ActionKind = "scroll"
	ActionWait           ActionKind = "wait"
	ActionScreenshot     ActionKind = "screenshot"
	ActionAssert         ActionKind = "assert"
	ActionOpenViewport   ActionKind = "open-viewport"
	ActionSwitchViewport ActionKind = "switch-viewport"
	ActionCloseViewport  ActionKind = "close-viewport"
)

// Details is the closed per-kind detail bag attached to a Step. Each action
// kind has exactly one concrete variant, which gives narration and
// serialization an exhaustive type switch instead of stringly-typed lookups.
type Details interface {
	Kind() ActionKind
}

type NavigateDetails struct {
	URL string `json:"url"`
}

type ClickDetails struct {
	Ref   string `json:"ref"`
	Label string `json:"label,omitempty"`
}

type FillDetails struct {
	Ref   string `json:"ref"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

type SelectDetails struct {
	Ref    string   `json:"ref"`
	Values []string `json:"values"`
}

type PressKeyDetails struct {
	Key string `json:"key"`
}

type HoverDetails struct {
	Ref   string `json:"ref"`
	Label string `json:"label,omitempty"`
}

type DragDetails struct {
	FromRef string `json:"fromRef"`
	ToRef   string `json:"toRef"`
}

type UploadDetails struct {
	Ref   string   `json:"ref"`
	Paths []string `json:"paths"`
}

type ScrollDetails struct {
	DeltaX int `json:"deltaX,omitempty"`
	DeltaY int `json:"deltaY,omitempty"`
}

type WaitDetails struct {
	Seconds float64 `json:"seconds,omitempty"`
	Text    string  `json:"text,omitempty"`
}

type ScreenshotDetails struct {
	Label string `json:"label,omitempty"`
}

type AssertDetails struct {
	Ref      string `json:"ref,omitempty"`
	Expected string `json:"expected,omitempty"`
}

type OpenViewportDetails struct {
	URL        string `json:"url,omitempty"`
	ViewportID int    `json:"viewportId"`
}

type SwitchViewportDetails struct {
	ViewportID int `json:"viewportId"`
}

type CloseViewportDetails struct {
	ViewportID int `json:"viewportId"`
}

func (NavigateDetails) Kind() ActionKind       { return ActionNavigate }
func (ClickDetails) Kind() ActionKind          { return ActionClick }
func (FillDetails) Kind() ActionKind           { return ActionFill }
func (SelectDetails) Kind() ActionKind         { return ActionSelect }
func (PressKeyDetails) Kind() ActionKind       { return ActionPressKey }
func (HoverDetails) Kind() ActionKind          { return ActionHover }
func (DragDetails) Kind() ActionKind           { return ActionDrag }
func (UploadDetails) Kind() ActionKind         { return ActionUpload }
func (ScrollDetails) Kind() ActionKind         { return ActionScroll }
func (WaitDetails) Kind() ActionKind           { return ActionWait }
func (ScreenshotDetails) Kind() ActionKind     { return ActionScreenshot }
func (AssertDetails) Kind() ActionKind         { return ActionAssert }
func (OpenViewportDetails) Kind() ActionKind   { return ActionOpenViewport }
func (SwitchViewportDetails) Kind() ActionKind { return ActionSwitchViewport }
func (CloseViewportDetails) Kind() ActionKind  { return ActionCloseViewport }

// DecodeDetails decodes a detail bag for the given kind. Used by the replay
// path to round-trip steps.json.
func DecodeDetails(kind ActionKind, raw json.RawMessage) (Details, error) {
	var target Details
	switch kind {
	case ActionNavigate:
		target = &NavigateDetails{}
	case ActionClick:
		target = &ClickDetails{}
	case ActionFill:
		target = &FillDetails{}
	case ActionSelect:
		target = &SelectDetails{}
	case ActionPressKey:
		target = &PressKeyDetails{}
	case ActionHover:
		target = &HoverDetails{}
	case ActionDrag:
		target = &DragDetails{}
	case ActionUpload:
		target = &UploadDetails{}
	case ActionScroll:
		target = &ScrollDetails{}
	case ActionWait:
		target = &WaitDetails{}
	case ActionScreenshot:
		target = &ScreenshotDetails{}
	case ActionAssert:
		target = &AssertDetails{}
	case ActionOpenViewport:
		target = &OpenViewportDetails{}
	case ActionSwitchViewport:
		target = &SwitchViewportDetails{}
	case ActionCloseViewport:
		target = &CloseViewportDetails{}
	default:
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", kind, err)
		}
	}
	// Return the value, not the pointer, so Steps always carry value-typed
	// details regardless of how they were produced.
	return derefDetails(target), nil
}

func derefDetails(d Details) Details {
	switch v := d.(type) {
	case *NavigateDetails:
		return *v
	case *ClickDetails:
		return *v
	case *FillDetails:
		return *v
	case *SelectDetails:
		return *v
	case *PressKeyDetails:
		return *v
	case *HoverDetails:
		return *v
	case *DragDetails:
		return *v
	case *UploadDetails:
		return *v
	case *ScrollDetails:
		return *v
	case *WaitDetails:
		return *v
	case *ScreenshotDetails:
		return *v
	case *AssertDetails:
		return *v
	case *OpenViewportDetails:
		return *v
	case *SwitchViewportDetails:
		return *v
	case *CloseViewportDetails:
		return *v
	default:
		return d
	}
}

// Evidence is the artifact record captured around an action.
type Evidence struct {
	ScreenshotPath string `json:"screenshotPath,omitempty"`
	SnapshotBefore string `json:"snapshotBefore,omitempty"`
	SnapshotAfter  string `json:"snapshotAfter,omitempty"`
}

// Step is one recorded action. Once appended to a session's log it is
// never mutated; the log is append-only.
type Step struct {
	ID          int        `json:"id"`
	Action      ActionKind `json:"action"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
	Duration    int64      `json:"duration"`
	Details     Details    `json:"details"`
	Evidence    Evidence   `json:"evidence"`
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`

	// Milliseconds from the session's video-timeline origin; nil when no
	// video capture was active for the session.
	VideoStartMS *int64 `json:"videoStartMs,omitempty"`
	VideoEndMS   *int64 `json:"videoEndMs,omitempty"`
}

// stepJSON mirrors Step with raw details for kind-directed decoding.
type stepJSON struct {
	ID          int             `json:"id"`
	Action      ActionKind      `json:"action"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	Duration    int64           `json:"duration"`
	Details     json.RawMessage `json:"details"`
	Evidence    Evidence        `json:"evidence"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	VideoStart  *int64          `json:"videoStartMs,omitempty"`
	VideoEnd    *int64          `json:"videoEndMs,omitempty"`
}

// UnmarshalJSON decodes the detail bag according to the step's action kind.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw stepJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	details, err := DecodeDetails(raw.Action, raw.Details)
	if err != nil {
		return err
	}
	*s = Step{
		ID:           raw.ID,
		Action:       raw.Action,
		Description:  raw.Description,
		Timestamp:    raw.Timestamp,
		Duration:     raw.Duration,
		Details:      details,
		Evidence:     raw.Evidence,
		Success:      raw.Success,
		Error:        raw.Error,
		VideoStartMS: raw.VideoStart,
		VideoEndMS:   raw.VideoEnd,
	}
	return nil
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Summary aggregates a step log. Always computed from the log, never cached.
type Summary struct {
	TotalSteps      int     `json:"totalSteps"`
	Succeeded       int     `json:"succeeded"`
	Failed          int     `json:"failed"`
	TotalDurationMS int64   `json:"totalDurationMs"`
	SuccessRate     float64 `json:"successRate"`
}

// Summarize computes the aggregate summary of a step log.
func Summarize(steps []Step) Summary {
	s := Summary{TotalSteps: len(steps)}
	for _, st := range steps {
		if st.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.TotalDurationMS += st.Duration
	}
	if s.TotalSteps > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.TotalSteps)
	}
	return s
}
