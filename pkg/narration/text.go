package narration

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/odvcencio/demoreel/pkg/recorder"
)

// Typed values longer than this are truncated in narration so the voice
// track does not read out entire form inputs.
const maxTypedValueChars = 20

// Narrate derives the spoken line for a step. The mapping is total over the
// action-kind vocabulary; screenshot steps return "" because they have no
// spoken content.
func Narrate(step recorder.Step) string {
	switch d := step.Details.(type) {
	case recorder.NavigateDetails:
		return fmt.Sprintf("To get started, %s.", lowerFirst(step.Description))
	case recorder.ClickDetails:
		return fmt.Sprintf("Now, %s.", lowerFirst(step.Description))
	case recorder.FillDetails:
		return fmt.Sprintf("%s. I'll type %q.", step.Description, truncateValue(d.Value))
	case recorder.SelectDetails:
		return fmt.Sprintf("%s. I'll choose %q.", step.Description, strings.Join(d.Values, ", "))
	case recorder.PressKeyDetails:
		return fmt.Sprintf("%s. Let's press %s.", step.Description, d.Key)
	case recorder.HoverDetails:
		return fmt.Sprintf("%s.", step.Description)
	case recorder.DragDetails:
		return fmt.Sprintf("%s.", step.Description)
	case recorder.UploadDetails:
		if len(d.Paths) == 1 {
			return fmt.Sprintf("%s. I'll attach the file.", step.Description)
		}
		return fmt.Sprintf("%s. I'll attach %d files.", step.Description, len(d.Paths))
	case recorder.ScrollDetails:
		switch {
		case d.DeltaY > 0:
			return "Let's scroll down the page."
		case d.DeltaY < 0:
			return "Let's scroll back up."
		default:
			return "Let's scroll across the page."
		}
	case recorder.WaitDetails:
		return "We'll give the page a moment to catch up."
	case recorder.ScreenshotDetails:
		return ""
	case recorder.AssertDetails:
		return fmt.Sprintf("Notice that %s.", lowerFirst(step.Description))
	case recorder.OpenViewportDetails:
		if d.URL != "" {
			return fmt.Sprintf("Next, let's open a new tab and go to %s.", d.URL)
		}
		return "Next, let's open a new tab."
	case recorder.SwitchViewportDetails:
		return fmt.Sprintf("Let's switch over to tab %d.", d.ViewportID)
	case recorder.CloseViewportDetails:
		return "We're done with that tab, so let's close it."
	default:
		return step.Description
	}
}

// IntroText is the scripted opening line for a session.
func IntroText(title string) string {
	if title == "" {
		return "Welcome! Let's walk through this demo together."
	}
	return fmt.Sprintf("Welcome! In this demo, we'll walk through %s.", title)
}

// OutroText is the scripted closing line.
func OutroText() string {
	return "And that's the end of the demo. Thanks for watching!"
}

func truncateValue(v string) string {
	if len(v) <= maxTypedValueChars {
		return v
	}
	return v[:maxTypedValueChars] + "..."
}

// lowerFirst lowercases the leading rune unless the word looks like an
// acronym or a URL.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	if len(runes) > 1 && unicode.IsUpper(runes[1]) {
		return s
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
