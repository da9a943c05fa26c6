package deliver

import (
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/demoreel/pkg/recorder"
)

// GenerateGuide renders the written walkthrough as markdown. Screenshots are
// referenced relative to the output directory so the guide stays portable.
func GenerateGuide(session *recorder.Session) string {
	steps := session.Steps()
	summary := recorder.Summarize(steps)

	var sb strings.Builder
	title := session.Title
	if title == "" {
		title = "Demo walkthrough"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Recorded %s", session.StartedAt.Format("January 2, 2006 at 15:04 MST"))
	if session.StartURL != "" {
		fmt.Fprintf(&sb, ", starting at <%s>", session.StartURL)
	}
	sb.WriteString(".\n\n")

	fmt.Fprintf(&sb, "**%d steps** · %d succeeded · %d failed · total %s\n\n",
		summary.TotalSteps, summary.Succeeded, summary.Failed,
		formatDuration(summary.TotalDurationMS))

	for _, step := range steps {
		fmt.Fprintf(&sb, "## Step %d: %s\n\n", step.ID, step.Description)
		fmt.Fprintf(&sb, "- Action: `%s`\n", step.Action)
		fmt.Fprintf(&sb, "- Duration: %s\n", formatDuration(step.Duration))
		if !step.Success {
			fmt.Fprintf(&sb, "- **Failed**: %s\n", step.Error)
		}
		sb.WriteString("\n")
		if step.Evidence.ScreenshotPath != "" {
			fmt.Fprintf(&sb, "![Step %d](%s)\n\n", step.ID, step.Evidence.ScreenshotPath)
		}
	}
	return sb.String()
}

func formatDuration(ms int64) string {
	return time.Duration(ms * int64(time.Millisecond)).Round(time.Millisecond).String()
}
