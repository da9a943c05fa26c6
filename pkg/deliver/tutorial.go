package deliver

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/odvcencio/demoreel/pkg/recorder"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// GenerateTutorialHTML renders the interactive step-by-step tutorial: each
// step becomes a numbered section with its screenshot and outcome, authored
// as markdown and rendered through goldmark.
func GenerateTutorialHTML(session *recorder.Session) (string, error) {
	steps := session.Steps()
	title := session.Title
	if title == "" {
		title = "Demo tutorial"
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", title)
	md.WriteString("Follow the steps below to reproduce this walkthrough yourself.\n\n")
	for _, step := range steps {
		fmt.Fprintf(&md, "## %d. %s\n\n", step.ID, step.Description)
		if step.Evidence.ScreenshotPath != "" {
			fmt.Fprintf(&md, `<details><summary>Show screenshot</summary>`+"\n\n")
			fmt.Fprintf(&md, "![Step %d](%s)\n\n</details>\n\n", step.ID, step.Evidence.ScreenshotPath)
		}
		if !step.Success {
			fmt.Fprintf(&md, "> This step failed during recording: %s\n\n", step.Error)
		}
	}
	return renderPage(title, md.String())
}

// GeneratePreviewHTML renders the animated preview page, a screenshot strip
// in recording order.
func GeneratePreviewHTML(session *recorder.Session) (string, error) {
	steps := session.Steps()
	title := session.Title
	if title == "" {
		title = "Demo preview"
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# %s: preview\n\n", title)
	count := 0
	for _, step := range steps {
		if step.Evidence.ScreenshotPath == "" {
			continue
		}
		fmt.Fprintf(&md, "![Step %d](%s)\n\n", step.ID, step.Evidence.ScreenshotPath)
		count++
	}
	if count == 0 {
		md.WriteString("No screenshots were captured for this recording.\n")
	}
	return renderPage(title, md.String())
}

func renderPage(title, md string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&sb, "<meta charset=\"utf-8\">\n<title>%s</title>\n", title)
	sb.WriteString("</head>\n<body>\n")
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}
