package deliver

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/logging"
	"github.com/odvcencio/demoreel/pkg/narration"
	"github.com/odvcencio/demoreel/pkg/recorder"
	"github.com/odvcencio/demoreel/pkg/subtitle"
	"github.com/odvcencio/demoreel/pkg/telemetry"
)

// StagingDirName is the fallback directory external recorders flush video
// and trace files into before they are moved to their final location.
const StagingDirName = ".staging"

// Manifest indexes every artifact a packaging pass produced, plus the
// aggregate summary. Paths are relative to OutputDir; absent artifacts are
// empty strings, not errors.
type Manifest struct {
	SessionID      string            `json:"sessionId"`
	Title          string            `json:"title"`
	OutputDir      string            `json:"outputDir"`
	Guide          string            `json:"guide,omitempty"`
	StepsJSON      string            `json:"stepsJson,omitempty"`
	Narration      string            `json:"narration,omitempty"`
	NarrationTimed string            `json:"narrationTimed,omitempty"`
	SubtitlesSRT   string            `json:"subtitlesSrt,omitempty"`
	SubtitlesVTT   string            `json:"subtitlesVtt,omitempty"`
	Tutorial       string            `json:"tutorial,omitempty"`
	Preview        string            `json:"preview,omitempty"`
	Video          string            `json:"video,omitempty"`
	Trace          string            `json:"trace,omitempty"`
	Summary        recorder.Summary  `json:"summary"`
	Failures       map[string]string `json:"failures,omitempty"`
}

// Packager derives every deliverable from a completed session. Generator
// failures are isolated: one failing generator never aborts the others.
type Packager struct {
	logger       *logging.Logger
	hub          *telemetry.Hub
	artifactWait time.Duration
}

// NewPackager creates a packager. Logger and hub may be nil. artifactWait
// bounds how long to wait for the external recorder to flush video/trace
// files; zero means look once and move on.
func NewPackager(logger *logging.Logger, hub *telemetry.Hub, artifactWait time.Duration) *Packager {
	return &Packager{logger: logger, hub: hub, artifactWait: artifactWait}
}

// Package generates all deliverables for a completed session and assembles
// the manifest. Only sessions in the completed state can be packaged.
func (p *Packager) Package(ctx context.Context, session *recorder.Session) (*Manifest, error) {
	if session == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no session to package")
	}
	if session.Status != recorder.StatusCompleted {
		return nil, errors.New(errors.ErrCodeSessionNotDone, "session must be completed before packaging").
			WithContext("status", string(session.Status))
	}

	steps := session.Steps()
	segments := narration.BuildSegments(session.Title, steps)

	manifest := &Manifest{
		SessionID: session.ID,
		Title:     session.Title,
		OutputDir: session.OutputDir,
		Summary:   recorder.Summarize(steps),
		Failures:  map[string]string{},
	}

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	run := func(name, filename string, dest *string, generate func() ([]byte, error)) {
		g.Go(func() error {
			data, err := generate()
			if err == nil {
				err = os.WriteFile(filepath.Join(session.OutputDir, filename), data, 0644)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				manifest.Failures[name] = err.Error()
				p.report(session.ID, telemetry.EventDeliverableFailed, name, filename, err)
				return nil // isolated: other generators keep going
			}
			*dest = filename
			p.report(session.ID, telemetry.EventDeliverableWritten, name, filename, nil)
			return nil
		})
	}

	run("guide", "guide.md", &manifest.Guide, func() ([]byte, error) {
		return []byte(GenerateGuide(session)), nil
	})
	run("steps", "steps.json", &manifest.StepsJSON, func() ([]byte, error) {
		return GenerateStepsJSON(session)
	})
	run("narration", "narration.txt", &manifest.Narration, func() ([]byte, error) {
		return []byte(GenerateNarrationText(segments)), nil
	})
	run("narration-timed", "narration-timed.txt", &manifest.NarrationTimed, func() ([]byte, error) {
		return []byte(GenerateNarrationTimed(segments)), nil
	})
	run("subtitles-srt", "subtitles.srt", &manifest.SubtitlesSRT, func() ([]byte, error) {
		return []byte(subtitle.EncodeSRT(segments)), nil
	})
	run("subtitles-vtt", "subtitles.vtt", &manifest.SubtitlesVTT, func() ([]byte, error) {
		return []byte(subtitle.EncodeVTT(segments)), nil
	})
	run("tutorial", "tutorial.html", &manifest.Tutorial, func() ([]byte, error) {
		page, err := GenerateTutorialHTML(session)
		return []byte(page), err
	})
	run("preview", "animated-preview.html", &manifest.Preview, func() ([]byte, error) {
		page, err := GeneratePreviewHTML(session)
		return []byte(page), err
	})
	g.Wait()

	if session.Config.CaptureVideo {
		manifest.Video = p.locateArtifact(session.OutputDir, "demo.webm")
	}
	if session.Config.CaptureTrace {
		manifest.Trace = p.locateArtifact(session.OutputDir, "trace.zip")
	}

	if p.hub != nil {
		p.hub.Publish(telemetry.Event{
			Type:      telemetry.EventPackagingCompleted,
			SessionID: session.ID,
			Data: map[string]any{
				"output_dir": session.OutputDir,
				"failures":   len(manifest.Failures),
			},
		})
	}
	return manifest, nil
}

// locateArtifact looks for an externally produced file at its expected final
// path, then in the staging directory, waiting briefly for the external
// recorder to flush it. Returns the path relative to outputDir, or "".
func (p *Packager) locateArtifact(outputDir, name string) string {
	final := filepath.Join(outputDir, name)
	staged := filepath.Join(outputDir, StagingDirName, name)

	if fileExists(final) {
		return name
	}
	if fileExists(staged) {
		return filepath.Join(StagingDirName, name)
	}
	if p.artifactWait <= 0 {
		return ""
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ""
	}
	defer watcher.Close()
	watcher.Add(outputDir)
	watcher.Add(filepath.Join(outputDir, StagingDirName))

	deadline := time.After(p.artifactWait)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return ""
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if event.Name == final {
				return name
			}
			if event.Name == staged {
				return filepath.Join(StagingDirName, name)
			}
		case <-watcher.Errors:
		case <-deadline:
			// Re-check once; the file may have landed before the watches did.
			if fileExists(final) {
				return name
			}
			if fileExists(staged) {
				return filepath.Join(StagingDirName, name)
			}
			return ""
		}
	}
}

func (p *Packager) report(sessionID string, eventType telemetry.EventType, name, filename string, err error) {
	if p.hub != nil {
		data := map[string]any{"deliverable": name, "path": filename}
		if err != nil {
			data["error"] = err.Error()
		}
		p.hub.Publish(telemetry.Event{Type: eventType, SessionID: sessionID, Data: data})
	}
	if p.logger == nil {
		return
	}
	if err != nil {
		p.logger.Error(logging.CategoryDeliverable, string(eventType), filename, map[string]any{
			"deliverable": name,
			"error":       err.Error(),
		})
		return
	}
	p.logger.Info(logging.CategoryDeliverable, string(eventType), filename, map[string]any{
		"deliverable": name,
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
