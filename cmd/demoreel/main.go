package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/demoreel/pkg/config"
	"github.com/odvcencio/demoreel/pkg/deliver"
	"github.com/odvcencio/demoreel/pkg/logging"
	"github.com/odvcencio/demoreel/pkg/page"
	"github.com/odvcencio/demoreel/pkg/recorder"
	"github.com/odvcencio/demoreel/pkg/storage"
	"github.com/odvcencio/demoreel/pkg/telemetry"
	"github.com/odvcencio/demoreel/pkg/tool"
	"github.com/odvcencio/demoreel/pkg/tool/demo"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "record":
		err = runRecord(os.Args[2:])
	case "replay":
		err = runReplay(os.Args[2:])
	case "package":
		err = runPackage(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "version":
		fmt.Printf("demoreel %s (commit %s, built %s)\n", version, commit, buildDate)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`demoreel - record browser walkthroughs and derive timed deliverables

Usage:
  demoreel record  [-title T] [-url U] [-out DIR] [-config PATH]   record the built-in sample walkthrough
  demoreel replay  -steps PATH [-out DIR] [-config PATH]           re-execute a recorded step log and regenerate deliverables
  demoreel package -dir DIR [-config PATH]                         regenerate deliverables from an output directory's steps.json
  demoreel history [-limit N] [-config PATH]                       list archived recordings
  demoreel version                                                 print version information
`)
}

// runtime bundles the wired services behind the CLI commands. All commands
// drive the in-memory scripted driver; a real browser driver plugs in behind
// the same page.Driver port.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	hub      *telemetry.Hub
	driver   *page.MemoryDriver
	store    *recorder.Store
	packager *deliver.Packager
	archive  *storage.Archive
	registry *tool.Registry
}

func newRuntime(configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, ulid.Make().String())
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Level != "" {
		logger.SetMinLevel(logging.Level(cfg.Logging.Level))
	}

	hub := telemetry.NewHub()
	driver := page.NewMemoryDriver()
	store := recorder.NewStore(driver, logger, hub)
	packager := deliver.NewPackager(logger, hub, 2*time.Second)

	var archive *storage.Archive
	if cfg.Archive.Enabled {
		archive, err = storage.New(cfg.Archive.Path, logger, hub)
		if err != nil {
			logger.Close()
			return nil, err
		}
	}

	registry := tool.NewRegistry(logger)
	demo.NewService(store, driver, packager, archive, cfg).RegisterAll(registry)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		hub:      hub,
		driver:   driver,
		store:    store,
		packager: packager,
		archive:  archive,
		registry: registry,
	}, nil
}

func (rt *runtime) close() {
	if rt.archive != nil {
		rt.archive.Close()
	}
	rt.driver.Close()
	rt.hub.Close()
	rt.logger.Close()
}

func (rt *runtime) exec(ctx context.Context, name string, params map[string]any) (*tool.Result, error) {
	result, err := rt.registry.Execute(ctx, name, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if result != nil && !result.Success {
		fmt.Printf("  ! %s recorded a failure: %s\n", name, result.Error)
	}
	return result, nil
}

func runRecord(args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	title := fs.String("title", "the sample checkout flow", "walkthrough title")
	url := fs.String("url", "https://shop.example.test", "starting URL")
	out := fs.String("out", "", "output directory (default: config output dir + timestamp)")
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()
	params := map[string]any{"url": *url, "title": *title}
	if *out != "" {
		params["outputDir"] = *out
	}
	if _, err := rt.exec(ctx, "start-session", params); err != nil {
		return err
	}

	// The scripted driver has no real pages; seed the elements the sample
	// walkthrough interacts with.
	pg := rt.activeMemoryPage()
	pg.SetElement("1", page.Element{Tag: "input", Label: "Search products"})
	pg.SetElement("2", page.Element{Tag: "button", Label: "Add to cart"})
	pg.SetElement("3", page.Element{Tag: "link", Label: "Cart"})

	script := []struct {
		tool   string
		params map[string]any
	}{
		{"fill", map[string]any{"ref": "1", "value": "ergonomic keyboard", "label": "Search products"}},
		{"press-key", map[string]any{"key": "Enter"}},
		{"screenshot", map[string]any{"label": "search results"}},
		{"click", map[string]any{"ref": "2", "label": "Add to cart"}},
		{"scroll", map[string]any{"deltaY": 400}},
		{"click", map[string]any{"ref": "3", "label": "Cart"}},
		{"assert", map[string]any{"ref": "3", "description": "The cart page is open"}},
	}
	for _, call := range script {
		if _, err := rt.exec(ctx, call.tool, call.params); err != nil {
			return err
		}
	}

	return rt.finish(ctx)
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	stepsPath := fs.String("steps", "", "path to a steps.json file (required)")
	out := fs.String("out", "", "output directory for the regenerated deliverables")
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	if *stepsPath == "" {
		return fmt.Errorf("replay requires -steps")
	}
	doc, err := deliver.LoadStepsDocument(*stepsPath)
	if err != nil {
		return err
	}

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	outputDir := *out
	if outputDir == "" {
		outputDir = filepath.Join(filepath.Dir(*stepsPath), "replay")
	}

	ctx := context.Background()
	_, err = rt.exec(ctx, "start-session", map[string]any{
		"url":       doc.Session.StartURL,
		"title":     doc.Session.Title,
		"outputDir": outputDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Replaying %d steps from %s\n", len(doc.Steps), *stepsPath)
	for _, step := range doc.Steps {
		rt.scriptStep(step)
		if _, err := rt.exec(ctx, string(step.Action), paramsForStep(step)); err != nil {
			return err
		}
	}

	return rt.finish(ctx)
}

func runPackage(args []string) error {
	fs := flag.NewFlagSet("package", flag.ExitOnError)
	dir := fs.String("dir", "", "output directory containing steps.json (required)")
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	if *dir == "" {
		return fmt.Errorf("package requires -dir")
	}
	doc, err := deliver.LoadStepsDocument(filepath.Join(*dir, "steps.json"))
	if err != nil {
		return err
	}

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg.Recording
	cfg.OutputDir = *dir
	session := recorder.RestoreSession(
		doc.Session.ID, doc.Session.Title, doc.Session.StartURL,
		doc.Session.StartedAt, cfg, doc.Steps,
	)

	manifest, err := rt.packager.Package(context.Background(), session)
	if err != nil {
		return err
	}
	printManifest(manifest)
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum number of recordings to list")
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.archive == nil {
		return fmt.Errorf("the recording archive is disabled in the configuration")
	}
	recs, err := rt.archive.ListRecordings(context.Background(), *limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No recordings archived yet.")
		return nil
	}
	for _, rec := range recs {
		title := rec.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-9s  %3d steps  %5.1f%%  %s  %s\n",
			rec.StartedAt.Local().Format("2006-01-02 15:04"),
			rec.Status, rec.StepCount, rec.SuccessRate*100, rec.ID, title)
	}
	return nil
}

// finish ends the active session, prints the manifest, and reports failures.
func (rt *runtime) finish(ctx context.Context) error {
	result, err := rt.exec(ctx, "end-session", nil)
	if err != nil {
		return err
	}
	if manifest, ok := result.Data["manifest"].(*deliver.Manifest); ok {
		printManifest(manifest)
	}
	if archiveErr, ok := result.Data["archiveError"].(string); ok {
		fmt.Fprintf(os.Stderr, "Warning: recording archive failed: %s\n", archiveErr)
	}
	return nil
}

func printManifest(manifest *deliver.Manifest) {
	fmt.Printf("\nSession %s packaged into %s\n", manifest.SessionID, manifest.OutputDir)
	fmt.Printf("  %d steps, %d failed, %.0f%% success\n",
		manifest.Summary.TotalSteps, manifest.Summary.Failed, manifest.Summary.SuccessRate*100)
	artifacts := []struct {
		name string
		path string
	}{
		{"guide", manifest.Guide},
		{"steps", manifest.StepsJSON},
		{"narration", manifest.Narration},
		{"narration (timed)", manifest.NarrationTimed},
		{"subtitles (srt)", manifest.SubtitlesSRT},
		{"subtitles (vtt)", manifest.SubtitlesVTT},
		{"tutorial", manifest.Tutorial},
		{"preview", manifest.Preview},
		{"video", manifest.Video},
		{"trace", manifest.Trace},
	}
	for _, artifact := range artifacts {
		if artifact.path != "" {
			fmt.Printf("  %-17s %s\n", artifact.name, artifact.path)
		}
	}
	for name, msg := range manifest.Failures {
		fmt.Printf("  %-17s FAILED: %s\n", name, msg)
	}
}

func (rt *runtime) activeMemoryPage() *page.MemoryPage {
	_, pg, err := rt.store.RequireActive()
	if err != nil {
		panic(err) // start-session just succeeded
	}
	return pg.(*page.MemoryPage)
}

// scriptStep seeds the scripted driver with whatever elements the next step
// interacts with, so a replay dry-run exercises the success path.
func (rt *runtime) scriptStep(step recorder.Step) {
	_, pg, err := rt.store.RequireActive()
	if err != nil {
		return
	}
	mem, ok := pg.(*page.MemoryPage)
	if !ok {
		return
	}

	switch d := step.Details.(type) {
	case recorder.ClickDetails:
		mem.SetElement(d.Ref, page.Element{Tag: "element", Label: labelOr(d.Label, d.Ref)})
	case recorder.FillDetails:
		mem.SetElement(d.Ref, page.Element{Tag: "input", Label: labelOr(d.Label, d.Ref)})
	case recorder.SelectDetails:
		mem.SetElement(d.Ref, page.Element{Tag: "select", Label: d.Ref, Options: d.Values})
	case recorder.HoverDetails:
		mem.SetElement(d.Ref, page.Element{Tag: "element", Label: labelOr(d.Label, d.Ref)})
	case recorder.DragDetails:
		mem.SetElement(d.FromRef, page.Element{Tag: "element", Label: d.FromRef})
		mem.SetElement(d.ToRef, page.Element{Tag: "element", Label: d.ToRef})
	case recorder.UploadDetails:
		mem.SetElement(d.Ref, page.Element{Tag: "input", Label: d.Ref})
	case recorder.WaitDetails:
		if d.Text != "" {
			mem.SetElement("replay-wait", page.Element{Tag: "text", Label: d.Text})
		}
	case recorder.AssertDetails:
		if d.Ref != "" {
			mem.SetElement(d.Ref, page.Element{Tag: "element", Label: labelOr(d.Expected, d.Ref)})
		} else if d.Expected != "" {
			mem.SetElement("replay-assert", page.Element{Tag: "text", Label: d.Expected})
		}
	}
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

// paramsForStep converts a persisted step back into the tool arguments that
// reproduce it. Action kinds and tool names share the same vocabulary.
func paramsForStep(step recorder.Step) map[string]any {
	switch d := step.Details.(type) {
	case recorder.NavigateDetails:
		return map[string]any{"url": d.URL}
	case recorder.ClickDetails:
		return map[string]any{"ref": d.Ref, "label": d.Label}
	case recorder.FillDetails:
		return map[string]any{"ref": d.Ref, "value": d.Value, "label": d.Label}
	case recorder.SelectDetails:
		return map[string]any{"ref": d.Ref, "values": d.Values}
	case recorder.PressKeyDetails:
		return map[string]any{"key": d.Key}
	case recorder.HoverDetails:
		return map[string]any{"ref": d.Ref, "label": d.Label}
	case recorder.DragDetails:
		return map[string]any{"fromRef": d.FromRef, "toRef": d.ToRef}
	case recorder.UploadDetails:
		return map[string]any{"ref": d.Ref, "paths": d.Paths}
	case recorder.ScrollDetails:
		return map[string]any{"deltaX": d.DeltaX, "deltaY": d.DeltaY}
	case recorder.WaitDetails:
		return map[string]any{"seconds": d.Seconds, "text": d.Text}
	case recorder.ScreenshotDetails:
		return map[string]any{"label": d.Label}
	case recorder.AssertDetails:
		return map[string]any{"ref": d.Ref, "expected": d.Expected, "description": step.Description}
	case recorder.OpenViewportDetails:
		return map[string]any{"url": d.URL}
	case recorder.SwitchViewportDetails:
		return map[string]any{"viewportId": d.ViewportID}
	case recorder.CloseViewportDetails:
		return map[string]any{"viewportId": d.ViewportID}
	default:
		return map[string]any{}
	}
}
