package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/odvcencio/demoreel/pkg/deliver"
	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/logging"
	"github.com/odvcencio/demoreel/pkg/recorder"
	"github.com/odvcencio/demoreel/pkg/telemetry"
)

//go:embed schema.sql
var schemaSQL string

// timeFormat is RFC 3339 with fixed-width fractional seconds so that the
// stored text sorts chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Archive is the durable index of past recordings. Artifacts stay on disk in
// their output directories; the archive holds the session metadata, the step
// log, and the packaging manifest so history survives process restarts.
type Archive struct {
	db     *sql.DB
	logger *logging.Logger
	hub    *telemetry.Hub
}

// Recording is one archived session row.
type Recording struct {
	ID          string
	Title       string
	StartURL    string
	Status      recorder.Status
	OutputDir   string
	StartedAt   time.Time
	EndedAt     time.Time
	StepCount   int
	SuccessRate float64
	Manifest    *deliver.Manifest
}

// StepRecord is one archived step row.
type StepRecord struct {
	Seq            int
	Action         recorder.ActionKind
	Description    string
	Success        bool
	DurationMS     int64
	Error          string
	Details        recorder.Details
	ScreenshotPath string
}

// New opens (creating if needed) the archive database at path and applies
// pending migrations. Logger and hub may be nil.
func New(path string, logger *logging.Logger, hub *telemetry.Hub) (*Archive, error) {
	if path != "" && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "failed to create archive directory").
					WithContext("path", path)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "failed to open archive database").
			WithContext("path", path)
	}

	// SQLite supports one writer at a time but multiple readers under WAL.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "failed to configure archive database").
				WithContext("pragma", pragma)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "failed to migrate archive database")
	}

	return &Archive{db: db, logger: logger, hub: hub}, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// RecordSession archives a finished session with its step log and, when the
// session was packaged, the manifest. Manifest may be nil for aborted runs.
func (a *Archive) RecordSession(ctx context.Context, session *recorder.Session, manifest *deliver.Manifest) error {
	if session == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no session to archive")
	}
	if session.Status == recorder.StatusRunning {
		return errors.New(errors.ErrCodeInvalidInput, "cannot archive a running session").
			WithContext("session_id", session.ID)
	}

	steps := session.Steps()
	summary := recorder.Summarize(steps)

	var manifestJSON any
	if manifest != nil {
		data, err := json.Marshal(manifest)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageWrite, "failed to encode manifest")
		}
		manifestJSON = string(data)
	}

	err := a.withRetry(func() error {
		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var endedAt any
		if !session.EndedAt.IsZero() {
			endedAt = session.EndedAt.UTC().Format(timeFormat)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO recordings
				(id, title, start_url, status, output_dir, started_at, ended_at, step_count, success_rate, manifest_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.Title, session.StartURL, string(session.Status),
			session.OutputDir, session.StartedAt.UTC().Format(timeFormat), endedAt,
			summary.TotalSteps, summary.SuccessRate, manifestJSON,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recording_steps WHERE recording_id = ?`, session.ID); err != nil {
			return err
		}
		for _, step := range steps {
			var detailsJSON any
			if step.Details != nil {
				data, err := json.Marshal(step.Details)
				if err != nil {
					return err
				}
				detailsJSON = string(data)
			}
			var stepErr any
			if step.Error != "" {
				stepErr = step.Error
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO recording_steps
					(recording_id, seq, action, description, success, duration_ms, error, details_json, screenshot_path)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				session.ID, step.ID, string(step.Action), step.Description,
				step.Success, step.Duration, stepErr, detailsJSON, step.Evidence.ScreenshotPath,
			); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "failed to archive recording").
			WithContext("session_id", session.ID)
	}

	if a.logger != nil {
		a.logger.Info(logging.CategoryStorage, "archive.recorded", session.Title, map[string]any{
			"session_id": session.ID,
			"steps":      summary.TotalSteps,
		})
	}
	if a.hub != nil {
		a.hub.Publish(telemetry.Event{
			Type:      telemetry.EventArchiveRecorded,
			SessionID: session.ID,
			Data:      map[string]any{"steps": summary.TotalSteps},
		})
	}
	return nil
}

// ListRecordings returns archived recordings, most recent first. A limit of
// zero or less returns everything.
func (a *Archive) ListRecordings(ctx context.Context, limit int) ([]Recording, error) {
	query := `
		SELECT id, title, start_url, status, output_dir, started_at, ended_at, step_count, success_rate, manifest_json
		FROM recordings ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to list recordings")
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to scan recording")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to list recordings")
	}
	return out, nil
}

// GetRecording returns one archived recording and its step log.
func (a *Archive) GetRecording(ctx context.Context, id string) (*Recording, []StepRecord, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, title, start_url, status, output_dir, started_at, ended_at, step_count, success_rate, manifest_json
		FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil, errors.New(errors.ErrCodeStorageRead, "recording not found").
				WithContext("session_id", id)
		}
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to load recording").
			WithContext("session_id", id)
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT seq, action, description, success, duration_ms, error, details_json, screenshot_path
		FROM recording_steps WHERE recording_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to load recording steps").
			WithContext("session_id", id)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var (
			step                 StepRecord
			action               string
			stepErr, detailsJSON sql.NullString
			screenshot           sql.NullString
		)
		if err := rows.Scan(&step.Seq, &action, &step.Description, &step.Success,
			&step.DurationMS, &stepErr, &detailsJSON, &screenshot); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to scan recording step")
		}
		step.Action = recorder.ActionKind(action)
		step.Error = stepErr.String
		step.ScreenshotPath = screenshot.String
		if detailsJSON.Valid && detailsJSON.String != "" {
			details, err := recorder.DecodeDetails(step.Action, []byte(detailsJSON.String))
			if err == nil {
				step.Details = details
			}
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorageRead, "failed to load recording steps")
	}
	return &rec, steps, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (Recording, error) {
	var (
		rec                 Recording
		status, startedAt   string
		endedAt, manifestJS sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Title, &rec.StartURL, &status, &rec.OutputDir,
		&startedAt, &endedAt, &rec.StepCount, &rec.SuccessRate, &manifestJS); err != nil {
		return Recording{}, err
	}
	rec.Status = recorder.Status(status)
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		rec.StartedAt = t
	}
	if endedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
			rec.EndedAt = t
		}
	}
	if manifestJS.Valid && manifestJS.String != "" {
		var manifest deliver.Manifest
		if err := json.Unmarshal([]byte(manifestJS.String), &manifest); err == nil {
			rec.Manifest = &manifest
		}
	}
	return rec, nil
}

// withRetry retries a write once when the database reports busy or locked.
func (a *Archive) withRetry(fn func() error) error {
	err := fn()
	if isBusyError(err) {
		time.Sleep(50 * time.Millisecond)
		err = fn()
	}
	return err
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if stderrors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	Apply   func(db *sql.DB) error
}

var migrations = []Migration{
	{1, "initial_schema", func(db *sql.DB) error { return nil }}, // base schema from schemaSQL
	{2, "steps_screenshot_path", ensureStepsScreenshotColumn},
}

// runMigrations applies the base schema, then any pending migrations with
// version tracking.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	currentVersion, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}
		if err := m.Apply(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// GetSchemaVersion returns the applied schema version.
func (a *Archive) GetSchemaVersion() (int, error) {
	return getSchemaVersion(a.db)
}

// ensureStepsScreenshotColumn covers archives created before the screenshot
// path was persisted per step.
func ensureStepsScreenshotColumn(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(recording_steps)`)
	if err != nil {
		return fmt.Errorf("recording_steps pragma: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan recording_steps pragma: %w", err)
		}
		cols[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !cols["screenshot_path"] {
		if _, err := db.Exec(`ALTER TABLE recording_steps ADD COLUMN screenshot_path TEXT`); err != nil {
			return fmt.Errorf("add recording_steps.screenshot_path: %w", err)
		}
	}
	return nil
}
