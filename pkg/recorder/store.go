package recorder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/demoreel/pkg/config"
	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/logging"
	"github.com/odvcencio/demoreel/pkg/page"
	"github.com/odvcencio/demoreel/pkg/telemetry"
)

// Session is one end-to-end recording. It is owned exclusively by the Store
// and mutated only through its operations; after End it is immutable.
type Session struct {
	ID        string
	Title     string
	StartURL  string
	StartedAt time.Time
	EndedAt   time.Time
	Status    Status
	Config    config.RecordingConfig
	OutputDir string
	Registry  *Registry

	// VideoOrigin is the wall-clock instant video capture began; nil when
	// the session records no video.
	VideoOrigin *time.Time

	mu    sync.Mutex
	steps []Step
}

// Steps returns a copy of the append-only step log.
func (s *Session) Steps() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// StepCount returns the number of recorded steps.
func (s *Session) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Summary computes the aggregate summary directly from the step log.
func (s *Session) Summary() Summary {
	return Summarize(s.Steps())
}

// RestoreSession reconstructs a completed session from a persisted step log
// so its deliverables can be regenerated without re-executing anything. The
// restored session has no live viewports and cannot record further steps.
func RestoreSession(id, title, startURL string, startedAt time.Time, cfg config.RecordingConfig, steps []Step) *Session {
	session := &Session{
		ID:        id,
		Title:     title,
		StartURL:  startURL,
		StartedAt: startedAt,
		Status:    StatusCompleted,
		Config:    cfg,
		OutputDir: cfg.OutputDir,
	}
	session.steps = append([]Step(nil), steps...)
	return session
}

// StartOptions configures a new recording session.
type StartOptions struct {
	Title  string
	URL    string
	Config config.RecordingConfig
}

// Store owns the single active recording session. Starting a new session
// while one is active implicitly ends the prior one; there is never partial
// overlap.
type Store struct {
	mu      sync.Mutex
	driver  page.Driver
	logger  *logging.Logger
	hub     *telemetry.Hub
	metrics *Metrics
	active  *Session

	now func() time.Time // stubbed in tests
}

// NewStore creates a session store backed by the given page driver. Logger
// and hub may be nil.
func NewStore(driver page.Driver, logger *logging.Logger, hub *telemetry.Hub) *Store {
	return &Store{
		driver:  driver,
		logger:  logger,
		hub:     hub,
		metrics: NewMetrics(),
		now:     time.Now,
	}
}

// Metrics returns the store's counters.
func (st *Store) Metrics() *Metrics {
	return st.metrics
}

// Start begins a new recording session: allocates a fresh id, opens the
// first viewport navigated to the starting location, and marks the session
// running. Any prior active session is ended first.
func (st *Store) Start(ctx context.Context, opts StartOptions) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.active != nil {
		st.endLocked(StatusCompleted)
	}

	cfg := opts.Config
	if cfg.OutputDir == "" {
		cfg = config.Default().Recording
	}

	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, "assets"), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create output directory").
			WithContext("output_dir", cfg.OutputDir)
	}

	pg, err := st.driver.NewPage(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDriverUnavailable, "failed to open first viewport")
	}
	if opts.URL != "" {
		if err := pg.Navigate(ctx, opts.URL); err != nil {
			pg.Close()
			return nil, errors.Wrap(err, errors.ErrCodeDriverUnavailable, "failed to navigate first viewport").
				WithContext("url", opts.URL)
		}
	}

	started := st.now()
	session := &Session{
		ID:        ulid.Make().String(),
		Title:     opts.Title,
		StartURL:  opts.URL,
		StartedAt: started,
		Status:    StatusRunning,
		Config:    cfg,
		OutputDir: cfg.OutputDir,
		Registry:  NewRegistry(pg),
	}
	if cfg.CaptureVideo {
		origin := started
		session.VideoOrigin = &origin
	}

	st.active = session
	st.metrics.EnableTelemetry(st.hub, session.ID)
	st.metrics.RecordSessionStarted(session.ID)
	if st.logger != nil {
		st.logger.Info(logging.CategorySession, "session.started", opts.Title, map[string]any{
			"session_id": session.ID,
			"url":        opts.URL,
		})
	}
	return session, nil
}

// End completes the active session, releases its viewports, and returns the
// now-immutable session for packaging. Returns nil without error if no
// session is active.
func (st *Store) End(ctx context.Context) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active == nil {
		return nil, nil
	}
	return st.endLocked(StatusCompleted), nil
}

// Abort ends the active session with a failed status. Used on fatal errors
// so the partially recorded log still survives for inspection.
func (st *Store) Abort(ctx context.Context) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active == nil {
		return nil
	}
	return st.endLocked(StatusFailed)
}

func (st *Store) endLocked(status Status) *Session {
	session := st.active
	session.Registry.CloseAll()
	session.Status = status
	session.EndedAt = st.now()
	st.active = nil

	st.metrics.RecordSessionEnded(session.ID, status)
	if st.logger != nil {
		st.logger.Info(logging.CategorySession, "session.ended", session.Title, map[string]any{
			"session_id": session.ID,
			"status":     string(status),
			"steps":      session.StepCount(),
		})
	}
	return session
}

// Active returns the active session, or nil.
func (st *Store) Active() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.active
}

// RequireActive returns the active session and its active viewport handle.
func (st *Store) RequireActive() (*Session, page.Page, error) {
	st.mu.Lock()
	session := st.active
	st.mu.Unlock()

	if session == nil {
		return nil, nil, errors.New(errors.ErrCodeNoActiveSession, "no recording session is active")
	}
	_, pg, err := session.Registry.Active()
	if err != nil {
		return nil, nil, err
	}
	return session, pg, nil
}

// AppendStep assigns the next contiguous 1-based sequence id and appends the
// step to the active session's log. Valid only while the session is running.
func (st *Store) AppendStep(partial Step) (Step, error) {
	st.mu.Lock()
	session := st.active
	st.mu.Unlock()

	if session == nil {
		return Step{}, errors.New(errors.ErrCodeNoActiveSession, "no recording session is active")
	}

	session.mu.Lock()
	if session.Status != StatusRunning {
		session.mu.Unlock()
		return Step{}, errors.New(errors.ErrCodeInternal, "session is not running").
			WithContext("status", string(session.Status))
	}
	partial.ID = len(session.steps) + 1
	if partial.Timestamp.IsZero() {
		partial.Timestamp = st.now()
	}
	session.steps = append(session.steps, partial)
	session.mu.Unlock()

	st.metrics.RecordStep(partial)
	if st.logger != nil {
		level := st.logger.Info
		if !partial.Success {
			level = st.logger.Error
		}
		level(logging.CategoryAction, "step.recorded", partial.Description, map[string]any{
			"session_id": session.ID,
			"step_id":    partial.ID,
			"action":     string(partial.Action),
			"success":    partial.Success,
		})
	}
	return partial, nil
}

// NextStepID returns the sequence id the next appended step will receive.
func (st *Store) NextStepID() (int, error) {
	st.mu.Lock()
	session := st.active
	st.mu.Unlock()
	if session == nil {
		return 0, errors.New(errors.ErrCodeNoActiveSession, "no recording session is active")
	}
	return session.StepCount() + 1, nil
}
