package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/odvcencio/demoreel/pkg/telemetry"
)

// Metrics tracks recorder performance counters.
type Metrics struct {
	SessionsStarted atomic.Int64
	SessionsEnded   atomic.Int64

	StepsRecorded atomic.Int64
	StepFailures  atomic.Int64

	ViewportsOpened atomic.Int64
	ViewportsClosed atomic.Int64

	StepLatencySum   atomic.Int64 // nanoseconds sum for averaging
	StepLatencyCount atomic.Int64

	mu        sync.RWMutex
	hub       *telemetry.Hub
	sessionID string
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// EnableTelemetry wires the metrics collector to a telemetry hub.
func (m *Metrics) EnableTelemetry(hub *telemetry.Hub, sessionID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.hub = hub
	m.sessionID = sessionID
	m.mu.Unlock()
}

// RecordSessionStarted increments the session start counter.
func (m *Metrics) RecordSessionStarted(sessionID string) {
	if m == nil {
		return
	}
	m.SessionsStarted.Add(1)
	m.publish(telemetry.EventSessionStarted, 0, map[string]any{"session_id": sessionID})
}

// RecordSessionEnded increments the session end counter.
func (m *Metrics) RecordSessionEnded(sessionID string, status Status) {
	if m == nil {
		return
	}
	m.SessionsEnded.Add(1)
	m.publish(telemetry.EventSessionEnded, 0, map[string]any{
		"session_id": sessionID,
		"status":     string(status),
	})
}

// RecordStep tracks one recorded step and its latency.
func (m *Metrics) RecordStep(step Step) {
	if m == nil {
		return
	}
	m.StepsRecorded.Add(1)
	m.StepLatencySum.Add(step.Duration * int64(time.Millisecond))
	m.StepLatencyCount.Add(1)
	eventType := telemetry.EventStepRecorded
	if !step.Success {
		m.StepFailures.Add(1)
		eventType = telemetry.EventStepFailed
	}
	m.publish(eventType, step.ID, map[string]any{
		"action":      string(step.Action),
		"duration_ms": step.Duration,
		"success":     step.Success,
	})
}

// RecordViewportOpened increments the viewport open counter.
func (m *Metrics) RecordViewportOpened(id int) {
	if m == nil {
		return
	}
	m.ViewportsOpened.Add(1)
	m.publish(telemetry.EventViewportOpened, 0, map[string]any{"viewport_id": id})
}

// RecordViewportClosed increments the viewport close counter.
func (m *Metrics) RecordViewportClosed(id int) {
	if m == nil {
		return
	}
	m.ViewportsClosed.Add(1)
	m.publish(telemetry.EventViewportClosed, 0, map[string]any{"viewport_id": id})
}

// Snapshot returns a point-in-time snapshot of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	avgStepLatency := time.Duration(0)
	if count := m.StepLatencyCount.Load(); count > 0 {
		avgStepLatency = time.Duration(m.StepLatencySum.Load() / count)
	}
	recorded := m.StepsRecorded.Load()
	failures := m.StepFailures.Load()
	successRate := float64(1.0)
	if recorded > 0 {
		successRate = float64(recorded-failures) / float64(recorded)
	}
	return MetricsSnapshot{
		SessionsStarted:    m.SessionsStarted.Load(),
		SessionsEnded:      m.SessionsEnded.Load(),
		StepsRecorded:      recorded,
		StepFailures:       failures,
		StepSuccessRate:    successRate,
		ViewportsOpened:    m.ViewportsOpened.Load(),
		ViewportsClosed:    m.ViewportsClosed.Load(),
		AverageStepLatency: avgStepLatency,
	}
}

func (m *Metrics) publish(eventType telemetry.EventType, stepID int, data map[string]any) {
	m.mu.RLock()
	hub := m.hub
	sessionID := m.sessionID
	m.mu.RUnlock()
	if hub == nil {
		return
	}
	hub.Publish(telemetry.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: sessionID,
		StepID:    stepID,
		Data:      data,
	})
}

// MetricsSnapshot is a point-in-time copy of recorder metrics.
type MetricsSnapshot struct {
	SessionsStarted    int64
	SessionsEnded      int64
	StepsRecorded      int64
	StepFailures       int64
	StepSuccessRate    float64
	ViewportsOpened    int64
	ViewportsClosed    int64
	AverageStepLatency time.Duration
}
