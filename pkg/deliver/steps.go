package deliver

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/odvcencio/demoreel/pkg/recorder"
)

// SessionMeta is the session header embedded in steps.json.
type SessionMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartURL  string    `json:"startUrl,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

// StepsDocument is the machine-readable step log: a summary block plus a
// steps array mirroring the Step shape. The CLI replay path round-trips it.
type StepsDocument struct {
	Session SessionMeta      `json:"session"`
	Summary recorder.Summary `json:"summary"`
	Steps   []recorder.Step  `json:"steps"`
}

// GenerateStepsJSON serializes a session's step log.
func GenerateStepsJSON(session *recorder.Session) ([]byte, error) {
	steps := session.Steps()
	doc := StepsDocument{
		Session: SessionMeta{
			ID:        session.ID,
			Title:     session.Title,
			StartURL:  session.StartURL,
			StartedAt: session.StartedAt,
		},
		Summary: recorder.Summarize(steps),
		Steps:   steps,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// LoadStepsDocument reads a steps.json back into memory.
func LoadStepsDocument(path string) (*StepsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read step log: %w", err)
	}
	var doc StepsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse step log: %w", err)
	}
	return &doc, nil
}
