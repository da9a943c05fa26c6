package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/logging"
)

// Registry manages the tool set and dispatches invocations.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *logging.Logger
}

// NewRegistry creates an empty tool registry. Logger may be nil.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}

	r.tools[t.Name()] = t
	return nil
}

// MustRegister adds a tool and panics on error.
// Use this for static tool sets at startup.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered tools ordered by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Execute dispatches an invocation to the named tool, tagging it with a
// correlation id for the logs.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown tool").
			WithContext("tool", name)
	}

	invocationID := uuid.NewString()
	start := time.Now()
	if r.logger != nil {
		r.logger.Debug(logging.CategoryAction, "tool.invoked", name, map[string]any{
			"invocation_id": invocationID,
		})
	}

	result, err := t.Execute(ctx, params)
	elapsed := time.Since(start)

	if r.logger != nil {
		details := map[string]any{
			"invocation_id": invocationID,
			"duration_ms":   elapsed.Milliseconds(),
		}
		switch {
		case err != nil:
			details["error"] = err.Error()
			r.logger.Error(logging.CategoryAction, "tool.failed", name, details)
		case result != nil && !result.Success:
			details["error"] = result.Error
			r.logger.Warn(logging.CategoryAction, "tool.completed", name, details)
		default:
			r.logger.Debug(logging.CategoryAction, "tool.completed", name, details)
		}
	}
	return result, err
}
