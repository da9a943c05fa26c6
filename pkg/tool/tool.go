package tool

import (
	"context"
	"encoding/json"
)

// Tool is one invocable operation. Implementations are stateless fronts over
// shared services; all recording state lives behind them.
type Tool interface {
	// Name is the tool identifier (e.g. "start-session").
	Name() string

	// Description explains what the tool does.
	Description() string

	// Parameters defines the JSON Schema for the tool's arguments.
	Parameters() Schema

	// Execute runs the tool. A non-nil error means the invocation itself
	// failed (bad arguments, violated preconditions). Action failures that
	// were still recorded as steps come back as a Result with Success false.
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Result is a tool's structured outcome.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// OK creates a successful result.
func OK(data map[string]any) *Result {
	return &Result{Success: true, Data: data}
}

// Failed creates a recorded-failure result: the invocation completed and a
// step exists, but the underlying action did not succeed.
func Failed(err error, data map[string]any) *Result {
	return &Result{Success: false, Data: data, Error: err.Error()}
}

// JSON renders the result for transport or display.
func (r *Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"unencodable result"}`
	}
	return string(data)
}
