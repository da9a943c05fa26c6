package tool

import (
	"github.com/odvcencio/demoreel/pkg/errors"
)

// Typed parameter accessors. JSON-decoded arguments arrive as map[string]any
// with float64 numbers; these normalize them and produce uniform errors.

// StringParam returns a required string parameter.
func StringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "missing required parameter").
			WithContext("parameter", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "parameter must be a string").
			WithContext("parameter", key)
	}
	return s, nil
}

// OptionalString returns a string parameter or the empty string.
func OptionalString(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// IntParam returns a required integer parameter, accepting JSON numbers.
func IntParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidInput, "missing required parameter").
			WithContext("parameter", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidInput, "parameter must be an integer").
			WithContext("parameter", key)
	}
}

// OptionalInt returns an integer parameter, or def when absent or untyped.
func OptionalInt(params map[string]any, key string, def int) int {
	n, err := IntParam(params, key)
	if err != nil {
		return def
	}
	return n
}

// OptionalFloat returns a number parameter, or def when absent or untyped.
func OptionalFloat(params map[string]any, key string, def float64) float64 {
	switch n := params[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// StringSliceParam returns a required string-array parameter, accepting both
// []string and JSON-decoded []any.
func StringSliceParam(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "missing required parameter").
			WithContext("parameter", key)
	}
	switch vals := v.(type) {
	case []string:
		return vals, nil
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidInput, "parameter must be an array of strings").
					WithContext("parameter", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "parameter must be an array of strings").
			WithContext("parameter", key)
	}
}
