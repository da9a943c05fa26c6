// Package tool defines the structured command surface of the recorder.
// Every recordable operation is exposed as a named tool with a JSON Schema
// parameter contract, so callers (the CLI, an automation harness, an
// embedding host) invoke operations by name with validated arguments
// instead of bespoke entry points.
package tool

// Schema defines a JSON Schema for tool parameters.
type Schema struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// Property defines a single property in a JSON Schema.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Items       *Property `json:"items,omitempty"`
	Default     any       `json:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
}

// ObjectSchema creates a schema for an object type with the given properties.
func ObjectSchema(props map[string]Property, required ...string) Schema {
	return Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// StringProperty creates a string property.
func StringProperty(desc string) Property {
	return Property{
		Type:        "string",
		Description: desc,
	}
}

// BoolProperty creates a boolean property.
func BoolProperty(desc string) Property {
	return Property{
		Type:        "boolean",
		Description: desc,
	}
}

// IntProperty creates an integer property.
func IntProperty(desc string) Property {
	return Property{
		Type:        "integer",
		Description: desc,
	}
}

// NumberProperty creates a number property.
func NumberProperty(desc string) Property {
	return Property{
		Type:        "number",
		Description: desc,
	}
}

// ArrayProperty creates an array property with the given item type.
func ArrayProperty(desc string, items Property) Property {
	return Property{
		Type:        "array",
		Description: desc,
		Items:       &items,
	}
}
