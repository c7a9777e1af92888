// Package schema derives LLM-facing extraction schemas from Go structs and
// filters model output against them.
package schema

// FieldType represents the type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field represents a single field in the schema.
type Field struct {
	Name        string    `json:"name,omitempty"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Nullable    bool      `json:"nullable,omitempty"`   // Pointer fields; null means "unknown"
	Items       *Field    `json:"items,omitempty"`      // For array types
	Properties  []Field   `json:"properties,omitempty"` // For object types
	Validators  []string  `json:"validators,omitempty"` // Validation tags
	Enum        []string  `json:"enum,omitempty"`       // From a oneof validator
	Examples    []string  `json:"examples,omitempty"`   // Example values
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
