package schema

import (
	"strings"
)

// ToJSONSchema converts the schema to JSON Schema format for LLM structured output.
// Nullable fields are listed as required with a null-admitting type, which is
// what strict structured-output modes expect.
func (s Schema) ToJSONSchema() (map[string]any, error) {
	properties, required := propertiesToJSONSchema(s.Fields)

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false, // Required for strict mode (OpenRouter/OpenAI)
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	if s.Description != "" {
		schema["description"] = s.Description
	}

	return schema, nil
}

func propertiesToJSONSchema(fields []Field) (map[string]any, []string) {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, field := range fields {
		properties[field.Name] = fieldToJSONSchema(field)
		if field.Required || field.Nullable {
			required = append(required, field.Name)
		}
	}
	return properties, required
}

// fieldToJSONSchema converts a Field to JSON Schema format.
func fieldToJSONSchema(f Field) map[string]any {
	schema := map[string]any{}
	if f.Nullable {
		schema["type"] = []string{string(f.Type), "null"}
	} else {
		schema["type"] = string(f.Type)
	}

	if f.Description != "" {
		schema["description"] = f.Description
	}

	if len(f.Enum) > 0 {
		enum := make([]any, 0, len(f.Enum)+1)
		for _, v := range f.Enum {
			enum = append(enum, v)
		}
		if f.Nullable {
			enum = append(enum, nil)
		}
		schema["enum"] = enum
	}

	if len(f.Examples) > 0 {
		schema["examples"] = f.Examples
	}

	if f.Type == TypeArray && f.Items != nil {
		schema["items"] = fieldToJSONSchema(*f.Items)
	}

	if f.Type == TypeObject && len(f.Properties) > 0 {
		props, req := propertiesToJSONSchema(f.Properties)
		schema["properties"] = props
		schema["additionalProperties"] = false // Required for strict mode
		if len(req) > 0 {
			schema["required"] = req
		}
	}

	return schema
}

// ToPromptDescription generates a human-readable description for the LLM prompt.
func (s Schema) ToPromptDescription() string {
	var sb strings.Builder

	sb.WriteString("## Content Type\n")
	if s.Description != "" {
		sb.WriteString(s.Description)
	} else {
		sb.WriteString("Extract the following structured data.\n")
	}
	sb.WriteString("\n\n## Fields to Extract\n")

	for _, field := range s.Fields {
		writeFieldDescription(&sb, field, 0)
	}

	return sb.String()
}

// writeFieldDescription writes a field description to the string builder.
func writeFieldDescription(sb *strings.Builder, f Field, indent int) {
	prefix := strings.Repeat("  ", indent)

	sb.WriteString(prefix)
	sb.WriteString("- ")
	sb.WriteString(f.Name)
	sb.WriteString(" (")
	sb.WriteString(string(f.Type))

	if f.Required {
		sb.WriteString(", required")
	}
	if f.Nullable {
		sb.WriteString(", null if unknown")
	}

	sb.WriteString(")")

	if f.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Description)
	}

	if len(f.Enum) > 0 {
		sb.WriteString(" [one of: ")
		sb.WriteString(strings.Join(f.Enum, ", "))
		sb.WriteString("]")
	}

	sb.WriteString("\n")

	if f.Type == TypeArray && f.Items != nil && f.Items.Type == TypeObject {
		sb.WriteString(prefix)
		sb.WriteString("  Each item:\n")
		for _, prop := range f.Items.Properties {
			writeFieldDescription(sb, prop, indent+2)
		}
	}

	if f.Type == TypeObject && len(f.Properties) > 0 {
		for _, prop := range f.Properties {
			writeFieldDescription(sb, prop, indent+1)
		}
	}
}
