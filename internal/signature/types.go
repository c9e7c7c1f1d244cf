// Package signature implements typed LLM I/O contracts: field
// specifications that drive deterministic prompt generation and
// multi-stage response parsing/validation.
package signature

import (
	"encoding/json"
	"strings"
)

// FieldKind is the scalar/composite shape of a field's value.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindInteger FieldKind = "integer"
	KindFloat   FieldKind = "float"
	KindBoolean FieldKind = "boolean"
	KindList    FieldKind = "list"
	KindObject  FieldKind = "object"
	KindEnum    FieldKind = "enum"
	KindCustom  FieldKind = "custom"
)

// FieldType describes one field's value shape. Exactly one of Elem,
// Fields, Values, or CustomName is populated, matching Kind.
type FieldType struct {
	Kind       FieldKind
	Elem       *FieldType  // List element type
	Fields     []FieldSpec // Object member fields
	Values     []string    // Enum allowed values
	CustomName string      // Custom type label
}

func TString() FieldType  { return FieldType{Kind: KindString} }
func TInteger() FieldType { return FieldType{Kind: KindInteger} }
func TFloat() FieldType   { return FieldType{Kind: KindFloat} }
func TBoolean() FieldType { return FieldType{Kind: KindBoolean} }

func TList(elem FieldType) FieldType {
	e := elem
	return FieldType{Kind: KindList, Elem: &e}
}

func TObject(fields []FieldSpec) FieldType {
	return FieldType{Kind: KindObject, Fields: fields}
}

func TEnum(values ...string) FieldType {
	return FieldType{Kind: KindEnum, Values: values}
}

func TCustom(name string) FieldType {
	return FieldType{Kind: KindCustom, CustomName: name}
}

// ToJSONSchema renders a minimal JSON-schema fragment for the field type.
func (t FieldType) ToJSONSchema() map[string]any {
	switch t.Kind {
	case KindString:
		return map[string]any{"type": "string"}
	case KindInteger:
		return map[string]any{"type": "integer"}
	case KindFloat:
		return map[string]any{"type": "number"}
	case KindBoolean:
		return map[string]any{"type": "boolean"}
	case KindList:
		return map[string]any{"type": "array", "items": t.Elem.ToJSONSchema()}
	case KindObject:
		props := make(map[string]any, len(t.Fields))
		var required []string
		for _, f := range t.Fields {
			props[f.Name] = f.Type.ToJSONSchema()
			if f.Required {
				required = append(required, f.Name)
			}
		}
		return map[string]any{"type": "object", "properties": props, "required": required}
	case KindEnum:
		return map[string]any{"type": "string", "enum": t.Values}
	default:
		return map[string]any{"type": "string"}
	}
}

// FieldSpec is one named, typed, optionally-described field in a
// signature's input or output contract.
type FieldSpec struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
}

// NewField creates a required field.
func NewField(name string, t FieldType) FieldSpec {
	return FieldSpec{Name: name, Type: t, Required: true}
}

// WithDescription attaches a human-readable description.
func (f FieldSpec) WithDescription(d string) FieldSpec {
	f.Description = d
	return f
}

// Optional marks the field as not required.
func (f FieldSpec) Optional() FieldSpec {
	f.Required = false
	return f
}

// DisplayLabel renders the field's name for prompt display, title-cased on
// underscores (e.g. "max_length" -> "Max Length").
func (f FieldSpec) DisplayLabel() string {
	parts := strings.Split(f.Name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// ToPromptLine renders one bullet line describing the field for the
// "Required Output" prompt section.
func (f FieldSpec) ToPromptLine() string {
	line := "`" + f.Name + "` (" + string(f.Type.Kind) + ")"
	if f.Description != "" {
		line += ": " + f.Description
	}
	return line
}

// ValidationError is one field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// ToUserMessage renders a human-readable validation error line.
func (e ValidationError) ToUserMessage() string {
	return e.Field + ": " + e.Message
}

// ParseErrorKind classifies a response-parsing failure.
type ParseErrorKind string

const (
	ParseInvalidJSON        ParseErrorKind = "invalid_json"
	ParseStructureMismatch  ParseErrorKind = "structure_mismatch"
	ParseValidationFailed   ParseErrorKind = "validation_failed"
	ParseEmptyResponse      ParseErrorKind = "empty_response"
	ParseCustom             ParseErrorKind = "custom"
)

// ParseError is returned by FromResponse when an LLM response cannot be
// turned into a valid typed output.
type ParseError struct {
	Kind             ParseErrorKind
	Message          string
	ResponsePreview  string
	Expected         string
	Got              string
	ValidationErrors []ValidationError
}

func (e *ParseError) Error() string {
	return e.ToUserMessage()
}

// ToUserMessage renders the error the way a caller would display it.
func (e *ParseError) ToUserMessage() string {
	switch e.Kind {
	case ParseInvalidJSON:
		return "Failed to parse response as JSON: " + e.Message + ". Response: " + e.ResponsePreview
	case ParseStructureMismatch:
		return "Response structure mismatch: expected " + e.Expected + ", got " + e.Got
	case ParseValidationFailed:
		var msgs []string
		for _, ve := range e.ValidationErrors {
			msgs = append(msgs, ve.ToUserMessage())
		}
		return "Validation failed:\n  - " + strings.Join(msgs, "\n  - ")
	case ParseEmptyResponse:
		return "LLM returned an empty response"
	default:
		return e.Message
	}
}

func invalidJSONError(err error, response string) *ParseError {
	return &ParseError{Kind: ParseInvalidJSON, Message: err.Error(), ResponsePreview: truncate(response, 200)}
}

func structureMismatchError(expected string, err error) *ParseError {
	return &ParseError{Kind: ParseStructureMismatch, Expected: expected, Got: err.Error()}
}

func validationFailedError(errs []ValidationError) *ParseError {
	return &ParseError{Kind: ParseValidationFailed, ValidationErrors: errs}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// marshalToMap round-trips v through JSON to obtain a generic map/array
// shape suitable for field-by-field validation against a FieldSpec list.
func marshalToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
