package signature

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Spec is the static contract a Signature[I, O] implementation exposes:
// task instructions plus input/output field specifications. It is kept
// separate from the generic type so it can be built once and reused
// across calls without repeating reflection-free boilerplate.
type Spec struct {
	Name         string
	Instructions string
	InputFields  []FieldSpec
	OutputFields []FieldSpec
}

// Signature is a typed LLM I/O contract: I is the input payload shape, O
// is the output payload shape. A Signature value is immutable descriptive
// metadata; ToPrompt/FromResponse are pure functions of that metadata.
type Signature[I any, O any] struct {
	Spec Spec
}

// New builds a signature from its static contract.
func New[I any, O any](spec Spec) Signature[I, O] {
	return Signature[I, O]{Spec: spec}
}

// ToPrompt renders a structured prompt: instructions, rendered input
// values, and the required output shape as a JSON template. Field
// iteration order is input_fields()'s declared order, output identically
// for any two calls with the same inputs — prompt generation is
// deterministic.
func (s Signature[I, O]) ToPrompt(inputs I) (string, error) {
	inputMap, err := marshalToMap(inputs)
	if err != nil {
		return "", fmt.Errorf("signature: marshal inputs: %w", err)
	}

	var b strings.Builder
	b.WriteString("## Task\n\n")
	b.WriteString(s.Spec.Instructions)
	b.WriteString("\n\n## Inputs\n\n")

	for _, f := range s.Spec.InputFields {
		v, present := inputMap[f.Name]
		label := f.DisplayLabel()
		switch {
		case present:
			fmt.Fprintf(&b, "**%s**: %s\n", label, FormatValue(v))
		case !f.Required:
			// optional and missing: omit entirely
		default:
			fmt.Fprintf(&b, "**%s**: (not provided)\n", label)
		}
	}
	b.WriteString("\n## Required Output\n\n")
	b.WriteString("Respond with a JSON object containing:\n\n")
	for _, f := range s.Spec.OutputFields {
		fmt.Fprintf(&b, "- %s\n", f.ToPromptLine())
	}
	b.WriteString("\n```json\n")
	template, err := s.generateOutputTemplate()
	if err != nil {
		return "", err
	}
	b.WriteString(template)
	b.WriteString("\n```\n")

	return b.String(), nil
}

// FromResponse parses an LLM response into O via the four-stage pipeline:
// extract JSON from surrounding text, decode into a generic map, validate
// every output field (collecting all violations), then decode into the
// typed O.
func (s Signature[I, O]) FromResponse(response string) (O, error) {
	var zero O

	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return zero, &ParseError{Kind: ParseEmptyResponse}
	}

	jsonStr := ExtractJSON(trimmed)

	var generic map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &generic); err != nil {
		return zero, invalidJSONError(err, jsonStr)
	}

	if errs := ValidateFields(generic, s.Spec.OutputFields); len(errs) > 0 {
		return zero, validationFailedError(errs)
	}

	var out O
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return zero, structureMismatchError(typeName(out), err)
	}
	return out, nil
}

// OutputSchema renders a JSON-schema object describing O's shape.
func (s Signature[I, O]) OutputSchema() map[string]any {
	props := make(map[string]any, len(s.Spec.OutputFields))
	var required []string
	for _, f := range s.Spec.OutputFields {
		props[f.Name] = f.Type.ToJSONSchema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func (s Signature[I, O]) generateOutputTemplate() (string, error) {
	obj := make(map[string]any, len(s.Spec.OutputFields))
	for _, f := range s.Spec.OutputFields {
		obj[f.Name] = FieldPlaceholder(f.Type)
	}
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", fmt.Errorf("signature: generate template: %w", err)
	}
	return string(b), nil
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// FieldPlaceholder produces a human-legible placeholder value for a field
// type, used to populate the output JSON template shown in a prompt.
func FieldPlaceholder(t FieldType) any {
	switch t.Kind {
	case KindString:
		return "<string>"
	case KindInteger:
		return "<integer>"
	case KindFloat:
		return "<number>"
	case KindBoolean:
		return "<true|false>"
	case KindList:
		return []any{FieldPlaceholder(*t.Elem)}
	case KindObject:
		obj := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			obj[f.Name] = FieldPlaceholder(f.Type)
		}
		return obj
	case KindEnum:
		return strings.Join(t.Values, "|")
	default:
		return "<" + t.CustomName + ">"
	}
}

// FormatValue renders a decoded JSON value for display inside a prompt:
// strings are shown bare, short arrays are shown inline, long arrays are
// summarized by count, objects are shown as compact JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) <= 3 {
			items := make([]string, len(val))
			for i, item := range val {
				items[i] = FormatValue(item)
			}
			return "[" + strings.Join(items, ", ") + "]"
		}
		return fmt.Sprintf("[%d items]", len(val))
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}
