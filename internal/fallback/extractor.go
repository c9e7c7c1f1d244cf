package fallback

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"unified-thinking/internal/signature"
)

// Extractor salvages ExecutionResult[O] values when a signature-driven
// REPL loop runs out of budget: it decides whether fallback should
// trigger, builds the extraction prompt, and parses the extraction
// model's response.
type Extractor[O any] struct {
	config       FallbackConfig
	outputFields []signature.FieldSpec
}

// NewExtractor builds an extractor for a signature's output fields.
func NewExtractor[O any](outputFields []signature.FieldSpec) *Extractor[O] {
	return &Extractor[O]{config: DefaultFallbackConfig(), outputFields: outputFields}
}

// WithConfig replaces the extractor's configuration.
func (e *Extractor[O]) WithConfig(config FallbackConfig) *Extractor[O] {
	e.config = config
	return e
}

// ShouldTrigger checks history against limits in fixed precedence order —
// iteration ceiling first, then LLM-call ceiling, then wall-clock timeout
// — and returns the first tripped trigger, or false if none have.
func (e *Extractor[O]) ShouldTrigger(history *History, limits ExecutionLimits) (Trigger, bool) {
	if history.IterationCount >= limits.MaxIterations {
		return TriggerMaxIterations, true
	}
	if history.LLMCallCount >= limits.MaxLLMCalls {
		return TriggerMaxLLMCalls, true
	}
	if history.TotalTimeMs >= limits.TimeoutMs {
		return TriggerTimeout, true
	}
	return "", false
}

// ExtractionPrompt builds the prompt sent to the extraction model:
// history window, current variables (truncated), required output fields,
// and a JSON template including a `_confidence` field.
func (e *Extractor[O]) ExtractionPrompt(history *History, variables map[string]any) string {
	var b strings.Builder
	b.WriteString("# Fallback Output Extraction\n\n")
	b.WriteString("The REPL execution exceeded limits before completing. ")
	b.WriteString("Extract the required outputs from the history and variables below.\n\n")

	b.WriteString("## REPL History\n\n```\n")
	b.WriteString(history.FormatForPrompt(e.config.MaxHistoryEntries))
	b.WriteString("```\n\n")

	b.WriteString("## Current Variables\n\n```json\n")
	b.WriteString(e.formatVariables(variables))
	b.WriteString("\n```\n\n")

	b.WriteString("## Required Outputs\n\n")
	b.WriteString("Extract the following fields based on the history and variables:\n\n")
	for _, f := range e.outputFields {
		fmt.Fprintf(&b, "- **%s**: %s\n", f.Name, f.Description)
		fmt.Fprintf(&b, "  - Type: %s\n", f.Type.Kind)
		if !f.Required {
			b.WriteString("  - Optional\n")
		}
	}
	b.WriteString("\n## Response Format\n\n")
	b.WriteString("Return a JSON object with the required fields. ")
	b.WriteString("If a value cannot be determined, use null for optional fields or your best guess for required fields.\n\n")
	b.WriteString("Also include a `_confidence` field (0.0-1.0) indicating your confidence in the extraction.\n\n")
	b.WriteString("```json\n")
	b.WriteString(e.generateOutputTemplate())
	b.WriteString("\n```\n")

	return b.String()
}

func (e *Extractor[O]) formatVariables(variables map[string]any) string {
	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > e.config.MaxVariables {
		keys = keys[:e.config.MaxVariables]
	}

	shown := make(map[string]any, len(keys))
	for _, k := range keys {
		v := variables[k]
		if s, ok := v.(string); ok && len(s) > 1000 {
			shown[k] = fmt.Sprintf("%s... [truncated, %d chars total]", s[:1000], len(s))
		} else {
			shown[k] = v
		}
	}
	b, err := json.MarshalIndent(shown, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (e *Extractor[O]) generateOutputTemplate() string {
	obj := make(map[string]any, len(e.outputFields)+1)
	for _, f := range e.outputFields {
		switch f.Type.Kind {
		case signature.KindString:
			obj[f.Name] = "<extracted value>"
		case signature.KindInteger:
			obj[f.Name] = "<integer>"
		case signature.KindFloat:
			obj[f.Name] = "<number>"
		case signature.KindBoolean:
			obj[f.Name] = "<true|false>"
		case signature.KindList:
			obj[f.Name] = []any{"<items>"}
		default:
			obj[f.Name] = "<value>"
		}
	}
	obj["_confidence"] = "<0.0-1.0>"
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseExtractionResponse parses the extraction model's response into an
// ExecutionResult[O]: extracts embedded JSON, reads and clamps the
// `_confidence` field (defaulting to 0.5 if absent), strips it, then
// decodes the remainder as O.
func (e *Extractor[O]) ParseExtractionResponse(response string, trigger Trigger) ExecutionResult[O] {
	jsonStr := signature.ExtractJSON(response)

	var generic map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &generic); err != nil {
		return Failed[O](fmt.Sprintf("Failed to parse extraction response: %v", err), trigger)
	}

	confidence := 0.5
	if c, ok := generic["_confidence"].(float64); ok {
		confidence = c
	}
	delete(generic, "_confidence")

	cleaned, err := json.Marshal(generic)
	if err != nil {
		return Failed[O](fmt.Sprintf("Failed to re-marshal extraction response: %v", err), trigger)
	}

	var outputs O
	if err := json.Unmarshal(cleaned, &outputs); err != nil {
		return Failed[O](fmt.Sprintf("Failed to parse extracted outputs: %v", err), trigger)
	}
	return Extracted(outputs, confidence, trigger)
}
