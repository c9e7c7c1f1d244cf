package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/signature"
)

type extractedOutputs struct {
	Answer string `json:"answer"`
}

func fields() []signature.FieldSpec {
	return []signature.FieldSpec{
		signature.NewField("answer", signature.TString()).WithDescription("The final answer"),
	}
}

func TestShouldTrigger_PrecedenceOrder(t *testing.T) {
	e := NewExtractor[extractedOutputs](fields())
	limits := ExecutionLimits{MaxIterations: 5, MaxLLMCalls: 3, TimeoutMs: 1000}

	h := NewHistory()
	h.IterationCount = 5
	h.LLMCallCount = 3
	h.TotalTimeMs = 2000
	trig, ok := e.ShouldTrigger(h, limits)
	require.True(t, ok)
	assert.Equal(t, TriggerMaxIterations, trig, "iteration ceiling must win over LLM-call and timeout ceilings")

	h2 := NewHistory()
	h2.LLMCallCount = 3
	h2.TotalTimeMs = 2000
	trig2, ok := e.ShouldTrigger(h2, limits)
	require.True(t, ok)
	assert.Equal(t, TriggerMaxLLMCalls, trig2)

	h3 := NewHistory()
	h3.TotalTimeMs = 2000
	trig3, ok := e.ShouldTrigger(h3, limits)
	require.True(t, ok)
	assert.Equal(t, TriggerTimeout, trig3)
}

func TestShouldTrigger_NoneWhenWithinLimits(t *testing.T) {
	e := NewExtractor[extractedOutputs](fields())
	_, ok := e.ShouldTrigger(NewHistory(), DefaultExecutionLimits())
	assert.False(t, ok)
}

// TestParseExtractionResponse_ClampsConfidence matches scenario S5: a
// confidence outside [0, 1] reported by the extraction model must be
// clamped, not propagated verbatim.
func TestParseExtractionResponse_ClampsConfidence(t *testing.T) {
	e := NewExtractor[extractedOutputs](fields())
	resp := `{"answer": "42", "_confidence": 1.7}`

	result := e.ParseExtractionResponse(resp, TriggerMaxIterations)
	require.True(t, result.IsExtracted())
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "42", result.Outputs.Answer)
}

func TestParseExtractionResponse_DefaultsConfidenceWhenAbsent(t *testing.T) {
	e := NewExtractor[extractedOutputs](fields())
	resp := `{"answer": "42"}`

	result := e.ParseExtractionResponse(resp, TriggerTimeout)
	require.True(t, result.IsExtracted())
	assert.Equal(t, 0.5, result.Confidence)
}

func TestParseExtractionResponse_MalformedJSONFails(t *testing.T) {
	e := NewExtractor[extractedOutputs](fields())
	result := e.ParseExtractionResponse("not json", TriggerManual)
	assert.True(t, result.IsFailed())
	assert.Equal(t, 0.0, result.ConfidenceValue())
}

func TestExecutionResult_ConfidenceValueByKind(t *testing.T) {
	assert.Equal(t, 1.0, Submitted(extractedOutputs{}).ConfidenceValue())
	assert.Equal(t, 0.0, Failed[extractedOutputs]("x", TriggerManual).ConfidenceValue())
	assert.Equal(t, 0.5, Extracted(extractedOutputs{}, 0.5, TriggerManual).ConfidenceValue())
}

func TestHistory_FormatForPrompt_WindowsLongHistory(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 30; i++ {
		h.AddOutput("entry", uint64(i))
	}
	formatted := h.FormatForPrompt(10)
	assert.Contains(t, formatted, "entries omitted")
}
